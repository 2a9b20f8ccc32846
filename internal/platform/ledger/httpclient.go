package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient calls a ledger service speaking the dev ledger JSON API.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

type RegisterRecipientRequest struct {
	Account string `json:"account"`
}

type TransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

type TransferResponse struct {
	ReceiptID string `json:"receipt_id"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) RegisterRecipient(ctx context.Context, account string) error {
	return c.do(ctx, http.MethodPost, "/v1/recipients", RegisterRecipientRequest{Account: account}, nil)
}

func (c *HTTPClient) TransferFunds(ctx context.Context, recipient string, amount int64, memo string) error {
	return c.do(ctx, http.MethodPost, "/v1/transfers", TransferRequest{
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
	}, &TransferResponse{})
}

func (c *HTTPClient) BalanceOf(ctx context.Context, account string) (int64, error) {
	var resp BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/v1/balances/"+url.PathEscape(account), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *HTTPClient) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var failure ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&failure)
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrNotReady, failure.Message)
	case failure.Code == "recipient_not_registered":
		return ErrRecipientNotRegistered
	default:
		return fmt.Errorf("%w: status %d %s", ErrRejected, resp.StatusCode, failure.Message)
	}
}

var _ Service = (*HTTPClient)(nil)
