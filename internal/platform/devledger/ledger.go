// Package devledger is a local stand-in for the ExternalLedgerService. It
// keeps registrations, balances and a compressed transfer journal in pebble
// and serves the JSON API spoken by ledger.HTTPClient.
package devledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"arbiter/internal/platform/ledger"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

var (
	prefixRecipient = []byte("r:")
	prefixBalance   = []byte("b:")
	prefixJournal   = []byte("j:")
	keySequence     = []byte("m:seq")
)

// Receipt is one journaled transfer.
type Receipt struct {
	ReceiptID string    `json:"receipt_id"`
	Sequence  uint64    `json:"sequence"`
	Recipient string    `json:"recipient"`
	Amount    int64     `json:"amount"`
	Memo      string    `json:"memo,omitempty"`
	At        time.Time `json:"at"`
}

// Ledger implements ledger.Service on top of pebble. Writes are serialized by
// a single mutex; reads go straight to the store.
type Ledger struct {
	mu      sync.Mutex
	db      *pebble.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	ready   atomic.Bool
	now     func() time.Time
	logger  *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := pebble.Open(path, &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("open dev ledger store: %w", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create journal decoder: %w", err)
	}
	l := &Ledger{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
	l.ready.Store(true)
	return l, nil
}

func (l *Ledger) Close() error {
	l.decoder.Close()
	if err := l.encoder.Close(); err != nil {
		return err
	}
	return l.db.Close()
}

// SetReady toggles whether calls are served. While not ready every call
// fails with ledger.ErrNotReady.
func (l *Ledger) SetReady(ready bool) {
	l.ready.Store(ready)
}

func (l *Ledger) RegisterRecipient(_ context.Context, account string) error {
	account = strings.TrimSpace(account)
	if err := l.admit(account); err != nil {
		return err
	}
	if err := l.db.Set(recipientKey(account), []byte{1}, pebble.Sync); err != nil {
		return err
	}
	l.logger.Info("recipient registered",
		"event", "devledger_recipient_registered",
		"module", "internal/platform/devledger",
		"layer", "platform",
		"account", account,
	)
	return nil
}

func (l *Ledger) TransferFunds(ctx context.Context, recipient string, amount int64, memo string) error {
	_, err := l.Transfer(ctx, recipient, amount, memo)
	return err
}

// Transfer credits recipient and journals the transfer under a receipt id
// derived from the sequence number and the transfer fields.
func (l *Ledger) Transfer(_ context.Context, recipient string, amount int64, memo string) (Receipt, error) {
	recipient = strings.TrimSpace(recipient)
	if err := l.admit(recipient); err != nil {
		return Receipt{}, err
	}
	if amount <= 0 {
		return Receipt{}, fmt.Errorf("%w: amount must be greater than zero", ledger.ErrRejected)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	registered, err := l.has(recipientKey(recipient))
	if err != nil {
		return Receipt{}, err
	}
	if !registered {
		return Receipt{}, ledger.ErrRecipientNotRegistered
	}
	balance, err := l.readInt(balanceKey(recipient))
	if err != nil {
		return Receipt{}, err
	}
	sequence, err := l.readInt(keySequence)
	if err != nil {
		return Receipt{}, err
	}
	sequence++

	receipt := Receipt{
		ReceiptID: receiptID(uint64(sequence), recipient, amount, memo),
		Sequence:  uint64(sequence),
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
		At:        l.now(),
	}
	entry, err := json.Marshal(receipt)
	if err != nil {
		return Receipt{}, err
	}

	batch := l.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(balanceKey(recipient), encodeInt(balance+amount), nil); err != nil {
		return Receipt{}, err
	}
	if err := batch.Set(keySequence, encodeInt(sequence), nil); err != nil {
		return Receipt{}, err
	}
	if err := batch.Set(journalKey(receipt.Sequence), l.encoder.EncodeAll(entry, nil), nil); err != nil {
		return Receipt{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return Receipt{}, err
	}

	l.logger.Info("transfer journaled",
		"event", "devledger_transfer_committed",
		"module", "internal/platform/devledger",
		"layer", "platform",
		"recipient", recipient,
		"amount", amount,
		"receipt_id", receipt.ReceiptID,
	)
	return receipt, nil
}

func (l *Ledger) BalanceOf(_ context.Context, account string) (int64, error) {
	account = strings.TrimSpace(account)
	if err := l.admit(account); err != nil {
		return 0, err
	}
	return l.readInt(balanceKey(account))
}

// Seed sets the balance of account without journaling. It is used to give
// voters stake in local runs.
func (l *Ledger) Seed(account string, balance int64) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("%w: account is required", ledger.ErrRejected)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Set(balanceKey(account), encodeInt(balance), pebble.Sync)
}

// Receipts returns the journal in sequence order.
func (l *Ledger) Receipts() ([]Receipt, error) {
	items := make([]Receipt, 0)
	err := l.iteratePrefix(prefixJournal, func(_ []byte, value []byte) error {
		payload, err := l.decoder.DecodeAll(value, nil)
		if err != nil {
			return err
		}
		var receipt Receipt
		if err := json.Unmarshal(payload, &receipt); err != nil {
			return err
		}
		items = append(items, receipt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (l *Ledger) admit(account string) error {
	if !l.ready.Load() {
		return ledger.ErrNotReady
	}
	if account == "" {
		return fmt.Errorf("%w: account is required", ledger.ErrRejected)
	}
	return nil
}

func (l *Ledger) has(key []byte) (bool, error) {
	_, closer, err := l.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (l *Ledger) readInt(key []byte) (int64, error) {
	value, closer, err := l.db.Get(key)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return decodeInt(key, value)
}

func (l *Ledger) iteratePrefix(prefix []byte, fn func(key []byte, value []byte) error) error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}
		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func receiptID(sequence uint64, recipient string, amount int64, memo string) string {
	hasher := blake3.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sequence)
	_, _ = hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(amount))
	_, _ = hasher.Write(buf[:])
	_, _ = hasher.Write([]byte(recipient))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(memo))
	return base58.Encode(hasher.Sum(nil)[:16])
}

func recipientKey(account string) []byte {
	return append(append([]byte(nil), prefixRecipient...), account...)
}

func balanceKey(account string) []byte {
	return append(append([]byte(nil), prefixBalance...), account...)
}

func journalKey(sequence uint64) []byte {
	key := append([]byte(nil), prefixJournal...)
	return binary.BigEndian.AppendUint64(key, sequence)
}

func decodeInt(key []byte, value []byte) (int64, error) {
	if len(value) != 8 {
		return 0, fmt.Errorf("corrupt counter at %q", key)
	}
	return int64(binary.BigEndian.Uint64(value)), nil
}

func encodeInt(value int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(value))
}

// prefixUpperBound returns the exclusive upper bound of a prefix scan.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper
		}
	}
	return nil
}

var _ ledger.Service = (*Ledger)(nil)
