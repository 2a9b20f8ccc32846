package ledger

import (
	"context"
	"strings"
	"sync"

	"arbiter/internal/shared/events"
)

// Call is one invocation observed by Memory.
type Call struct {
	Kind    events.LedgerCallKind
	Account string
	Amount  int64
	Memo    string
}

// Memory is an in-process ledger with failure injection.
type Memory struct {
	mu           sync.Mutex
	registered   map[string]bool
	balances     map[string]int64
	failRegister map[string]error
	failTransfer map[string]error
	calls        []Call
}

func NewMemory() *Memory {
	return &Memory{
		registered:   make(map[string]bool),
		balances:     make(map[string]int64),
		failRegister: make(map[string]error),
		failTransfer: make(map[string]error),
	}
}

func (m *Memory) SetBalance(account string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[strings.TrimSpace(account)] = amount
}

// FailRegistration makes every RegisterRecipient for account return err
// (ErrRejected when err is nil).
func (m *Memory) FailRegistration(account string, err error) {
	if err == nil {
		err = ErrRejected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRegister[strings.TrimSpace(account)] = err
}

func (m *Memory) FailTransfers(account string, err error) {
	if err == nil {
		err = ErrRejected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTransfer[strings.TrimSpace(account)] = err
}

func (m *Memory) RegisterRecipient(_ context.Context, account string) error {
	account = strings.TrimSpace(account)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Kind: events.LedgerCallRegisterRecipient, Account: account})
	if err, ok := m.failRegister[account]; ok {
		return err
	}
	m.registered[account] = true
	return nil
}

func (m *Memory) TransferFunds(_ context.Context, recipient string, amount int64, memo string) error {
	recipient = strings.TrimSpace(recipient)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Kind:    events.LedgerCallTransferFunds,
		Account: recipient,
		Amount:  amount,
		Memo:    memo,
	})
	if !m.registered[recipient] {
		return ErrRecipientNotRegistered
	}
	if err, ok := m.failTransfer[recipient]; ok {
		return err
	}
	m.balances[recipient] += amount
	return nil
}

func (m *Memory) BalanceOf(_ context.Context, account string) (int64, error) {
	account = strings.TrimSpace(account)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Kind: events.LedgerCallBalanceOf, Account: account})
	return m.balances[account], nil
}

// Calls returns the observed calls of kind, or all calls when kind is empty.
func (m *Memory) Calls(kind events.LedgerCallKind) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Call, 0, len(m.calls))
	for _, call := range m.calls {
		if kind == "" || call.Kind == kind {
			items = append(items, call)
		}
	}
	return items
}

var _ Service = (*Memory)(nil)
