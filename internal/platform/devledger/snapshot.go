package devledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/cockroachdb/pebble"
	"github.com/zeebo/blake3"
)

const snapshotVersion = 1

var ErrSnapshotChecksum = errors.New("snapshot checksum mismatch")

type AccountState struct {
	Account    string `json:"account"`
	Registered bool   `json:"registered"`
	Balance    int64  `json:"balance"`
}

// Snapshot is the account state of a ledger at one journal sequence. The
// journal itself is not part of it.
type Snapshot struct {
	Version  int            `json:"version"`
	Sequence int64          `json:"sequence"`
	Accounts []AccountState `json:"accounts"`
	Checksum string         `json:"checksum"`
}

// WriteSnapshot writes a zstd-compressed JSON snapshot to w.
func (l *Ledger) WriteSnapshot(w io.Writer) (Snapshot, error) {
	l.mu.Lock()
	snapshot, err := l.collect()
	l.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Snapshot{}, err
	}
	if _, err := w.Write(l.encoder.EncodeAll(payload, nil)); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// RestoreSnapshot verifies the snapshot in r and writes its accounts into
// the ledger in one batch. Existing keys for the same accounts are replaced.
func (l *Ledger) RestoreSnapshot(r io.Reader) (Snapshot, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, err
	}
	payload, err := l.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompress snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}
	if checksum(snapshot.Sequence, snapshot.Accounts) != snapshot.Checksum {
		return Snapshot{}, ErrSnapshotChecksum
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.db.NewBatch()
	defer batch.Close()
	for _, account := range snapshot.Accounts {
		if account.Registered {
			if err := batch.Set(recipientKey(account.Account), []byte{1}, nil); err != nil {
				return Snapshot{}, err
			}
		}
		if err := batch.Set(balanceKey(account.Account), encodeInt(account.Balance), nil); err != nil {
			return Snapshot{}, err
		}
	}
	if err := batch.Set(keySequence, encodeInt(snapshot.Sequence), nil); err != nil {
		return Snapshot{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

func (l *Ledger) collect() (Snapshot, error) {
	accounts := make(map[string]*AccountState)
	state := func(account string) *AccountState {
		item, ok := accounts[account]
		if !ok {
			item = &AccountState{Account: account}
			accounts[account] = item
		}
		return item
	}
	err := l.iteratePrefix(prefixRecipient, func(key []byte, _ []byte) error {
		state(string(bytes.TrimPrefix(key, prefixRecipient))).Registered = true
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	err = l.iteratePrefix(prefixBalance, func(key []byte, value []byte) error {
		balance, err := decodeInt(key, value)
		if err != nil {
			return err
		}
		state(string(bytes.TrimPrefix(key, prefixBalance))).Balance = balance
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	sequence, err := l.readInt(keySequence)
	if err != nil {
		return Snapshot{}, err
	}

	items := make([]AccountState, 0, len(accounts))
	for _, item := range accounts {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Account < items[j].Account
	})
	return Snapshot{
		Version:  snapshotVersion,
		Sequence: sequence,
		Accounts: items,
		Checksum: checksum(sequence, items),
	}, nil
}

// checksum hashes the canonical JSON of the sorted accounts and the sequence.
func checksum(sequence int64, accounts []AccountState) string {
	hasher := blake3.New()
	_, _ = hasher.Write(encodeInt(sequence))
	for _, account := range accounts {
		line, _ := json.Marshal(account)
		_, _ = hasher.Write(line)
		_, _ = hasher.Write([]byte{'\n'})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
