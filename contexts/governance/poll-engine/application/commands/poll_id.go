package commands

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// NewPollID derives a poll id as base58(blake3(32 random bytes)).
func NewPollID() (string, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	sum := blake3.Sum256(seed)
	return base58.Encode(sum[:]), nil
}
