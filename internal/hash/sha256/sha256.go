// Package sha256 computes and checks SHA-256 digests of fetched content.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMismatch is returned by Verify when content does not hash to the pinned digest.
var ErrMismatch = errors.New("sha256 mismatch")

// Hasher implements retrieval.Hasher.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Verify hashes data and compares it with want, which may be in either case.
// The computed digest is returned even on mismatch.
func (h *Hasher) Verify(data []byte, want string) (string, error) {
	got, err := h.Hash(data)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(got, want) {
		return got, fmt.Errorf("%w: want %s, got %s", ErrMismatch, strings.ToLower(want), got)
	}
	return got, nil
}

// ValidDigest reports whether s looks like a hex SHA-256 digest.
func ValidDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
