// Package staging holds raw payloads posted by the bookmarklets between the
// moment a browser posts them and the moment they are claimed with a one-time
// code.
package staging

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

const (
	DefaultTTL = 5 * time.Minute
	codeLength = 16
	// No 0/O, 1/I/l or o.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
)

var ErrNotFound = errors.New("staged payload not found or expired")

// Kind separates payload families: a code issued for one kind cannot be
// taken as another.
type Kind string

const (
	KindReputation   Kind = "reputation"
	KindTranslations Kind = "translations"
)

// Store keeps payloads for a limited time. Take returns a payload at most once.
type Store interface {
	Put(ctx context.Context, kind Kind, payload []byte) (string, error)
	Take(ctx context.Context, kind Kind, code string) ([]byte, error)
}

func storeKey(kind Kind, code string) string {
	return string(kind) + ":" + code
}

func newCode() (string, error) {
	return NewCode(codeLength)
}

// NewCode returns a random code of n characters from an alphabet without
// look-alike characters.
func NewCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ValidCode reports whether code could have been issued by a Store.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !containsByte(codeAlphabet, code[i]) {
			return false
		}
	}
	return true
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}
