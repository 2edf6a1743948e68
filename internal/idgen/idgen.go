// Package idgen issues human-shareable identifiers of the form PREFIX-CODE.
// Codes are drawn uniformly from [A-Z0-9] with crypto/rand. Uniqueness is
// enforced by the storage layer; callers retry on collision.
package idgen

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	TransactionPrefix = "TXN"
	WalletPrefix      = "QP"

	TransactionCodeLength = 7
	WalletCodeLength      = 10
)

type Generator struct {
	length int
	source io.Reader
}

func New(length int) *Generator {
	return &Generator{length: length, source: rand.Reader}
}

func NewWithSource(length int, source io.Reader) *Generator {
	return &Generator{length: length, source: source}
}

func (g *Generator) Generate(prefix string) (string, error) {
	var b strings.Builder
	b.Grow(len(prefix) + 1 + g.length)
	b.WriteString(prefix)
	b.WriteByte('-')
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(g.source, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
