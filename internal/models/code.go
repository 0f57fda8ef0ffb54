package models

import (
	"crypto/rand"
	"math/big"
)

const (
	orderCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderCodeLength   = 10
)

// GenerateOrderCode returns a short human-facing order code such as "K3Q9ZT01AB"
func GenerateOrderCode() string {
	code := make([]byte, orderCodeLength)
	limit := big.NewInt(int64(len(orderCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		code[i] = orderCodeAlphabet[n.Int64()]
	}
	return string(code)
}
