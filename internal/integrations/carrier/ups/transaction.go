package ups

import "math/rand/v2"

const (
	transactionIDLength   = 32
	transactionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

type Rand interface {
	Intn(n int) int
}

// globalRand draws from the goroutine-safe math/rand/v2 top-level source.
type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.IntN(n) }

// NewTransactionID returns a fresh 32-character [A-Za-z0-9] id for the transId header.
// A nil r uses the global source.
func NewTransactionID(r Rand) string {
	if r == nil {
		r = globalRand{}
	}
	b := make([]byte, transactionIDLength)
	for i := range b {
		b[i] = transactionIDAlphabet[r.Intn(len(transactionIDAlphabet))]
	}
	return string(b)
}
