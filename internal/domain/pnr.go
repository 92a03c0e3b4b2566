package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	PNRLength   = 10
	pnrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GeneratePNR returns a random 10-character uppercase alphanumeric code.
// Uniqueness is enforced by the store.
func GeneratePNR() (string, error) {
	var sb strings.Builder
	sb.Grow(PNRLength)
	max := big.NewInt(int64(len(pnrAlphabet)))
	for i := 0; i < PNRLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(pnrAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizePNR upper-cases a caller supplied code and checks its shape.
func NormalizePNR(pnr string) (string, error) {
	pnr = strings.ToUpper(strings.TrimSpace(pnr))
	if len(pnr) != PNRLength {
		return "", Validation("pnr must be %d characters", PNRLength)
	}
	for i := 0; i < len(pnr); i++ {
		if !strings.ContainsRune(pnrAlphabet, rune(pnr[i])) {
			return "", Validation("pnr must be alphanumeric")
		}
	}
	return pnr, nil
}
