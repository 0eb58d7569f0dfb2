package usecase

import (
	"crypto/rand"
	"encoding/hex"
)

// codeAlphabet leaves out characters people confuse when reading aloud:
// 0/O and 1/I. 32 symbols, so a byte maps onto it without modulo bias.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	confirmationCodeLength = 6
	approvalTokenBytes     = 32
	maxCodeAttempts        = 5
)

func generateConfirmationCode() (string, error) {
	b := make([]byte, confirmationCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// generateApprovalToken returns 256 random bits, hex encoded.
func generateApprovalToken() (string, error) {
	b := make([]byte, approvalTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
