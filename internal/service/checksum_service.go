package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// HMACChecksumVerifier implements ports.ChecksumVerifier with HMAC-SHA256.
// The digest binds the balance to the wallet id so a value copied from
// another wallet does not verify.
type HMACChecksumVerifier struct {
	secret []byte
}

// NewHMACChecksumVerifier creates a verifier keyed by secret.
func NewHMACChecksumVerifier(secret string) *HMACChecksumVerifier {
	return &HMACChecksumVerifier{secret: []byte(secret)}
}

// Checksum returns hex(HMAC-SHA256(secret, walletID ":" balance)).
func (v *HMACChecksumVerifier) Checksum(walletID uuid.UUID, balance int64) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(walletID.String()))
	mac.Write([]byte{':'})
	mac.Write([]byte(strconv.FormatInt(balance, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the wallet's stored checksum matches its balance.
// Uses constant-time comparison.
func (v *HMACChecksumVerifier) Verify(w *domain.Wallet) bool {
	if w == nil || w.BalanceChecksum == "" {
		return false
	}
	expected := v.Checksum(w.ID, w.Balance)
	return hmac.Equal([]byte(expected), []byte(w.BalanceChecksum))
}
