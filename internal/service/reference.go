package service

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	// ReferencePrefix starts every transaction reference. It is reserved for
	// references the service generates.
	ReferencePrefix = "WTX-"

	// MaxReferenceLength matches the width of the reference columns.
	MaxReferenceLength = 64
)

// NewReference returns a fresh transaction reference carrying a random
// 128-bit token, such as WTX-9B2F0C1E5A444C7E8E0B3D1A2F6C7B90.
func NewReference() string {
	var token [16]byte
	_, _ = rand.Read(token[:])
	return ReferencePrefix + strings.ToUpper(hex.EncodeToString(token[:]))
}
