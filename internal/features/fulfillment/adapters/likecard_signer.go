package adapters

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Signer derives the LikeCard request hash from the merchant identity and a timestamp.
type Signer struct {
	email   string
	phone   string
	hashKey string
}

// NewSigner creates a Signer for the given merchant identity and shared secret.
func NewSigner(email, phone, hashKey string) *Signer {
	return &Signer{
		email:   email,
		phone:   phone,
		hashKey: hashKey,
	}
}

// Sign returns hex(sha256(timestamp + lower(merchantEmail) + phone + hashKey)).
func (s *Signer) Sign(timestamp int64) string {
	return s.SignFor(timestamp, s.email)
}

// SignFor signs with an explicit identity email, used in customer-identity mode.
func (s *Signer) SignFor(timestamp int64, email string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(timestamp, 10) + strings.ToLower(email) + s.phone + s.hashKey))
	return hex.EncodeToString(sum[:])
}
