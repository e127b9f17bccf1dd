package wallet

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

var ErrInvalidSignature = errors.New("wallet: invalid webhook signature")

func signSHA512(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signSHA256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySHA512 checks an HMAC-SHA512 hex signature over the raw body.
// Comparison is constant-time.
func verifySHA512(secret string, body []byte, signature string) error {
	if !hmac.Equal([]byte(signSHA512(secret, body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func verifySHA256(secret string, body []byte, signature string) error {
	if !hmac.Equal([]byte(signSHA256(secret, body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
