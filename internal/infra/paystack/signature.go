package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// VerifySignature checks a webhook body against the hex HMAC-SHA512 that
// Paystack computes with the account secret key.
func VerifySignature(payload []byte, signature, secretKey string) bool {
	sig := strings.TrimSpace(signature)
	secret := strings.TrimSpace(secretKey)
	if sig == "" || secret == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the signature Paystack would send for payload.
func Sign(payload []byte, secretKey string) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
