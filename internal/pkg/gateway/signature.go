package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// BuildConfirmationBase builds the string the gateway signs for a payment
// confirmation: orderRef:paymentRef.
func BuildConfirmationBase(orderRef, paymentRef string) string {
	return orderRef + ":" + paymentRef
}

// Sign computes the hex-encoded HMAC-SHA256 of base with the shared secret.
func Sign(base, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares an expected and received hex signature in constant time.
// Comparison is case-insensitive since gateways differ in hex casing.
func VerifySignature(expectedHex, receivedHex string) bool {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// VerifyConfirmation recomputes the confirmation signature for the given refs
// and compares it against the gateway-supplied value.
func VerifyConfirmation(orderRef, paymentRef, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(BuildConfirmationBase(orderRef, paymentRef), secret)
	return VerifySignature(expected, signature)
}
