// Package tripay is the adapter for the Tripay payment gateway: request
// signing, closed transaction creation, channel listing, transaction detail
// with a bounded self-heal, and callback signature verification.
package tripay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// BuildSignature signs a transaction creation request:
// HMAC-SHA256(privateKey, merchantCode + merchantRef + amount).
func BuildSignature(privateKey, merchantCode, merchantRef string, amount int64) string {
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write([]byte(merchantCode + merchantRef + strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackSignature checks the webhook signature against the exact raw
// request body bytes. Re-serializing the parsed payload can shift bytes and
// produce false mismatches, so callers must pass the body as received.
func VerifyCallbackSignature(privateKey string, rawBody []byte, headerSignature string) bool {
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(headerSignature))))
}

// VerifyLegacySignature is the fallback for callers that cannot supply raw
// bytes: the signature covers merchantCode + merchantRef + amount.
func VerifyLegacySignature(privateKey, merchantCode, merchantRef string, amount int64, signature string) bool {
	expected := BuildSignature(privateKey, merchantCode, merchantRef, amount)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
