package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature delivered after checkout:
// HMAC-SHA256 over "<paymentID>|<subscriptionID>" keyed by the API key secret.
// Mismatch means the payload cannot be trusted at all.
func VerifyPaymentSignature(paymentID, subscriptionID, signature, keySecret string) bool {
	expected := computeHMAC([]byte(paymentID+"|"+subscriptionID), keySecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header:
// HMAC-SHA256 over the raw request body keyed by the webhook secret.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	expected := computeHMAC(body, webhookSecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func computeHMAC(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
