// Package payment checks payment gateway callbacks.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrNoSecret = errors.New("payment secret is not configured")

// HMACVerifier accepts a callback when signature is the hex HMAC-SHA256 of
// "orderRef|paymentRef" under the shared gateway secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, orderRef, paymentRef, signature string) (bool, error) {
	if len(v.secret) == 0 {
		return false, ErrNoSecret
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false, nil
	}

	return hmac.Equal(got, v.sum(orderRef, paymentRef)), nil
}

// Sign returns the signature Verify accepts. The gateway computes the same
// value on its side.
func (v *HMACVerifier) Sign(orderRef, paymentRef string) string {
	return hex.EncodeToString(v.sum(orderRef, paymentRef))
}

func (v *HMACVerifier) sum(orderRef, paymentRef string) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return mac.Sum(nil)
}
