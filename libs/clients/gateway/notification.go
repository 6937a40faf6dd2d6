package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Notification is the body the gateway posts to the payment webhook
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	SignatureKey      string `json:"signature_key"`
}

// Sign computes the signature key the gateway attaches to n
func Sign(n *Notification, serverKey string) string {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether n was signed with serverKey
func Verify(n *Notification, serverKey string) bool {
	if n == nil || n.SignatureKey == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(Sign(n, serverKey)), []byte(n.SignatureKey)) == 1
}
