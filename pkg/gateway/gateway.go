package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmarroquin/kitloop-backend/pkg/config"
)

// Verifier checks payment-completion signatures issued by the payment
// gateway. The gateway signs the pipe-joined order and payment identifiers
// with HMAC-SHA256 over a shared secret.
type Verifier struct {
	secret        []byte
	orderIDPrefix string
}

// NewVerifier builds a Verifier from gateway configuration.
func NewVerifier(cfg config.GatewayConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.HMACSecret) == "" {
		return nil, fmt.Errorf("gateway hmac secret is required")
	}
	return &Verifier{
		secret:        []byte(cfg.HMACSecret),
		orderIDPrefix: cfg.OrderIDPrefix,
	}, nil
}

// MintOrderID produces a fresh gateway order identifier for an intent.
func (v *Verifier) MintOrderID() string {
	return fmt.Sprintf("%s_%s", v.orderIDPrefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Sign computes the expected hex signature for an order/payment pair. Exposed
// so tests and sandbox tooling can mint valid callbacks.
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the supplied signature matches the order/payment
// pair. Comparison is constant time.
func (v *Verifier) Verify(orderID, paymentID, signature string) bool {
	expected := v.Sign(orderID, paymentID)
	provided := strings.ToLower(strings.TrimSpace(signature))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
