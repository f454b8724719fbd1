package payments

import (
	"net/url"
	"strings"

	"github.com/angelmondragon/foodrescue/pkg/enums"
)

// StatusSuccess is the only callback status treated as a successful payment.
const StatusSuccess = "success"

// Callback is the parsed payment provider redirect.
type Callback struct {
	Provider    enums.PaymentProvider `json:"provider"`
	ReferenceID string                `json:"referenceId,omitempty"`
	Status      string                `json:"status,omitempty"`
	Message     string                `json:"message,omitempty"`
}

// ParseCallback reads status, paymentId, sessionId and message from the
// redirect query.
func ParseCallback(values url.Values) Callback {
	paymentID := strings.TrimSpace(values.Get("paymentId"))
	sessionID := strings.TrimSpace(values.Get("sessionId"))

	reference := paymentID
	if reference == "" {
		reference = sessionID
	}
	return Callback{
		Provider:    InferProvider(paymentID, sessionID),
		ReferenceID: reference,
		Status:      strings.TrimSpace(values.Get("status")),
		Message:     strings.TrimSpace(values.Get("message")),
	}
}

// InferProvider maps PayPal's paymentId and Stripe's sessionId to a provider.
// When both are present the longer identifier wins and ties go to Stripe.
func InferProvider(paymentID, sessionID string) enums.PaymentProvider {
	switch {
	case paymentID != "" && sessionID == "":
		return enums.PaymentProviderPayPal
	case sessionID != "" && paymentID == "":
		return enums.PaymentProviderStripe
	case paymentID != "" && sessionID != "":
		if len(paymentID) > len(sessionID) {
			return enums.PaymentProviderPayPal
		}
		return enums.PaymentProviderStripe
	default:
		return enums.PaymentProviderUnknown
	}
}

// Succeeded reports whether the provider redirected with status=success.
func (c Callback) Succeeded() bool {
	return c.Status == StatusSuccess
}
