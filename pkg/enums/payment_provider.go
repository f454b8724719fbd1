package enums

import (
	"fmt"
	"strings"
)

// PaymentProvider identifies the external checkout a payment was routed through.
type PaymentProvider string

const (
	PaymentProviderPayPal  PaymentProvider = "paypal"
	PaymentProviderStripe  PaymentProvider = "stripe"
	PaymentProviderUnknown PaymentProvider = "unknown"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderPayPal,
	PaymentProviderStripe,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a selectable provider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// DisplayName is the label shown in payment notices.
func (p PaymentProvider) DisplayName() string {
	switch p {
	case PaymentProviderPayPal:
		return "PayPal"
	case PaymentProviderStripe:
		return "Stripe"
	default:
		return "Payment"
	}
}

// ParsePaymentProvider converts raw input into a selectable PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	normalized := PaymentProvider(strings.ToLower(strings.TrimSpace(value)))
	for _, candidate := range validPaymentProviders {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
