package payments

import "github.com/angelmondragon/foodrescue/pkg/enums"

// NoticeKind classifies a payment notice.
type NoticeKind string

const (
	NoticeSuccess   NoticeKind = "success"
	NoticeFailure   NoticeKind = "failure"
	NoticeCancelled NoticeKind = "cancelled"
)

const (
	defaultSuccessDescription = "Your payment has been processed successfully."
	defaultFailureDescription = "There was an issue with your payment."
	defaultCancelDescription  = "Your payment has been cancelled."

	titleFailure   = "Payment Failed"
	titleCancelled = "Payment Cancelled"
)

// Notice is the display payload produced for a payment redirect.
type Notice struct {
	Kind        NoticeKind            `json:"kind"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Provider    enums.PaymentProvider `json:"provider"`
	ReferenceID string                `json:"referenceId,omitempty"`
	Refreshed   bool                  `json:"refreshed"`
	Duplicate   bool                  `json:"duplicate,omitempty"`
}

func resultNotice(cb Callback) Notice {
	if cb.Succeeded() {
		return Notice{
			Kind:        NoticeSuccess,
			Title:       cb.Provider.DisplayName() + " Payment Successful!",
			Description: orDefault(cb.Message, defaultSuccessDescription),
			Provider:    cb.Provider,
			ReferenceID: cb.ReferenceID,
		}
	}
	return Notice{
		Kind:        NoticeFailure,
		Title:       titleFailure,
		Description: orDefault(cb.Message, defaultFailureDescription),
		Provider:    cb.Provider,
		ReferenceID: cb.ReferenceID,
	}
}

func cancelNotice(cb Callback) Notice {
	return Notice{
		Kind:        NoticeCancelled,
		Title:       titleCancelled,
		Description: orDefault(cb.Message, defaultCancelDescription),
		Provider:    cb.Provider,
		ReferenceID: cb.ReferenceID,
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
