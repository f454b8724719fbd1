package payments

import (
	"context"

	"github.com/angelmondragon/foodrescue/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
)

const msgProvidersFailed = "Failed to fetch payment providers"

// ProviderLister lists the provider ids enabled on the gateway.
type ProviderLister interface {
	PaymentProviders(ctx context.Context) ([]string, error)
}

// Providers returns the enabled providers in gateway order. Unknown ids are
// skipped and duplicates collapsed.
func Providers(ctx context.Context, lister ProviderLister) ([]enums.PaymentProvider, error) {
	raw, err := lister.PaymentProviders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, msgProvidersFailed)
	}
	seen := make(map[enums.PaymentProvider]struct{}, len(raw))
	out := make([]enums.PaymentProvider, 0, len(raw))
	for _, id := range raw {
		provider, err := enums.ParsePaymentProvider(id)
		if err != nil {
			continue
		}
		if _, ok := seen[provider]; ok {
			continue
		}
		seen[provider] = struct{}{}
		out = append(out, provider)
	}
	return out, nil
}
