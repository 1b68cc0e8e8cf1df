package health

import (
	"context"
	"fmt"

	"azdoauth/internal/provider"
)

// ProviderSource is satisfied by *provider.Registry
type ProviderSource interface {
	Get(id string) (provider.Provider, error)
}

// ProviderCheck fails while id is not registered, e.g. before the first
// successful config load.
func ProviderCheck(providers ProviderSource, id string) Check {
	return func(ctx context.Context) error {
		if _, err := providers.Get(id); err != nil {
			return fmt.Errorf("provider %s: %w", id, err)
		}
		return nil
	}
}

// ConfigCheck reports the last reload error, if any. lastErr is called on
// every run so it must be safe for concurrent use.
func ConfigCheck(lastErr func() error) Check {
	return func(ctx context.Context) error {
		return lastErr()
	}
}
