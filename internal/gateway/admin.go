package gateway

import (
	"errors"
	"fmt"

	"github.com/fystack/solana-gateway/internal/keystore"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/pkg/logger"
)

// ErrUnauthorized is returned when the caller may not manage API keys.
var ErrUnauthorized = errors.New("caller is not authorized to manage API keys")

// Admin is the key-management surface, separate from the call path, which
// only ever reads the store through the registry.
type Admin struct {
	keys   keystore.Store
	tokens map[string]struct{}
}

// NewAdmin builds the admin surface. tokens is the manageApiKeys ACL.
func NewAdmin(keys keystore.Store, tokens []string) *Admin {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return &Admin{keys: keys, tokens: set}
}

// KeyUpdate upserts (Key set) or deletes (Key nil) one provider's API key.
type KeyUpdate struct {
	Provider string  `json:"provider"`
	Key      *string `json:"key"`
}

// GetProviders lists the provider catalogue.
func (g *Gateway) GetProviders() []provider.Info {
	return g.registry.List()
}

// UpdateAPIKeys applies key updates after checking the caller's token
// against the ACL. Every update names a catalogued provider or the whole
// batch is rejected before any write.
func (a *Admin) UpdateAPIKeys(token string, updates []KeyUpdate) error {
	if _, ok := a.tokens[token]; !ok {
		return ErrUnauthorized
	}

	for _, u := range updates {
		if _, err := provider.ParseProvider(u.Provider); err != nil {
			return err
		}
	}
	for _, u := range updates {
		if u.Key == nil {
			if err := a.keys.Delete(u.Provider); err != nil {
				return fmt.Errorf("delete key for %s: %w", u.Provider, err)
			}
			logger.Info("API key deleted", "provider", u.Provider)
			continue
		}
		if err := a.keys.Set(u.Provider, *u.Key); err != nil {
			return fmt.Errorf("store key for %s: %w", u.Provider, err)
		}
		logger.Info("API key updated", "provider", u.Provider)
	}
	return nil
}
