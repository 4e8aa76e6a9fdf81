package provider

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/fystack/solana-gateway/internal/keystore"
	"github.com/fystack/solana-gateway/internal/rpc"
)

// Override rewrites resolved endpoint URLs with a regex substitution.
// Applied after resolution, typically to redirect traffic in test setups.
type Override struct {
	pattern     *regexp.Regexp
	replacement string
}

func NewOverride(pattern, replacement string) (*Override, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile override pattern: %w", err)
	}
	return &Override{pattern: re, replacement: replacement}, nil
}

func (o *Override) Apply(url string) string {
	return o.pattern.ReplaceAllString(url, o.replacement)
}

// Registry resolves supported providers to endpoints. It reads the key
// store and never mutates it.
type Registry struct {
	keys     keystore.Store
	override *Override
}

func NewRegistry(keys keystore.Store, override *Override) *Registry {
	return &Registry{keys: keys, override: override}
}

// List returns every catalogue entry, ordered by provider id.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(catalogue))
	for _, info := range catalogue {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Provider < infos[j].Provider })
	return infos
}

// Resolve produces the endpoint for a supported provider: static access
// lookup, API-key substitution, then the optional URL override.
func (r *Registry) Resolve(p SupportedProvider) (Endpoint, rpc.CallError) {
	info, ok := catalogue[p]
	if !ok {
		return Endpoint{}, &rpc.InvalidConfigError{Message: fmt.Sprintf("unsupported provider: %s", p)}
	}

	endpoint, cerr := r.resolveAccess(p, info.Access)
	if cerr != nil {
		return Endpoint{}, cerr
	}
	if r.override != nil {
		endpoint.URL = r.override.Apply(endpoint.URL)
	}
	return endpoint, nil
}

// ResolveEndpoint applies the URL override to a caller-supplied endpoint.
func (r *Registry) ResolveEndpoint(e Endpoint) Endpoint {
	if r.override != nil {
		e.URL = r.override.Apply(e.URL)
	}
	return e
}

func (r *Registry) resolveAccess(p SupportedProvider, access Access) (Endpoint, rpc.CallError) {
	if access.Auth == nil {
		return Endpoint{URL: access.PublicURL}, nil
	}

	key, err := r.keys.Get(string(p))
	if err != nil {
		if !errors.Is(err, keystore.ErrKeyNotFound) {
			return Endpoint{}, &rpc.InvalidConfigError{Message: fmt.Sprintf("key store: %v", err)}
		}
		// No stored key: fall back to the provider's environment
		// variable, then the keyless endpoint.
		if access.APIKeyEnv != "" {
			key = os.Getenv(access.APIKeyEnv)
		}
		if key == "" {
			if access.PublicURL != "" {
				return Endpoint{URL: access.PublicURL}, nil
			}
			return Endpoint{}, &rpc.InvalidConfigError{
				Message: fmt.Sprintf("provider %s requires an API key and none is stored", p),
			}
		}
	}

	if access.Auth.BearerURL != "" {
		return Endpoint{
			URL:     access.Auth.BearerURL,
			Headers: []HTTPHeader{{Name: "Authorization", Value: "Bearer " + key}},
		}, nil
	}
	return Endpoint{URL: substituteAPIKey(access.Auth.URLPattern, key)}, nil
}

func substituteAPIKey(pattern, key string) string {
	out := make([]byte, 0, len(pattern)+len(key))
	for i := 0; i < len(pattern); {
		if i+len(APIKeyPlaceholder) <= len(pattern) && pattern[i:i+len(APIKeyPlaceholder)] == APIKeyPlaceholder {
			out = append(out, key...)
			i += len(APIKeyPlaceholder)
			continue
		}
		out = append(out, pattern[i])
		i++
	}
	return string(out)
}
