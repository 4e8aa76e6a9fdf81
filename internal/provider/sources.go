package provider

import (
	"fmt"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// Source is a single RPC source: either a supported provider or a
// caller-supplied custom endpoint.
type Source struct {
	Provider SupportedProvider `json:"provider,omitempty"`
	Custom   *Endpoint         `json:"custom,omitempty"`
}

// ID is the stable identifier used in inconsistency reports and for
// deterministic tie-breaking.
func (s Source) ID() string {
	if s.Custom != nil {
		return "custom:" + s.Custom.URL
	}
	return string(s.Provider)
}

// Sources selects the provider set for one call: a cluster default set or
// an explicit custom list. Exactly one of the two is set.
type Sources struct {
	Cluster Cluster  `json:"cluster,omitempty"`
	Custom  []Source `json:"custom,omitempty"`
}

func DefaultSources(c Cluster) Sources {
	return Sources{Cluster: c}
}

func CustomSources(sources ...Source) Sources {
	return Sources{Custom: sources}
}

func (s Sources) IsDefault() bool {
	return len(s.Custom) == 0
}

// Select returns the ordered sources contacted for this call. For a default
// set, the first contactCount providers of the cluster's canonical list; for
// a custom list, the list exactly as given.
func (s Sources) Select(contactCount int) ([]Source, rpc.CallError) {
	if !s.IsDefault() {
		return s.Custom, nil
	}

	providers, ok := DefaultProviders(s.Cluster)
	if !ok {
		return nil, &rpc.UnsupportedClusterError{
			Message: fmt.Sprintf("no default providers for cluster %q", s.Cluster),
		}
	}
	if contactCount > len(providers) {
		return nil, &rpc.InvalidConfigError{
			Message: fmt.Sprintf("strategy needs %d providers, cluster %s has %d",
				contactCount, s.Cluster, len(providers)),
		}
	}
	sources := make([]Source, contactCount)
	for i, p := range providers[:contactCount] {
		sources[i] = Source{Provider: p}
	}
	return sources, nil
}

// Available reports how many sources the set can contact.
func (s Sources) Available() (int, rpc.CallError) {
	if !s.IsDefault() {
		return len(s.Custom), nil
	}
	providers, ok := DefaultProviders(s.Cluster)
	if !ok {
		return 0, &rpc.UnsupportedClusterError{
			Message: fmt.Sprintf("no default providers for cluster %q", s.Cluster),
		}
	}
	return len(providers), nil
}

// ResolveSource produces the endpoint for a source.
func (r *Registry) ResolveSource(s Source) (Endpoint, rpc.CallError) {
	if s.Custom != nil {
		return r.ResolveEndpoint(*s.Custom), nil
	}
	return r.Resolve(s.Provider)
}
