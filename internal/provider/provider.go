// Package provider enumerates the supported Solana RPC providers and
// resolves them to concrete HTTP endpoints.
package provider

import (
	"fmt"
	"strings"
)

// Cluster identifies a logical Solana network.
type Cluster string

const (
	ClusterMainnet Cluster = "mainnet"
	ClusterDevnet  Cluster = "devnet"
	ClusterTestnet Cluster = "testnet"
)

func ParseCluster(s string) (Cluster, error) {
	switch Cluster(strings.ToLower(s)) {
	case ClusterMainnet:
		return ClusterMainnet, nil
	case ClusterDevnet:
		return ClusterDevnet, nil
	case ClusterTestnet:
		return ClusterTestnet, nil
	}
	return "", fmt.Errorf("unknown cluster: %q", s)
}

// SupportedProvider is a closed (operator, cluster) pair.
type SupportedProvider string

const (
	AlchemyMainnet    SupportedProvider = "alchemy-mainnet"
	AlchemyDevnet     SupportedProvider = "alchemy-devnet"
	AnkrMainnet       SupportedProvider = "ankr-mainnet"
	AnkrDevnet        SupportedProvider = "ankr-devnet"
	ChainstackMainnet SupportedProvider = "chainstack-mainnet"
	ChainstackDevnet  SupportedProvider = "chainstack-devnet"
	DrpcMainnet       SupportedProvider = "drpc-mainnet"
	DrpcDevnet        SupportedProvider = "drpc-devnet"
	HeliusMainnet     SupportedProvider = "helius-mainnet"
	HeliusDevnet      SupportedProvider = "helius-devnet"
	PublicNodeMainnet SupportedProvider = "publicnode-mainnet"
)

// HTTPHeader is a header attached to outcalls for an endpoint.
type HTTPHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Auth describes how an API key is attached to a provider URL. Exactly one
// field is set.
type Auth struct {
	// BearerURL is the request URL; the key travels in an
	// Authorization: Bearer header.
	BearerURL string `json:"bearerUrl,omitempty"`
	// URLPattern contains the {API_KEY} placeholder spliced with the key.
	URLPattern string `json:"urlPattern,omitempty"`
}

// Access is the static resolution recipe for a provider.
type Access struct {
	// Auth is set for providers requiring an API key.
	Auth *Auth `json:"auth,omitempty"`
	// APIKeyEnv names the environment variable consulted when the key
	// store has no key for the provider.
	APIKeyEnv string `json:"apiKeyEnv,omitempty"`
	// PublicURL is the keyless endpoint; for authenticated providers it is
	// the fallback used when no key is available.
	PublicURL string `json:"publicUrl,omitempty"`
}

// Endpoint is a fully resolved RPC endpoint.
type Endpoint struct {
	URL     string       `json:"url"`
	Headers []HTTPHeader `json:"headers,omitempty"`
}

// Info pairs a provider with its cluster and access recipe, as reported by
// the admin surface.
type Info struct {
	Provider SupportedProvider `json:"provider"`
	Cluster  Cluster           `json:"cluster"`
	Access   Access            `json:"access"`
}

// APIKeyPlaceholder is substituted in URLPattern during resolution.
const APIKeyPlaceholder = "{API_KEY}"

// catalogue is the static SupportedProvider -> Access mapping. Ordering and
// content are part of the caller-visible contract; changing an entry is a
// breaking upgrade.
var catalogue = map[SupportedProvider]Info{
	AlchemyMainnet: {
		Provider: AlchemyMainnet,
		Cluster:  ClusterMainnet,
		Access: Access{
			Auth:      &Auth{BearerURL: "https://solana-mainnet.g.alchemy.com/v2"},
			APIKeyEnv: "ALCHEMY_MAINNET_API_KEY",
			PublicURL: "https://solana-mainnet.g.alchemy.com/v2/demo",
		},
	},
	AlchemyDevnet: {
		Provider: AlchemyDevnet,
		Cluster:  ClusterDevnet,
		Access: Access{
			Auth:      &Auth{BearerURL: "https://solana-devnet.g.alchemy.com/v2"},
			APIKeyEnv: "ALCHEMY_DEVNET_API_KEY",
			PublicURL: "https://solana-devnet.g.alchemy.com/v2/demo",
		},
	},
	AnkrMainnet: {
		Provider: AnkrMainnet,
		Cluster:  ClusterMainnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://rpc.ankr.com/solana/{API_KEY}"},
			APIKeyEnv: "ANKR_MAINNET_API_KEY",
			PublicURL: "https://rpc.ankr.com/solana",
		},
	},
	AnkrDevnet: {
		Provider: AnkrDevnet,
		Cluster:  ClusterDevnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://rpc.ankr.com/solana_devnet/{API_KEY}"},
			APIKeyEnv: "ANKR_DEVNET_API_KEY",
			PublicURL: "https://rpc.ankr.com/solana_devnet",
		},
	},
	ChainstackMainnet: {
		Provider: ChainstackMainnet,
		Cluster:  ClusterMainnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://solana-mainnet.core.chainstack.com/{API_KEY}"},
			APIKeyEnv: "CHAINSTACK_MAINNET_API_KEY",
		},
	},
	ChainstackDevnet: {
		Provider: ChainstackDevnet,
		Cluster:  ClusterDevnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://solana-devnet.core.chainstack.com/{API_KEY}"},
			APIKeyEnv: "CHAINSTACK_DEVNET_API_KEY",
		},
	},
	DrpcMainnet: {
		Provider: DrpcMainnet,
		Cluster:  ClusterMainnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://lb.drpc.org/ogrpc?network=solana&dkey={API_KEY}"},
			APIKeyEnv: "DRPC_MAINNET_API_KEY",
			PublicURL: "https://solana.drpc.org",
		},
	},
	DrpcDevnet: {
		Provider: DrpcDevnet,
		Cluster:  ClusterDevnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://lb.drpc.org/ogrpc?network=solana-devnet&dkey={API_KEY}"},
			APIKeyEnv: "DRPC_DEVNET_API_KEY",
			PublicURL: "https://solana-devnet.drpc.org",
		},
	},
	HeliusMainnet: {
		Provider: HeliusMainnet,
		Cluster:  ClusterMainnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://mainnet.helius-rpc.com/?api-key={API_KEY}"},
			APIKeyEnv: "HELIUS_MAINNET_API_KEY",
		},
	},
	HeliusDevnet: {
		Provider: HeliusDevnet,
		Cluster:  ClusterDevnet,
		Access: Access{
			Auth:      &Auth{URLPattern: "https://devnet.helius-rpc.com/?api-key={API_KEY}"},
			APIKeyEnv: "HELIUS_DEVNET_API_KEY",
		},
	},
	PublicNodeMainnet: {
		Provider: PublicNodeMainnet,
		Cluster:  ClusterMainnet,
		Access: Access{
			PublicURL: "https://solana-rpc.publicnode.com",
		},
	},
}

// defaultProviders is the canonical ordered provider set per cluster, by
// stable priority. Providers with a keyless fallback rank first so a
// fresh install answers Default(cluster) calls before any key is stored.
var defaultProviders = map[Cluster][]SupportedProvider{
	ClusterMainnet: {
		AlchemyMainnet,
		AnkrMainnet,
		DrpcMainnet,
		PublicNodeMainnet,
		HeliusMainnet,
		ChainstackMainnet,
	},
	ClusterDevnet: {
		AlchemyDevnet,
		AnkrDevnet,
		DrpcDevnet,
		HeliusDevnet,
		ChainstackDevnet,
	},
}

// Lookup returns the catalogue entry for a provider id.
func Lookup(p SupportedProvider) (Info, bool) {
	info, ok := catalogue[p]
	return info, ok
}

// ParseProvider validates a provider id against the catalogue.
func ParseProvider(s string) (SupportedProvider, error) {
	p := SupportedProvider(s)
	if _, ok := catalogue[p]; !ok {
		return "", fmt.Errorf("unsupported provider: %q", s)
	}
	return p, nil
}

// DefaultProviders returns the canonical ordered provider set for a cluster.
func DefaultProviders(c Cluster) ([]SupportedProvider, bool) {
	ps, ok := defaultProviders[c]
	return ps, ok
}
