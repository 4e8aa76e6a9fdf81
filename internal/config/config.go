// Package config loads the install configuration. Everything here is
// fixed at startup; the API-key store is the only state mutable at
// runtime, through the admin surface.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fystack/solana-gateway/internal/cycles"
)

var validate = validator.New()

// Duration is a time.Duration that unmarshals from "5s"-style YAML
// scalars or raw nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(v)
		return nil
	default:
		return fmt.Errorf("duration must be a string or integer, got %T", raw)
	}
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
}

type GatewayConfig struct {
	ListenAddr     string        `yaml:"listen_addr"      validate:"required"`
	Mode           string        `yaml:"mode"             validate:"omitempty,oneof=normal demo"`
	NumSubnetNodes int           `yaml:"num_subnet_nodes" validate:"omitempty,min=1"`
	RequestTimeout Duration      `yaml:"request_timeout"`

	// ManageAPIKeys is the ACL of tokens allowed to mutate API keys.
	ManageAPIKeys []string `yaml:"manage_api_keys"`

	LogFilter        LogFilterConfig `yaml:"log_filter"`
	OverrideProvider *OverrideConfig `yaml:"override_provider"`
	Keystore         KeystoreConfig  `yaml:"keystore"`
	NATS             NATSConfig      `yaml:"nats"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

type LogFilterConfig struct {
	Kind    string `yaml:"kind"    validate:"omitempty,oneof=show_all hide_all show_pattern hide_pattern"`
	Pattern string `yaml:"pattern"`
}

// OverrideConfig rewrites resolved provider URLs, applied post-resolution.
type OverrideConfig struct {
	Pattern     string `yaml:"pattern"     validate:"required"`
	Replacement string `yaml:"replacement"`
}

type KeystoreConfig struct {
	// Path to the badger directory; empty selects the in-memory store.
	Path string `yaml:"path"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" validate:"omitempty,min=1"`
	BurstSize         int `yaml:"burst_size"          validate:"omitempty,min=1"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	g := &c.Gateway
	if g.ListenAddr == "" {
		g.ListenAddr = ":8545"
	}
	if g.Mode == "" {
		g.Mode = string(cycles.ModeNormal)
	}
	if g.NumSubnetNodes == 0 {
		g.NumSubnetNodes = cycles.DefaultNumSubnetNodes
	}
	if g.RequestTimeout == 0 {
		g.RequestTimeout = Duration(10 * time.Second)
	}
	if g.LogFilter.Kind == "" {
		g.LogFilter.Kind = "show_all"
	}
}
