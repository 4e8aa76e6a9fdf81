package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fystack/solana-gateway/internal/config"
	"github.com/fystack/solana-gateway/internal/consensus"
	"github.com/fystack/solana-gateway/internal/cycles"
	"github.com/fystack/solana-gateway/internal/gateway"
	"github.com/fystack/solana-gateway/internal/keystore"
	"github.com/fystack/solana-gateway/internal/outcall"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/internal/solana"
	"github.com/fystack/solana-gateway/pkg/logger"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "gateway",
		Short:   "Consensus-validated Solana JSON-RPC gateway",
		Version: version,
	}
	root.AddCommand(serveCmd(), providersCmd(), costCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			initLogging(cfg, debug)
			return runServer(cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file.")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logs.")
	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported provider catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := provider.NewRegistry(keystore.NewMemoryStore(), nil)
			for _, info := range registry.List() {
				auth := "public"
				if info.Access.Auth != nil {
					auth = "authenticated"
					if info.Access.PublicURL != "" {
						auth += " (public fallback)"
					}
				}
				fmt.Printf("%-22s %-8s %s\n", info.Provider, info.Cluster, auth)
			}
			return nil
		},
	}
}

func costCmd() *cobra.Command {
	var clusterName string
	var nodes int
	var responseSize uint64

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Quote the cycles cost of a getSlot call",
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, err := provider.ParseCluster(clusterName)
			if err != nil {
				return err
			}
			g := gateway.New(
				provider.NewRegistry(keystore.NewMemoryStore(), nil),
				cycles.NewEstimator(nodes, cycles.ModeNormal),
				outcall.NewDispatcher(outcall.DefaultTimeout, nil),
				nil,
			)
			cfg := gateway.GetSlotRpcConfig{}
			if responseSize > 0 {
				cfg.ResponseSizeEstimate = &responseSize
			}
			cost, cerr := g.GetSlotCyclesCost(provider.DefaultSources(cluster), solana.GetSlotParams{}, cfg)
			if cerr != nil {
				return cerr
			}
			strategy := consensus.Equality()
			fmt.Printf("getSlot on %s (%s, %d nodes): %d cycles\n", cluster, strategy.Mode, nodes, cost)
			return nil
		},
	}
	cmd.Flags().StringVar(&clusterName, "cluster", "mainnet", "Target cluster.")
	cmd.Flags().IntVar(&nodes, "nodes", cycles.DefaultNumSubnetNodes, "Subnet node count.")
	cmd.Flags().Uint64Var(&responseSize, "response-size", 0, "Response size estimate in bytes.")
	return cmd
}

func initLogging(cfg *config.Config, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	filter, err := logger.ParseFilter(cfg.Gateway.LogFilter.Kind, cfg.Gateway.LogFilter.Pattern)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid log filter:", err)
		os.Exit(1)
	}
	logger.Init(&logger.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		Filter:     filter,
	})
}
