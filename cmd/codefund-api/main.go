package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pendergraft/codefund/internal/chains/evm"
	"github.com/pendergraft/codefund/internal/config"
	"github.com/pendergraft/codefund/internal/observability/metrics"
	"github.com/pendergraft/codefund/internal/server"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "codefund-api",
		Short:         "CodeFund API - read-only campaign data from the factory contract",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.toml, .yaml or .yml)")

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), configPath)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})

	return rootCmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	logger.Info("starting codefund-api", "version", version, "factory", cfg.Chain.FactoryAddress)

	metrics.Init(cfg.Metrics.Enabled, "codefund-api")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := evm.Dial(ctx, cfg.Chain.RPCURL, common.HexToAddress(cfg.Chain.FactoryAddress))
	if err != nil {
		return fmt.Errorf("connecting to chain: %w", err)
	}
	defer client.Close()

	srv, err := server.New(cfg, client, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      srv.Handler(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		}, logger)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", srv.MetricsHandler())
			return server.ListenAndServe(ctx, &http.Server{
				Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}, logger)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("codefund-api stopped")
	return nil
}
