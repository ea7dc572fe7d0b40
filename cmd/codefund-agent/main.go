package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/pendergraft/codefund/internal/chains/evm"
	"github.com/pendergraft/codefund/internal/config"
	"github.com/pendergraft/codefund/internal/events"
	"github.com/pendergraft/codefund/internal/observability/metrics"
	"github.com/pendergraft/codefund/internal/oracle"
	"github.com/pendergraft/codefund/internal/server"
	"github.com/pendergraft/codefund/internal/storage"
	"github.com/pendergraft/codefund/internal/verification/domain"
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
		Use:   "codefund-agent",
		Short: "CodeFund verification agent - approves milestones whose pull requests are merged",
		Long: `The verification agent polls every campaign deployed by the factory, checks
each pending milestone's pull request on GitHub and calls approveMilestone
for the ones that are merged.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.toml, .yaml or .yml)")

	// Default behavior (no subcommand) is to run the loop
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context(), configPath, false)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run verification cycles until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), configPath, false)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Run a single verification cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), configPath, true)
		},
	})
	rootCmd.AddCommand(newAddressCmd(&configPath))
	rootCmd.AddCommand(newApprovalsCmd(&configPath))

	return rootCmd
}

func newAddressCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the agent account address",
		Long: `Print the address derived from AGENT_PRIVATE_KEY. When the key is not
configured and stdin is a terminal, it is read without echo.

The factory must have been deployed with this address as the agent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			key := cfg.Agent.PrivateKey
			if key == "" {
				key, err = promptKey(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}
			addr, err := evm.AddressFromKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
			return nil
		},
	}
}

func promptKey(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("AGENT_PRIVATE_KEY is not set and stdin is not a terminal")
	}
	fmt.Fprint(w, "Agent private key: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func newApprovalsCmd(configPath *string) *cobra.Command {
	var status, campaign string
	var limit int

	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "List recorded approval transactions",
		Long: `List approval transactions recorded in the ledger, newest first.

EXAMPLES:
  codefund-agent approvals
  codefund-agent approvals --status pending
  codefund-agent approvals --campaign 0x1234...abcd --limit 10
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovals(cmd.Context(), cmd.OutOrStdout(), *configPath, domain.ApprovalFilter{Status: status, Campaign: campaign}, limit)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, confirmed, reverted, failed, dropped)")
	cmd.Flags().StringVar(&campaign, "campaign", "", "filter by campaign address")
	cmd.Flags().IntVar(&limit, "limit", storage.DefaultListLimit, "maximum number of entries")

	return cmd
}

func runApprovals(ctx context.Context, out io.Writer, configPath string, filter domain.ApprovalFilter, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := storage.New(cfg.Storage, quiet)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	svc := domain.NewService(domain.Deps{Ledger: store, Logger: quiet}, domain.Config{})
	approvals, err := svc.ListApprovals(ctx, filter, limit)
	if err != nil {
		return err
	}

	if len(approvals) == 0 {
		fmt.Fprintln(out, "No approvals recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tCAMPAIGN\tMILESTONE\tSTATUS\tNONCE\tBLOCK\tTX")
	for _, a := range approvals {
		block := "-"
		if a.BlockNumber > 0 {
			block = fmt.Sprint(a.BlockNumber)
		}
		tx := a.TxHash
		if tx == "" {
			tx = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			a.CreatedAt.UTC().Format(time.RFC3339), a.Campaign, a.Milestone, a.Status, a.Nonce, block, tx)
	}
	return w.Flush()
}

func runAgent(ctx context.Context, configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateAgent(); err != nil {
		return err
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	metrics.Init(cfg.Metrics.Enabled, "codefund-agent")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	client, err := evm.Dial(ctx, cfg.Chain.RPCURL, common.HexToAddress(cfg.Chain.FactoryAddress))
	if err != nil {
		return fmt.Errorf("connecting to chain: %w", err)
	}
	defer client.Close()

	signer, err := evm.NewSigner(ctx, client, cfg.Agent.PrivateKey, evm.SignerConfig{
		ChainID:        cfg.Chain.ChainID,
		GasLimit:       cfg.Agent.GasLimit,
		ReceiptTimeout: cfg.Agent.ReceiptTimeout(),
	})
	if err != nil {
		return fmt.Errorf("loading agent key: %w", err)
	}

	gh, err := oracle.NewGitHub(oracle.GitHubConfig{
		Token:             cfg.Oracle.Token,
		APIURL:            cfg.Oracle.APIURL,
		RequestsPerSecond: cfg.Oracle.RequestsPerSecond,
		Burst:             cfg.Oracle.Burst,
		Timeout:           time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("initializing oracle: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return fmt.Errorf("initializing event publisher: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	logger.Info("starting codefund-agent",
		"version", version,
		"agent_address", signer.Address().Hex(),
		"chain_id", signer.ChainID(),
		"factory", client.Factory().Hex(),
		"storage", cfg.Storage.Type,
	)

	svc := domain.NewService(domain.Deps{
		Reader:   client,
		Approver: signer,
		Oracle:   gh,
		Ledger:   store,
		Events:   publisher,
		Logger:   logger,
	}, domain.Config{
		OracleHost: cfg.Oracle.Host,
		Interval:   cfg.Agent.Interval(),
		PendingTTL: cfg.Agent.PendingTTL(),
	})

	if once {
		_, err := svc.RunCycle(ctx)
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(ctx)
	})
	g.Go(func() error {
		return server.ListenAndServe(ctx, &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Agent.AdminHost, cfg.Agent.AdminPort),
			Handler:           server.NewAdmin(svc, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}, logger)
	})
	return g.Wait()
}
