package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/cmd/escrowd/app"
	"github.com/iov-one/escrowd/commands/server"
	"github.com/iov-one/escrowd/eventlog"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCommand(&cfg).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand creates the escrowd command tree. Flags override the
// values already loaded into cfg.
func NewRootCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "escrowd",
		Short:        "Two party escrow ABCI application",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfg.Home, "home", cfg.Home, "directory to store files under")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level, for example info or main:info,*:error")

	cmd.AddCommand(
		newInitCommand(),
		newStartCommand(cfg),
		newEventsCommand(cfg),
		newVersionCommand(),
	)
	return cmd
}

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <genesis.json> [address:balance...]",
		Short: "Write the app_state into a tendermint genesis file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := server.InitGenesis(app.GenInitOptions, args[0], force, args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "app_state written to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing app_state")
	return cmd
}

func newStartCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the abci server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, *cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Bind, "bind", cfg.Bind, "address server listens on")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "call stack returned on error")
	cmd.Flags().StringVar(&cfg.EventsDB, "events-db", cfg.EventsDB, "path of the SQLite event log, empty to disable")
	return cmd
}

func run(ctx context.Context, cfg Config) error {
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}

	var sink escrowd.EventSink
	if cfg.EventsDB != "" {
		events, err := eventlog.Open(cfg.EventsDB)
		if err != nil {
			return err
		}
		defer events.Close()
		sink = events
		logger.Info("Recording events", "path", cfg.EventsDB)
	}

	application, err := app.GenerateApp(cfg.Home, logger, cfg.Debug, sink)
	if err != nil {
		return err
	}
	return server.Start(ctx, application, cfg.Bind, logger)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the app version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), escrowd.Version())
		},
	}
}
