package main

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sweeney/net-watchdog/internal/config"
	"github.com/sweeney/net-watchdog/internal/eventlog"
	"github.com/sweeney/net-watchdog/internal/watchdog"
)

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "net-watchdog",
		Short: "Power-cycle the modem when the upstream network is lost",
		Long: `net-watchdog checks upstream reachability on a fixed cadence and opens a
relay to power-cycle the modem once the network has been unreachable for a
configured number of consecutive checks. A push button forces a cycle.

Running without a subcommand is the same as "net-watchdog run".`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to settings file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the log_level setting")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the watchdog daemon",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(opts)
			},
		},
		&cobra.Command{
			Use:   "state",
			Short: "Print the button and relay state and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printState(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "cycle",
			Short: "Power-cycle the modem once and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cycleOnce(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the effective configuration and any warnings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printConfig(cmd, opts)
			},
		},
	)
	return root
}

func printState(cmd *cobra.Command, opts *options) error {
	cfg, _ := setup(opts, cmd.ErrOrStderr())

	board, err := openBoard(cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	pressed, err := board.ButtonPressed()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	button := "RELEASED"
	if pressed {
		button = "PRESSED"
	}
	// Requesting the lines drives the relay to its closed state.
	fmt.Fprintf(cmd.OutOrStdout(), "Button: %s, Relay: CLOSED\n", button)
	return nil
}

func cycleOnce(cmd *cobra.Command, opts *options) error {
	cfg, logger := setup(opts, cmd.ErrOrStderr())

	board, err := openBoard(cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	ctx, stop := signal.NotifyContext(context.Background(), terminatingSignals...)
	defer stop()

	if cfg.LoggingEnabled {
		if err := eventlog.New(cfg.EventLog).Record(watchdog.MsgManualReset); err != nil {
			logger.Warn().Err(err).Msg("event log unavailable")
		}
	}

	logger.Info().Dur("duration", cfg.PowerCycleDuration).Msg("power cycling")
	if err := watchdog.NewRelay(board, nil).Cycle(ctx, cfg.PowerCycleDuration); err != nil {
		return fmt.Errorf("power cycle: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Power cycle complete")
	return nil
}

func printConfig(cmd *cobra.Command, opts *options) error {
	cfg, warnings := config.Load(opts.configPath)
	out := cmd.OutOrStdout()
	for _, w := range warnings {
		fmt.Fprintf(out, "# warning: %s\n", w)
	}
	fmt.Fprint(out, config.Describe(cfg))
	return nil
}
