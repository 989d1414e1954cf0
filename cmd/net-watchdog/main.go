// Command net-watchdog monitors upstream connectivity and power-cycles the
// modem through a relay when the network is lost.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/net-watchdog/internal/config"
	"github.com/sweeney/net-watchdog/internal/eventlog"
	"github.com/sweeney/net-watchdog/internal/gpio"
	"github.com/sweeney/net-watchdog/internal/logging"
	"github.com/sweeney/net-watchdog/internal/mqtt"
	"github.com/sweeney/net-watchdog/internal/probe"
	"github.com/sweeney/net-watchdog/internal/status"
	"github.com/sweeney/net-watchdog/internal/watchdog"
	"github.com/sweeney/net-watchdog/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openBoard is replaced in tests.
var openBoard = func(pins gpio.Pins) (gpio.Board, error) {
	return gpio.NewRealBoard(pins)
}

// options are the persistent command-line flags.
type options struct {
	configPath string
	logLevel   string
}

// setup loads the configuration and builds the logger. Config warnings are
// logged, never fatal.
func setup(opts *options, w io.Writer) (config.Config, zerolog.Logger) {
	cfg, warnings := config.Load(opts.configPath)

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(w, level)
	if err != nil {
		logger.Warn().Err(err).Msg("log level")
	}
	for _, warn := range warnings {
		logger.Warn().Str("file", opts.configPath).Msg(warn.String())
	}
	return cfg, logger
}

func run(opts *options) error {
	cfg, logger := setup(opts, os.Stdout)

	board, err := openBoard(cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	prober, err := probe.New(cfg.ProbeMethod, cfg.ProbeHost, cfg.ProbeTimeout, logger.With().Str("component", "probe").Logger())
	if err != nil {
		return fmt.Errorf("init probe: %w", err)
	}

	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	if cfg.MQTTBroker != "" {
		publisher = mqtt.NewRealPublisher(cfg.MQTTBroker, logger.With().Str("component", "mqtt").Logger())
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), watchdog.StatusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	sched := watchdog.New(cfg, watchdog.Deps{
		Board:     board,
		Prober:    prober,
		Recorder:  eventlog.New(cfg.EventLog),
		Publisher: publisher,
		Tracker:   tracker,
		Logger:    logger,
		Network:   readNetworkInfo,
	})
	sched.Record(watchdog.MsgInitialized)
	sched.PublishSystem("STARTUP", "", true)

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, logger.With().Str("component", "web").Logger())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, append(terminatingSignals, ignoredSignals...)...)
	defer signal.Stop(sigCh)

	reason := make(chan string, 1)
	go watchSignals(ctx, sigCh, logger, func(name string) {
		reason <- name
		cancel()
	})

	ticker := time.NewTicker(watchdog.TickDelay)
	defer ticker.Stop()

	logger.Info().
		Dur("normal_period", cfg.NormalPeriod).
		Dur("alt_period", cfg.AltPeriod).
		Int("max_failures", cfg.MaxConsecutiveFailures).
		Str("probe", cfg.ProbeMethod+" "+cfg.ProbeHost).
		Msg("started")

	runErr := sched.Run(ctx, ticker.C)

	name := "UNKNOWN"
	select {
	case name = <-reason:
	default:
	}
	sched.Shutdown(name)
	return runErr
}

var (
	terminatingSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT}
	ignoredSignals     = []os.Signal{syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2}
)

func isTerminating(s os.Signal) bool {
	for _, t := range terminatingSignals {
		if s == t {
			return true
		}
	}
	return false
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGABRT:
		return "SIGABRT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGUSR1:
		return "SIGUSR1"
	case syscall.SIGUSR2:
		return "SIGUSR2"
	}
	return "UNKNOWN"
}

// watchSignals calls stop with the name of the first terminating signal.
// Any other signal is logged and ignored.
func watchSignals(ctx context.Context, sig <-chan os.Signal, logger zerolog.Logger, stop func(name string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			name := signalName(s)
			if isTerminating(s) {
				logger.Info().Str("signal", name).Msg("received termination signal")
				stop(name)
				return
			}
			logger.Warn().Str("signal", name).Msg("ignoring signal")
		}
	}
}
