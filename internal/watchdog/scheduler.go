// Package watchdog runs the cooperative loop that polls the reset button,
// schedules connectivity checks and executes the state machine's decisions
// against the relay, lamps, event log and MQTT.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/net-watchdog/internal/config"
	"github.com/sweeney/net-watchdog/internal/eventlog"
	"github.com/sweeney/net-watchdog/internal/gpio"
	"github.com/sweeney/net-watchdog/internal/logic"
	"github.com/sweeney/net-watchdog/internal/mqtt"
	"github.com/sweeney/net-watchdog/internal/probe"
	"github.com/sweeney/net-watchdog/internal/status"
)

// TickDelay is the loop period. It bounds CPU use and how long a button
// press or an elapsed check period can go unnoticed.
const TickDelay = 100 * time.Millisecond

// Event log messages.
const (
	MsgInitialized = "Program initialized"
	MsgTerminated  = "Program terminated."
	MsgManualReset = "Manual reset"
	MsgRestored    = "Network restored"
)

// MsgLost is the event log message for a newly declared outage.
func MsgLost(failures int) string {
	return fmt.Sprintf("Lost network connectivity after %d failed checks", failures)
}

// Deps are the scheduler's collaborators. Board and Prober are required.
type Deps struct {
	Board     gpio.Board
	Prober    probe.Prober
	Recorder  eventlog.Recorder
	Publisher mqtt.Publisher
	Tracker   *status.Tracker
	Logger    zerolog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
	// Sleep defaults to Sleep. Used by relay cycles and the ok pulse.
	Sleep SleepFunc
	// Network, if set, is consulted for every heartbeat.
	Network func() *status.NetworkInfo
}

// Scheduler owns the state machine. Tick and Run must be called from a
// single goroutine; Shutdown may be called from any goroutine.
type Scheduler struct {
	cfg      config.Config
	machine  *logic.Machine
	override *logic.Override

	board      gpio.Board
	relay      *Relay
	lamps      *Indicators
	prober     probe.Prober
	recorder   eventlog.Recorder
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	network    func() *status.NetworkInfo

	logger zerolog.Logger
	clock  func() time.Time

	shutdownOnce sync.Once
}

// New creates a scheduler in the healthy state. The first check runs one
// normal period after creation.
func New(cfg config.Config, d Deps) *Scheduler {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Publisher == nil {
		d.Publisher = mqtt.NopPublisher{}
	}
	if d.Recorder == nil {
		d.Recorder = discard{}
	}
	start := d.Clock()
	if d.Tracker == nil {
		d.Tracker = status.NewTracker(start, StatusConfig(cfg))
	}

	s := &Scheduler{
		cfg:       cfg,
		machine:   logic.NewMachine(cfg.Thresholds(), start),
		override:  logic.NewOverride(),
		board:     d.Board,
		relay:     NewRelay(d.Board, d.Sleep),
		lamps:     NewIndicators(d.Board, cfg.OKPulse, d.Sleep),
		prober:    d.Prober,
		recorder:  d.Recorder,
		publisher: d.Publisher,
		tracker:   d.Tracker,
		network:   d.Network,
		logger:    d.Logger,
		clock:     d.Clock,
	}
	if cs, ok := d.Publisher.(mqtt.ConnectionStatus); ok {
		s.mqttStatus = cs
	}
	s.refresh(start)
	return s
}

// StatusConfig converts the runtime configuration for display.
func StatusConfig(cfg config.Config) status.Config {
	return status.Config{
		NormalPeriod:       cfg.NormalPeriod,
		AltPeriod:          cfg.AltPeriod,
		PowerCycleDuration: cfg.PowerCycleDuration,
		MaxFailures:        cfg.MaxConsecutiveFailures,
		Heartbeat:          cfg.Heartbeat,
		ProbeMethod:        cfg.ProbeMethod,
		ProbeHost:          cfg.ProbeHost,
		Broker:             cfg.MQTTBroker,
		HTTPAddr:           cfg.HTTPAddr,
	}
}

// Tracker returns the status tracker the scheduler updates.
func (s *Scheduler) Tracker() *status.Tracker {
	return s.tracker
}

// State returns the machine's current state.
func (s *Scheduler) State() logic.State {
	return s.machine.State()
}

// Counts returns the machine's counters.
func (s *Scheduler) Counts() logic.Counts {
	return s.machine.Counts()
}

// Run ticks on every value from tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			s.Tick(ctx, s.clock())
		}
	}
}

// Tick runs one iteration of the loop at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	defer func() { s.refresh(s.clock()) }()

	pressed, err := s.board.ButtonPressed()
	if err != nil {
		s.logger.Warn().Err(err).Msg("read button")
		pressed = false
	}

	switch ev := s.override.Poll(pressed); ev {
	case logic.OverrideTriggered:
		s.tracker.SetButtonHeld(true)
		s.manualReset(ctx, now)
		return
	case logic.OverrideStillHeld:
		return
	case logic.OverrideReleased:
		s.tracker.SetButtonHeld(false)
		s.logger.Debug().Msg("reset button released")
		s.machine.Rearm(now)
		return
	}

	if !s.machine.Due(now) {
		return
	}
	s.check(ctx, now)
}

func (s *Scheduler) manualReset(ctx context.Context, now time.Time) {
	s.logger.Warn().Msg("manual reset requested")
	s.setLamps(ctx, true, false)
	s.record(MsgManualReset)
	s.machine.Override(now)
	s.publish(now, mqtt.EventManualReset, MsgManualReset)
	s.cycle(ctx)
	s.machine.Rearm(s.clock())
}

func (s *Scheduler) check(ctx context.Context, now time.Time) {
	ok := s.prober.Check(ctx)
	s.tracker.SetResult(ok)
	action := s.machine.Evaluate(ok, now)
	state := s.machine.State()

	s.logger.Debug().
		Bool("ok", ok).
		Stringer("action", action).
		Int("failures", state.ConsecutiveFailures).
		Str("cadence", string(state.Cadence)).
		Msg("connectivity check")

	if ok {
		s.setLamps(ctx, false, true)
	} else {
		s.setLamps(ctx, true, false)
	}

	switch action {
	case logic.ActionRecordSuccessAfterOutage:
		s.logger.Info().Msg("network restored")
		s.record(MsgRestored)
		s.publish(now, mqtt.EventRestored, MsgRestored)
	case logic.ActionRecordFailureStart:
		s.logger.Warn().Dur("next_check", s.machine.Period()).Msg("connectivity check failed")
		s.publish(now, mqtt.EventCheckFailed, "")
	case logic.ActionDeclareOutageAndCycle:
		msg := MsgLost(state.ConsecutiveFailures)
		s.logger.Error().
			Int("failures", state.ConsecutiveFailures).
			Int("max_failures", s.machine.MaxFailures()).
			Msg("outage declared, power cycling")
		s.record(msg)
		s.publish(now, mqtt.EventOutage, msg)
	case logic.ActionContinueOutageCycle:
		s.logger.Warn().Msg("still offline, power cycling again")
		s.publish(now, mqtt.EventPowerCycle, "")
	}

	if action.Cycles() {
		s.cycle(ctx)
		s.machine.Rearm(s.clock())
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	s.tracker.SetRelayOpen(true)
	defer s.tracker.SetRelayOpen(false)

	if err := s.relay.Cycle(ctx, s.cfg.PowerCycleDuration); err != nil {
		s.logger.Error().Err(err).Msg("relay cycle")
	}
}

func (s *Scheduler) setLamps(ctx context.Context, fault, okPulse bool) {
	if err := s.lamps.Set(ctx, fault, okPulse); err != nil {
		s.logger.Warn().Err(err).Msg("indicators")
	}
}

// Record writes msg to the event log when logging is enabled. Failures are
// logged and otherwise ignored.
func (s *Scheduler) Record(msg string) {
	s.record(msg)
}

func (s *Scheduler) record(msg string) {
	if !s.cfg.LoggingEnabled {
		return
	}
	if err := s.recorder.Record(msg); err != nil {
		s.logger.Warn().Err(err).Str("message", msg).Msg("event log unavailable")
	}
}

func (s *Scheduler) publish(now time.Time, typ mqtt.EventType, msg string) {
	ev := mqtt.NewEvent(now, typ, s.machine.State(), msg)
	if err := s.publisher.Publish(ev); err != nil {
		s.logger.Warn().Err(err).Str("event", string(typ)).Msg("mqtt publish")
	}
}

// refresh copies machine state into the tracker and emits a heartbeat
// when one is due.
func (s *Scheduler) refresh(now time.Time) {
	s.tracker.Update(s.machine.State(), s.machine.Counts(), s.machine.NextCheck())
	if s.mqttStatus != nil {
		s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
	}

	hb := s.machine.CheckHeartbeat(now, s.cfg.Heartbeat)
	if hb == nil {
		return
	}
	if s.network != nil {
		if net := s.network(); net != nil {
			s.tracker.SetNetwork(net)
		}
	}
	s.logger.Info().
		Dur("uptime", hb.Uptime).
		Int("checks", hb.Counts.Checks).
		Int("outages", hb.Counts.Outages).
		Int("power_cycles", hb.Counts.PowerCycles).
		Msg("heartbeat")

	s.PublishSystem("HEARTBEAT", "", false)
}

// PublishSystem sends a lifecycle event carrying the current status snapshot.
func (s *Scheduler) PublishSystem(event, reason string, retained bool) {
	snap := s.tracker.Snapshot()
	err := s.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("mqtt publish system")
	}
}

// Shutdown restores the hardware to its safe state, records termination and
// announces it. Only the first call has any effect.
func (s *Scheduler) Shutdown(reason string) {
	s.shutdownOnce.Do(func() {
		s.logger.Info().Str("reason", reason).Msg("shutting down")
		if err := s.board.Reset(); err != nil {
			s.logger.Error().Err(err).Msg("restore outputs")
		}
		s.tracker.SetRelayOpen(false)
		s.record(MsgTerminated)
		if s.mqttStatus != nil {
			s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
		}
		s.PublishSystem("SHUTDOWN", reason, true)
	})
}

type discard struct{}

func (discard) Record(string) error { return nil }
