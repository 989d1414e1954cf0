package logic

import "time"

// Machine owns the connectivity state and decides when a power cycle is
// warranted. It is not safe for concurrent use; the scheduler loop is its
// only caller.
type Machine struct {
	cfg           Config
	state         State
	startTime     time.Time
	counts        Counts
	lastHeartbeat time.Time
}

// NewMachine creates a machine in the healthy state. The startTime is the
// initial last-check time and the origin for uptime in heartbeats.
func NewMachine(cfg Config, startTime time.Time) *Machine {
	return &Machine{
		cfg: cfg,
		state: State{
			Cadence:   CadenceNormal,
			LastCheck: startTime,
		},
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Evaluate feeds one probe result into the machine and returns the action
// the caller must execute.
func (m *Machine) Evaluate(ok bool, now time.Time) Action {
	m.state.LastCheck = now
	m.counts.Checks++

	if ok {
		action := ActionNone
		if m.state.OutageDeclared {
			action = ActionRecordSuccessAfterOutage
		}
		m.state.ConsecutiveFailures = 0
		m.state.OutageDeclared = false
		m.state.Cadence = CadenceNormal
		return action
	}

	m.counts.Failures++
	if m.state.ConsecutiveFailures < m.cfg.MaxFailures {
		m.state.ConsecutiveFailures++
	}

	if m.state.ConsecutiveFailures < m.cfg.MaxFailures {
		// Blips below the threshold keep the current cadence.
		if m.state.ConsecutiveFailures == 1 {
			return ActionRecordFailureStart
		}
		return ActionNone
	}

	m.state.Cadence = CadenceDegraded
	m.counts.PowerCycles++
	if !m.state.OutageDeclared {
		m.state.OutageDeclared = true
		m.counts.Outages++
		return ActionDeclareOutageAndCycle
	}
	return ActionContinueOutageCycle
}

// Override applies a manual override: the state is treated as a confirmed
// outage so the next automatic check runs on the degraded cadence.
func (m *Machine) Override(now time.Time) {
	m.state.ConsecutiveFailures = m.cfg.MaxFailures
	m.state.OutageDeclared = true
	m.state.Cadence = CadenceDegraded
	m.state.LastCheck = now
	m.counts.ManualResets++
	m.counts.PowerCycles++
}

// Rearm restamps the last check time without changing any other state.
// Called once a relay cycle has completed or the override button is released.
func (m *Machine) Rearm(now time.Time) {
	m.state.LastCheck = now
}

// Period returns the check period selected by the current cadence.
func (m *Machine) Period() time.Duration {
	if m.state.Cadence == CadenceDegraded {
		return m.cfg.AltPeriod
	}
	return m.cfg.NormalPeriod
}

// Due reports whether the next check may run at now.
func (m *Machine) Due(now time.Time) bool {
	return now.Sub(m.state.LastCheck) >= m.Period()
}

// NextCheck returns the earliest time the next check may run.
func (m *Machine) NextCheck() time.Time {
	return m.state.LastCheck.Add(m.Period())
}

// State returns a copy of the current connectivity state.
func (m *Machine) State() State {
	return m.state
}

// Counts returns a copy of the observational counters.
func (m *Machine) Counts() Counts {
	return m.counts
}

// MaxFailures returns the configured failure threshold.
func (m *Machine) MaxFailures() int {
	return m.cfg.MaxFailures
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (m *Machine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		State:     m.state,
		Counts:    m.counts,
	}
}
