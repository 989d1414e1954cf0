// Package logic contains the pure decision logic of the network watchdog.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Cadence selects which check period gates the next reachability test.
type Cadence string

const (
	CadenceNormal   Cadence = "NORMAL"
	CadenceDegraded Cadence = "DEGRADED"
)

// Action is the decision returned by Machine.Evaluate.
type Action int

const (
	// ActionNone has no external effect.
	ActionNone Action = iota
	// ActionRecordSuccessAfterOutage is a success following a declared outage.
	ActionRecordSuccessAfterOutage
	// ActionRecordFailureStart is the first failure of a new streak.
	ActionRecordFailureStart
	// ActionDeclareOutageAndCycle fires when the failure threshold is first reached.
	ActionDeclareOutageAndCycle
	// ActionContinueOutageCycle fires on every failure after the outage was declared.
	ActionContinueOutageCycle
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionRecordSuccessAfterOutage:
		return "RECORD_SUCCESS_AFTER_OUTAGE"
	case ActionRecordFailureStart:
		return "RECORD_FAILURE_START"
	case ActionDeclareOutageAndCycle:
		return "DECLARE_OUTAGE_AND_CYCLE"
	case ActionContinueOutageCycle:
		return "CONTINUE_OUTAGE_CYCLE"
	}
	return "UNKNOWN"
}

// Cycles reports whether the action requires a relay power cycle.
func (a Action) Cycles() bool {
	return a == ActionDeclareOutageAndCycle || a == ActionContinueOutageCycle
}

// OverrideEvent is the result of polling the manual override button.
type OverrideEvent int

const (
	OverrideNone OverrideEvent = iota
	OverrideTriggered
	OverrideStillHeld
	OverrideReleased
)

func (e OverrideEvent) String() string {
	switch e {
	case OverrideNone:
		return "NONE"
	case OverrideTriggered:
		return "TRIGGERED"
	case OverrideStillHeld:
		return "STILL_HELD"
	case OverrideReleased:
		return "RELEASED"
	}
	return "UNKNOWN"
}

// Config holds the parameters the machine needs. All values must already be
// validated (periods > 0, MaxFailures >= 1).
type Config struct {
	NormalPeriod time.Duration
	AltPeriod    time.Duration
	MaxFailures  int
}

// State is a point-in-time copy of the connectivity state.
type State struct {
	ConsecutiveFailures int
	Cadence             Cadence
	LastCheck           time.Time
	OutageDeclared      bool
}

// Counts tracks observational totals since startup. They never influence
// decisions.
type Counts struct {
	Checks       int
	Failures     int
	Outages      int
	PowerCycles  int
	ManualResets int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     State
	Counts    Counts
}
