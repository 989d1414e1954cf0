// Package status provides a thread-safe status tracker for the net-watchdog daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/net-watchdog/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	NormalPeriod       time.Duration
	AltPeriod          time.Duration
	PowerCycleDuration time.Duration
	MaxFailures        int
	Heartbeat          time.Duration
	ProbeMethod        string
	ProbeHost          string
	Broker             string
	HTTPAddr           string
}

// Result is the outcome of the most recent connectivity check.
type Result string

const (
	ResultUnknown Result = "UNKNOWN"
	ResultOK      Result = "OK"
	ResultFailed  Result = "FAILED"
)

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Counts        logic.Counts
	LastResult    Result
	NextCheck     time.Time
	RelayOpen     bool
	ButtonHeld    bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:      logic.State{Cadence: logic.CadenceNormal, LastCheck: startTime},
			LastResult: ResultUnknown,
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// Update sets the machine state, counters and next scheduled check.
// Called from the scheduler on every tick.
func (t *Tracker) Update(state logic.State, counts logic.Counts, next time.Time) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Counts = counts
	t.snap.NextCheck = next
	t.mu.Unlock()
}

// SetResult records the outcome of a connectivity check.
func (t *Tracker) SetResult(ok bool) {
	r := ResultFailed
	if ok {
		r = ResultOK
	}
	t.mu.Lock()
	t.snap.LastResult = r
	t.mu.Unlock()
}

// SetRelayOpen records whether the relay is currently interrupting power.
func (t *Tracker) SetRelayOpen(open bool) {
	t.mu.Lock()
	t.snap.RelayOpen = open
	t.mu.Unlock()
}

// SetButtonHeld records whether the manual reset button is held.
func (t *Tracker) SetButtonHeld(held bool) {
	t.mu.Lock()
	t.snap.ButtonHeld = held
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
