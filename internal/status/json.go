package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event               string       `json:"event,omitempty"`
	Reason              string       `json:"reason,omitempty"`
	Cadence             string       `json:"cadence"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	OutageDeclared      bool         `json:"outage_declared"`
	LastResult          string       `json:"last_result"`
	LastCheck           string       `json:"last_check"`
	NextCheck           string       `json:"next_check,omitempty"`
	RelayOpen           bool         `json:"relay_open"`
	ButtonHeld          bool         `json:"button_held"`
	UptimeSeconds       int64        `json:"uptime_seconds"`
	StartTime           string       `json:"start_time"`
	Timestamp           string       `json:"timestamp"`
	MQTT                MQTTStatus   `json:"mqtt"`
	Counts              CountsJSON   `json:"counts"`
	Network             *NetworkJSON `json:"network,omitempty"`
	Config              ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the watchdog counters.
type CountsJSON struct {
	Checks       int `json:"checks"`
	Failures     int `json:"failures"`
	Outages      int `json:"outages"`
	PowerCycles  int `json:"power_cycles"`
	ManualResets int `json:"manual_resets"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	NormalPeriodSeconds int64  `json:"normal_period_s"`
	AltPeriodSeconds    int64  `json:"alt_period_s"`
	PowerCycleSeconds   int64  `json:"power_cycle_s"`
	MaxFailures         int    `json:"max_consecutive_failures"`
	HeartbeatSeconds    int64  `json:"heartbeat_s"`
	ProbeMethod         string `json:"probe_method"`
	ProbeHost           string `json:"probe_host"`
	Broker              string `json:"broker"`
	HTTPAddr            string `json:"http_addr"`
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func buildInner(snap Snapshot) StatusInner {
	cadence := string(snap.State.Cadence)
	if cadence == "" {
		cadence = "UNKNOWN"
	}
	result := string(snap.LastResult)
	if result == "" {
		result = string(ResultUnknown)
	}

	inner := StatusInner{
		Cadence:             cadence,
		ConsecutiveFailures: snap.State.ConsecutiveFailures,
		OutageDeclared:      snap.State.OutageDeclared,
		LastResult:          result,
		LastCheck:           snap.State.LastCheck.UTC().Format(time.RFC3339),
		RelayOpen:           snap.RelayOpen,
		ButtonHeld:          snap.ButtonHeld,
		UptimeSeconds:       int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:           snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:           snap.Now.UTC().Format(time.RFC3339),
		MQTT:                MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Checks:       snap.Counts.Checks,
			Failures:     snap.Counts.Failures,
			Outages:      snap.Counts.Outages,
			PowerCycles:  snap.Counts.PowerCycles,
			ManualResets: snap.Counts.ManualResets,
		},
		Config: ConfigJSON{
			NormalPeriodSeconds: seconds(snap.Config.NormalPeriod),
			AltPeriodSeconds:    seconds(snap.Config.AltPeriod),
			PowerCycleSeconds:   seconds(snap.Config.PowerCycleDuration),
			MaxFailures:         snap.Config.MaxFailures,
			HeartbeatSeconds:    seconds(snap.Config.Heartbeat),
			ProbeMethod:         snap.Config.ProbeMethod,
			ProbeHost:           snap.Config.ProbeHost,
			Broker:              snap.Config.Broker,
			HTTPAddr:            snap.Config.HTTPAddr,
		},
	}
	if !snap.NextCheck.IsZero() {
		inner.NextCheck = snap.NextCheck.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// Build returns the status envelope for a snapshot. The websocket feed
// writes it with WriteJSON.
func Build(snap Snapshot) StatusJSON {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)
	return StatusJSON{Status: inner}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	s := Build(snap)
	s.Status.Event = event
	s.Status.Reason = reason

	data, _ := json.Marshal(s)
	return data
}
