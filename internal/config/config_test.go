package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func warningKeys(ws []Warning) []string {
	var keys []string
	for _, w := range ws {
		keys = append(keys, w.Key)
	}
	return keys
}

func TestLoadMissingFileCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.yaml")

	cfg, warnings := Load(path)
	assert.Equal(t, Default(), cfg)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].String(), "created one with default values")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, k := range Keys() {
		assert.Contains(t, string(data), k+":")
	}

	// The generated file loads back without warnings.
	cfg, warnings = Load(path)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, warnings)
}

func TestLoadValidSettings(t *testing.T) {
	path := writeSettings(t, `
normal_period: 60
alt_period: 120
power_cycle_duration: 5
max_consecutive_failures: 1
logging_enabled: 0
ok_pulse: 500ms
probe_method: tcp
probe_host: 1.1.1.1
probe_timeout: 2
heartbeat: 0
mqtt_broker: tcp://10.0.0.2:1883
http_addr: ""
pin_relay: 5
`)

	cfg, warnings := Load(path)
	assert.Empty(t, warnings)
	assert.Equal(t, 60*time.Second, cfg.NormalPeriod)
	assert.Equal(t, 120*time.Second, cfg.AltPeriod)
	assert.Equal(t, 5*time.Second, cfg.PowerCycleDuration)
	assert.Equal(t, 1, cfg.MaxConsecutiveFailures)
	assert.False(t, cfg.LoggingEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.OKPulse)
	assert.Equal(t, "tcp", cfg.ProbeMethod)
	assert.Equal(t, "1.1.1.1", cfg.ProbeHost)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, time.Duration(0), cfg.Heartbeat)
	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.MQTTBroker)
	assert.Equal(t, "", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.Pins.Relay)
	assert.Equal(t, 17, cfg.Pins.Button, "unset pins keep defaults")
}

func TestLoadInvalidValuesFallBackPerField(t *testing.T) {
	path := writeSettings(t, `
normal_period: 0
alt_period: -10
power_cycle_duration: abc
max_consecutive_failures: 0
logging_enabled: 7
ok_pulse: 0
probe_method: smoke-signal
log_level: loud
mqtt_broker: "ftp://nowhere"
pin_button: 99
probe_host: 9.9.9.9
`)

	cfg, warnings := Load(path)
	def := Default()

	assert.Equal(t, def.NormalPeriod, cfg.NormalPeriod)
	assert.Equal(t, def.AltPeriod, cfg.AltPeriod)
	assert.Equal(t, def.PowerCycleDuration, cfg.PowerCycleDuration)
	assert.Equal(t, def.MaxConsecutiveFailures, cfg.MaxConsecutiveFailures)
	assert.Equal(t, def.LoggingEnabled, cfg.LoggingEnabled)
	assert.Equal(t, def.OKPulse, cfg.OKPulse)
	assert.Equal(t, def.ProbeMethod, cfg.ProbeMethod)
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.Equal(t, def.MQTTBroker, cfg.MQTTBroker)
	assert.Equal(t, def.Pins.Button, cfg.Pins.Button)
	assert.Equal(t, "9.9.9.9", cfg.ProbeHost, "valid settings still apply")

	assert.ElementsMatch(t, []string{
		"normal_period", "alt_period", "power_cycle_duration", "max_consecutive_failures",
		"logging_enabled", "ok_pulse", "probe_method", "log_level", "mqtt_broker", "pin_button",
	}, warningKeys(warnings))

	for _, w := range warnings {
		assert.Contains(t, w.String(), "using default")
	}
}

func TestLoadOverflowAndFractionsFallBack(t *testing.T) {
	path := writeSettings(t, `
normal_period: 9300000000
alt_period: 1.9
power_cycle_duration: 100000000000000000000
max_consecutive_failures: 2.5
ok_pulse: 9300000000000
heartbeat: 0.5
`)

	cfg, warnings := Load(path)
	def := Default()

	assert.Equal(t, def.NormalPeriod, cfg.NormalPeriod)
	assert.Equal(t, def.AltPeriod, cfg.AltPeriod)
	assert.Equal(t, def.PowerCycleDuration, cfg.PowerCycleDuration)
	assert.Equal(t, def.MaxConsecutiveFailures, cfg.MaxConsecutiveFailures)
	assert.Equal(t, def.OKPulse, cfg.OKPulse)
	assert.Equal(t, def.Heartbeat, cfg.Heartbeat)
	assert.Greater(t, cfg.NormalPeriod, time.Duration(0))

	assert.ElementsMatch(t, []string{
		"normal_period", "alt_period", "power_cycle_duration",
		"max_consecutive_failures", "ok_pulse", "heartbeat",
	}, warningKeys(warnings))
	for _, w := range warnings {
		assert.Contains(t, w.String(), "using default")
	}
}

func TestLoadAcceptsIntegralFloats(t *testing.T) {
	path := writeSettings(t, "normal_period: 45.0\nmax_consecutive_failures: 4.0\n")

	cfg, warnings := Load(path)
	assert.Empty(t, warnings)
	assert.Equal(t, 45*time.Second, cfg.NormalPeriod)
	assert.Equal(t, 4, cfg.MaxConsecutiveFailures)
}

func TestLoadUnparsableFileUsesDefaults(t *testing.T) {
	path := writeSettings(t, "normal_period: [unterminated\n  : :")

	cfg, warnings := Load(path)
	assert.Equal(t, Default(), cfg)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0].String(), "not valid")
}

func TestLoadUnknownKeyWarns(t *testing.T) {
	path := writeSettings(t, "normal_period: 45\nlog_max_events: 1024\n")

	cfg, warnings := Load(path)
	assert.Equal(t, 45*time.Second, cfg.NormalPeriod)
	require.Len(t, warnings, 1)
	assert.Equal(t, "log_max_events", warnings[0].Key)
	assert.Equal(t, "log_max_events: unrecognized setting", warnings[0].String())
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeSettings(t, "normal_period: 45\n")
	t.Setenv("NETWATCHDOG_NORMAL_PERIOD", "75")
	t.Setenv("NETWATCHDOG_LOGGING_ENABLED", "false")

	cfg, warnings := Load(path)
	assert.Empty(t, warnings)
	assert.Equal(t, 75*time.Second, cfg.NormalPeriod)
	assert.False(t, cfg.LoggingEnabled)
}

func TestLoadBooleanForms(t *testing.T) {
	for _, tt := range []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"0", false},
		{"true", true},
		{"false", false},
	} {
		t.Run(tt.raw, func(t *testing.T) {
			path := writeSettings(t, "logging_enabled: "+tt.raw+"\n")
			cfg, warnings := Load(path)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, cfg.LoggingEnabled)
		})
	}
}

func TestDefaultDocumentIsCommentedYAML(t *testing.T) {
	data, err := DefaultDocument()
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "# net-watchdog settings."))
	assert.Contains(t, text, "# Consecutive failed checks tolerated before power cycling.")

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, 30, parsed["normal_period"])
	assert.Equal(t, "icmp", parsed["probe_method"])
	assert.Len(t, parsed, len(Keys()))
}

func TestDescribe(t *testing.T) {
	out := Describe(Default())
	assert.Contains(t, out, "normal_period: 30s\n")
	assert.Contains(t, out, "max_consecutive_failures: 3\n")
	assert.Contains(t, out, "pin_button: 17\n")
}
