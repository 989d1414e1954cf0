// Package config loads the watchdog's settings file. Loading never fails:
// any setting that is missing, unparsable or out of range falls back to its
// compiled-in default and is reported as a Warning.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/net-watchdog/internal/gpio"
	"github.com/sweeney/net-watchdog/internal/logic"
	"github.com/sweeney/net-watchdog/internal/probe"
)

// DefaultPath is the settings file read when --config is not given.
const DefaultPath = "settings.yaml"

// EnvPrefix prefixes environment overrides, e.g. NETWATCHDOG_NORMAL_PERIOD.
const EnvPrefix = "NETWATCHDOG"

// Config holds validated runtime parameters. It is immutable after Load.
type Config struct {
	NormalPeriod           time.Duration
	AltPeriod              time.Duration
	PowerCycleDuration     time.Duration
	MaxConsecutiveFailures int
	LoggingEnabled         bool

	OKPulse      time.Duration
	ProbeMethod  string
	ProbeHost    string
	ProbeTimeout time.Duration
	EventLog     string
	LogLevel     string
	MQTTBroker   string
	HTTPAddr     string
	Heartbeat    time.Duration
	Pins         gpio.Pins
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		NormalPeriod:           30 * time.Second,
		AltPeriod:              90 * time.Second,
		PowerCycleDuration:     10 * time.Second,
		MaxConsecutiveFailures: 3,
		LoggingEnabled:         true,

		OKPulse:      250 * time.Millisecond,
		ProbeMethod:  probe.MethodICMP,
		ProbeHost:    probe.DefaultHost,
		ProbeTimeout: probe.DefaultTimeout,
		EventLog:     "events.log",
		LogLevel:     "info",
		HTTPAddr:     ":8080",
		Heartbeat:    15 * time.Minute,
		Pins:         gpio.DefaultPins(),
	}
}

// Warning describes a setting that could not be applied.
type Warning struct {
	Key     string
	Value   any
	Reason  string
	Default any
}

func (w Warning) String() string {
	if w.Key == "" {
		return w.Reason
	}
	if w.Default == nil {
		return fmt.Sprintf("%s: %s", w.Key, w.Reason)
	}
	return fmt.Sprintf("%s=%v: %s, using default (%v)", w.Key, w.Value, w.Reason, w.Default)
}

// Load reads the settings file at path, applies environment overrides and
// validates every setting. A missing file is created with default values.
func Load(path string) (Config, []Warning) {
	cfg := Default()
	var warnings []Warning

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			reason := fmt.Sprintf("settings file %q does not exist, created one with default values", path)
			if werr := WriteDefault(path); werr != nil {
				reason = fmt.Sprintf("settings file %q does not exist and could not be created: %v", path, werr)
			}
			warnings = append(warnings, Warning{Reason: reason})
		} else {
			warnings = append(warnings, Warning{
				Reason: fmt.Sprintf("settings file %q is not valid, using default values: %v", path, err),
			})
		}
	}

	known := make(map[string]bool, len(schema))
	for _, s := range schema {
		known[s.key] = true
		if !v.IsSet(s.key) {
			continue
		}
		raw := v.Get(s.key)
		if err := s.apply(raw, &cfg); err != nil {
			warnings = append(warnings, Warning{
				Key:     s.key,
				Value:   raw,
				Reason:  err.Error(),
				Default: s.def,
			})
		}
	}

	var unknown []string
	for _, k := range v.AllKeys() {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		warnings = append(warnings, Warning{Key: k, Reason: "unrecognized setting"})
	}

	return cfg, warnings
}

// Thresholds returns the subset of the configuration the state machine uses.
func (c Config) Thresholds() logic.Config {
	return logic.Config{
		NormalPeriod: c.NormalPeriod,
		AltPeriod:    c.AltPeriod,
		MaxFailures:  c.MaxConsecutiveFailures,
	}
}

// Keys lists every recognised setting in file order.
func Keys() []string {
	keys := make([]string, len(schema))
	for i, s := range schema {
		keys[i] = s.key
	}
	return keys
}

// Describe renders cfg as key=value lines in file order.
func Describe(cfg Config) string {
	var b strings.Builder
	for _, s := range schema {
		fmt.Fprintf(&b, "%s: %v\n", s.key, s.get(cfg))
	}
	return b.String()
}
