package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/sweeney/net-watchdog/internal/probe"
)

// setting binds one settings-file key to a Config field.
type setting struct {
	key  string
	desc string
	def  any // value written to the default settings file
	// apply validates raw and stores it in cfg. On error cfg is untouched.
	apply func(raw any, cfg *Config) error
	get   func(cfg Config) any
}

// maxPin is the highest BCM line offset on a Raspberry Pi header.
const maxPin = 53

var schema = []setting{
	seconds("normal_period",
		"Seconds between connectivity checks under normal circumstances.",
		30, func(c *Config) *time.Duration { return &c.NormalPeriod }),
	seconds("alt_period",
		"Seconds between checks after a failure, until the network is back.\n"+
			"Must be longer than the time your modem/router takes to reboot.",
		90, func(c *Config) *time.Duration { return &c.AltPeriod }),
	seconds("power_cycle_duration",
		"Seconds the relay keeps the modem/router unpowered during a power cycle.",
		10, func(c *Config) *time.Duration { return &c.PowerCycleDuration }),
	integer("max_consecutive_failures",
		"Consecutive failed checks tolerated before power cycling.",
		3, 1, 1<<16, func(c *Config) *int { return &c.MaxConsecutiveFailures }),
	boolean("logging_enabled",
		"Write events to the event log (1 or 0).",
		1, func(c *Config) *bool { return &c.LoggingEnabled }),

	duration("ok_pulse",
		"How long the green lamp blinks after a successful check (milliseconds or duration).",
		250, time.Millisecond, false, func(c *Config) *time.Duration { return &c.OKPulse }),
	choice("probe_method",
		"How reachability is tested: icmp, exec (system ping) or tcp (dial port 53).",
		probe.MethodICMP, []string{probe.MethodICMP, probe.MethodExec, probe.MethodTCP},
		func(c *Config) *string { return &c.ProbeMethod }),
	text("probe_host",
		"Host tested for reachability.",
		probe.DefaultHost, false, func(c *Config) *string { return &c.ProbeHost }),
	seconds("probe_timeout",
		"Seconds a single check may take before it counts as failed.",
		1, func(c *Config) *time.Duration { return &c.ProbeTimeout }),
	text("event_log",
		"Path of the event log.",
		"events.log", false, func(c *Config) *string { return &c.EventLog }),
	logLevel("log_level",
		"Console log level: debug, info, warn or error.",
		"info", func(c *Config) *string { return &c.LogLevel }),
	broker("mqtt_broker",
		"MQTT broker URL for event reporting, e.g. tcp://192.168.1.200:1883. Empty disables MQTT.",
		"", func(c *Config) *string { return &c.MQTTBroker }),
	text("http_addr",
		"Listen address of the status page. Empty disables it.",
		":8080", true, func(c *Config) *string { return &c.HTTPAddr }),
	duration("heartbeat",
		"Interval between MQTT heartbeats (seconds or duration). 0 disables.",
		"15m", time.Second, true, func(c *Config) *time.Duration { return &c.Heartbeat }),
	text("gpio_chip",
		"GPIO character device.",
		"gpiochip0", false, func(c *Config) *string { return &c.Pins.Chip }),
	pin("pin_relay", "BCM pin driving the relay (active low).",
		2, func(c *Config) *int { return &c.Pins.Relay }),
	pin("pin_ok_led", "BCM pin of the green lamp.",
		3, func(c *Config) *int { return &c.Pins.OKLED }),
	pin("pin_fault_led", "BCM pin of the red lamp.",
		4, func(c *Config) *int { return &c.Pins.FaultLED }),
	pin("pin_button", "BCM pin of the manual reset button (active low).",
		17, func(c *Config) *int { return &c.Pins.Button }),
}

var (
	errNotWhole = errors.New("must be a whole number")
	errTooLarge = errors.New("value too large")
)

// wholeNumber converts raw to an integer. Fractional values are rejected
// rather than truncated.
func wholeNumber(raw any) (int64, error) {
	switch v := raw.(type) {
	case float32:
		return wholeFloat(float64(v))
	case float64:
		return wholeFloat(v)
	}
	return cast.ToInt64E(raw)
}

func wholeFloat(f float64) (int64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) {
		return 0, errNotWhole
	}
	if math.Abs(f) >= math.MaxInt64 {
		return 0, errTooLarge
	}
	return int64(f), nil
}

// scale multiplies n by unit, failing where the result would not fit in a
// time.Duration.
func scale(n int64, unit time.Duration) (time.Duration, error) {
	if limit := int64(math.MaxInt64 / unit); n > limit || n < -limit {
		return 0, errTooLarge
	}
	return time.Duration(n) * unit, nil
}

func seconds(key, desc string, def int, field func(*Config) *time.Duration) setting {
	return setting{
		key:  key,
		desc: desc,
		def:  def,
		apply: func(raw any, cfg *Config) error {
			n, err := wholeNumber(raw)
			if errors.Is(err, errNotWhole) || errors.Is(err, errTooLarge) {
				return err
			}
			if err != nil {
				return errors.New("not a number of seconds")
			}
			if n <= 0 {
				return errors.New("must be greater than 0")
			}
			d, err := scale(n, time.Second)
			if err != nil {
				return err
			}
			*field(cfg) = d
			return nil
		},
		get: func(cfg Config) any { return *field(&cfg) },
	}
}

func integer(key, desc string, def, min, max int, field func(*Config) *int) setting {
	return setting{
		key:  key,
		desc: desc,
		def:  def,
		apply: func(raw any, cfg *Config) error {
			n, err := wholeNumber(raw)
			if err != nil {
				return errors.New("not an integer")
			}
			if n < int64(min) || n > int64(max) {
				return fmt.Errorf("must be between %d and %d", min, max)
			}
			*field(cfg) = int(n)
			return nil
		},
		get: func(cfg Config) any { return *field(&cfg) },
	}
}

func pin(key, desc string, def int, field func(*Config) *int) setting {
	return integer(key, desc, def, 0, maxPin, field)
}

// boolean accepts 0/1 as well as true/false.
func boolean(key, desc string, def int, field func(*Config) *bool) setting {
	return setting{
		key:  key,
		desc: desc,
		def:  def,
		apply: func(raw any, cfg *Config) error {
			if n, err := wholeNumber(raw); err == nil {
				if n != 0 && n != 1 {
					return errors.New("must be 0 or 1")
				}
				*field(cfg) = n == 1
				return nil
			}
			b, err := cast.ToBoolE(raw)
			if err != nil {
				return errors.New("must be 0 or 1")
			}
			*field(cfg) = b
			return nil
		},
		get: func(cfg Config) any { return *field(&cfg) },
	}
}

// duration accepts a bare number in unit or a Go duration string.
func duration(key, desc string, def any, unit time.Duration, allowZero bool, field func(*Config) *time.Duration) setting {
	return setting{
		key:  key,
		desc: desc,
		def:  def,
		apply: func(raw any, cfg *Config) error {
			var d time.Duration
			if n, err := wholeNumber(raw); err == nil {
				if d, err = scale(n, unit); err != nil {
					return err
				}
			} else if errors.Is(err, errNotWhole) || errors.Is(err, errTooLarge) {
				return err
			} else {
				s, err := cast.ToStringE(raw)
				if err != nil {
					return errors.New("not a duration")
				}
				d, err = time.ParseDuration(s)
				if err != nil {
					return errors.New("not a duration")
				}
			}
			if d < 0 || (d == 0 && !allowZero) {
				if allowZero {
					return errors.New("must not be negative")
				}
				return errors.New("must be greater than 0")
			}
			*field(cfg) = d
			return nil
		},
		get: func(cfg Config) any { return *field(&cfg) },
	}
}

func text(key, desc, def string, allowEmpty bool, field func(*Config) *string) setting {
	return setting{
		key:  key,
		desc: desc,
		def:  def,
		apply: func(raw any, cfg *Config) error {
			s, err := cast.ToStringE(raw)
			if err != nil {
				return errors.New("not a string")
			}
			if s == "" && !allowEmpty {
				return errors.New("must not be empty")
			}
			*field(cfg) = s
			return nil
		},
		get: func(cfg Config) any { return *field(&cfg) },
	}
}

func choice(key, desc, def string, options []string, field func(*Config) *string) setting {
	s := text(key, desc, def, false, field)
	inner := s.apply
	s.apply = func(raw any, cfg *Config) error {
		v := cast.ToString(raw)
		for _, o := range options {
			if v == o {
				return inner(raw, cfg)
			}
		}
		return fmt.Errorf("must be one of %v", options)
	}
	return s
}

func logLevel(key, desc, def string, field func(*Config) *string) setting {
	s := text(key, desc, def, false, field)
	inner := s.apply
	s.apply = func(raw any, cfg *Config) error {
		if _, err := zerolog.ParseLevel(cast.ToString(raw)); err != nil {
			return errors.New("unknown log level")
		}
		return inner(raw, cfg)
	}
	return s
}

func broker(key, desc, def string, field func(*Config) *string) setting {
	s := text(key, desc, def, true, field)
	inner := s.apply
	s.apply = func(raw any, cfg *Config) error {
		v := cast.ToString(raw)
		if v != "" {
			u, err := url.Parse(v)
			if err != nil || u.Host == "" {
				return errors.New("not a broker URL")
			}
			switch u.Scheme {
			case "tcp", "ssl", "ws", "wss", "mqtt", "mqtts":
			default:
				return fmt.Errorf("unsupported scheme %q", u.Scheme)
			}
		}
		return inner(raw, cfg)
	}
	return s
}
