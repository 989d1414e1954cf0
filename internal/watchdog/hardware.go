package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/net-watchdog/internal/gpio"
)

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-time SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Relay power-cycles the modem through the board's relay line.
type Relay struct {
	board gpio.Board
	sleep SleepFunc
}

// NewRelay wraps board. A nil sleep uses Sleep.
func NewRelay(board gpio.Board, sleep SleepFunc) *Relay {
	if sleep == nil {
		sleep = Sleep
	}
	return &Relay{board: board, sleep: sleep}
}

// Cycle opens the relay, waits d and closes it again. The relay is closed
// even when ctx is cancelled during the wait; in that case the returned
// error wraps ctx.Err().
func (r *Relay) Cycle(ctx context.Context, d time.Duration) error {
	if err := r.board.SetRelay(true); err != nil {
		return fmt.Errorf("open relay: %w", err)
	}

	waitErr := r.sleep(ctx, d)

	if err := r.board.SetRelay(false); err != nil {
		return errors.Join(fmt.Errorf("close relay: %w", err), waitErr)
	}
	if waitErr != nil {
		return fmt.Errorf("cycle interrupted: %w", waitErr)
	}
	return nil
}

// Indicators drives the fault and ok lamps.
type Indicators struct {
	board gpio.Board
	pulse time.Duration
	sleep SleepFunc
}

// NewIndicators wraps board. pulse is how long the ok lamp goes dark to
// acknowledge a successful check.
func NewIndicators(board gpio.Board, pulse time.Duration, sleep SleepFunc) *Indicators {
	if sleep == nil {
		sleep = Sleep
	}
	return &Indicators{board: board, pulse: pulse, sleep: sleep}
}

// Set switches the fault lamp. With okPulse the ok lamp blinks off for the
// pulse duration and is left on; without it the ok lamp is switched off.
func (i *Indicators) Set(ctx context.Context, fault, okPulse bool) error {
	if err := i.board.SetFault(fault); err != nil {
		return fmt.Errorf("set fault lamp: %w", err)
	}
	if err := i.board.SetOK(false); err != nil {
		return fmt.Errorf("set ok lamp: %w", err)
	}
	if !okPulse {
		return nil
	}

	// An interrupted pulse still leaves the lamp on.
	_ = i.sleep(ctx, i.pulse)
	if err := i.board.SetOK(true); err != nil {
		return fmt.Errorf("set ok lamp: %w", err)
	}
	return nil
}
