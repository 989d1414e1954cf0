package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/net-watchdog/internal/gpio"
)

type recordingSleep struct {
	calls []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func TestRelayCycle(t *testing.T) {
	board := gpio.NewFakeBoard(nil)
	sl := &recordingSleep{}
	relay := NewRelay(board, sl.Sleep)

	if err := relay.Cycle(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []gpio.Write{{Line: "relay", Value: true}, {Line: "relay", Value: false}}
	if len(board.Writes) != 2 || board.Writes[0] != want[0] || board.Writes[1] != want[1] {
		t.Errorf("writes: got %v, want %v", board.Writes, want)
	}
	if len(sl.calls) != 1 || sl.calls[0] != 10*time.Second {
		t.Errorf("sleep: got %v", sl.calls)
	}
}

func TestRelayCycleOpenError(t *testing.T) {
	board := gpio.NewFakeBoard(nil)
	board.RelayError = errors.New("line busy")
	sl := &recordingSleep{}

	err := NewRelay(board, sl.Sleep).Cycle(context.Background(), time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(sl.calls) != 0 {
		t.Error("should not wait when the relay never opened")
	}
}

func TestRelayCycleInterrupted(t *testing.T) {
	board := gpio.NewFakeBoard(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRelay(board, nil).Cycle(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if board.RelayOpen {
		t.Error("relay must be closed after interruption")
	}
}

func TestIndicatorsFault(t *testing.T) {
	board := gpio.NewFakeBoard(nil)
	board.OK = true
	sl := &recordingSleep{}

	if err := NewIndicators(board, 250*time.Millisecond, sl.Sleep).Set(context.Background(), true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !board.Fault || board.OK {
		t.Errorf("expected fault on and ok off, got fault=%v ok=%v", board.Fault, board.OK)
	}
	if len(sl.calls) != 0 {
		t.Error("no pulse expected")
	}
}

func TestIndicatorsPulse(t *testing.T) {
	board := gpio.NewFakeBoard(nil)
	sl := &recordingSleep{}

	if err := NewIndicators(board, 250*time.Millisecond, sl.Sleep).Set(context.Background(), false, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.Fault || !board.OK {
		t.Errorf("expected fault off and ok on, got fault=%v ok=%v", board.Fault, board.OK)
	}
	if len(sl.calls) != 1 || sl.calls[0] != 250*time.Millisecond {
		t.Errorf("sleep: got %v", sl.calls)
	}
}

func TestIndicatorsError(t *testing.T) {
	board := gpio.NewFakeBoard(nil)
	board.LampError = errors.New("gone")

	if err := NewIndicators(board, 0, nil).Set(context.Background(), true, false); err == nil {
		t.Error("expected error")
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep should return promptly")
	}
}
