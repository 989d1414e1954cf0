package logic

import (
	"math/rand"
	"testing"
	"time"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestMachine(maxFailures int) *Machine {
	return NewMachine(Config{
		NormalPeriod: 30 * time.Second,
		AltPeriod:    90 * time.Second,
		MaxFailures:  maxFailures,
	}, testStart)
}

func TestNewMachine(t *testing.T) {
	m := newTestMachine(3)
	s := m.State()
	if s.ConsecutiveFailures != 0 {
		t.Errorf("expected 0 failures, got %d", s.ConsecutiveFailures)
	}
	if s.Cadence != CadenceNormal {
		t.Errorf("expected NORMAL cadence, got %s", s.Cadence)
	}
	if s.OutageDeclared {
		t.Error("new machine should not have an outage declared")
	}
	if !s.LastCheck.Equal(testStart) {
		t.Errorf("expected LastCheck %v, got %v", testStart, s.LastCheck)
	}
	if m.MaxFailures() != 3 {
		t.Errorf("expected MaxFailures 3, got %d", m.MaxFailures())
	}
}

func TestEvaluateThresholdScenario(t *testing.T) {
	m := newTestMachine(3)
	now := testStart

	steps := []struct {
		ok          bool
		wantAction  Action
		wantCadence Cadence
		wantFails   int
	}{
		{false, ActionRecordFailureStart, CadenceNormal, 1},
		{false, ActionNone, CadenceNormal, 2},
		{false, ActionDeclareOutageAndCycle, CadenceDegraded, 3},
		{false, ActionContinueOutageCycle, CadenceDegraded, 3},
		{true, ActionRecordSuccessAfterOutage, CadenceNormal, 0},
	}

	for i, st := range steps {
		now = now.Add(time.Minute)
		got := m.Evaluate(st.ok, now)
		if got != st.wantAction {
			t.Errorf("step %d: action got %s, want %s", i, got, st.wantAction)
		}
		s := m.State()
		if s.Cadence != st.wantCadence {
			t.Errorf("step %d: cadence got %s, want %s", i, s.Cadence, st.wantCadence)
		}
		if s.ConsecutiveFailures != st.wantFails {
			t.Errorf("step %d: failures got %d, want %d", i, s.ConsecutiveFailures, st.wantFails)
		}
		if !s.LastCheck.Equal(now) {
			t.Errorf("step %d: LastCheck not updated", i)
		}
	}
}

func TestEvaluateSingleFailureThreshold(t *testing.T) {
	m := newTestMachine(1)

	if got := m.Evaluate(false, testStart.Add(time.Second)); got != ActionDeclareOutageAndCycle {
		t.Fatalf("expected DECLARE_OUTAGE_AND_CYCLE on first failure, got %s", got)
	}
	if m.State().Cadence != CadenceDegraded {
		t.Error("expected DEGRADED cadence after outage")
	}
	if got := m.Evaluate(false, testStart.Add(2*time.Second)); got != ActionContinueOutageCycle {
		t.Errorf("expected CONTINUE_OUTAGE_CYCLE, got %s", got)
	}
}

func TestEvaluateSuccessWhenHealthyIsNoop(t *testing.T) {
	m := newTestMachine(3)
	before := m.State()

	got := m.Evaluate(true, testStart)
	if got != ActionNone {
		t.Errorf("expected NONE, got %s", got)
	}
	if m.State() != before {
		t.Errorf("state changed: before %+v, after %+v", before, m.State())
	}
}

func TestEvaluateBlipRecoveryNotLogged(t *testing.T) {
	m := newTestMachine(3)
	m.Evaluate(false, testStart.Add(time.Second))

	got := m.Evaluate(true, testStart.Add(2*time.Second))
	if got != ActionNone {
		t.Errorf("success below threshold should be NONE, got %s", got)
	}
	if m.State().ConsecutiveFailures != 0 {
		t.Errorf("expected failures reset, got %d", m.State().ConsecutiveFailures)
	}

	// A new streak starts with RecordFailureStart again.
	if got := m.Evaluate(false, testStart.Add(3*time.Second)); got != ActionRecordFailureStart {
		t.Errorf("expected RECORD_FAILURE_START for new streak, got %s", got)
	}
}

func TestEvaluateRandomSequencesHoldInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, maxFailures := range []int{1, 2, 3, 5} {
		m := newTestMachine(maxFailures)
		now := testStart
		declaredThisStreak := 0

		for i := 0; i < 2000; i++ {
			now = now.Add(time.Second)
			ok := rng.Intn(3) == 0
			prev := m.State()
			action := m.Evaluate(ok, now)
			s := m.State()

			if s.ConsecutiveFailures > maxFailures {
				t.Fatalf("max=%d step %d: failures %d exceed threshold", maxFailures, i, s.ConsecutiveFailures)
			}
			if s.OutageDeclared != (s.ConsecutiveFailures >= maxFailures) {
				t.Fatalf("max=%d step %d: outage=%v with failures=%d", maxFailures, i, s.OutageDeclared, s.ConsecutiveFailures)
			}
			if (s.Cadence == CadenceDegraded) != s.OutageDeclared {
				t.Fatalf("max=%d step %d: cadence %s with outage=%v", maxFailures, i, s.Cadence, s.OutageDeclared)
			}

			if ok {
				if s.ConsecutiveFailures != 0 {
					t.Fatalf("max=%d step %d: failures not reset on success", maxFailures, i)
				}
				wantRestored := prev.OutageDeclared
				if (action == ActionRecordSuccessAfterOutage) != wantRestored {
					t.Fatalf("max=%d step %d: action %s after outage=%v", maxFailures, i, action, prev.OutageDeclared)
				}
				declaredThisStreak = 0
				continue
			}

			if action == ActionDeclareOutageAndCycle {
				declaredThisStreak++
				if declaredThisStreak > 1 {
					t.Fatalf("max=%d step %d: outage declared twice in one streak", maxFailures, i)
				}
				if s.ConsecutiveFailures != maxFailures || prev.ConsecutiveFailures != maxFailures-1 {
					t.Fatalf("max=%d step %d: declared at failures %d", maxFailures, i, s.ConsecutiveFailures)
				}
			}
			if action == ActionContinueOutageCycle && !prev.OutageDeclared {
				t.Fatalf("max=%d step %d: continue without prior declaration", maxFailures, i)
			}
		}
	}
}

func TestOverrideStateAndGating(t *testing.T) {
	m := newTestMachine(3)

	// Already degraded from an outage.
	for i := 1; i <= 3; i++ {
		m.Evaluate(false, testStart.Add(time.Duration(i)*time.Minute))
	}
	if m.State().Cadence != CadenceDegraded {
		t.Fatal("expected degraded cadence")
	}

	overrideAt := testStart.Add(4*time.Minute + 10*time.Second)
	m.Override(overrideAt)

	s := m.State()
	if !s.LastCheck.Equal(overrideAt) {
		t.Errorf("expected LastCheck reset to override time, got %v", s.LastCheck)
	}
	if s.ConsecutiveFailures != 3 || !s.OutageDeclared || s.Cadence != CadenceDegraded {
		t.Errorf("unexpected state after override: %+v", s)
	}

	// Gated by alt period (90s), not normal period (30s).
	if m.Due(overrideAt.Add(60 * time.Second)) {
		t.Error("check should not be due before alt period elapses")
	}
	if !m.Due(overrideAt.Add(90 * time.Second)) {
		t.Error("check should be due once alt period elapses")
	}

	// Still down: cycle again without re-declaring.
	if got := m.Evaluate(false, overrideAt.Add(90*time.Second)); got != ActionContinueOutageCycle {
		t.Errorf("expected CONTINUE_OUTAGE_CYCLE after override, got %s", got)
	}
}

func TestOverrideFromHealthyThenSuccessLogsRestore(t *testing.T) {
	m := newTestMachine(3)
	m.Override(testStart.Add(time.Second))

	if got := m.Evaluate(true, testStart.Add(2*time.Minute)); got != ActionRecordSuccessAfterOutage {
		t.Errorf("expected RECORD_SUCCESS_AFTER_OUTAGE after override, got %s", got)
	}
	if m.State().Cadence != CadenceNormal {
		t.Error("expected NORMAL cadence after success")
	}
}

func TestDueUsesCadencePeriod(t *testing.T) {
	m := newTestMachine(3)

	if m.Due(testStart.Add(29 * time.Second)) {
		t.Error("should not be due before normal period")
	}
	if !m.Due(testStart.Add(30 * time.Second)) {
		t.Error("should be due at normal period")
	}
	if got := m.NextCheck(); !got.Equal(testStart.Add(30 * time.Second)) {
		t.Errorf("NextCheck: got %v", got)
	}

	// Below-threshold failure keeps the normal period.
	m.Evaluate(false, testStart.Add(30*time.Second))
	if m.Period() != 30*time.Second {
		t.Errorf("expected normal period after blip, got %v", m.Period())
	}
}

func TestRearm(t *testing.T) {
	m := newTestMachine(3)
	at := testStart.Add(5 * time.Minute)
	m.Rearm(at)

	if !m.State().LastCheck.Equal(at) {
		t.Errorf("expected LastCheck %v, got %v", at, m.State().LastCheck)
	}
	if m.Counts().Checks != 0 {
		t.Error("Rearm should not count as a check")
	}
}

func TestCounts(t *testing.T) {
	m := newTestMachine(2)
	now := testStart
	for _, ok := range []bool{false, false, false, true, false} {
		now = now.Add(time.Minute)
		m.Evaluate(ok, now)
	}
	m.Override(now.Add(time.Second))

	c := m.Counts()
	want := Counts{Checks: 5, Failures: 4, Outages: 1, PowerCycles: 3, ManualResets: 1}
	if c != want {
		t.Errorf("counts: got %+v, want %+v", c, want)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	m := newTestMachine(3)

	if hb := m.CheckHeartbeat(testStart.Add(time.Hour), 0); hb != nil {
		t.Error("heartbeat should be disabled with zero interval")
	}
	if hb := m.CheckHeartbeat(testStart.Add(10*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat should not fire before interval")
	}

	hb := m.CheckHeartbeat(testStart.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("uptime: got %v, want 15m", hb.Uptime)
	}

	if hb := m.CheckHeartbeat(testStart.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat should not fire again before next interval")
	}
}

func TestActionCycles(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionNone, false},
		{ActionRecordSuccessAfterOutage, false},
		{ActionRecordFailureStart, false},
		{ActionDeclareOutageAndCycle, true},
		{ActionContinueOutageCycle, true},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := tt.action.Cycles(); got != tt.want {
				t.Errorf("Cycles() = %v, want %v", got, tt.want)
			}
		})
	}
}
