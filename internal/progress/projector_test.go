package progress

import (
	"testing"
	"time"

	"github.com/fpang/batch-compress/internal/clock"
)

// recorder collects observer callbacks on a channel.
type recorder struct {
	states chan State
}

func newRecorder() *recorder {
	return &recorder{states: make(chan State, 64)}
}

func (r *recorder) observe(s State) { r.states <- s }

func (r *recorder) next(t *testing.T) State {
	t.Helper()
	select {
	case s := <-r.states:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for progress update")
	}
	return State{}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-r.states:
		t.Fatalf("unexpected progress update: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func fixedRand(v float64) func() float64 { return func() float64 { return v } }

func TestStartResetsToZero(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := newRecorder()
	p := New(Options{Clock: c, Interval: time.Second, MinStep: 10, MaxStep: 20, Rand: fixedRand(0)}, rec.observe)

	p.Start()
	if s := rec.next(t); s.Percentage != 0 || s.Stage != Stages[0] {
		t.Fatalf("expected reset state, got %+v", s)
	}
	if !p.Running() {
		t.Fatal("expected running")
	}

	c.Advance(time.Second)
	if s := rec.next(t); s.Percentage != 10 {
		t.Fatalf("expected 10%%, got %+v", s)
	}

	p.Stop()
	p.Start()
	if s := rec.next(t); s.Percentage != 0 {
		t.Fatalf("expected restart at 0, got %+v", s)
	}
	p.Stop()
}

func TestProgressIsMonotonicAndCapped(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := newRecorder()
	p := New(Options{Clock: c, Interval: time.Second, MinStep: 2, MaxStep: 15, Rand: fixedRand(0.99)}, rec.observe)

	p.Start()
	rec.next(t)

	previous := 0.0
	previousStage := 0
	for {
		c.Advance(time.Second)
		s := rec.next(t)
		if s.Percentage < previous {
			t.Fatalf("percentage decreased from %v to %v", previous, s.Percentage)
		}
		if s.Percentage >= 100 || s.Percentage > Cap {
			t.Fatalf("percentage %v exceeds cap", s.Percentage)
		}
		stage := stageIndex(t, s.Stage)
		if stage < previousStage {
			t.Fatalf("stage went backward: %s", s.Stage)
		}
		previous, previousStage = s.Percentage, stage
		if s.Percentage == Cap {
			break
		}
	}

	if p.State().Stage != Stages[len(Stages)-1] {
		t.Errorf("expected final stage at cap, got %q", p.State().Stage)
	}

	// Frozen: further time produces no updates.
	c.Advance(10 * time.Second)
	rec.none(t)
	if !p.Running() {
		t.Error("a frozen projector is still running until stopped")
	}
	p.Stop()
	if p.Running() {
		t.Error("expected idle after Stop")
	}
}

func TestStageThresholds(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := newRecorder()
	// Exactly 10 per tick.
	p := New(Options{Clock: c, Interval: time.Second, MinStep: 10, MaxStep: 11, Rand: fixedRand(0)}, rec.observe)
	p.Start()
	rec.next(t)

	expected := []string{Stages[0], Stages[1], Stages[1], Stages[2], Stages[2], Stages[3], Stages[3], Stages[4], Stages[4]}
	for i, want := range expected {
		c.Advance(time.Second)
		s := rec.next(t)
		if s.Stage != want {
			t.Errorf("tick %d at %v%%: stage %q, want %q", i+1, s.Percentage, s.Stage, want)
		}
	}

	c.Advance(time.Second)
	if s := rec.next(t); s.Percentage != Cap {
		t.Errorf("expected cap at %v, got %v", Cap, s.Percentage)
	}
	p.Stop()
}

func TestStopCancelsImmediately(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	rec := newRecorder()
	p := New(Options{Clock: c, Interval: time.Second, Rand: fixedRand(0.5)}, rec.observe)

	p.Start()
	rec.next(t)
	c.Advance(time.Second)
	rec.next(t)

	p.Stop()
	c.Advance(5 * time.Second)
	rec.none(t)

	// Stop on an idle projector is a no-op.
	p.Stop()
}

func stageIndex(t *testing.T, stage string) int {
	t.Helper()
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	t.Fatalf("unknown stage %q", stage)
	return -1
}
