package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFunc(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := 0
	c.AfterFunc(time.Second, func() { fired++ })

	c.Advance(999 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early")
	}
	c.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected one call, got %d", fired)
	}
	c.Advance(time.Hour)
	if fired != 1 {
		t.Errorf("AfterFunc must fire once, got %d", fired)
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	timer := c.AfterFunc(time.Second, func() { t.Error("stopped timer fired") })
	if c.PendingTimers() != 1 {
		t.Fatalf("expected one pending timer")
	}
	if !timer.Stop() {
		t.Error("expected Stop to report a pending timer")
	}
	c.Advance(2 * time.Second)
	if timer.Stop() {
		t.Error("second Stop must report false")
	}
}

func TestFakeTicker(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	ticker := c.NewTicker(100 * time.Millisecond)

	c.Advance(100 * time.Millisecond)
	select {
	case <-ticker.C:
	default:
		t.Fatal("expected a tick")
	}

	ticker.Stop()
	c.Advance(time.Second)
	select {
	case <-ticker.C:
		t.Error("stopped ticker delivered a tick")
	default:
	}
}
