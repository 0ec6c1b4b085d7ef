package folio

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, max int, window time.Duration) (*LoginLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLoginLimiter(max, window)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	l, _ := newTestLimiter(t, 2, time.Minute)
	ip := "203.0.113.10"

	if !l.Check(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	l.Record(ip)
	if !l.Check(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	l.Record(ip)
	if l.Check(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(t, 1, time.Minute)
	ip := "203.0.113.20"

	l.Record(ip)
	if l.Check(ip) {
		t.Fatalf("expected ip to be blocked after a failure")
	}
	clock.Advance(61 * time.Second)
	if !l.Check(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)

	l.Record("203.0.113.30")
	if !l.Check("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if l.Check("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestLoginLimiterCheckDoesNotCount(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Check("203.0.113.40") {
			t.Fatalf("check %d: expected allowed without recorded failures", i)
		}
	}
}

func TestLoginLimiterStopIsIdempotent(t *testing.T) {
	l := NewLoginLimiter(1, time.Millisecond)
	l.Stop()
	l.Stop()
}
