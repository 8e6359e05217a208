package application

import (
	"context"
	"testing"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
)

func newTestCounter(t *testing.T, store domain.ClientStore, clock *manualClock) RateCounter {
	t.Helper()
	c, err := NewRateCounter(store, domain.DefaultLimits(), clock.Clock())
	if err != nil {
		t.Fatalf("failed to create rate counter: %v", err)
	}
	return c
}

func TestNewRateCounter_RejectsInvalidConfig(t *testing.T) {
	if _, err := NewRateCounter(nil, domain.DefaultLimits(), nil); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewRateCounter(newFakeStore(), domain.Limits{}, nil); err == nil {
		t.Fatalf("expected error with zero limits")
	}
}

func TestRateCounter_TwentiethRequestInAMinuteBlocks(t *testing.T) {
	store := newFakeStore()
	clock := &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	counter := newTestCounter(t, store, clock)
	gate := Gate{Store: store, BlockDuration: counter.Limits.BlockDuration, Clock: clock.Clock()}
	ctx := context.Background()

	for i := 1; i <= 19; i++ {
		v, err := counter.RecordAndCheck(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if v.Limited {
			t.Fatalf("request %d: expected not limited", i)
		}
		clock.Advance(500 * time.Millisecond)
	}

	v, err := counter.RecordAndCheck(ctx, "1.2.3.4")
	if err != nil || !v.Limited {
		t.Fatalf("20th request: expected limited, got %+v err=%v", v, err)
	}
	if v.Window != domain.WindowMinute {
		t.Fatalf("expected minute window, got %q", v.Window)
	}

	clock.Advance(time.Second)
	if blocked, _ := gate.IsBlocked(ctx, "1.2.3.4"); !blocked {
		t.Fatalf("expected gate to report block right after limit")
	}

	imposed := clock.now.Add(-time.Second)
	clock.now = imposed.Add(10*time.Minute + time.Second)
	if blocked, _ := gate.IsBlocked(ctx, "1.2.3.4"); blocked {
		t.Fatalf("expected block lifted after block duration")
	}
	if v, _ := counter.RecordAndCheck(ctx, "1.2.3.4"); v.Limited {
		t.Fatalf("expected fresh minute window after block expiry, got %+v", v)
	}
}

func TestRateCounter_KeysAreIndependent(t *testing.T) {
	store := newFakeStore()
	clock := &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	counter := newTestCounter(t, store, clock)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, _ = counter.RecordAndCheck(ctx, "1.2.3.4")
	}
	if v, _ := counter.RecordAndCheck(ctx, "5.6.7.8"); v.Limited {
		t.Fatalf("expected other key unaffected, got %+v", v)
	}
}
