package outbound

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(0, 0)
	st := l.Stats()
	if st.RatePerSecond != 200 || st.Burst != 16 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	l := NewRateLimiter(1, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatalf("expected wait to fail once the bucket is empty")
	}
	st := l.Stats()
	if st.AllowedTotal != 1 || st.RejectedTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
}
