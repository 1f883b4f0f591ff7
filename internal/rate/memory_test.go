package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}

	res, err := l.Allow(ctx, "ip:1.2.3.4")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Error("4th hit should be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", res.Remaining)
	}
	if res.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %s", res.RetryAfter)
	}

	// Otra key no comparte la ventana.
	other, err := l.Allow(ctx, "ip:5.6.7.8")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !other.Allowed {
		t.Error("different key should have its own window")
	}
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	l := NewMemoryLimiter(1, 30*time.Millisecond)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("first hit should pass")
	}
	if res, _ := l.Allow(ctx, "k"); res.Allowed {
		t.Fatal("second hit should be denied")
	}

	time.Sleep(60 * time.Millisecond)
	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Error("hit after window reset should pass")
	}
}
