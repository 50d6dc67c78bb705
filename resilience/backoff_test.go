package resilience

import (
	"testing"
	"time"
)

func TestQueueRetryDelay_Schedule(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		64 * time.Second,
		128 * time.Second,
		256 * time.Second,
		300 * time.Second,
		300 * time.Second,
	}

	for k, w := range want {
		if got := QueueRetryDelay(k); got != w {
			t.Errorf("QueueRetryDelay(%d) = %v, want %v", k, got, w)
		}
	}
}

func TestQueueRetryDelay_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for k := 0; k < 20; k++ {
		d := QueueRetryDelay(k)
		if d < prev {
			t.Fatalf("QueueRetryDelay(%d) = %v < previous %v", k, d, prev)
		}
		if d > QueueRetryCap {
			t.Fatalf("QueueRetryDelay(%d) = %v exceeds cap", k, d)
		}
		prev = d
	}
}

func TestQueueRetryDelay_NegativeClamped(t *testing.T) {
	if got := QueueRetryDelay(-3); got != time.Second {
		t.Errorf("QueueRetryDelay(-3) = %v, want 1s", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(BackoffConfig{})

	if b.config.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", b.config.BaseDelay)
	}
	if b.config.MaxDelay != 5*time.Minute {
		t.Errorf("MaxDelay = %v, want 5m", b.config.MaxDelay)
	}
	if b.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %v, want 2.0", b.config.Multiplier)
	}
}

func TestBackoff_ExponentialWithoutJitter(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 2 * time.Second})

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: time.Second})

	if got := b.Delay(30); got != 5*time.Minute {
		t.Errorf("Delay(30) = %v, want 5m cap", got)
	}
}

func TestBackoff_JitterStaysInBand(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 10 * time.Second, Jitter: true})

	for i := 0; i < 200; i++ {
		d := b.Delay(1)
		diff := d - 10*time.Second
		if diff < 0 {
			diff = -diff
		}
		if diff < time.Second || diff > 3*time.Second {
			t.Fatalf("jitter offset = %v, want within ±10-30%% of 10s", diff)
		}
	}
}

func TestBackoff_JitterDeterministicWithStubbedRand(t *testing.T) {
	b := NewBackoff(BackoffConfig{BaseDelay: 10 * time.Second, Jitter: true})
	calls := 0
	b.rand = func() float64 {
		calls++
		if calls%2 == 1 {
			return 0.5 // 20% spread
		}
		return 0.9 // positive sign
	}

	if got := b.Delay(1); got != 12*time.Second {
		t.Errorf("Delay(1) = %v, want 12s (+20%%)", got)
	}
}
