package syncer

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("grows_exponentially_within_bounds", func(t *testing.T) {
		b := Backoff{Base: time.Second, Cap: time.Minute}

		prevCenter := time.Duration(0)
		for i := 0; i < 10; i++ {
			d := b.Next()
			if d < 0 || d > time.Minute+15*time.Second {
				t.Fatalf("attempt %d: delay %v outside bounds", i, d)
			}
			center := d // jitter is at most ±25%, centers must be non-decreasing
			if center < prevCenter/2 {
				t.Fatalf("attempt %d: delay %v regressed from %v", i, d, prevCenter)
			}
			prevCenter = center
		}
	})

	t.Run("caps_at_the_ceiling", func(t *testing.T) {
		b := Backoff{Base: time.Second, Cap: 4 * time.Second}

		var last time.Duration
		for i := 0; i < 20; i++ {
			last = b.Next()
		}
		if last > 5*time.Second {
			t.Errorf("expected capped delay, got %v", last)
		}
	})

	t.Run("reset_rewinds", func(t *testing.T) {
		b := Backoff{Base: time.Second, Cap: time.Minute}
		for i := 0; i < 5; i++ {
			b.Next()
		}
		b.Reset()

		d := b.Next()
		if d > 2*time.Second {
			t.Errorf("expected a first-attempt delay after reset, got %v", d)
		}
	})
}
