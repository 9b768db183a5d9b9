package engine

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

func testInertia() InertiaConfig {
	return DefaultOptions().inertiaConfig()
}

func TestInertiaSlowReleaseDoesNotGlide(t *testing.T) {
	p := NewInertialPan(testInertia())
	p.Begin(0, 0, ms(0))
	p.Track(5, 0, ms(100)) // 0.05 px/ms

	if p.Release(ms(110)) {
		t.Fatal("slow release started a glide")
	}
	if dx, dy, done := p.Step(ms(126)); dx != 0 || dy != 0 || !done {
		t.Errorf("Step after slow release = %v, %v, %v", dx, dy, done)
	}
}

func TestInertiaGlideDecaysAndStops(t *testing.T) {
	cfg := testInertia()
	p := NewInertialPan(cfg)
	p.Begin(0, 0, ms(0))
	p.Track(20, -10, ms(16))

	if vx, vy := p.Velocity(); !near(vx, 1.25) || !near(vy, -0.625) {
		t.Fatalf("velocity = %v, %v", vx, vy)
	}
	if !p.Release(ms(20)) {
		t.Fatal("fast release did not glide")
	}

	var total, prev float64
	now := 20
	for i := 0; ; i++ {
		if i > 100 {
			t.Fatal("glide never finished")
		}
		now += 16
		dx, dy, done := p.Step(ms(now))
		if done {
			if dx != 0 || dy != 0 {
				t.Errorf("final step emitted %v, %v", dx, dy)
			}
			break
		}
		if dx <= 0 || dy >= 0 {
			t.Fatalf("step %d went the wrong way: %v, %v", i, dx, dy)
		}
		if i > 0 && dx >= prev {
			t.Fatalf("step %d did not decay: %v >= %v", i, dx, prev)
		}
		prev = dx
		total += dx
	}
	if elapsed := time.Duration(now-20) * time.Millisecond; elapsed > cfg.MaxDuration+16*time.Millisecond {
		t.Errorf("glide ran %v, max %v", elapsed, cfg.MaxDuration)
	}
	if total <= 0 {
		t.Error("glide moved nothing")
	}
	if p.Active() {
		t.Error("still active after done")
	}
}

func TestInertiaReducedMotion(t *testing.T) {
	cfg := testInertia()
	cfg.ReducedMotion = true
	p := NewInertialPan(cfg)
	p.Begin(0, 0, ms(0))
	p.Track(100, 0, ms(10))
	if p.Release(ms(12)) {
		t.Error("reduced motion still glides")
	}
}

func TestInertiaStaleRelease(t *testing.T) {
	p := NewInertialPan(testInertia())
	p.Begin(0, 0, ms(0))
	p.Track(50, 0, ms(16))
	if p.Release(ms(300)) {
		t.Error("release after the pointer rested still glides")
	}
}

func TestInertiaBeginCancelsGlide(t *testing.T) {
	p := NewInertialPan(testInertia())
	p.Begin(0, 0, ms(0))
	p.Track(50, 0, ms(16))
	if !p.Release(ms(16)) {
		t.Fatal("expected a glide")
	}
	p.Begin(10, 10, ms(40))
	if p.Active() {
		t.Error("Begin did not cancel the running glide")
	}
	if !p.Tracking() {
		t.Error("Begin did not start tracking")
	}
}
