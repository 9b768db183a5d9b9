package engine

import (
	"math"
	"time"
)

// InertiaConfig tunes the post-release glide of a pan.
type InertiaConfig struct {
	MinVelocity   float64 // px per ms needed to start a glide
	MaxDuration   time.Duration
	Decay         float64 // velocity multiplier per step
	Easing        EasingType
	ReducedMotion bool
}

const (
	// Samples older than this at release mean the pointer came to rest.
	inertiaStaleSample = 100 * time.Millisecond
	// Glides stop once the emitted speed falls below this, in px per ms.
	inertiaStopVelocity = 0.01
)

// InertialPan tracks pointer velocity during a pan and, after release,
// emits decaying offset deltas. Time is passed in by the caller so the
// animation is driven by the host's frame clock.
type InertialPan struct {
	cfg InertiaConfig

	tracking bool
	lastX    float64
	lastY    float64
	lastAt   time.Time
	vx, vy   float64

	active  bool
	startAt time.Time
	stepAt  time.Time
}

// NewInertialPan creates an idle controller.
func NewInertialPan(cfg InertiaConfig) *InertialPan {
	return &InertialPan{cfg: cfg}
}

// Begin starts tracking a new pan. Any running glide is cancelled.
func (p *InertialPan) Begin(x, y float64, now time.Time) {
	p.Cancel()
	p.tracking = true
	p.lastX, p.lastY, p.lastAt = x, y, now
	p.vx, p.vy = 0, 0
}

// Track records a pointer sample and updates the velocity estimate.
func (p *InertialPan) Track(x, y float64, now time.Time) {
	if !p.tracking {
		p.Begin(x, y, now)
		return
	}
	dt := float64(now.Sub(p.lastAt)) / float64(time.Millisecond)
	if dt > 0 {
		p.vx = (x - p.lastX) / dt
		p.vy = (y - p.lastY) / dt
	}
	p.lastX, p.lastY, p.lastAt = x, y, now
}

// Velocity returns the current velocity estimate in px per ms.
func (p *InertialPan) Velocity() (float64, float64) {
	return p.vx, p.vy
}

// Release ends tracking and reports whether a glide started.
func (p *InertialPan) Release(now time.Time) bool {
	if !p.tracking {
		return false
	}
	p.tracking = false
	if p.cfg.ReducedMotion || p.cfg.MaxDuration <= 0 {
		return false
	}
	if now.Sub(p.lastAt) > inertiaStaleSample {
		return false
	}
	if math.Hypot(p.vx, p.vy) < p.cfg.MinVelocity {
		return false
	}
	p.active = true
	p.startAt = now
	p.stepAt = now
	return true
}

// Step advances the glide to now and returns the offset delta to apply.
// done is true once the glide has stopped; the final call emits zero.
func (p *InertialPan) Step(now time.Time) (dx, dy float64, done bool) {
	if !p.active {
		return 0, 0, true
	}
	elapsed := now.Sub(p.startAt)
	if elapsed >= p.cfg.MaxDuration {
		p.stop()
		return 0, 0, true
	}

	dt := float64(now.Sub(p.stepAt)) / float64(time.Millisecond)
	p.stepAt = now
	if dt <= 0 {
		return 0, 0, false
	}

	progress := float64(elapsed) / float64(p.cfg.MaxDuration)
	friction := 1 - ApplyEasing(progress, p.cfg.Easing)
	if math.Hypot(p.vx, p.vy)*friction < inertiaStopVelocity {
		p.stop()
		return 0, 0, true
	}

	dx = p.vx * dt * friction
	dy = p.vy * dt * friction
	p.vx *= p.cfg.Decay
	p.vy *= p.cfg.Decay
	return dx, dy, false
}

// Cancel stops tracking and any running glide.
func (p *InertialPan) Cancel() {
	p.tracking = false
	p.stop()
}

func (p *InertialPan) stop() {
	p.active = false
	p.vx, p.vy = 0, 0
}

// Active reports whether a glide is running.
func (p *InertialPan) Active() bool { return p.active }

// Tracking reports whether a pan is being tracked.
func (p *InertialPan) Tracking() bool { return p.tracking }
