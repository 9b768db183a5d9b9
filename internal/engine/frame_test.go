package engine

import (
	"errors"
	"testing"
)

func TestFrameSchedulerCoalesces(t *testing.T) {
	var s FrameScheduler
	var ran []int

	if s.Flush() {
		t.Fatal("empty scheduler flushed")
	}
	for i := 1; i <= 3; i++ {
		replaced := s.Schedule(func() { ran = append(ran, i) })
		if replaced != (i > 1) {
			t.Errorf("Schedule #%d replaced = %v", i, replaced)
		}
	}
	if !s.Pending() {
		t.Fatal("nothing pending after Schedule")
	}
	if !s.Flush() {
		t.Fatal("Flush ran nothing")
	}
	if len(ran) != 1 || ran[0] != 3 {
		t.Errorf("ran = %v, want only the last callback", ran)
	}
	if s.Pending() || s.Flush() {
		t.Error("callback ran twice")
	}
}

func TestFrameSchedulerCancel(t *testing.T) {
	var s FrameScheduler
	called := false
	s.Schedule(func() { called = true })
	s.Cancel()
	s.Flush()
	if called {
		t.Error("cancelled callback ran")
	}
}

func TestApplyEasingEndpoints(t *testing.T) {
	curves := []EasingType{
		EasingLinear, EasingEaseIn, EasingEaseOut, EasingEaseInOut,
		EasingCubicIn, EasingCubicOut, EasingCubicInOut, EasingBackOut,
		EasingElasticOut, EasingBounceOut, EasingExpoOut, EasingQuartOut,
		EasingSineOut, EasingCircularOut, EasingSmoothStep, EasingDecelerating,
		"unknown",
	}
	for _, c := range curves {
		t.Run(string(c), func(t *testing.T) {
			if got := ApplyEasing(0, c); !near(got, 0) {
				t.Errorf("f(0) = %v", got)
			}
			if got := ApplyEasing(1, c); !near(got, 1) {
				t.Errorf("f(1) = %v", got)
			}
			if got, want := ApplyEasing(2, c), ApplyEasing(1, c); got != want {
				t.Errorf("progress is not clamped: f(2) = %v", got)
			}
		})
	}
	if ApplyEasing(0.5, EasingEaseOut) <= 0.5 {
		t.Error("easeOut should lead linear at the midpoint")
	}
}

func TestMonotoneEasings(t *testing.T) {
	curves := []EasingType{
		EasingLinear, EasingEaseIn, EasingEaseOut, EasingEaseInOut,
		EasingCubicIn, EasingCubicOut, EasingCubicInOut, EasingBackOut,
		EasingElasticOut, EasingBounceOut, EasingExpoOut, EasingQuartOut,
		EasingSineOut, EasingCircularOut, EasingSmoothStep, EasingDecelerating,
	}
	for _, c := range curves {
		t.Run(string(c), func(t *testing.T) {
			prev, monotone := 0.0, true
			for i := 1; i <= 100; i++ {
				v := ApplyEasing(float64(i)/100, c)
				if v < prev-1e-12 || v > 1+1e-12 {
					monotone = false
				}
				prev = v
			}
			if c.Monotone() != monotone {
				t.Errorf("Monotone() = %v, sampled curve monotone = %v", c.Monotone(), monotone)
			}
		})
	}
	if EasingType("wobble").Monotone() {
		t.Error("unknown curve reported monotone")
	}

	opts := DefaultOptions()
	opts.InertiaEasing = EasingBackOut
	if err := opts.Validate(); !errors.Is(err, ErrInvalidEasing) {
		t.Errorf("Validate() = %v", err)
	}
	if got := opts.inertiaConfig().Easing; got != EasingEaseOut {
		t.Errorf("inertia easing = %q, want fallback to easeOut", got)
	}
	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}
