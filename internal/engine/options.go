package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidEasing = errors.New("inertia easing must be monotone")

// Options tunes the interactive behavior of the engine. The envconfig tags
// let the server and CLI load it from ENGINE_* variables; DefaultOptions
// carries the same defaults for library use.
type Options struct {
	GridSize      float64 `envconfig:"GRID_SIZE" default:"10"`
	SnapThreshold float64 `envconfig:"SNAP_THRESHOLD" default:"6"` // screen pixels
	SnapToGrid    bool    `envconfig:"SNAP_TO_GRID" default:"true"`
	SnapToObjects bool    `envconfig:"SNAP_TO_OBJECTS" default:"true"`

	MinZoom     float64 `envconfig:"MIN_ZOOM" default:"0.1"`
	MaxZoom     float64 `envconfig:"MAX_ZOOM" default:"8"`
	ZoomPadding float64 `envconfig:"ZOOM_PADDING" default:"40"`
	FitMargin   float64 `envconfig:"FIT_MARGIN" default:"40"`

	PanMarginFactor float64 `envconfig:"PAN_MARGIN_FACTOR" default:"0.25"`
	PanResistance   float64 `envconfig:"PAN_RESISTANCE" default:"0.35"`

	InertiaMinVelocity float64       `envconfig:"INERTIA_MIN_VELOCITY" default:"0.1"` // px per ms
	InertiaMaxDuration time.Duration `envconfig:"INERTIA_MAX_DURATION" default:"600ms"`
	InertiaDecay       float64       `envconfig:"INERTIA_DECAY" default:"0.92"`
	InertiaEasing      EasingType    `envconfig:"INERTIA_EASING" default:"easeOut"`
	ReducedMotion      bool          `envconfig:"REDUCED_MOTION" default:"false"`

	MinResizeSize       float64 `envconfig:"MIN_RESIZE_SIZE" default:"8"`
	RotationSnapDegrees float64 `envconfig:"ROTATION_SNAP_DEGREES" default:"15"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		GridSize:            10,
		SnapThreshold:       6,
		SnapToGrid:          true,
		SnapToObjects:       true,
		MinZoom:             0.1,
		MaxZoom:             8,
		ZoomPadding:         40,
		FitMargin:           40,
		PanMarginFactor:     0.25,
		PanResistance:       0.35,
		InertiaMinVelocity:  0.1,
		InertiaMaxDuration:  600 * time.Millisecond,
		InertiaDecay:        0.92,
		InertiaEasing:       EasingEaseOut,
		ReducedMotion:       false,
		MinResizeSize:       8,
		RotationSnapDegrees: 15,
	}
}

// Validate rejects option values the engine cannot run with.
func (o Options) Validate() error {
	if !o.InertiaEasing.Monotone() {
		return fmt.Errorf("%w: %q", ErrInvalidEasing, o.InertiaEasing)
	}
	return nil
}

func (o Options) zoomLimits() ZoomLimits {
	return ZoomLimits{
		MinZoom: o.MinZoom,
		MaxZoom: o.MaxZoom,
		Padding: o.ZoomPadding,
	}
}

// inertiaConfig falls back to easeOut for curves Validate would reject.
func (o Options) inertiaConfig() InertiaConfig {
	easing := o.InertiaEasing
	if !easing.Monotone() {
		easing = EasingEaseOut
	}
	return InertiaConfig{
		MinVelocity:   o.InertiaMinVelocity,
		MaxDuration:   o.InertiaMaxDuration,
		Decay:         o.InertiaDecay,
		Easing:        easing,
		ReducedMotion: o.ReducedMotion,
	}
}
