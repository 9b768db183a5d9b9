package engine

import "math"

// EasingType names a progress curve mapping [0,1] onto [0,1].
type EasingType string

const (
	EasingLinear       EasingType = "linear"
	EasingEaseIn       EasingType = "easeIn"
	EasingEaseOut      EasingType = "easeOut"
	EasingEaseInOut    EasingType = "easeInOut"
	EasingCubicIn      EasingType = "cubicIn"
	EasingCubicOut     EasingType = "cubicOut"
	EasingCubicInOut   EasingType = "cubicInOut"
	EasingBackOut      EasingType = "backOut"
	EasingElasticOut   EasingType = "elasticOut"
	EasingBounceOut    EasingType = "bounceOut"
	EasingExpoOut      EasingType = "expoOut"
	EasingQuartOut     EasingType = "quartOut"
	EasingSineOut      EasingType = "sineOut"
	EasingCircularOut  EasingType = "circOut"
	EasingSmoothStep   EasingType = "smoothStep"
	EasingDecelerating EasingType = "decelerate"
)

// glideEasings stay inside [0,1] and never decrease, so 1-ApplyEasing is
// usable as inertia friction.
var glideEasings = map[EasingType]bool{
	EasingLinear:       true,
	EasingEaseIn:       true,
	EasingEaseOut:      true,
	EasingEaseInOut:    true,
	EasingCubicIn:      true,
	EasingCubicOut:     true,
	EasingCubicInOut:   true,
	EasingExpoOut:      true,
	EasingQuartOut:     true,
	EasingSineOut:      true,
	EasingCircularOut:  true,
	EasingSmoothStep:   true,
	EasingDecelerating: true,
}

// Monotone reports whether e is a known curve that never overshoots or
// turns back.
func (e EasingType) Monotone() bool {
	return glideEasings[e]
}

// ApplyEasing applies an easing function to progress t, clamped to [0,1].
// Unknown names fall back to linear.
func ApplyEasing(t float64, easing EasingType) float64 {
	t = math.Min(1, math.Max(0, t))
	switch easing {
	case EasingEaseIn:
		return t * t

	case EasingEaseOut:
		return t * (2 - t)

	case EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EasingCubicIn:
		return t * t * t

	case EasingCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	case EasingCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		t2 := -2*t + 2
		return 1 - t2*t2*t2/2

	case EasingBackOut:
		c1 := 1.70158
		c3 := c1 + 1
		t2 := t - 1
		return 1 + c3*t2*t2*t2 + c1*t2*t2

	case EasingElasticOut:
		if t == 0 || t == 1 {
			return t
		}
		c4 := (2 * math.Pi) / 3
		return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1

	case EasingBounceOut:
		return bounceOut(t)

	case EasingExpoOut:
		if t == 1 {
			return 1
		}
		return 1 - math.Pow(2, -10*t)

	case EasingQuartOut:
		t2 := 1 - t
		return 1 - t2*t2*t2*t2

	case EasingSineOut:
		return math.Sin(t * math.Pi / 2)

	case EasingCircularOut:
		return math.Sqrt(1 - (t-1)*(t-1))

	case EasingSmoothStep:
		return t * t * (3 - 2*t)

	case EasingDecelerating:
		return 1 - math.Pow(1-t, 1.5)

	default: // linear
		return t
	}
}

// bounceOut implements the standard 4-segment parabolic bounce curve.
func bounceOut(t float64) float64 {
	n1 := 7.5625
	d1 := 2.75
	if t < 1/d1 {
		return n1 * t * t
	} else if t < 2/d1 {
		t -= 1.5 / d1
		return n1*t*t + 0.75
	} else if t < 2.5/d1 {
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	} else {
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}
