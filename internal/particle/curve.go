package particle

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Interpolation is the curve interpolation mode (插值模式).
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
)

// ParseInterpolation maps a format tag to an Interpolation.
func ParseInterpolation(s string) (Interpolation, bool) {
	switch s {
	case "Linear", "":
		return InterpLinear, true
	case "Step":
		return InterpStep, true
	}
	return InterpLinear, false
}

// Key is one keyframe: the value at a normalized lifetime fraction.
type Key[T any] struct {
	Time  float64
	Value T
}

// LerpFunc interpolates between a and b by t in [0,1].
type LerpFunc[T any] func(a, b T, t float64) T

// Curve is a time-keyed sequence of values sampled by normalized lifetime.
// A Curve is immutable after construction and safe for concurrent reads.
type Curve[T any] struct {
	keys []Key[T]
	mode Interpolation
	lerp LerpFunc[T]
}

// NewCurve validates keys and builds a curve.
//
// Returns ErrInvalidCurve (wrapped) if keys is empty, a time is not finite,
// or times are not strictly increasing.
func NewCurve[T any](keys []Key[T], mode Interpolation, lerp LerpFunc[T]) (*Curve[T], error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keyframes", ErrInvalidCurve)
	}
	for i, k := range keys {
		if math.IsNaN(k.Time) || math.IsInf(k.Time, 0) {
			return nil, fmt.Errorf("%w: keyframe %d time %g is not finite", ErrInvalidCurve, i, k.Time)
		}
		if i > 0 && k.Time <= keys[i-1].Time {
			return nil, fmt.Errorf("%w: keyframe %d time %g is not after keyframe %d time %g",
				ErrInvalidCurve, i, k.Time, i-1, keys[i-1].Time)
		}
	}
	owned := make([]Key[T], len(keys))
	copy(owned, keys)
	return &Curve[T]{keys: owned, mode: mode, lerp: lerp}, nil
}

// ConstantCurve returns a single-keyframe curve.
func ConstantCurve[T any](v T) *Curve[T] {
	return &Curve[T]{keys: []Key[T]{{Time: 0, Value: v}}}
}

// Len returns the number of keyframes.
func (c *Curve[T]) Len() int {
	return len(c.keys)
}

// Keys returns a copy of the keyframes.
func (c *Curve[T]) Keys() []Key[T] {
	out := make([]Key[T], len(c.keys))
	copy(out, c.keys)
	return out
}

// Evaluate samples the curve at t, clamped to [first.Time, last.Time].
func (c *Curve[T]) Evaluate(t float64) T {
	n := len(c.keys)
	if n == 1 || t <= c.keys[0].Time {
		return c.keys[0].Value
	}
	if t >= c.keys[n-1].Time {
		return c.keys[n-1].Value
	}

	// 找到第一个 Time > t 的关键帧，lo 为其前一个
	hi := sort.Search(n, func(i int) bool { return c.keys[i].Time > t })
	lo := hi - 1
	a, b := c.keys[lo], c.keys[hi]
	if t == a.Time || c.mode == InterpStep || c.lerp == nil {
		return a.Value
	}
	u := (t - a.Time) / (b.Time - a.Time)
	return c.lerp(a.Value, b.Value, u)
}

// LerpFloat interpolates scalars without overshooting either endpoint.
func LerpFloat(a, b, t float64) float64 {
	v := a*(1-t) + b*t
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LerpVec2 interpolates component-wise.
func LerpVec2(a, b mgl64.Vec2, t float64) mgl64.Vec2 {
	return mgl64.Vec2{LerpFloat(a[0], b[0], t), LerpFloat(a[1], b[1], t)}
}

// LerpVec4 interpolates component-wise (RGBA).
func LerpVec4(a, b mgl64.Vec4, t float64) mgl64.Vec4 {
	return mgl64.Vec4{
		LerpFloat(a[0], b[0], t),
		LerpFloat(a[1], b[1], t),
		LerpFloat(a[2], b[2], t),
		LerpFloat(a[3], b[3], t),
	}
}
