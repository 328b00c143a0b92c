package particle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// ParseFloat parses a finite float. NaN and infinities are rejected.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

// ParseVector parses n whitespace-separated floats.
// Supports:
//   - "1 2 3"
//   - "[1 2 3]" (brackets are ignored)
//   - "1, 2, 3" (commas are treated as separators)
func ParseVector(s string, n int) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.ReplaceAll(s, ",", " ")

	parts := strings.Fields(s)
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d components, got %d in %q", n, len(parts), s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := ParseFloat(p)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ParseVec2 parses "x y".
func ParseVec2(s string) (mgl64.Vec2, error) {
	v, err := ParseVector(s, 2)
	if err != nil {
		return mgl64.Vec2{}, err
	}
	return mgl64.Vec2{v[0], v[1]}, nil
}

// ParseVec3 parses "x y z".
func ParseVec3(s string) (mgl64.Vec3, error) {
	v, err := ParseVector(s, 3)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// ParseQuat parses "x y z w" and normalizes the result.
func ParseQuat(s string) (mgl64.Quat, error) {
	v, err := ParseVector(s, 4)
	if err != nil {
		return mgl64.QuatIdent(), err
	}
	q := mgl64.Quat{W: v[3], V: mgl64.Vec3{v[0], v[1], v[2]}}
	if q.Len() == 0 {
		return mgl64.QuatIdent(), fmt.Errorf("zero-length quaternion %q", s)
	}
	return q.Normalize(), nil
}

// ParseColor parses an RGBA colour into 0-1 channels.
// Supports:
//   - "255 128 0 255" (bytes, alpha optional)
//   - "#ff8000" / "#ff8000cc" / "#f80" (hex, alpha optional)
func ParseColor(s string) (mgl64.Vec4, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}

	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 3 {
		fields = append(fields, "255")
	}
	if len(fields) != 4 {
		return mgl64.Vec4{}, fmt.Errorf("expected 3 or 4 colour channels, got %d in %q", len(fields), s)
	}
	var c mgl64.Vec4
	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return mgl64.Vec4{}, fmt.Errorf("channel %d: %w", i, err)
		}
		if v < 0 || v > 255 {
			return mgl64.Vec4{}, fmt.Errorf("channel %d: %g out of range [0,255]", i, v)
		}
		c[i] = v / 255
	}
	return c, nil
}

func parseHexColor(s string) (mgl64.Vec4, error) {
	alpha := 1.0
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return mgl64.Vec4{}, fmt.Errorf("invalid alpha in %q", s)
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return mgl64.Vec4{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return mgl64.Vec4{col.R, col.G, col.B, alpha}, nil
}
