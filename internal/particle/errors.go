package particle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCurve is returned when a curve is empty or its keyframe times decrease.
var ErrInvalidCurve = errors.New("invalid curve")

// ValidationError describes one malformed field of an effect definition.
type ValidationError struct {
	Path string // e.g. emitters[0].emit.shape.Sphere.inner_radius
	Msg  string
	Err  error // Optional cause, such as ErrInvalidCurve
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors collects every problem found in one load.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return "invalid effect definition: " + errs[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid effect definition (%d errors):", len(errs))
	for _, e := range errs {
		sb.WriteString("\n  ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Unwrap lets errors.Is/As see every collected error.
func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// Paths returns the field paths of all errors, in report order.
func (errs ValidationErrors) Paths() []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Path
	}
	return out
}

func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
