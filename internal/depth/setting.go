package depth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind string

const (
	KindNone Kind = "none"
	KindAbs  Kind = "abs"
	KindPct  Kind = "pct"
)

// Setting selects how raw levels are bucketed. Size is used by abs, Pct by pct
// (a fraction, so 0.001 means 0.1% of the anchor price).
type Setting struct {
	Kind Kind    `json:"kind" yaml:"kind"`
	Size float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Pct  float64 `json:"pct,omitempty" yaml:"pct,omitempty"`
}

func None() Setting              { return Setting{Kind: KindNone} }
func Abs(size float64) Setting    { return Setting{Kind: KindAbs, Size: size} }
func Percent(pct float64) Setting { return Setting{Kind: KindPct, Pct: pct} }

// ParseSetting builds a Setting from a kind name and its numeric parameter.
// The value is ignored for "none".
func ParseSetting(kind string, value float64) (Setting, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindNone, "":
		return None(), nil
	case KindAbs:
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return Setting{}, fmt.Errorf("abs size must be a non-negative number, got %v", value)
		}
		return Abs(value), nil
	case KindPct:
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return Setting{}, fmt.Errorf("pct must be a non-negative number, got %v", value)
		}
		return Percent(value), nil
	}
	return Setting{}, fmt.Errorf("unknown aggregation kind %q", kind)
}

// Value returns the setting's numeric parameter.
func (s Setting) Value() float64 {
	switch s.Kind {
	case KindAbs:
		return s.Size
	case KindPct:
		return s.Pct
	}
	return 0
}

func (s Setting) String() string {
	switch s.Kind {
	case KindAbs, KindPct:
		return string(s.Kind) + ":" + strconv.FormatFloat(s.Value(), 'f', -1, 64)
	}
	return string(KindNone)
}
