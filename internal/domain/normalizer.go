package domain

import (
	"fmt"
	"math"
)

// ScaleKind declares how a raw response value should be interpreted.
type ScaleKind string

const (
	// ScaleTenPoint is a 1-10 integer scale.
	ScaleTenPoint ScaleKind = "ten_point"
	// ScaleLikert is a 1-5 Likert item.
	ScaleLikert ScaleKind = "likert"
	// ScaleCategory is a fixed category label ("Excellent" .. "Very Poor").
	ScaleCategory ScaleKind = "category"
	// ScalePercent is an already-normalized 0-100 value.
	ScalePercent ScaleKind = "percent"
)

// RawValue is one heterogeneous raw response: a numeric value on a declared
// scale, or a category label.
type RawValue struct {
	Kind   ScaleKind `json:"kind"`
	Number float64   `json:"number,omitempty"`
	Label  string    `json:"label,omitempty"`
}

// categoryScores maps the five category labels to evenly spaced scores.
var categoryScores = map[string]float64{
	"Excellent": 100,
	"Good":      75,
	"Fair":      50,
	"Poor":      25,
	"Very Poor": 0,
}

// Normalizer converts heterogeneous raw responses into canonical 0-100
// per-factor scores.
type Normalizer struct{}

// NewNormalizer creates a response normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize rescales every raw response to [0,100]. A raw value outside its
// declared scale's domain fails the whole submission with a validation
// error; nothing partial is returned. Factors absent from the input are
// simply omitted, never defaulted.
func (n *Normalizer) Normalize(responses map[string]RawValue) (map[string]float64, error) {
	normalized := make(map[string]float64, len(responses))

	for factor, raw := range responses {
		score, err := n.normalizeOne(raw)
		if err != nil {
			return nil, fmt.Errorf("factor %q: %w", factor, err)
		}
		normalized[factor] = score
	}

	return normalized, nil
}

func (n *Normalizer) normalizeOne(raw RawValue) (float64, error) {
	switch raw.Kind {
	case ScaleTenPoint:
		if raw.Number < 1 || raw.Number > 10 || raw.Number != math.Trunc(raw.Number) {
			return 0, fmt.Errorf("%w: %v is not an integer in [1,10]", ErrValidation, raw.Number)
		}
		return (raw.Number - 1) / 9 * 100, nil

	case ScaleLikert:
		if raw.Number < 1 || raw.Number > 5 || raw.Number != math.Trunc(raw.Number) {
			return 0, fmt.Errorf("%w: %v is not an integer in [1,5]", ErrValidation, raw.Number)
		}
		return (raw.Number - 1) / 4 * 100, nil

	case ScaleCategory:
		score, ok := categoryScores[raw.Label]
		if !ok {
			return 0, fmt.Errorf("%w: unknown category %q", ErrValidation, raw.Label)
		}
		return score, nil

	case ScalePercent:
		if raw.Number < 0 || raw.Number > 100 {
			return 0, fmt.Errorf("%w: %v is outside [0,100]", ErrValidation, raw.Number)
		}
		return raw.Number, nil

	default:
		return 0, fmt.Errorf("%w: unknown scale kind %q", ErrValidation, raw.Kind)
	}
}
