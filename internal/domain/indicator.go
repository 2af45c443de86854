package domain

import "fmt"

// InterventionType represents a concrete kind of support action that can be
// assigned when an indicator is weak.
type InterventionType string

const (
	InterventionCounseling       InterventionType = "counseling"
	InterventionMedicalReferral  InterventionType = "medical_referral"
	InterventionPeerSupport      InterventionType = "peer_support"
	InterventionAcademicSupport  InterventionType = "academic_support"
	InterventionFamilyEngagement InterventionType = "family_engagement"
	InterventionMindfulness      InterventionType = "mindfulness_program"
	InterventionPhysicalActivity InterventionType = "physical_activity"
	InterventionMonitoring       InterventionType = "continue_monitoring"
)

// Thresholds divides the 0-100 score range for one indicator.
// Scores below Low are critical, between Low and Moderate are watch-list,
// and at or above Moderate are considered healthy.
type Thresholds struct {
	Low      float64 `json:"low" yaml:"low"`
	Moderate float64 `json:"moderate" yaml:"moderate"`
	High     float64 `json:"high" yaml:"high"`
}

// IndicatorDefinition describes one named wellbeing dimension: which factors
// feed it, where its score thresholds sit, and which interventions apply when
// it is weak. Definitions are immutable at runtime.
type IndicatorDefinition struct {
	Name          string             `json:"name" yaml:"name"`
	Factors       []string           `json:"factors" yaml:"factors"`
	Thresholds    Thresholds         `json:"thresholds" yaml:"thresholds"`
	Interventions []InterventionType `json:"interventions" yaml:"interventions"`
}

// Validate checks structural invariants of a definition.
func (d IndicatorDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: indicator name is empty", ErrInvalidCatalog)
	}
	if len(d.Factors) == 0 {
		return fmt.Errorf("%w: indicator %q has no factors", ErrInvalidCatalog, d.Name)
	}
	t := d.Thresholds
	if t.Low < 0 || t.High > 100 || !(t.Low < t.Moderate && t.Moderate < t.High) {
		return fmt.Errorf("%w: indicator %q thresholds must satisfy 0 <= low < moderate < high <= 100",
			ErrInvalidCatalog, d.Name)
	}
	return nil
}

// HasFactor reports whether key contributes to this indicator.
func (d IndicatorDefinition) HasFactor(key string) bool {
	for _, f := range d.Factors {
		if f == key {
			return true
		}
	}
	return false
}
