package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AssessmentSource records who provided the raw responses.
type AssessmentSource string

const (
	SourceSelfReport AssessmentSource = "self_report"
	SourceObserver   AssessmentSource = "observer"
)

// AssessmentType distinguishes where an assessment sits in a subject's
// support timeline.
type AssessmentType string

const (
	AssessmentInitial  AssessmentType = "initial"
	AssessmentPeriodic AssessmentType = "periodic"
	AssessmentFollowUp AssessmentType = "follow_up"
)

// RiskLevel is the discrete classification derived from indicator scores.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskRank orders risk levels for comparisons; serialization stays a string tag.
func (r RiskLevel) riskRank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether r is the same level as other or a more severe one.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.riskRank() >= other.riskRank()
}

// Trend labels score movement across assessments.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Severity grades indicator alerts and routed alerts.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Indicator alert tags. Tags are stable strings because they end up in
// persisted profile state and serialized assessments.
const (
	TagLowScore      = "LOW_SCORE"
	TagLowConfidence = "LOW_CONFIDENCE"
)

// IndicatorAlert is a per-indicator flag raised during scoring. It does not
// escalate by itself; escalation is the router's job.
type IndicatorAlert struct {
	Tag      string   `json:"tag"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
}

// IndicatorResult is the scored outcome for one indicator.
type IndicatorResult struct {
	Indicator   string             `json:"indicator"`
	Score       float64            `json:"score"`
	Trend       Trend              `json:"trend"`
	Alerts      []IndicatorAlert   `json:"alerts,omitempty"`
	FactorsUsed []string           `json:"factors_used,omitempty"`
	Factors     map[string]float64 `json:"factors,omitempty"`
}

// Priority grades recommendations and intervention actions.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Timeframe buckets how soon a recommendation should be acted on.
type Timeframe string

const (
	TimeframeImmediate  Timeframe = "immediate"
	TimeframeShortTerm  Timeframe = "short_term"
	TimeframeMediumTerm Timeframe = "medium_term"
	TimeframeLongTerm   Timeframe = "long_term"
)

// Recommendation maps a weak indicator to a suggested intervention.
type Recommendation struct {
	Indicator    string           `json:"indicator"`
	Intervention InterventionType `json:"intervention"`
	Priority     Priority         `json:"priority"`
	Timeframe    Timeframe        `json:"timeframe"`
	Description  string           `json:"description"`
}

// Assessment is the immutable record of one scored submission. Corrections
// are new assessments; an assessment is never mutated after creation.
type Assessment struct {
	ID               uuid.UUID                  `json:"id"`
	ProfileID        uuid.UUID                  `json:"profile_id"`
	Timestamp        time.Time                  `json:"timestamp"`
	Source           AssessmentSource           `json:"source"`
	Type             AssessmentType             `json:"type"`
	Results          map[string]IndicatorResult `json:"results"`
	OverallScore     float64                    `json:"overall_score"`
	RiskLevel        RiskLevel                  `json:"risk_level"`
	Recommendations  []Recommendation           `json:"recommendations,omitempty"`
	FollowUpRequired bool                       `json:"follow_up_required"`
	PrivacyTier      PrivacyTier                `json:"privacy_tier"`
}

// ResultFor returns the result for an indicator, if present.
func (a *Assessment) ResultFor(indicator string) (IndicatorResult, bool) {
	result, ok := a.Results[indicator]
	return result, ok
}

// HasLowScoreAlert reports whether any indicator raised a LOW_SCORE alert.
func (a *Assessment) HasLowScoreAlert() bool {
	for _, result := range a.Results {
		for _, alert := range result.Alerts {
			if alert.Tag == TagLowScore {
				return true
			}
		}
	}
	return false
}

// WeakIndicators returns the names of indicators carrying a LOW_SCORE alert.
func (a *Assessment) WeakIndicators() []string {
	var weak []string
	for name, result := range a.Results {
		for _, alert := range result.Alerts {
			if alert.Tag == TagLowScore {
				weak = append(weak, name)
				break
			}
		}
	}
	sort.Strings(weak)
	return weak
}
