package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType categorizes why an alert was raised.
type AlertType string

const (
	AlertRiskIncrease       AlertType = "risk_increase"
	AlertInterventionNeeded AlertType = "intervention_needed"
	AlertEmergency          AlertType = "emergency"
	AlertImprovement        AlertType = "improvement"
)

// AlertStatus is the alert state machine: ACTIVE -> RESOLVED, terminal.
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Alert is an escalation emitted by the router for a scored assessment.
// Only its status (and delivery bookkeeping) ever changes after creation.
type Alert struct {
	ID                 uuid.UUID        `json:"id"`
	ProfileID          uuid.UUID        `json:"profile_id"`
	AssessmentID       uuid.UUID        `json:"assessment_id"`
	Type               AlertType        `json:"type"`
	Severity           Severity         `json:"severity"`
	Message            string           `json:"message"`
	Indicators         []string         `json:"indicators,omitempty"`
	RecommendedActions []string         `json:"recommended_actions,omitempty"`
	AssignedRoles      []Role           `json:"assigned_roles"`
	EscalationLevel    RiskLevel        `json:"escalation_level"`
	Timeline           ResponseTimeline `json:"timeline"`
	PrivacyTier        PrivacyTier      `json:"privacy_tier"`
	Status             AlertStatus      `json:"status"`
	Delivered          bool             `json:"delivered"`
	CreatedAt          time.Time        `json:"created_at"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty"`
}

// Resolve moves the alert to RESOLVED. Resolving an already-resolved alert
// is a no-op, reported by the false return.
func (a *Alert) Resolve(at time.Time) bool {
	if a.Status == AlertResolved {
		return false
	}
	a.Status = AlertResolved
	a.ResolvedAt = &at
	return true
}
