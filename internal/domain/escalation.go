package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResponseTimeline is how fast the responsible personnel must act.
type ResponseTimeline string

const (
	TimelineWithinWeek ResponseTimeline = "within_week"
	TimelineWithin24h  ResponseTimeline = "within_24h"
	TimelineImmediate  ResponseTimeline = "immediate"
)

// EscalationProtocol is the fixed mapping from a risk level to response
// timeline and responsible personnel.
type EscalationProtocol struct {
	Level     RiskLevel        `json:"level"`
	Timeline  ResponseTimeline `json:"timeline"`
	Personnel []Role           `json:"personnel"`
}

// protocolTable holds the fixed escalation protocols per risk level.
var protocolTable = map[RiskLevel]EscalationProtocol{
	RiskLow: {
		Level:     RiskLow,
		Timeline:  TimelineWithinWeek,
		Personnel: []Role{RoleTeacher, RolePeerSupport},
	},
	RiskModerate: {
		Level:     RiskModerate,
		Timeline:  TimelineWithin24h,
		Personnel: []Role{RoleCounselor, RoleParentGuardian},
	},
	RiskHigh: {
		Level:     RiskHigh,
		Timeline:  TimelineImmediate,
		Personnel: []Role{RoleCrisisTeam},
	},
	RiskCritical: {
		Level:     RiskCritical,
		Timeline:  TimelineImmediate,
		Personnel: []Role{RoleEmergencyServices, RoleCrisisTeam},
	},
}

// ProtocolFor returns the escalation protocol for a risk level.
func ProtocolFor(level RiskLevel) EscalationProtocol {
	return protocolTable[level]
}

// EscalationRouter decides whether a scored assessment warrants an alert,
// and with what personnel, timeline, and privacy tier.
type EscalationRouter struct {
	policy *AccessPolicy
	now    func() time.Time
}

// NewEscalationRouter creates a router against an access policy.
func NewEscalationRouter(policy *AccessPolicy) *EscalationRouter {
	return &EscalationRouter{policy: policy, now: time.Now}
}

// NewEscalationRouterAt creates a router with an injected clock for tests.
func NewEscalationRouterAt(policy *AccessPolicy, now func() time.Time) *EscalationRouter {
	return &EscalationRouter{policy: policy, now: now}
}

// Route creates an alert when the assessment's risk level is MODERATE or
// higher, or any per-indicator LOW_SCORE alert exists. The alert's privacy
// tier is the max of the assessment's tier and the minimum tier required by
// the protocol's personnel; any personnel outside the assembled support
// team forces EMERGENCY. Returns nil when no trigger condition holds.
func (r *EscalationRouter) Route(a *Assessment, profile *WellbeingProfile) *Alert {
	if !a.RiskLevel.AtLeast(RiskModerate) && !a.HasLowScoreAlert() {
		return nil
	}

	protocol := ProtocolFor(a.RiskLevel)

	tier := a.PrivacyTier
	for _, role := range protocol.Personnel {
		if !profile.OnSupportTeam(role) {
			tier = TierEmergency
			break
		}
		tier = MaxTier(tier, r.policy.MinTierForRole(role))
	}

	alert := &Alert{
		ID:              uuid.New(),
		ProfileID:       a.ProfileID,
		AssessmentID:    a.ID,
		Type:            r.alertType(a),
		Severity:        r.severity(a.RiskLevel),
		Message:         fmt.Sprintf("wellbeing risk %s (overall %.1f)", a.RiskLevel, a.OverallScore),
		Indicators:      a.WeakIndicators(),
		AssignedRoles:   protocol.Personnel,
		EscalationLevel: a.RiskLevel,
		Timeline:        protocol.Timeline,
		PrivacyTier:     tier,
		Status:          AlertActive,
		CreatedAt:       r.now().UTC(),
	}

	for _, rec := range a.Recommendations {
		if rec.Priority == PriorityHigh {
			alert.RecommendedActions = append(alert.RecommendedActions, rec.Description)
		}
	}

	return alert
}

func (r *EscalationRouter) alertType(a *Assessment) AlertType {
	switch a.RiskLevel {
	case RiskCritical:
		return AlertEmergency
	case RiskHigh:
		return AlertInterventionNeeded
	default:
		return AlertRiskIncrease
	}
}

func (r *EscalationRouter) severity(level RiskLevel) Severity {
	switch level {
	case RiskCritical, RiskHigh:
		return SeverityHigh
	case RiskModerate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
