package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func routedAssessment(level RiskLevel, tier PrivacyTier) *Assessment {
	return &Assessment{
		ID:           uuid.New(),
		ProfileID:    uuid.New(),
		RiskLevel:    level,
		OverallScore: 45,
		PrivacyTier:  tier,
	}
}

func profileWithTeam(roles ...Role) *WellbeingProfile {
	p := NewWellbeingProfile(uuid.New(), TierConfidential)
	p.SupportTeam = roles
	return p
}

func TestProtocolFor(t *testing.T) {
	tests := []struct {
		level         RiskLevel
		wantTimeline  ResponseTimeline
		wantPersonnel []Role
	}{
		{RiskLow, TimelineWithinWeek, []Role{RoleTeacher, RolePeerSupport}},
		{RiskModerate, TimelineWithin24h, []Role{RoleCounselor, RoleParentGuardian}},
		{RiskHigh, TimelineImmediate, []Role{RoleCrisisTeam}},
		{RiskCritical, TimelineImmediate, []Role{RoleEmergencyServices, RoleCrisisTeam}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			protocol := ProtocolFor(tt.level)
			if protocol.Timeline != tt.wantTimeline {
				t.Errorf("Timeline = %v, want %v", protocol.Timeline, tt.wantTimeline)
			}
			if len(protocol.Personnel) != len(tt.wantPersonnel) {
				t.Fatalf("Personnel = %v, want %v", protocol.Personnel, tt.wantPersonnel)
			}
			for i, role := range tt.wantPersonnel {
				if protocol.Personnel[i] != role {
					t.Errorf("Personnel[%d] = %v, want %v", i, protocol.Personnel[i], role)
				}
			}
		})
	}
}

func TestRoute_LowRiskWithoutAlertsIsNil(t *testing.T) {
	r := NewEscalationRouter(DefaultAccessPolicy())
	a := routedAssessment(RiskLow, TierConfidential)
	if alert := r.Route(a, profileWithTeam()); alert != nil {
		t.Errorf("Route() = %v, want nil", alert)
	}
}

func TestRoute_LowRiskWithLowScoreAlertFires(t *testing.T) {
	r := NewEscalationRouter(DefaultAccessPolicy())
	a := routedAssessment(RiskLow, TierConfidential)
	a.Results = map[string]IndicatorResult{
		"physical_health": {
			Indicator: "physical_health",
			Score:     20,
			Alerts:    []IndicatorAlert{{Tag: TagLowScore, Severity: SeverityHigh}},
		},
	}

	alert := r.Route(a, profileWithTeam(RoleTeacher, RolePeerSupport))
	if alert == nil {
		t.Fatal("Route() = nil, want alert")
	}
	if alert.Type != AlertRiskIncrease {
		t.Errorf("Type = %v, want risk_increase", alert.Type)
	}
	if len(alert.Indicators) != 1 || alert.Indicators[0] != "physical_health" {
		t.Errorf("Indicators = %v, want [physical_health]", alert.Indicators)
	}
}

func TestRoute_TierLiftedToPersonnelMinimum(t *testing.T) {
	// Policy where crisis_team first appears at CONFIDENTIAL: an anonymous
	// assessment routed to the crisis team must be lifted to that tier.
	policy := NewAccessPolicy(map[PrivacyTier]TierPolicy{
		TierAnonymous:    {AllowedRoles: []Role{RoleTeacher}},
		TierConfidential: {AllowedRoles: []Role{RoleCrisisTeam}},
		TierRestricted:   {AllowedRoles: []Role{RoleCounselor}},
		TierEmergency:    {AllowedRoles: []Role{RoleEmergencyServices}},
	})
	r := NewEscalationRouter(policy)

	a := routedAssessment(RiskHigh, TierAnonymous)
	profile := profileWithTeam(RoleCrisisTeam)

	alert := r.Route(a, profile)
	if alert == nil {
		t.Fatal("Route() = nil, want alert")
	}
	if alert.PrivacyTier != TierConfidential {
		t.Errorf("PrivacyTier = %v, want confidential", alert.PrivacyTier)
	}
}

func TestRoute_AssessmentTierNeverLowered(t *testing.T) {
	r := NewEscalationRouter(DefaultAccessPolicy())

	// teacher's minimum tier is ANONYMOUS; a restricted assessment stays
	// restricted.
	a := routedAssessment(RiskModerate, TierRestricted)
	profile := profileWithTeam(RoleCounselor, RoleParentGuardian)

	alert := r.Route(a, profile)
	if alert == nil {
		t.Fatal("Route() = nil, want alert")
	}
	if alert.PrivacyTier != TierRestricted {
		t.Errorf("PrivacyTier = %v, want restricted", alert.PrivacyTier)
	}
}

func TestRoute_OffTeamPersonnelForcesEmergencyTier(t *testing.T) {
	r := NewEscalationRouter(DefaultAccessPolicy())

	a := routedAssessment(RiskCritical, TierConfidential)
	// support team lacks emergency_services and crisis_team
	profile := profileWithTeam(RoleCounselor)

	alert := r.Route(a, profile)
	if alert == nil {
		t.Fatal("Route() = nil, want alert")
	}
	if alert.PrivacyTier != TierEmergency {
		t.Errorf("PrivacyTier = %v, want emergency", alert.PrivacyTier)
	}
}

func TestRoute_TypeAndSeverityByLevel(t *testing.T) {
	tests := []struct {
		level        RiskLevel
		wantType     AlertType
		wantSeverity Severity
	}{
		{RiskModerate, AlertRiskIncrease, SeverityMedium},
		{RiskHigh, AlertInterventionNeeded, SeverityHigh},
		{RiskCritical, AlertEmergency, SeverityHigh},
	}

	r := NewEscalationRouter(DefaultAccessPolicy())
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			a := routedAssessment(tt.level, TierConfidential)
			alert := r.Route(a, profileWithTeam(ProtocolFor(tt.level).Personnel...))
			if alert == nil {
				t.Fatal("Route() = nil, want alert")
			}
			if alert.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", alert.Type, tt.wantType)
			}
			if alert.Severity != tt.wantSeverity {
				t.Errorf("Severity = %v, want %v", alert.Severity, tt.wantSeverity)
			}
			if alert.Status != AlertActive {
				t.Errorf("Status = %v, want active", alert.Status)
			}
		})
	}
}

func TestRoute_CarriesHighPriorityRecommendations(t *testing.T) {
	r := NewEscalationRouter(DefaultAccessPolicy())
	a := routedAssessment(RiskHigh, TierConfidential)
	a.Recommendations = []Recommendation{
		{Priority: PriorityHigh, Description: "urgent counseling"},
		{Priority: PriorityMedium, Description: "keep monitoring"},
	}

	alert := r.Route(a, profileWithTeam(RoleCrisisTeam))
	if alert == nil {
		t.Fatal("Route() = nil, want alert")
	}
	if len(alert.RecommendedActions) != 1 || alert.RecommendedActions[0] != "urgent counseling" {
		t.Errorf("RecommendedActions = %v, want only the high-priority one", alert.RecommendedActions)
	}
}

func TestAlert_ResolveIsIdempotent(t *testing.T) {
	alert := &Alert{ID: uuid.New(), Status: AlertActive}

	first := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	if !alert.Resolve(first) {
		t.Fatal("first Resolve() = false, want true")
	}
	if alert.Status != AlertResolved {
		t.Errorf("Status = %v, want resolved", alert.Status)
	}
	if alert.ResolvedAt == nil || !alert.ResolvedAt.Equal(first) {
		t.Errorf("ResolvedAt = %v, want %v", alert.ResolvedAt, first)
	}

	second := first.Add(time.Hour)
	if alert.Resolve(second) {
		t.Error("second Resolve() = true, want false")
	}
	if !alert.ResolvedAt.Equal(first) {
		t.Errorf("ResolvedAt moved to %v, want original %v", alert.ResolvedAt, first)
	}
}
