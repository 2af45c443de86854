package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// roleForIntervention is the fixed intervention type to role lookup used
// when assigning plan actions.
var roleForIntervention = map[InterventionType]Role{
	InterventionCounseling:       RoleCounselor,
	InterventionMedicalReferral:  RoleNurse,
	InterventionPeerSupport:      RolePeerSupport,
	InterventionAcademicSupport:  RoleTeacher,
	InterventionFamilyEngagement: RoleParentGuardian,
}

// defaultAssignee picks up any intervention type without a dedicated role.
const defaultAssignee = RoleCoordinator

// timeframeOffsets converts a recommendation timeframe into a due-date
// offset from plan creation.
var timeframeOffsets = map[Timeframe]time.Duration{
	TimeframeImmediate:  1 * day,
	TimeframeShortTerm:  7 * day,
	TimeframeMediumTerm: 30 * day,
	TimeframeLongTerm:   90 * day,
}

// Planner maps weak indicators to recommendations and builds structured
// intervention plans from them.
type Planner struct {
	now func() time.Time
}

// NewPlanner creates a planner using the wall clock.
func NewPlanner() *Planner {
	return &Planner{now: time.Now}
}

// NewPlannerAt creates a planner with an injected clock for tests.
func NewPlannerAt(now func() time.Time) *Planner {
	return &Planner{now: now}
}

// Recommend emits recommendations per the rule table: below the low
// threshold, one HIGH/IMMEDIATE recommendation per intervention type of the
// indicator; between low and moderate, a single MEDIUM/SHORT_TERM
// monitoring recommendation; at or above moderate, nothing.
func (p *Planner) Recommend(results map[string]IndicatorResult, defs map[string]IndicatorDefinition) []Recommendation {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var recs []Recommendation
	for _, name := range names {
		result := results[name]
		def, ok := defs[name]
		if !ok {
			continue
		}

		switch {
		case result.Score < def.Thresholds.Low:
			for _, intervention := range def.Interventions {
				recs = append(recs, Recommendation{
					Indicator:    name,
					Intervention: intervention,
					Priority:     PriorityHigh,
					Timeframe:    TimeframeImmediate,
					Description:  fmt.Sprintf("%s for %s (score %.1f below threshold %.0f)", intervention, name, result.Score, def.Thresholds.Low),
				})
			}
		case result.Score < def.Thresholds.Moderate:
			recs = append(recs, Recommendation{
				Indicator:    name,
				Intervention: InterventionMonitoring,
				Priority:     PriorityMedium,
				Timeframe:    TimeframeShortTerm,
				Description:  fmt.Sprintf("continue monitoring %s (score %.1f)", name, result.Score),
			})
		}
	}
	return recs
}

// BuildPlan constructs an intervention plan from an assessment's
// recommendations: one action per recommendation, assigned via the fixed
// type-to-role table, due dates offset by timeframe, weekly review if any
// action is HIGH priority, and a support team that is the union of assigned
// roles plus the wellbeing coordinator baseline. Returns nil when the
// assessment carries no recommendations.
func (p *Planner) BuildPlan(a *Assessment, protocol EscalationProtocol) *InterventionPlan {
	if len(a.Recommendations) == 0 {
		return nil
	}

	now := p.now().UTC()
	plan := &InterventionPlan{
		ID:                uuid.New(),
		AssessmentID:      a.ID,
		ProfileID:         a.ProfileID,
		Priority:          PriorityMedium,
		ReviewCadence:     ReviewBiweekly,
		EmergencyProtocol: protocol,
		SupportTeam:       []Role{defaultAssignee},
		Status:            PlanOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for _, rec := range a.Recommendations {
		assignee, ok := roleForIntervention[rec.Intervention]
		if !ok {
			assignee = defaultAssignee
		}
		offset, ok := timeframeOffsets[rec.Timeframe]
		if !ok {
			offset = timeframeOffsets[TimeframeMediumTerm]
		}

		plan.Actions = append(plan.Actions, InterventionAction{
			ID:          uuid.New(),
			PlanID:      plan.ID,
			Indicator:   rec.Indicator,
			Type:        rec.Intervention,
			Description: rec.Description,
			AssignedTo:  assignee,
			Priority:    rec.Priority,
			DueDate:     now.Add(offset),
			Status:      ActionPending,
		})

		if rec.Priority == PriorityHigh {
			plan.Priority = PriorityHigh
			plan.ReviewCadence = ReviewWeekly
		}

		if !containsRole(plan.SupportTeam, assignee) {
			plan.SupportTeam = append(plan.SupportTeam, assignee)
		}
	}

	reviewOffset := 14 * day
	if plan.ReviewCadence == ReviewWeekly {
		reviewOffset = 7 * day
	}
	plan.NextReviewAt = now.Add(reviewOffset)

	return plan
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
