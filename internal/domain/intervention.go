package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionStatus tracks one intervention action through its lifecycle.
type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
	ActionCancelled  ActionStatus = "cancelled"
)

// PlanStatus tracks an intervention plan's lifecycle. A plan closes when all
// actions complete, or is superseded by a newer plan.
type PlanStatus string

const (
	PlanOpen       PlanStatus = "open"
	PlanClosed     PlanStatus = "closed"
	PlanSuperseded PlanStatus = "superseded"
)

// ReviewCadence is how often an open plan is reviewed.
type ReviewCadence string

const (
	ReviewWeekly   ReviewCadence = "weekly"
	ReviewBiweekly ReviewCadence = "biweekly"
)

// ProgressEntry is one recorded progress note on an action. Effectiveness
// is self-reported on a 1-5 scale.
type ProgressEntry struct {
	Note          string       `json:"note"`
	Effectiveness int          `json:"effectiveness,omitempty"`
	Status        ActionStatus `json:"status"`
	RecordedAt    time.Time    `json:"recorded_at"`
}

// ProgressUpdate is the caller-supplied delta applied to an action.
type ProgressUpdate struct {
	Note          string       `json:"note"`
	Effectiveness int          `json:"effectiveness,omitempty"`
	Status        ActionStatus `json:"status"`
}

// InterventionAction is one concrete assigned task inside a plan.
type InterventionAction struct {
	ID          uuid.UUID        `json:"id"`
	PlanID      uuid.UUID        `json:"plan_id"`
	Indicator   string           `json:"indicator"`
	Type        InterventionType `json:"type"`
	Description string           `json:"description"`
	AssignedTo  Role             `json:"assigned_to"`
	Priority    Priority         `json:"priority"`
	DueDate     time.Time        `json:"due_date"`
	Status      ActionStatus     `json:"status"`
	Resources   []string         `json:"resources,omitempty"`
	Progress    []ProgressEntry  `json:"progress,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Advance applies a progress update to the action.
func (a *InterventionAction) Advance(update ProgressUpdate, at time.Time) error {
	if a.Status == ActionCompleted || a.Status == ActionCancelled {
		return fmt.Errorf("%w: action %s is already %s", ErrInvalidProgress, a.ID, a.Status)
	}
	switch update.Status {
	case ActionPending, ActionInProgress, ActionCompleted, ActionCancelled:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProgress, update.Status)
	}
	if update.Effectiveness != 0 && (update.Effectiveness < 1 || update.Effectiveness > 5) {
		return fmt.Errorf("%w: effectiveness %d outside [1,5]", ErrInvalidProgress, update.Effectiveness)
	}

	a.Progress = append(a.Progress, ProgressEntry{
		Note:          update.Note,
		Effectiveness: update.Effectiveness,
		Status:        update.Status,
		RecordedAt:    at,
	})
	a.Status = update.Status
	if update.Status == ActionCompleted {
		a.CompletedAt = &at
	}
	return nil
}

// LatestEffectiveness returns the most recent self-reported effectiveness,
// or zero when none was reported.
func (a *InterventionAction) LatestEffectiveness() int {
	for i := len(a.Progress) - 1; i >= 0; i-- {
		if a.Progress[i].Effectiveness != 0 {
			return a.Progress[i].Effectiveness
		}
	}
	return 0
}

// InterventionPlan is the structured response to an assessment whose
// recommendations were non-empty: dated actions, a review schedule, the
// emergency protocol snapshot, and the assembled support team.
type InterventionPlan struct {
	ID                uuid.UUID            `json:"id"`
	AssessmentID      uuid.UUID            `json:"assessment_id"`
	ProfileID         uuid.UUID            `json:"profile_id"`
	Priority          Priority             `json:"priority"`
	Actions           []InterventionAction `json:"actions"`
	ReviewCadence     ReviewCadence        `json:"review_cadence"`
	NextReviewAt      time.Time            `json:"next_review_at"`
	EmergencyProtocol EscalationProtocol   `json:"emergency_protocol"`
	SupportTeam       []Role               `json:"support_team"`
	Status            PlanStatus           `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// ActionByID finds an action within the plan.
func (p *InterventionPlan) ActionByID(id uuid.UUID) (*InterventionAction, bool) {
	for i := range p.Actions {
		if p.Actions[i].ID == id {
			return &p.Actions[i], true
		}
	}
	return nil, false
}

// AllActionsDone reports whether every action is completed or cancelled.
func (p *InterventionPlan) AllActionsDone() bool {
	for _, action := range p.Actions {
		if action.Status != ActionCompleted && action.Status != ActionCancelled {
			return false
		}
	}
	return len(p.Actions) > 0
}

// Close marks the plan closed once all actions are done.
func (p *InterventionPlan) Close(at time.Time) {
	p.Status = PlanClosed
	p.UpdatedAt = at
}

// Supersede marks the plan replaced by a newer one.
func (p *InterventionPlan) Supersede(at time.Time) {
	p.Status = PlanSuperseded
	p.UpdatedAt = at
}
