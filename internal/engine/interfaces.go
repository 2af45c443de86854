package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// ProfileStore persists wellbeing profiles. Save must enforce the profile's
// optimistic version: a stale write returns domain.ErrConcurrencyConflict.
type ProfileStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.WellbeingProfile, error)
	Save(ctx context.Context, p *domain.WellbeingProfile) error
}

// AssessmentStore persists immutable assessment records.
type AssessmentStore interface {
	Insert(ctx context.Context, a *domain.Assessment) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Assessment, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, window domain.Window) ([]*domain.Assessment, error)
}

// PlanStore persists intervention plans and their actions.
type PlanStore interface {
	Insert(ctx context.Context, p *domain.InterventionPlan) error
	Update(ctx context.Context, p *domain.InterventionPlan) error
	GetByAction(ctx context.Context, actionID uuid.UUID) (*domain.InterventionPlan, error)
	OpenByProfile(ctx context.Context, profileID uuid.UUID) (*domain.InterventionPlan, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.InterventionPlan, error)
}

// AlertStore persists alerts. Only status and delivery bookkeeping change
// after insert.
type AlertStore interface {
	Insert(ctx context.Context, a *domain.Alert) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
	Update(ctx context.Context, a *domain.Alert) error
	ListActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.Alert, error)
	ListUndelivered(ctx context.Context, limit int) ([]*domain.Alert, error)
}

// Dispatcher delivers newly created alerts and plans to the notification
// layer. Delivery is at-least-once and idempotent by entity id; a failure
// never rolls back the assessment that produced the entity.
type Dispatcher interface {
	DispatchAlert(ctx context.Context, a *domain.Alert) error
	DispatchPlan(ctx context.Context, p *domain.InterventionPlan) error
}
