package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// AlertMessage is the wire envelope for a routed alert. Consumers page
// personnel from it; the alert body carries everything they need so they
// never have to call back into the engine under time pressure.
type AlertMessage struct {
	MessageID   uuid.UUID     `json:"message_id"`
	Alert       *domain.Alert `json:"alert"`
	PublishedAt time.Time     `json:"published_at"`
}

// PlanMessage is the wire envelope for a newly created intervention plan.
type PlanMessage struct {
	MessageID   uuid.UUID                `json:"message_id"`
	Plan        *domain.InterventionPlan `json:"plan"`
	PublishedAt time.Time                `json:"published_at"`
}

// Publisher publishes alerts and plans to their queues. It implements the
// engine's Dispatcher; delivery is at-least-once, deduplicated downstream
// by alert/plan id.
type Publisher struct {
	conn *Connection
}

// NewPublisher creates a new queue publisher
func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

// DispatchAlert publishes an alert to the alert queue
func (p *Publisher) DispatchAlert(ctx context.Context, a *domain.Alert) error {
	msg := &AlertMessage{
		MessageID:   uuid.New(),
		Alert:       a,
		PublishedAt: time.Now().UTC(),
	}

	if err := p.conn.PublishJSON(ctx, AlertQueueName, msg); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	slog.Info("published alert",
		"alert_id", a.ID,
		"profile_id", a.ProfileID,
		"severity", a.Severity,
		"timeline", a.Timeline,
	)

	return nil
}

// DispatchPlan publishes an intervention plan to the plan queue
func (p *Publisher) DispatchPlan(ctx context.Context, plan *domain.InterventionPlan) error {
	msg := &PlanMessage{
		MessageID:   uuid.New(),
		Plan:        plan,
		PublishedAt: time.Now().UTC(),
	}

	if err := p.conn.PublishJSON(ctx, PlanQueueName, msg); err != nil {
		return fmt.Errorf("failed to publish plan: %w", err)
	}

	slog.Info("published plan",
		"plan_id", plan.ID,
		"profile_id", plan.ProfileID,
		"priority", plan.Priority,
		"actions", len(plan.Actions),
	)

	return nil
}
