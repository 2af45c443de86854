package dispatch

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// LogDispatcher writes alerts and plans to the structured log instead of a
// broker. It is the fallback when no RabbitMQ URL is configured, so a
// single-node deployment still surfaces every escalation somewhere visible.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) DispatchAlert(ctx context.Context, a *domain.Alert) error {
	d.logger.Warn("alert raised",
		"alert_id", a.ID,
		"profile_id", a.ProfileID,
		"type", a.Type,
		"severity", a.Severity,
		"escalation_level", a.EscalationLevel,
		"timeline", a.Timeline,
		"assigned_roles", a.AssignedRoles,
	)
	return nil
}

func (d *LogDispatcher) DispatchPlan(ctx context.Context, p *domain.InterventionPlan) error {
	d.logger.Info("intervention plan created",
		"plan_id", p.ID,
		"profile_id", p.ProfileID,
		"priority", p.Priority,
		"actions", len(p.Actions),
		"next_review_at", p.NextReviewAt,
	)
	return nil
}
