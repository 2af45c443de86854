package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// PlanStore implements engine.PlanStore backed by SQLite. Actions live in
// their own table so they can be addressed by id.
type PlanStore struct {
	db *DB
}

// NewPlanStore creates a new SQLite-backed plan store.
func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db}
}

// Insert records a plan and its actions in one transaction.
func (s *PlanStore) Insert(ctx context.Context, p *domain.InterventionPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	protocol, err := json.Marshal(p.EmergencyProtocol)
	if err != nil {
		return fmt.Errorf("marshal emergency_protocol: %w", err)
	}
	team, err := json.Marshal(p.SupportTeam)
	if err != nil {
		return fmt.Errorf("marshal support_team: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, assessment_id, profile_id, priority,
			review_cadence, next_review_at, emergency_protocol, support_team,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.AssessmentID.String(), p.ProfileID.String(),
		string(p.Priority), string(p.ReviewCadence), p.NextReviewAt.UTC(),
		string(protocol), string(team), string(p.Status),
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for i := range p.Actions {
		if err := upsertAction(ctx, tx, &p.Actions[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Update rewrites a plan's mutable state and its actions.
func (s *PlanStore) Update(ctx context.Context, p *domain.InterventionPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE plans SET priority = ?, review_cadence = ?, next_review_at = ?,
			status = ?, updated_at = ?
		WHERE id = ?`,
		string(p.Priority), string(p.ReviewCadence), p.NextReviewAt.UTC(),
		string(p.Status), p.UpdatedAt.UTC(), p.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if affected == 0 {
		return domain.ErrPlanNotFound
	}

	for i := range p.Actions {
		if err := upsertAction(ctx, tx, &p.Actions[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByAction loads the plan owning an action.
func (s *PlanStore) GetByAction(ctx context.Context, actionID uuid.UUID) (*domain.InterventionPlan, error) {
	var planID string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan_id FROM plan_actions WHERE id = ?`, actionID.String(),
	).Scan(&planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup action: %w", err)
	}

	id, err := uuid.Parse(planID)
	if err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	return s.get(ctx, id)
}

// OpenByProfile returns the profile's open plan, if any.
func (s *PlanStore) OpenByProfile(ctx context.Context, profileID uuid.UUID) (*domain.InterventionPlan, error) {
	var planID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM plans WHERE profile_id = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		profileID.String(), string(domain.PlanOpen),
	).Scan(&planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup open plan: %w", err)
	}

	id, err := uuid.Parse(planID)
	if err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	return s.get(ctx, id)
}

// ListByProfile returns all plans for a profile, newest first.
func (s *PlanStore) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.InterventionPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM plans WHERE profile_id = ? ORDER BY created_at DESC`,
		profileID.String())
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan plan id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse plan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plans := make([]*domain.InterventionPlan, 0, len(ids))
	for _, id := range ids {
		plan, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (s *PlanStore) get(ctx context.Context, id uuid.UUID) (*domain.InterventionPlan, error) {
	var (
		p                              domain.InterventionPlan
		planID, assessmentID, profile  string
		priority, cadence, status      string
		protocol, team                 string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, assessment_id, profile_id, priority, review_cadence,
			next_review_at, emergency_protocol, support_team, status,
			created_at, updated_at
		FROM plans WHERE id = ?`, id.String(),
	).Scan(&planID, &assessmentID, &profile, &priority, &cadence,
		&p.NextReviewAt, &protocol, &team, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if p.ID, err = uuid.Parse(planID); err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	if p.AssessmentID, err = uuid.Parse(assessmentID); err != nil {
		return nil, fmt.Errorf("parse assessment id: %w", err)
	}
	if p.ProfileID, err = uuid.Parse(profile); err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	p.Priority = domain.Priority(priority)
	p.ReviewCadence = domain.ReviewCadence(cadence)
	p.Status = domain.PlanStatus(status)
	if err := json.Unmarshal([]byte(protocol), &p.EmergencyProtocol); err != nil {
		return nil, fmt.Errorf("unmarshal emergency_protocol: %w", err)
	}
	if err := json.Unmarshal([]byte(team), &p.SupportTeam); err != nil {
		return nil, fmt.Errorf("unmarshal support_team: %w", err)
	}

	actions, err := s.actionsFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Actions = actions
	return &p, nil
}

func (s *PlanStore) actionsFor(ctx context.Context, planID uuid.UUID) ([]domain.InterventionAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, indicator, type, description, assigned_to,
			priority, due_date, status, resources, progress, completed_at
		FROM plan_actions WHERE plan_id = ? ORDER BY due_date ASC, id ASC`,
		planID.String())
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.InterventionAction
	for rows.Next() {
		var (
			a                            domain.InterventionAction
			id, plan, typ, assignee      string
			priority, status             string
			resources, progress          string
			completedAt                  sql.NullTime
		)
		err := rows.Scan(&id, &plan, &a.Indicator, &typ, &a.Description,
			&assignee, &priority, &a.DueDate, &status, &resources, &progress,
			&completedAt)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}

		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse action id: %w", err)
		}
		if a.PlanID, err = uuid.Parse(plan); err != nil {
			return nil, fmt.Errorf("parse plan id: %w", err)
		}
		a.Type = domain.InterventionType(typ)
		a.AssignedTo = domain.Role(assignee)
		a.Priority = domain.Priority(priority)
		a.Status = domain.ActionStatus(status)
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			a.CompletedAt = &t
		}
		if err := json.Unmarshal([]byte(resources), &a.Resources); err != nil {
			return nil, fmt.Errorf("unmarshal resources: %w", err)
		}
		if err := json.Unmarshal([]byte(progress), &a.Progress); err != nil {
			return nil, fmt.Errorf("unmarshal progress: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func upsertAction(ctx context.Context, tx *sql.Tx, a *domain.InterventionAction) error {
	resources, err := json.Marshal(a.Resources)
	if err != nil {
		return fmt.Errorf("marshal resources: %w", err)
	}
	progress, err := json.Marshal(a.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	var completedAt any
	if a.CompletedAt != nil {
		completedAt = a.CompletedAt.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plan_actions (id, plan_id, indicator, type, description,
			assigned_to, priority, due_date, status, resources, progress, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			resources=excluded.resources,
			progress=excluded.progress,
			completed_at=excluded.completed_at`,
		a.ID.String(), a.PlanID.String(), a.Indicator, string(a.Type),
		a.Description, string(a.AssignedTo), string(a.Priority),
		a.DueDate.UTC(), string(a.Status), string(resources), string(progress),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert action: %w", err)
	}
	return nil
}
