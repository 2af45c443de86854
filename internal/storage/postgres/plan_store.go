package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// PlanStore implements engine.PlanStore using PostgreSQL. Actions live in
// their own table so they can be addressed by id.
type PlanStore struct {
	pool *pgxpool.Pool
}

// NewPlanStore creates a new PostgreSQL plan store.
func NewPlanStore(pool *pgxpool.Pool) *PlanStore {
	return &PlanStore{pool: pool}
}

// Insert records a plan and its actions in one transaction.
func (s *PlanStore) Insert(ctx context.Context, p *domain.InterventionPlan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	protocol, err := json.Marshal(p.EmergencyProtocol)
	if err != nil {
		return fmt.Errorf("marshal emergency_protocol: %w", err)
	}
	team, err := json.Marshal(p.SupportTeam)
	if err != nil {
		return fmt.Errorf("marshal support_team: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO plans (id, assessment_id, profile_id, priority,
			review_cadence, next_review_at, emergency_protocol, support_team,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.AssessmentID, p.ProfileID, string(p.Priority),
		string(p.ReviewCadence), p.NextReviewAt.UTC(), protocol, team,
		string(p.Status), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for i := range p.Actions {
		if err := upsertAction(ctx, tx, &p.Actions[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update rewrites a plan's mutable state and its actions.
func (s *PlanStore) Update(ctx context.Context, p *domain.InterventionPlan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE plans SET priority = $1, review_cadence = $2, next_review_at = $3,
			status = $4, updated_at = $5
		WHERE id = $6`,
		string(p.Priority), string(p.ReviewCadence), p.NextReviewAt.UTC(),
		string(p.Status), p.UpdatedAt.UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}

	for i := range p.Actions {
		if err := upsertAction(ctx, tx, &p.Actions[i]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByAction loads the plan owning an action.
func (s *PlanStore) GetByAction(ctx context.Context, actionID uuid.UUID) (*domain.InterventionPlan, error) {
	var planID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT plan_id FROM plan_actions WHERE id = $1`, actionID,
	).Scan(&planID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup action: %w", err)
	}
	return s.get(ctx, planID)
}

// OpenByProfile returns the profile's open plan, if any.
func (s *PlanStore) OpenByProfile(ctx context.Context, profileID uuid.UUID) (*domain.InterventionPlan, error) {
	var planID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM plans WHERE profile_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`,
		profileID, string(domain.PlanOpen),
	).Scan(&planID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup open plan: %w", err)
	}
	return s.get(ctx, planID)
}

// ListByProfile returns all plans for a profile, newest first.
func (s *PlanStore) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.InterventionPlan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM plans WHERE profile_id = $1 ORDER BY created_at DESC`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan plan id: %w", err)
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
		p                         domain.InterventionPlan
		priority, cadence, status string
		protocol, team            []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, assessment_id, profile_id, priority, review_cadence,
			next_review_at, emergency_protocol, support_team, status,
			created_at, updated_at
		FROM plans WHERE id = $1`, id,
	).Scan(&p.ID, &p.AssessmentID, &p.ProfileID, &priority, &cadence,
		&p.NextReviewAt, &protocol, &team, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	p.Priority = domain.Priority(priority)
	p.ReviewCadence = domain.ReviewCadence(cadence)
	p.Status = domain.PlanStatus(status)
	if err := json.Unmarshal(protocol, &p.EmergencyProtocol); err != nil {
		return nil, fmt.Errorf("unmarshal emergency_protocol: %w", err)
	}
	if err := json.Unmarshal(team, &p.SupportTeam); err != nil {
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
	rows, err := s.pool.Query(ctx, `
		SELECT id, plan_id, indicator, type, description, assigned_to,
			priority, due_date, status, resources, progress, completed_at
		FROM plan_actions WHERE plan_id = $1 ORDER BY due_date ASC, id ASC`,
		planID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.InterventionAction
	for rows.Next() {
		var (
			a                   domain.InterventionAction
			typ, assignee       string
			priority, status    string
			resources, progress []byte
		)
		err := rows.Scan(&a.ID, &a.PlanID, &a.Indicator, &typ, &a.Description,
			&assignee, &priority, &a.DueDate, &status, &resources, &progress,
			&a.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}

		a.Type = domain.InterventionType(typ)
		a.AssignedTo = domain.Role(assignee)
		a.Priority = domain.Priority(priority)
		a.Status = domain.ActionStatus(status)
		if err := json.Unmarshal(resources, &a.Resources); err != nil {
			return nil, fmt.Errorf("unmarshal resources: %w", err)
		}
		if err := json.Unmarshal(progress, &a.Progress); err != nil {
			return nil, fmt.Errorf("unmarshal progress: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func upsertAction(ctx context.Context, tx pgx.Tx, a *domain.InterventionAction) error {
	resources, err := json.Marshal(a.Resources)
	if err != nil {
		return fmt.Errorf("marshal resources: %w", err)
	}
	progress, err := json.Marshal(a.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO plan_actions (id, plan_id, indicator, type, description,
			assigned_to, priority, due_date, status, resources, progress, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			resources = excluded.resources,
			progress = excluded.progress,
			completed_at = excluded.completed_at`,
		a.ID, a.PlanID, a.Indicator, string(a.Type), a.Description,
		string(a.AssignedTo), string(a.Priority), a.DueDate.UTC(),
		string(a.Status), resources, progress, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert action: %w", err)
	}
	return nil
}
