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

// AlertStore implements engine.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new PostgreSQL alert store.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert records a new alert.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	indicators, err := json.Marshal(a.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}
	actions, err := json.Marshal(a.RecommendedActions)
	if err != nil {
		return fmt.Errorf("marshal recommended_actions: %w", err)
	}
	roles, err := json.Marshal(a.AssignedRoles)
	if err != nil {
		return fmt.Errorf("marshal assigned_roles: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alerts (id, profile_id, assessment_id, type, severity,
			message, indicators, recommended_actions, assigned_roles,
			escalation_level, timeline, privacy_tier, status, delivered,
			created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.ProfileID, a.AssessmentID, string(a.Type), string(a.Severity),
		a.Message, indicators, actions, roles, string(a.EscalationLevel),
		string(a.Timeline), string(a.PrivacyTier), string(a.Status),
		a.Delivered, a.CreatedAt.UTC(), a.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Update persists status and delivery changes.
func (s *AlertStore) Update(ctx context.Context, a *domain.Alert) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $1, delivered = $2, resolved_at = $3
		WHERE id = $4`,
		string(a.Status), a.Delivered, a.ResolvedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// Get retrieves an alert by id.
func (s *AlertStore) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	row := s.pool.QueryRow(ctx, alertSelect+` WHERE id = $1`, id)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	return a, err
}

// ListActiveByProfile returns a profile's active alerts, newest first.
func (s *AlertStore) ListActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.Alert, error) {
	rows, err := s.pool.Query(ctx,
		alertSelect+` WHERE profile_id = $1 AND status = $2 ORDER BY created_at DESC`,
		profileID, string(domain.AlertActive))
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// ListUndelivered returns active alerts whose delivery has not succeeded,
// oldest first so redelivery drains in order.
func (s *AlertStore) ListUndelivered(ctx context.Context, limit int) ([]*domain.Alert, error) {
	rows, err := s.pool.Query(ctx,
		alertSelect+` WHERE delivered = FALSE AND status = $1 ORDER BY created_at ASC LIMIT $2`,
		string(domain.AlertActive), limit)
	if err != nil {
		return nil, fmt.Errorf("query undelivered alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

const alertSelect = `
	SELECT id, profile_id, assessment_id, type, severity, message,
		indicators, recommended_actions, assigned_roles, escalation_level,
		timeline, privacy_tier, status, delivered, created_at, resolved_at
	FROM alerts`

func collectAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var alerts []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var (
		a                          domain.Alert
		typ, severity, level       string
		timeline, tier, status     string
		indicators, actions, roles []byte
	)
	err := row.Scan(&a.ID, &a.ProfileID, &a.AssessmentID, &typ, &severity,
		&a.Message, &indicators, &actions, &roles, &level, &timeline, &tier,
		&status, &a.Delivered, &a.CreatedAt, &a.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	a.Type = domain.AlertType(typ)
	a.Severity = domain.Severity(severity)
	a.EscalationLevel = domain.RiskLevel(level)
	a.Timeline = domain.ResponseTimeline(timeline)
	a.PrivacyTier = domain.PrivacyTier(tier)
	a.Status = domain.AlertStatus(status)
	a.CreatedAt = a.CreatedAt.UTC()
	if a.ResolvedAt != nil {
		t := a.ResolvedAt.UTC()
		a.ResolvedAt = &t
	}
	if err := json.Unmarshal(indicators, &a.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	if err := json.Unmarshal(actions, &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("unmarshal recommended_actions: %w", err)
	}
	if err := json.Unmarshal(roles, &a.AssignedRoles); err != nil {
		return nil, fmt.Errorf("unmarshal assigned_roles: %w", err)
	}
	return &a, nil
}
