package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// AlertStore implements engine.AlertStore backed by SQLite.
type AlertStore struct {
	db *DB
}

// NewAlertStore creates a new SQLite-backed alert store.
func NewAlertStore(db *DB) *AlertStore {
	return &AlertStore{db: db}
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, profile_id, assessment_id, type, severity,
			message, indicators, recommended_actions, assigned_roles,
			escalation_level, timeline, privacy_tier, status, delivered,
			created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.ProfileID.String(), a.AssessmentID.String(),
		string(a.Type), string(a.Severity), a.Message, string(indicators),
		string(actions), string(roles), string(a.EscalationLevel),
		string(a.Timeline), string(a.PrivacyTier), string(a.Status),
		a.Delivered, a.CreatedAt.UTC(), nullableTime(a.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Update persists status and delivery changes.
func (s *AlertStore) Update(ctx context.Context, a *domain.Alert) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, delivered = ?, resolved_at = ?
		WHERE id = ?`,
		string(a.Status), a.Delivered, nullableTime(a.ResolvedAt), a.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// Get retrieves an alert by id.
func (s *AlertStore) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, alertSelect+` WHERE id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlertNotFound
	}
	return scanAlert(rows)
}

// ListActiveByProfile returns a profile's active alerts, newest first.
func (s *AlertStore) ListActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		alertSelect+` WHERE profile_id = ? AND status = ? ORDER BY created_at DESC`,
		profileID.String(), string(domain.AlertActive))
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// ListUndelivered returns active alerts whose delivery has not succeeded,
// oldest first so redelivery drains in order.
func (s *AlertStore) ListUndelivered(ctx context.Context, limit int) ([]*domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		alertSelect+` WHERE delivered = 0 AND status = ? ORDER BY created_at ASC LIMIT ?`,
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

func collectAlerts(rows *sql.Rows) ([]*domain.Alert, error) {
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

func scanAlert(rows *sql.Rows) (*domain.Alert, error) {
	var (
		a                             domain.Alert
		id, profileID, assessmentID   string
		typ, severity, level          string
		indicators, actions, roles    string
		timeline, tier, status        string
		resolvedAt                    sql.NullTime
	)
	err := rows.Scan(&id, &profileID, &assessmentID, &typ, &severity,
		&a.Message, &indicators, &actions, &roles, &level, &timeline, &tier,
		&status, &a.Delivered, &a.CreatedAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse alert id: %w", err)
	}
	if a.ProfileID, err = uuid.Parse(profileID); err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	if a.AssessmentID, err = uuid.Parse(assessmentID); err != nil {
		return nil, fmt.Errorf("parse assessment id: %w", err)
	}
	a.Type = domain.AlertType(typ)
	a.Severity = domain.Severity(severity)
	a.EscalationLevel = domain.RiskLevel(level)
	a.Timeline = domain.ResponseTimeline(timeline)
	a.PrivacyTier = domain.PrivacyTier(tier)
	a.Status = domain.AlertStatus(status)
	a.CreatedAt = a.CreatedAt.UTC()
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		a.ResolvedAt = &t
	}
	if err := json.Unmarshal([]byte(indicators), &a.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("unmarshal recommended_actions: %w", err)
	}
	if err := json.Unmarshal([]byte(roles), &a.AssignedRoles); err != nil {
		return nil, fmt.Errorf("unmarshal assigned_roles: %w", err)
	}
	return &a, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
