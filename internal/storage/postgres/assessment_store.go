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

// AssessmentStore implements engine.AssessmentStore using PostgreSQL.
// Assessments are append-only; there is no update path.
type AssessmentStore struct {
	pool *pgxpool.Pool
}

// NewAssessmentStore creates a new PostgreSQL assessment store.
func NewAssessmentStore(pool *pgxpool.Pool) *AssessmentStore {
	return &AssessmentStore{pool: pool}
}

// Insert records a new immutable assessment.
func (s *AssessmentStore) Insert(ctx context.Context, a *domain.Assessment) error {
	results, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	recs, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO assessments (id, profile_id, ts, source, type, results,
			overall_score, risk_level, recommendations, follow_up, privacy_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.ProfileID, a.Timestamp.UTC(), string(a.Source), string(a.Type),
		results, a.OverallScore, string(a.RiskLevel), recs,
		a.FollowUpRequired, string(a.PrivacyTier),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// Get retrieves an assessment by id.
func (s *AssessmentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, profile_id, ts, source, type, results, overall_score,
			risk_level, recommendations, follow_up, privacy_tier
		FROM assessments WHERE id = $1`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAssessmentNotFound
	}
	return a, err
}

// ListByProfile returns a profile's assessments inside a window, ordered by
// timestamp ascending.
func (s *AssessmentStore) ListByProfile(ctx context.Context, profileID uuid.UUID, window domain.Window) ([]*domain.Assessment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, profile_id, ts, source, type, results, overall_score,
			risk_level, recommendations, follow_up, privacy_tier
		FROM assessments
		WHERE profile_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC`,
		profileID, window.From.UTC(), window.To.UTC())
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func scanAssessment(row pgx.Row) (*domain.Assessment, error) {
	var (
		a                         domain.Assessment
		source, typ, risk, tier   string
		results, recs             []byte
	)
	err := row.Scan(&a.ID, &a.ProfileID, &a.Timestamp, &source, &typ, &results,
		&a.OverallScore, &risk, &recs, &a.FollowUpRequired, &tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan assessment: %w", err)
	}

	a.Source = domain.AssessmentSource(source)
	a.Type = domain.AssessmentType(typ)
	a.RiskLevel = domain.RiskLevel(risk)
	a.PrivacyTier = domain.PrivacyTier(tier)
	a.Timestamp = a.Timestamp.UTC()
	if err := json.Unmarshal(results, &a.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := json.Unmarshal(recs, &a.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	return &a, nil
}
