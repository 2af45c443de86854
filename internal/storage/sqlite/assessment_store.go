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

// AssessmentStore implements engine.AssessmentStore backed by SQLite.
// Assessments are append-only; there is no update path.
type AssessmentStore struct {
	db *DB
}

// NewAssessmentStore creates a new SQLite-backed assessment store.
func NewAssessmentStore(db *DB) *AssessmentStore {
	return &AssessmentStore{db: db}
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (id, profile_id, ts, source, type, results,
			overall_score, risk_level, recommendations, follow_up, privacy_tier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.ProfileID.String(), a.Timestamp.UTC(),
		string(a.Source), string(a.Type), string(results),
		a.OverallScore, string(a.RiskLevel), string(recs),
		a.FollowUpRequired, string(a.PrivacyTier),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// Get retrieves an assessment by id.
func (s *AssessmentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, ts, source, type, results, overall_score,
			risk_level, recommendations, follow_up, privacy_tier
		FROM assessments WHERE id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrAssessmentNotFound
	}
	return scanAssessment(rows)
}

// ListByProfile returns a profile's assessments inside a window, ordered by
// timestamp ascending.
func (s *AssessmentStore) ListByProfile(ctx context.Context, profileID uuid.UUID, window domain.Window) ([]*domain.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, ts, source, type, results, overall_score,
			risk_level, recommendations, follow_up, privacy_tier
		FROM assessments
		WHERE profile_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`,
		profileID.String(), window.From.UTC(), window.To.UTC())
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

func scanAssessment(rows *sql.Rows) (*domain.Assessment, error) {
	var (
		a                          domain.Assessment
		id, profileID, source, typ string
		results, recs, risk, tier  string
	)
	err := rows.Scan(&id, &profileID, &a.Timestamp, &source, &typ, &results,
		&a.OverallScore, &risk, &recs, &a.FollowUpRequired, &tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan assessment: %w", err)
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse assessment id: %w", err)
	}
	if a.ProfileID, err = uuid.Parse(profileID); err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	a.Source = domain.AssessmentSource(source)
	a.Type = domain.AssessmentType(typ)
	a.RiskLevel = domain.RiskLevel(risk)
	a.PrivacyTier = domain.PrivacyTier(tier)
	a.Timestamp = a.Timestamp.UTC()
	if err := json.Unmarshal([]byte(results), &a.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := json.Unmarshal([]byte(recs), &a.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	return &a, nil
}
