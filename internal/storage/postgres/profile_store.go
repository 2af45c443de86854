package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// ProfileStore implements engine.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new PostgreSQL profile store.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Get retrieves a profile by id.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (*domain.WellbeingProfile, error) {
	var (
		p                                   domain.WellbeingProfile
		tier                                string
		consent, contacts, team, indicators []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, privacy_tier, consent, emergency_contacts, support_team,
			indicators, archived, version, created_at, updated_at
		FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &tier, &consent, &contacts, &team, &indicators,
		&p.Archived, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.PrivacyTier = domain.PrivacyTier(tier)
	if err := json.Unmarshal(consent, &p.Consent); err != nil {
		return nil, fmt.Errorf("unmarshal consent: %w", err)
	}
	if err := json.Unmarshal(contacts, &p.EmergencyContacts); err != nil {
		return nil, fmt.Errorf("unmarshal emergency_contacts: %w", err)
	}
	if err := json.Unmarshal(team, &p.SupportTeam); err != nil {
		return nil, fmt.Errorf("unmarshal support_team: %w", err)
	}
	if err := json.Unmarshal(indicators, &p.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	return &p, nil
}

// Save persists a profile with an optimistic version check.
func (s *ProfileStore) Save(ctx context.Context, p *domain.WellbeingProfile) error {
	consent, err := json.Marshal(p.Consent)
	if err != nil {
		return fmt.Errorf("marshal consent: %w", err)
	}
	contacts, err := json.Marshal(p.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("marshal emergency_contacts: %w", err)
	}
	team, err := json.Marshal(p.SupportTeam)
	if err != nil {
		return fmt.Errorf("marshal support_team: %w", err)
	}
	indicators, err := json.Marshal(p.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}

	now := time.Now().UTC()
	if p.Version == 0 {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO profiles (id, privacy_tier, consent, emergency_contacts,
				support_team, indicators, archived, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)`,
			p.ID, string(p.PrivacyTier), consent, contacts, team, indicators,
			p.Archived, p.CreatedAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		p.Version = 1
		p.UpdatedAt = now
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles SET privacy_tier = $1, consent = $2,
			emergency_contacts = $3, support_team = $4, indicators = $5,
			archived = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`,
		string(p.PrivacyTier), consent, contacts, team, indicators,
		p.Archived, now, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}
