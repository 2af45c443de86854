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

// ProfileStore implements engine.ProfileStore backed by SQLite.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new SQLite-backed profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get retrieves a profile by id.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (*domain.WellbeingProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, privacy_tier, consent, emergency_contacts, support_team,
			indicators, archived, version, created_at, updated_at
		FROM profiles WHERE id = ?`, id.String())

	return scanProfile(row)
}

// Save persists a profile with an optimistic version check. A stale write
// returns domain.ErrConcurrencyConflict; the caller retries against the
// now-current history.
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
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO profiles (id, privacy_tier, consent, emergency_contacts,
				support_team, indicators, archived, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			p.ID.String(), string(p.PrivacyTier), string(consent), string(contacts),
			string(team), string(indicators), p.Archived, p.CreatedAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		p.Version = 1
		p.UpdatedAt = now
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET privacy_tier = ?, consent = ?, emergency_contacts = ?,
			support_team = ?, indicators = ?, archived = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(p.PrivacyTier), string(consent), string(contacts),
		string(team), string(indicators), p.Archived, now,
		p.ID.String(), p.Version,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return domain.ErrConcurrencyConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func scanProfile(row *sql.Row) (*domain.WellbeingProfile, error) {
	var (
		p                                 domain.WellbeingProfile
		id, tier                          string
		consent, contacts, team, indicators string
	)
	err := row.Scan(&id, &tier, &consent, &contacts, &team,
		&indicators, &p.Archived, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	p.PrivacyTier = domain.PrivacyTier(tier)
	if err := json.Unmarshal([]byte(consent), &p.Consent); err != nil {
		return nil, fmt.Errorf("unmarshal consent: %w", err)
	}
	if err := json.Unmarshal([]byte(contacts), &p.EmergencyContacts); err != nil {
		return nil, fmt.Errorf("unmarshal emergency_contacts: %w", err)
	}
	if err := json.Unmarshal([]byte(team), &p.SupportTeam); err != nil {
		return nil, fmt.Errorf("unmarshal support_team: %w", err)
	}
	if err := json.Unmarshal([]byte(indicators), &p.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	return &p, nil
}
