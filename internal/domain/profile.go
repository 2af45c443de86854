package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryCap bounds the per-indicator score history kept on a profile.
// Oldest entries drop first.
const HistoryCap = 30

// HistoryPoint is one recorded indicator score.
type HistoryPoint struct {
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IndicatorState is the live per-indicator state on a profile: current
// score, trend, bounded history, and any active alert tags.
type IndicatorState struct {
	Score        float64        `json:"score"`
	Trend        Trend          `json:"trend"`
	LastAssessed time.Time      `json:"last_assessed"`
	History      []HistoryPoint `json:"history"`
	ActiveAlerts []string       `json:"active_alerts,omitempty"`
}

// ConsentFlags records what data collection the subject has consented to.
type ConsentFlags struct {
	SelfReport       bool `json:"self_report"`
	ObserverReport   bool `json:"observer_report"`
	ShareWithParents bool `json:"share_with_parents"`
}

// EmergencyContact is one person to reach when an assessment escalates.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// WellbeingProfile identifies one subject and carries their privacy tier,
// consent flags, support chain, and live indicator state. A profile is
// created on the subject's first assessment and mutated by every subsequent
// one; it is never deleted, only archived.
type WellbeingProfile struct {
	ID                uuid.UUID                  `json:"id"`
	PrivacyTier       PrivacyTier                `json:"privacy_tier"`
	Consent           ConsentFlags               `json:"consent"`
	EmergencyContacts []EmergencyContact         `json:"emergency_contacts,omitempty"`
	SupportTeam       []Role                     `json:"support_team,omitempty"`
	Indicators        map[string]*IndicatorState `json:"indicators"`
	Archived          bool                       `json:"archived"`
	// Version backs the optimistic concurrency check on history appends.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWellbeingProfile creates a profile for a subject's first assessment.
func NewWellbeingProfile(id uuid.UUID, tier PrivacyTier) *WellbeingProfile {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if !tier.Valid() {
		tier = TierConfidential
	}
	now := time.Now().UTC()
	return &WellbeingProfile{
		ID:          id,
		PrivacyTier: tier,
		Consent:     ConsentFlags{SelfReport: true},
		Indicators:  make(map[string]*IndicatorState),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StateFor returns the indicator state, creating an empty one on first use.
func (p *WellbeingProfile) StateFor(indicator string) *IndicatorState {
	if p.Indicators == nil {
		p.Indicators = make(map[string]*IndicatorState)
	}
	state, ok := p.Indicators[indicator]
	if !ok {
		state = &IndicatorState{Trend: TrendStable}
		p.Indicators[indicator] = state
	}
	return state
}

// HistoryFor returns the recorded history for an indicator, oldest first.
func (p *WellbeingProfile) HistoryFor(indicator string) []HistoryPoint {
	if state, ok := p.Indicators[indicator]; ok {
		return state.History
	}
	return nil
}

// RecordResult applies a scored indicator result to the profile state and
// appends the score to the bounded history.
func (p *WellbeingProfile) RecordResult(result IndicatorResult, at time.Time) {
	state := p.StateFor(result.Indicator)
	state.Score = result.Score
	state.Trend = result.Trend
	state.LastAssessed = at

	state.ActiveAlerts = state.ActiveAlerts[:0]
	for _, alert := range result.Alerts {
		state.ActiveAlerts = append(state.ActiveAlerts, alert.Tag)
	}

	state.History = append(state.History, HistoryPoint{Score: result.Score, RecordedAt: at})
	if len(state.History) > HistoryCap {
		state.History = state.History[len(state.History)-HistoryCap:]
	}

	p.UpdatedAt = at
}

// RaiseTier lifts the profile's privacy tier. Tiers are monotonic
// non-decreasing; demotion is an external administrative operation and is
// ignored here.
func (p *WellbeingProfile) RaiseTier(tier PrivacyTier) {
	if tier.Valid() && tier.AtLeast(p.PrivacyTier) {
		p.PrivacyTier = tier
	}
}

// OnSupportTeam reports whether role is part of the assembled support team.
func (p *WellbeingProfile) OnSupportTeam(role Role) bool {
	for _, r := range p.SupportTeam {
		if r == role {
			return true
		}
	}
	return false
}

// MergeSupportTeam unions roles into the support team, preserving order of
// first appearance.
func (p *WellbeingProfile) MergeSupportTeam(roles []Role) {
	for _, role := range roles {
		if !p.OnSupportTeam(role) {
			p.SupportTeam = append(p.SupportTeam, role)
		}
	}
}
