package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func windowAssessment(profileID uuid.UUID, ts time.Time, overall float64, scores map[string]float64) *Assessment {
	results := make(map[string]IndicatorResult, len(scores))
	for name, score := range scores {
		results[name] = IndicatorResult{Indicator: name, Score: score}
	}
	return &Assessment{
		ID:           uuid.New(),
		ProfileID:    profileID,
		Timestamp:    ts,
		OverallScore: overall,
		Results:      results,
	}
}

func TestReport_OverallImprovement(t *testing.T) {
	profileID := uuid.New()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	window := LastDays(30, now)

	assessments := []*Assessment{
		// deliberately out of order; the monitor sorts by timestamp
		windowAssessment(profileID, now.Add(-5*24*time.Hour), 60, nil),
		windowAssessment(profileID, now.Add(-20*24*time.Hour), 50, nil),
		// outside the window, must be ignored
		windowAssessment(profileID, now.Add(-45*24*time.Hour), 10, nil),
	}

	m := NewProgressMonitorAt(func() time.Time { return now })
	report := m.Report(profileID, assessments, nil, window)

	if report.AssessmentCount != 2 {
		t.Errorf("AssessmentCount = %d, want 2", report.AssessmentCount)
	}
	// (60-50)/50 * 100
	if math.Abs(report.OverallImprovementPct-20) > 1e-9 {
		t.Errorf("OverallImprovementPct = %v, want 20", report.OverallImprovementPct)
	}
}

func TestReport_SingleAssessmentHasNoImprovement(t *testing.T) {
	profileID := uuid.New()
	now := time.Now().UTC()
	window := LastDays(30, now)

	m := NewProgressMonitor()
	report := m.Report(profileID, []*Assessment{
		windowAssessment(profileID, now.Add(-24*time.Hour), 70, nil),
	}, nil, window)

	if report.AssessmentCount != 1 {
		t.Errorf("AssessmentCount = %d, want 1", report.AssessmentCount)
	}
	if report.OverallImprovementPct != 0 {
		t.Errorf("OverallImprovementPct = %v, want 0", report.OverallImprovementPct)
	}
}

func TestReport_IndicatorTrendsRankedByDelta(t *testing.T) {
	profileID := uuid.New()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	window := LastDays(30, now)

	assessments := []*Assessment{
		windowAssessment(profileID, now.Add(-10*24*time.Hour), 50, map[string]float64{
			"emotional_wellbeing": 40,
			"social_connection":   70,
			"physical_health":     60,
		}),
		windowAssessment(profileID, now.Add(-2*24*time.Hour), 55, map[string]float64{
			"emotional_wellbeing": 80,
			"social_connection":   50,
			"physical_health":     60,
		}),
	}

	m := NewProgressMonitorAt(func() time.Time { return now })
	report := m.Report(profileID, assessments, nil, window)

	if len(report.IndicatorTrends) != 3 {
		t.Fatalf("got %d indicator trends, want 3", len(report.IndicatorTrends))
	}
	// emotional_wellbeing moved +40, social_connection -20, physical_health 0
	if report.IndicatorTrends[0].Indicator != "emotional_wellbeing" {
		t.Errorf("top trend = %q, want emotional_wellbeing", report.IndicatorTrends[0].Indicator)
	}
	if report.IndicatorTrends[0].Trend != TrendImproving {
		t.Errorf("top trend = %v, want improving", report.IndicatorTrends[0].Trend)
	}

	if len(report.PositiveFactors) != 1 || report.PositiveFactors[0] != "emotional_wellbeing" {
		t.Errorf("PositiveFactors = %v, want [emotional_wellbeing]", report.PositiveFactors)
	}
	if len(report.ConcernAreas) != 1 || report.ConcernAreas[0] != "social_connection" {
		t.Errorf("ConcernAreas = %v, want [social_connection]", report.ConcernAreas)
	}
}

func TestReport_InterventionEffectiveness(t *testing.T) {
	profileID := uuid.New()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	window := LastDays(30, now)

	inWindow := now.Add(-3 * 24 * time.Hour)
	outOfWindow := now.Add(-60 * 24 * time.Hour)

	actions := []InterventionAction{
		{
			Status:      ActionCompleted,
			CompletedAt: &inWindow,
			Progress:    []ProgressEntry{{Effectiveness: 4}},
		},
		{
			Status:      ActionCompleted,
			CompletedAt: &inWindow,
			Progress:    []ProgressEntry{{Effectiveness: 2}},
		},
		// completed outside the window, excluded
		{
			Status:      ActionCompleted,
			CompletedAt: &outOfWindow,
			Progress:    []ProgressEntry{{Effectiveness: 5}},
		},
		// still pending, excluded
		{Status: ActionPending},
	}

	m := NewProgressMonitorAt(func() time.Time { return now })
	report := m.Report(profileID, nil, actions, window)

	if report.CompletedActions != 2 {
		t.Errorf("CompletedActions = %d, want 2", report.CompletedActions)
	}
	if math.Abs(report.InterventionEffectiveness-0.5) > 1e-9 {
		t.Errorf("InterventionEffectiveness = %v, want 0.5", report.InterventionEffectiveness)
	}
}

func TestReport_NextSteps(t *testing.T) {
	profileID := uuid.New()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	window := LastDays(30, now)
	m := NewProgressMonitorAt(func() time.Time { return now })

	// declining indicator yields a targeted follow-up step
	declining := []*Assessment{
		windowAssessment(profileID, now.Add(-10*24*time.Hour), 70, map[string]float64{"mood": 80}),
		windowAssessment(profileID, now.Add(-2*24*time.Hour), 60, map[string]float64{"mood": 50}),
	}
	report := m.Report(profileID, declining, nil, window)
	if len(report.NextSteps) == 0 || report.NextSteps[0] != "schedule targeted follow-up for mood" {
		t.Errorf("NextSteps = %v, want targeted follow-up for mood", report.NextSteps)
	}

	// stable history falls back to maintaining cadence
	stable := []*Assessment{
		windowAssessment(profileID, now.Add(-10*24*time.Hour), 70, map[string]float64{"mood": 70}),
	}
	report = m.Report(profileID, stable, nil, window)
	if len(report.NextSteps) != 1 || report.NextSteps[0] != "maintain current support cadence" {
		t.Errorf("NextSteps = %v, want maintain current support cadence", report.NextSteps)
	}

	// empty window yields no steps at all
	report = m.Report(profileID, nil, nil, window)
	if len(report.NextSteps) != 0 {
		t.Errorf("NextSteps = %v, want none for empty window", report.NextSteps)
	}
}

func TestWindow_Contains(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	w := LastDays(7, now)

	if !w.Contains(now) {
		t.Error("window should include its upper bound")
	}
	if !w.Contains(now.Add(-7 * 24 * time.Hour)) {
		t.Error("window should include its lower bound")
	}
	if w.Contains(now.Add(time.Second)) {
		t.Error("window should exclude times after To")
	}
	if w.Contains(now.Add(-8 * 24 * time.Hour)) {
		t.Error("window should exclude times before From")
	}
}
