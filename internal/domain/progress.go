package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// effectivenessBar is the minimum self-reported effectiveness (1-5) for a
// completed action to count as effective.
const effectivenessBar = 3

// Window is a closed time interval used for progress lookback.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// LastDays builds a window covering the last n days ending at to.
func LastDays(n int, to time.Time) Window {
	return Window{From: to.Add(-time.Duration(n) * day), To: to}
}

// IndicatorProgress summarizes one indicator's movement over a window.
type IndicatorProgress struct {
	Indicator string  `json:"indicator"`
	Trend     Trend   `json:"trend"`
	Delta     float64 `json:"delta"`
}

// ProgressReport aggregates a profile's assessment history over a window:
// overall improvement, per-indicator trends, intervention effectiveness,
// and ranked positive factors and concern areas.
type ProgressReport struct {
	ProfileID                 uuid.UUID           `json:"profile_id"`
	Window                    Window              `json:"window"`
	AssessmentCount           int                 `json:"assessment_count"`
	OverallImprovementPct     float64             `json:"overall_improvement_pct"`
	IndicatorTrends           []IndicatorProgress `json:"indicator_trends,omitempty"`
	CompletedActions          int                 `json:"completed_actions"`
	InterventionEffectiveness float64             `json:"intervention_effectiveness"`
	PositiveFactors           []string            `json:"positive_factors,omitempty"`
	ConcernAreas              []string            `json:"concern_areas,omitempty"`
	NextSteps                 []string            `json:"next_steps,omitempty"`
	GeneratedAt               time.Time           `json:"generated_at"`
}

// ProgressMonitor compares a profile's assessment history over a window.
// It is a pure read: nothing is mutated.
type ProgressMonitor struct {
	now func() time.Time
}

// NewProgressMonitor creates a progress monitor using the wall clock.
func NewProgressMonitor() *ProgressMonitor {
	return &ProgressMonitor{now: time.Now}
}

// NewProgressMonitorAt creates a monitor with an injected clock for tests.
func NewProgressMonitorAt(now func() time.Time) *ProgressMonitor {
	return &ProgressMonitor{now: now}
}

// Report aggregates the in-window assessments (any order) and completed
// actions into a progress report. Overall improvement is the percentage
// delta between the earliest and latest overall score in the window.
// Indicator trends use the same monotonic rule as scoring but over the full
// window. Improving indicators rank as positive factors (most improved
// first); declining ones as concern areas (steepest decline first).
func (m *ProgressMonitor) Report(profileID uuid.UUID, assessments []*Assessment, actions []InterventionAction, window Window) *ProgressReport {
	report := &ProgressReport{
		ProfileID:   profileID,
		Window:      window,
		GeneratedAt: m.now().UTC(),
	}

	inWindow := make([]*Assessment, 0, len(assessments))
	for _, a := range assessments {
		if window.Contains(a.Timestamp) {
			inWindow = append(inWindow, a)
		}
	}
	sort.Slice(inWindow, func(i, j int) bool {
		return inWindow[i].Timestamp.Before(inWindow[j].Timestamp)
	})
	report.AssessmentCount = len(inWindow)

	if len(inWindow) >= 2 {
		earliest := inWindow[0].OverallScore
		latest := inWindow[len(inWindow)-1].OverallScore
		if earliest != 0 {
			report.OverallImprovementPct = (latest - earliest) / earliest * 100
		}
	}

	report.IndicatorTrends = m.indicatorTrends(inWindow)
	for _, progress := range report.IndicatorTrends {
		switch progress.Trend {
		case TrendImproving:
			report.PositiveFactors = append(report.PositiveFactors, progress.Indicator)
		case TrendDeclining:
			report.ConcernAreas = append(report.ConcernAreas, progress.Indicator)
		}
	}

	report.CompletedActions, report.InterventionEffectiveness = m.effectiveness(actions, window)
	report.NextSteps = m.nextSteps(report)

	return report
}

// indicatorTrends computes the per-indicator score sequence across the
// window and labels it, ranked by absolute delta so the most-moved
// indicators list first.
func (m *ProgressMonitor) indicatorTrends(assessments []*Assessment) []IndicatorProgress {
	sequences := make(map[string][]float64)
	for _, a := range assessments {
		for name, result := range a.Results {
			sequences[name] = append(sequences[name], result.Score)
		}
	}

	trends := make([]IndicatorProgress, 0, len(sequences))
	for name, scores := range sequences {
		delta := float64(0)
		if len(scores) >= 2 {
			delta = scores[len(scores)-1] - scores[0]
		}
		trends = append(trends, IndicatorProgress{
			Indicator: name,
			Trend:     ComputeTrend(scores),
			Delta:     delta,
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		di, dj := trends[i].Delta, trends[j].Delta
		if di < 0 {
			di = -di
		}
		if dj < 0 {
			dj = -dj
		}
		if di != dj {
			return di > dj
		}
		return trends[i].Indicator < trends[j].Indicator
	})
	return trends
}

// effectiveness is the share of completed in-window actions whose latest
// self-reported effectiveness met the bar.
func (m *ProgressMonitor) effectiveness(actions []InterventionAction, window Window) (completed int, share float64) {
	effective := 0
	for _, action := range actions {
		if action.Status != ActionCompleted || action.CompletedAt == nil {
			continue
		}
		if !window.Contains(*action.CompletedAt) {
			continue
		}
		completed++
		if action.LatestEffectiveness() >= effectivenessBar {
			effective++
		}
	}
	if completed > 0 {
		share = float64(effective) / float64(completed)
	}
	return completed, share
}

func (m *ProgressMonitor) nextSteps(report *ProgressReport) []string {
	var steps []string
	for _, concern := range report.ConcernAreas {
		steps = append(steps, "schedule targeted follow-up for "+concern)
	}
	if report.CompletedActions > 0 && report.InterventionEffectiveness < 0.5 {
		steps = append(steps, "review intervention mix with the support team")
	}
	if len(steps) == 0 && report.AssessmentCount > 0 {
		steps = append(steps, "maintain current support cadence")
	}
	return steps
}
