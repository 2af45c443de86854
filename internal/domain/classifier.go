package domain

// Classification is the combined outcome of risk classification.
type Classification struct {
	OverallScore  float64   `json:"overall_score"`
	RiskLevel     RiskLevel `json:"risk_level"`
	CriticalCount int       `json:"critical_count"`
}

// Classifier combines indicator results into an overall score and a
// discrete risk level. Classification is a pure function of its inputs; a
// CRITICAL outcome is valid and expected, never an error.
type Classifier struct{}

// NewClassifier creates a risk classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify computes the overall score as the simple mean of indicator
// scores, counts indicators below their low threshold, and picks the first
// matching tier from CRITICAL downward. The critical-count check is
// evaluated before the overall-score check at each tier: a single indicator
// crossing its low threshold forces at least MODERATE regardless of a high
// overall score.
func (c *Classifier) Classify(results map[string]IndicatorResult, defs map[string]IndicatorDefinition) Classification {
	var sum float64
	critical := 0
	count := 0

	for name, result := range results {
		sum += result.Score
		count++
		if def, ok := defs[name]; ok && result.Score < def.Thresholds.Low {
			critical++
		}
	}

	overall := float64(0)
	if count > 0 {
		overall = sum / float64(count)
	}

	level := RiskLow
	switch {
	case critical >= 3 || overall < 30:
		level = RiskCritical
	case critical >= 2 || overall < 50:
		level = RiskHigh
	case critical >= 1 || overall < 70:
		level = RiskModerate
	}

	return Classification{
		OverallScore:  overall,
		RiskLevel:     level,
		CriticalCount: critical,
	}
}

// FollowUpRequired reports whether the assessment needs follow-up: HIGH or
// CRITICAL risk, or any recommendation carrying HIGH priority.
func (c *Classifier) FollowUpRequired(level RiskLevel, recommendations []Recommendation) bool {
	if level.AtLeast(RiskHigh) {
		return true
	}
	for _, rec := range recommendations {
		if rec.Priority == PriorityHigh {
			return true
		}
	}
	return false
}
