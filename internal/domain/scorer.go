package domain

// trendLookback is how many historical scores the scorer compares against
// when labeling short-term trend.
const trendLookback = 3

// neutralScore is assigned when no factor of an indicator was answered.
const neutralScore = 50

// Scorer aggregates normalized factor scores into one score per indicator.
// It is pure: the caller records the result onto the profile.
type Scorer struct{}

// NewScorer creates an indicator scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the indicator score as the arithmetic mean of the
// normalized scores for exactly the factors present in both the definition
// and the input. Zero coverage yields a neutral 50 with a LOW_CONFIDENCE
// tag. Trend compares the new score against up to the last three historical
// scores. A score below the low threshold raises an indicator-local
// LOW_SCORE alert; escalation happens separately.
func (s *Scorer) Score(def IndicatorDefinition, normalized map[string]float64, history []HistoryPoint) IndicatorResult {
	result := IndicatorResult{
		Indicator: def.Name,
		Factors:   make(map[string]float64),
	}

	var sum float64
	for _, factor := range def.Factors {
		value, ok := normalized[factor]
		if !ok {
			continue
		}
		result.FactorsUsed = append(result.FactorsUsed, factor)
		result.Factors[factor] = value
		sum += value
	}

	if len(result.FactorsUsed) == 0 {
		result.Score = neutralScore
		result.Alerts = append(result.Alerts, IndicatorAlert{
			Tag:      TagLowConfidence,
			Severity: SeverityLow,
			Message:  "no contributing factors answered; defaulted to neutral",
		})
	} else {
		result.Score = sum / float64(len(result.FactorsUsed))
	}

	result.Trend = s.trendAgainstHistory(result.Score, history)

	if result.Score < def.Thresholds.Low {
		result.Alerts = append(result.Alerts, IndicatorAlert{
			Tag:      TagLowScore,
			Severity: SeverityHigh,
			Message:  "indicator score below critical threshold",
		})
	}

	return result
}

// trendAgainstHistory labels the new score against the most recent history.
func (s *Scorer) trendAgainstHistory(score float64, history []HistoryPoint) Trend {
	if len(history) == 0 {
		return TrendStable
	}

	recent := history
	if len(recent) > trendLookback {
		recent = recent[len(recent)-trendLookback:]
	}

	scores := make([]float64, 0, len(recent)+1)
	for _, point := range recent {
		scores = append(scores, point.Score)
	}
	scores = append(scores, score)

	return ComputeTrend(scores)
}

// ComputeTrend labels a score sequence: improving if strictly monotonically
// increasing, declining if strictly monotonically decreasing, else stable.
// The same rule serves the scorer's short lookback and the progress
// monitor's full window.
func ComputeTrend(scores []float64) Trend {
	if len(scores) < 2 {
		return TrendStable
	}

	increasing, decreasing := true, true
	for i := 1; i < len(scores); i++ {
		if scores[i] <= scores[i-1] {
			increasing = false
		}
		if scores[i] >= scores[i-1] {
			decreasing = false
		}
	}

	switch {
	case increasing:
		return TrendImproving
	case decreasing:
		return TrendDeclining
	default:
		return TrendStable
	}
}
