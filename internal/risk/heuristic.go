// Package risk scores sensor readings for AI triage and dashboard display.
package risk

import "github.com/spec-kit/gearguard/internal/domain"

// Reading is one predictor row.
type Reading struct {
	Temperature float64
	Vibration   float64
	Power       float64
	Runtime     float64
}

// Score adds fixed weights per exceeded threshold and clamps to [0, 100].
func Score(r Reading) float64 {
	score := 0.0
	if r.Temperature > 80 {
		score += 30
	}
	if r.Vibration > 7 {
		score += 30
	}
	if r.Power > 12 {
		score += 20
	}
	if r.Runtime > 8 {
		score += 20
	}
	return clamp(score)
}

// PriorityFor maps a risk score onto a request priority.
func PriorityFor(score float64) domain.RequestPriority {
	switch {
	case score >= 70:
		return domain.RequestPriorityHigh
	case score >= 40:
		return domain.RequestPriorityMedium
	default:
		return domain.RequestPriorityLow
	}
}

// Level is a dashboard display bucket.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels lists buckets in ascending order.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// Bucket colors a score for the dashboard. Not used for triage.
func Bucket(score float64) Level {
	switch {
	case score >= 76:
		return LevelCritical
	case score >= 51:
		return LevelHigh
	case score >= 26:
		return LevelMedium
	default:
		return LevelLow
	}
}

// WeightedPriority is the alternate heuristic (temperature, vibration and past
// failure count). Triage does not use it; it disagrees with PriorityFor on
// many inputs and is kept for comparison reports only.
func WeightedPriority(temperature, vibration float64, pastFailures int) domain.RequestPriority {
	score := temperature*0.4 + vibration*10*0.4 + float64(pastFailures)*10*0.2
	switch {
	case score > 80:
		return domain.RequestPriorityHigh
	case score > 50:
		return domain.RequestPriorityMedium
	default:
		return domain.RequestPriorityLow
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
