// Package scoring holds the pure XP, streak, and level arithmetic.
// No I/O: callers supply streak state and persist the results.
package scoring

import (
	"math"

	"github.com/knowix/knowix/internal/model"
)

// Base XP awarded per verdict, before the streak multiplier.
var baseXP = map[model.EvalStatus]int{
	model.EvalCorrect:   30,
	model.EvalPartial:   15,
	model.EvalIncorrect: 5,
}

// multiplierTier maps a minimum streak length to its XP multiplier.
type multiplierTier struct {
	MinDays    int
	Multiplier float64
}

// Checked from the largest threshold downward so multiple satisfied
// tiers never stack — only the single best applies.
var multiplierTiers = []multiplierTier{
	{MinDays: 30, Multiplier: 2.0},
	{MinDays: 14, Multiplier: 1.75},
	{MinDays: 7, Multiplier: 1.5},
}

// Bonus awards outside per-answer scoring.
const (
	DailyBonusXP     = 20  // completing a daily session
	CourseCompleteXP = 100 // finishing every question in a course
)

// StreakMultiplier returns the multiplier for a streak of currentDays.
// Thresholds are inclusive lower bounds; below the lowest tier the
// multiplier is 1.0.
func StreakMultiplier(currentDays int) float64 {
	for _, tier := range multiplierTiers {
		if currentDays >= tier.MinDays {
			return tier.Multiplier
		}
	}
	return 1.0
}

// StatusFromScore converts a 0-100 score to a verdict. Bands are
// inclusive on their lower bound: 80-100 correct, 40-79 partial,
// below 40 incorrect.
func StatusFromScore(score int) model.EvalStatus {
	switch {
	case score >= 80:
		return model.EvalCorrect
	case score >= 40:
		return model.EvalPartial
	default:
		return model.EvalIncorrect
	}
}

// XPForStatus computes the full XP award for a verdict:
// round(base × streak multiplier) + the question's xpBonus. The
// multiplier applies to the base only, never to the bonus.
func XPForStatus(status model.EvalStatus, xpBonus, currentDays int) int {
	base := baseXP[status]
	return int(math.Round(float64(base)*StreakMultiplier(currentDays))) + xpBonus
}

// DeltaXP computes the incremental award for re-answering a question.
// The full award is scaled by how much of the 0-100 range the new score
// newly covered, so repeated turns on the same question earn XP only
// for actual improvement. A score that merely matches the previous one
// earns nothing.
func DeltaXP(previousScore, newScore, xpBonus, currentDays int) int {
	delta := newScore - previousScore
	if delta <= 0 {
		return 0
	}
	maxXP := XPForStatus(StatusFromScore(newScore), xpBonus, currentDays)
	return int(math.Round(float64(maxXP) * float64(delta) / 100.0))
}
