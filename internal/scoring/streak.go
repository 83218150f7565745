package scoring

import (
	"time"

	"github.com/knowix/knowix/internal/model"
)

const dayDuration = 24 * time.Hour

// UpdateStreak returns the streak state after activity at now. Activity
// on the same day is a no-op, the next day extends the streak, and any
// gap resets it to 1. The input is never mutated.
func UpdateStreak(s model.UserStreak, now time.Time) model.UserStreak {
	updated := s
	updated.LastActivity = now

	switch {
	case s.LastActivity.IsZero():
		updated.Current = 1
	default:
		gap := int(now.Sub(s.LastActivity) / dayDuration)
		switch {
		case gap <= 0:
			updated.LastActivity = s.LastActivity
			return updated // already active today
		case gap == 1:
			updated.Current = s.Current + 1
		default:
			updated.Current = 1
		}
	}

	if updated.Current > updated.Longest {
		updated.Longest = updated.Current
	}
	return updated
}

// ActiveToday reports whether the streak's last activity falls within
// the current day window.
func ActiveToday(s model.UserStreak, now time.Time) bool {
	if s.LastActivity.IsZero() {
		return false
	}
	return now.Sub(s.LastActivity) < dayDuration
}
