package store

import (
	"database/sql"
	"time"

	"github.com/knowix/knowix/internal/model"
)

// EnsureProfile returns the user's profile, creating an empty one on
// first contact.
func (s *Store) EnsureProfile(userID, displayName string) (model.UserProfile, error) {
	p, err := s.GetProfile(userID)
	if err != nil {
		return model.UserProfile{}, err
	}
	if p != nil {
		return *p, nil
	}

	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO profiles (user_id, display_name, created_at) VALUES (?, ?, ?)`,
		userID, displayName, now,
	)
	if err != nil {
		return model.UserProfile{}, err
	}
	return model.UserProfile{
		UserID:      userID,
		DisplayName: displayName,
		Level:       1,
		CreatedAt:   now,
	}, nil
}

// GetProfile returns a profile with its API keys and achievements, or
// nil when the user is unknown.
func (s *Store) GetProfile(userID string) (*model.UserProfile, error) {
	var p model.UserProfile
	var lastActivity sql.NullTime
	err := s.db.QueryRow(
		`SELECT user_id, display_name, xp, level, streak_current, streak_longest, last_activity, created_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.XP, &p.Level, &p.Streak.Current, &p.Streak.Longest, &lastActivity, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		p.Streak.LastActivity = lastActivity.Time
	}

	p.APIKeys, err = s.apiKeys(userID)
	if err != nil {
		return nil, err
	}
	p.Achievements, err = s.achievementIDs(userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) apiKeys(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT api_key FROM profile_keys WHERE user_id = ? ORDER BY position`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SetAPIKeys replaces a user's ordered credential list.
func (s *Store) SetAPIKeys(userID string, keys []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profile_keys WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for i, key := range keys {
		if _, err := tx.Exec(
			`INSERT INTO profile_keys (user_id, position, api_key) VALUES (?, ?, ?)`,
			userID, i, key,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddXP adds an award to a user's total and stores the recomputed level.
func (s *Store) AddXP(userID string, amount, level int) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET xp = xp + ?, level = ? WHERE user_id = ?`,
		amount, level, userID,
	)
	return err
}

// UpdateStreak stores a recomputed streak state.
func (s *Store) UpdateStreak(userID string, streak model.UserStreak) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET streak_current = ?, streak_longest = ?, last_activity = ? WHERE user_id = ?`,
		streak.Current, streak.Longest, streak.LastActivity, userID,
	)
	return err
}

// AddXPEvent records one XP award.
func (s *Store) AddXPEvent(e model.XPEvent) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO xp_events (user_id, type, amount, question_id, course_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Type, e.Amount, e.QuestionID, e.CourseID, e.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CountAnswerEventsSince counts answer awards after the cutoff; used
// for the daily-session bonus.
func (s *Store) CountAnswerEventsSince(userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM xp_events WHERE user_id = ? AND type = 'answer' AND created_at >= ?`,
		userID, since,
	).Scan(&count)
	return count, err
}

func (s *Store) achievementIDs(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT achievement_id FROM achievements WHERE user_id = ? ORDER BY unlocked_at`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnlockAchievements stores newly earned badges, ignoring ones the user
// already holds.
func (s *Store) UnlockAchievements(userID string, ids []string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(
			`INSERT INTO achievements (user_id, achievement_id, unlocked_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id, achievement_id) DO NOTHING`,
			userID, id, at,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
