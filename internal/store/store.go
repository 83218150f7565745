// Package store persists courses, chat history, and profiles in sqlite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/knowix/knowix/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'tech',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS questions (
		course_id TEXT NOT NULL,
		id TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		difficulty TEXT NOT NULL DEFAULT 'medium',
		xp_bonus INTEGER NOT NULL DEFAULT 5,
		xp_earned INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (course_id, id),
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT -1,
		xp_earned INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		streak_current INTEGER NOT NULL DEFAULT 0,
		streak_longest INTEGER NOT NULL DEFAULT 0,
		last_activity DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profile_keys (
		user_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		api_key TEXT NOT NULL,
		PRIMARY KEY (user_id, position)
	);

	CREATE TABLE IF NOT EXISTS xp_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		question_id TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS achievements (
		user_id TEXT NOT NULL,
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateCourse stores a course and its questions in one transaction.
func (s *Store) CreateCourse(c model.Course) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO courses (id, user_id, title, description, mode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.Description, c.Mode, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, q := range c.Questions {
		_, err := tx.Exec(
			`INSERT INTO questions (course_id, id, text, status, difficulty, xp_bonus, xp_earned, score, ord, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, q.ID, q.Text, q.Status, q.Difficulty, q.XPBonus, q.XPEarned, q.Score, q.Order, q.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetCourse returns a course with its questions in order.
func (s *Store) GetCourse(id string) (model.Course, error) {
	var c model.Course
	var completedAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, user_id, title, description, mode, created_at, updated_at, completed_at
		 FROM courses WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Mode, &c.CreatedAt, &c.UpdatedAt, &completedAt)
	if err != nil {
		return model.Course{}, err
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}

	c.Questions, err = s.questionsForCourse(id)
	return c, err
}

func (s *Store) questionsForCourse(courseID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, text, status, difficulty, xp_bonus, xp_earned, score, ord, created_at
		 FROM questions WHERE course_id = ? ORDER BY ord`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Status, &q.Difficulty, &q.XPBonus, &q.XPEarned, &q.Score, &q.Order, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListCourses returns a user's courses without their question lists.
func (s *Store) ListCourses(userID string) ([]model.Course, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, title, description, mode, created_at, updated_at, completed_at
		 FROM courses WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		var completedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Mode, &c.CreatedAt, &c.UpdatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			c.CompletedAt = &completedAt.Time
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetQuestion returns one question of a course.
func (s *Store) GetQuestion(courseID, questionID string) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, text, status, difficulty, xp_bonus, xp_earned, score, ord, created_at
		 FROM questions WHERE course_id = ? AND id = ?`, courseID, questionID,
	).Scan(&q.ID, &q.Text, &q.Status, &q.Difficulty, &q.XPBonus, &q.XPEarned, &q.Score, &q.Order, &q.CreatedAt)
	return q, err
}

// UpdateQuestionProgress stores a question's new status, best score, and
// accumulated XP, and bumps the course's updated_at.
func (s *Store) UpdateQuestionProgress(courseID, questionID string, status model.QuestionStatus, score, xpEarned int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE questions SET status = ?, score = ?, xp_earned = ? WHERE course_id = ? AND id = ?`,
		status, score, xpEarned, courseID, questionID,
	)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`UPDATE courses SET updated_at = ? WHERE id = ?`, time.Now(), courseID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// MarkCourseCompleted stamps a course's completion time.
func (s *Store) MarkCourseCompleted(courseID string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE courses SET completed_at = ?, updated_at = ? WHERE id = ?`, at, at, courseID,
	)
	return err
}

// CountPendingQuestions returns how many questions of a course are
// still unanswered.
func (s *Store) CountPendingQuestions(courseID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM questions WHERE course_id = ? AND status = 'pending'`, courseID,
	).Scan(&count)
	return count, err
}

// AddMessage inserts a chat message.
func (s *Store) AddMessage(m model.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (id, course_id, question_id, user_id, role, content, score, xp_earned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CourseID, m.QuestionID, m.UserID, m.Role, m.Content, m.Score, m.XPEarned, m.CreatedAt,
	)
	return err
}

// GetMessages returns a question thread's messages in insertion order.
func (s *Store) GetMessages(userID, courseID, questionID string) ([]model.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, course_id, question_id, user_id, role, content, score, xp_earned, created_at
		 FROM messages WHERE user_id = ? AND course_id = ? AND question_id = ?
		 ORDER BY created_at, id`, userID, courseID, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.CourseID, &m.QuestionID, &m.UserID, &m.Role, &m.Content, &m.Score, &m.XPEarned, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountCoursesByUser returns how many courses a user has created.
func (s *Store) CountCoursesByUser(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM courses WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// CountAnsweredQuestions returns how many of a user's questions have
// left the pending state.
func (s *Store) CountAnsweredQuestions(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM questions q JOIN courses c ON q.course_id = c.id
		 WHERE c.user_id = ? AND q.status != 'pending'`, userID,
	).Scan(&count)
	return count, err
}

// SetMeta stores an arbitrary metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`, key, value, value,
	)
	return err
}

// GetMeta returns a metadata value, or "" when unset.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
