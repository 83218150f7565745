package model

import (
	"context"
	"time"
)

// Mode selects which system instruction accompanies AI calls for a course.
type Mode string

const (
	ModeTech     Mode = "tech"
	ModeLanguage Mode = "language"
	ModeGeneral  Mode = "general"
)

// IsValidMode reports whether m is one of the known course modes.
func IsValidMode(m Mode) bool {
	switch m {
	case ModeTech, ModeLanguage, ModeGeneral:
		return true
	}
	return false
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValidDifficulty reports whether d is a known difficulty.
func IsValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuestionStatus represents a question's answer state.
type QuestionStatus string

const (
	StatusPending   QuestionStatus = "pending"
	StatusCorrect   QuestionStatus = "correct"
	StatusPartial   QuestionStatus = "partial"
	StatusIncorrect QuestionStatus = "incorrect"
)

// EvalStatus is the AI's verdict on an answer: the QuestionStatus value
// space minus "pending".
type EvalStatus string

const (
	EvalCorrect   EvalStatus = "correct"
	EvalPartial   EvalStatus = "partial"
	EvalIncorrect EvalStatus = "incorrect"
)

// IsValidEvalStatus reports whether s is one of the three verdicts.
func IsValidEvalStatus(s EvalStatus) bool {
	switch s {
	case EvalCorrect, EvalPartial, EvalIncorrect:
		return true
	}
	return false
}

// Question is a single generated course question with its progress.
type Question struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Status     QuestionStatus `json:"status"`
	Difficulty Difficulty     `json:"difficulty"`
	XPBonus    int            `json:"xpBonus"`
	XPEarned   int            `json:"xpEarned"`
	Score      int            `json:"score"` // best AI score so far, 0-100
	Order      int            `json:"order"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Course is a generated question set for one learning goal.
type Course struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"` // the user's original request
	Mode        Mode       `json:"mode"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ChatRole is a chat message author.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Message is one chat message in a question thread.
type Message struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"courseId"`
	QuestionID string    `json:"questionId"`
	UserID     string    `json:"userId"`
	Role       ChatRole  `json:"role"`
	Content    string    `json:"content"`
	Score      int       `json:"score"`    // NoScore when the turn carried none
	XPEarned   int       `json:"xpEarned"` // XP awarded for this turn
	CreatedAt  time.Time `json:"createdAt"`
}

// Evaluation is a decoded AI assessment of an answer.
//
// Status and Score are not cross-validated against each other: they may
// originate from different response shapes, and callers decide which is
// authoritative.
type Evaluation struct {
	Status      EvalStatus `json:"status"`
	Score       int        `json:"score"` // clamped to 0-100
	Feedback    string     `json:"feedback"`
	CodeExample string     `json:"codeExample,omitempty"` // empty means absent
}

// TurnKind classifies a chat turn result.
type TurnKind string

const (
	TurnMessage    TurnKind = "message"
	TurnEvaluation TurnKind = "evaluation"
)

// NoScore is the out-of-band score meaning "no numeric score could be
// determined". It is distinct from any valid 0-100 score and must never
// be clamped into that range.
const NoScore = -1

// ChatTurnResult is the outcome of one chat turn.
type ChatTurnResult struct {
	Kind       TurnKind    `json:"kind"`
	Content    string      `json:"content"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Score      int         `json:"score"` // 0-100, or NoScore
	ModelUsed  string      `json:"modelUsed,omitempty"`
}

// CodeExample is one generated illustration for a question.
type CodeExample struct {
	Title       string `json:"title"`
	Language    string `json:"language"`
	Explanation string `json:"explanation"`
	Code        string `json:"code"`
}

// UserStreak tracks consecutive-day engagement.
type UserStreak struct {
	Current      int       `json:"current"`
	Longest      int       `json:"longest"`
	LastActivity time.Time `json:"lastActivity"`
}

// UserProfile is the per-user gamification state.
type UserProfile struct {
	UserID       string     `json:"userId"`
	DisplayName  string     `json:"displayName"`
	XP           int        `json:"xp"`
	Level        int        `json:"level"`
	Streak       UserStreak `json:"streak"`
	APIKeys      []string   `json:"-"` // ordered per-user API keys, never serialized out
	Achievements []string   `json:"achievements"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// XPEventType categorizes an XP award.
type XPEventType string

const (
	XPEventAnswer         XPEventType = "answer"
	XPEventDailyBonus     XPEventType = "daily_bonus"
	XPEventCourseComplete XPEventType = "course_complete"
)

// XPEvent records a single XP award for auditing and stats.
type XPEvent struct {
	ID         int64       `json:"id"`
	UserID     string      `json:"userId"`
	Type       XPEventType `json:"type"`
	Amount     int         `json:"amount"`
	QuestionID string      `json:"questionId,omitempty"`
	CourseID   string      `json:"courseId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// CourseExport is the shape produced by the export command.
type CourseExport struct {
	ExportedAt time.Time `json:"exported_at"`
	UserID     string    `json:"user_id,omitempty"`
	Courses    []Course  `json:"courses"`
}

type userIDCtxKey struct{}

// ContextWithUserID stores the caller's user id in the request context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// UserIDFromContext retrieves the caller's user id, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDCtxKey{}).(string)
	return id
}
