package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/knowix/knowix/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestCourse(t *testing.T, s *Store, userID string, questionCount int) model.Course {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	c := model.Course{
		ID:          "course-" + userID,
		UserID:      userID,
		Title:       "Go basics",
		Description: "learn Go",
		Mode:        model.ModeTech,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := 1; i <= questionCount; i++ {
		c.Questions = append(c.Questions, model.Question{
			ID:         fmt.Sprintf("q%03d", i),
			Text:       "question text",
			Status:     model.StatusPending,
			Difficulty: model.DifficultyMedium,
			XPBonus:    5,
			Order:      i,
			CreatedAt:  now,
		})
	}
	if err := s.CreateCourse(c); err != nil {
		t.Fatalf("insertTestCourse: %v", err)
	}
	return c
}

func TestCourseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	created := insertTestCourse(t, s, "alice", 3)

	got, err := s.GetCourse(created.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if got.Title != created.Title || got.Mode != model.ModeTech {
		t.Errorf("got %+v", got)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got.Questions))
	}
	for i, q := range got.Questions {
		if q.Order != i+1 {
			t.Errorf("question %d out of order: %+v", i, q)
		}
		if q.Status != model.StatusPending {
			t.Errorf("question %s status = %s", q.ID, q.Status)
		}
	}
	if got.CompletedAt != nil {
		t.Error("fresh course should not be completed")
	}
}

func TestListCourses(t *testing.T) {
	s := newTestStore(t)
	insertTestCourse(t, s, "alice", 2)
	insertTestCourse(t, s, "bob", 2)

	courses, err := s.ListCourses("alice")
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("expected 1 course for alice, got %d", len(courses))
	}
	if len(courses[0].Questions) != 0 {
		t.Error("list should be shallow, without questions")
	}
}

func TestQuestionProgress(t *testing.T) {
	s := newTestStore(t)
	c := insertTestCourse(t, s, "alice", 2)

	if err := s.UpdateQuestionProgress(c.ID, "q001", model.StatusCorrect, 90, 35); err != nil {
		t.Fatalf("UpdateQuestionProgress: %v", err)
	}

	q, err := s.GetQuestion(c.ID, "q001")
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.Status != model.StatusCorrect || q.Score != 90 || q.XPEarned != 35 {
		t.Errorf("got %+v", q)
	}

	pending, err := s.CountPendingQuestions(c.ID)
	if err != nil {
		t.Fatalf("CountPendingQuestions: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}

	answered, err := s.CountAnsweredQuestions("alice")
	if err != nil {
		t.Fatalf("CountAnsweredQuestions: %v", err)
	}
	if answered != 1 {
		t.Errorf("answered = %d, want 1", answered)
	}
}

func TestMarkCourseCompleted(t *testing.T) {
	s := newTestStore(t)
	c := insertTestCourse(t, s, "alice", 1)

	at := time.Now().UTC().Truncate(time.Second)
	if err := s.MarkCourseCompleted(c.ID, at); err != nil {
		t.Fatalf("MarkCourseCompleted: %v", err)
	}
	got, err := s.GetCourse(c.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if got.CompletedAt == nil {
		t.Fatal("CompletedAt should be set")
	}
}

func TestMessages(t *testing.T) {
	s := newTestStore(t)
	c := insertTestCourse(t, s, "alice", 1)

	base := time.Now().UTC().Truncate(time.Second)
	msgs := []model.Message{
		{ID: "m1", CourseID: c.ID, QuestionID: "q001", UserID: "alice", Role: model.RoleUser, Content: "my answer", Score: model.NoScore, CreatedAt: base},
		{ID: "m2", CourseID: c.ID, QuestionID: "q001", UserID: "alice", Role: model.RoleAssistant, Content: "feedback", Score: 85, XPEarned: 30, CreatedAt: base.Add(time.Second)},
	}
	for _, m := range msgs {
		if err := s.AddMessage(m); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	got, err := s.GetMessages("alice", c.ID, "q001")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Score != model.NoScore {
		t.Errorf("user message score = %d, want sentinel", got[0].Score)
	}
	if got[1].Score != 85 || got[1].XPEarned != 30 {
		t.Errorf("assistant message = %+v", got[1])
	}

	other, err := s.GetMessages("bob", c.ID, "q001")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(other) != 0 {
		t.Error("threads must be scoped per user")
	}
}

func TestProfileLifecycle(t *testing.T) {
	s := newTestStore(t)

	p, err := s.EnsureProfile("alice", "Alice")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.XP != 0 || p.Level != 1 {
		t.Errorf("fresh profile = %+v", p)
	}

	// Second call returns the stored row, not a new one.
	again, err := s.EnsureProfile("alice", "Someone Else")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if again.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want Alice", again.DisplayName)
	}

	if err := s.AddXP("alice", 250, 2); err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	streak := model.UserStreak{Current: 3, Longest: 5, LastActivity: time.Now().UTC().Truncate(time.Second)}
	if err := s.UpdateStreak("alice", streak); err != nil {
		t.Fatalf("UpdateStreak: %v", err)
	}

	got, err := s.GetProfile("alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.XP != 250 || got.Level != 2 {
		t.Errorf("profile = %+v", got)
	}
	if got.Streak.Current != 3 || got.Streak.Longest != 5 {
		t.Errorf("streak = %+v", got.Streak)
	}

	missing, err := s.GetProfile("nobody")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if missing != nil {
		t.Error("unknown user should yield nil profile")
	}
}

func TestAPIKeys(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.EnsureProfile("alice", "Alice"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}

	if err := s.SetAPIKeys("alice", []string{"key-b", "key-a"}); err != nil {
		t.Fatalf("SetAPIKeys: %v", err)
	}
	p, err := s.GetProfile("alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	// Insertion order is the fallback order and must survive.
	if len(p.APIKeys) != 2 || p.APIKeys[0] != "key-b" || p.APIKeys[1] != "key-a" {
		t.Errorf("APIKeys = %v", p.APIKeys)
	}

	// Replacement, not append.
	if err := s.SetAPIKeys("alice", []string{"key-c"}); err != nil {
		t.Fatalf("SetAPIKeys: %v", err)
	}
	p, err = s.GetProfile("alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if len(p.APIKeys) != 1 || p.APIKeys[0] != "key-c" {
		t.Errorf("APIKeys = %v", p.APIKeys)
	}
}

func TestXPEvents(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.EnsureProfile("alice", "Alice"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		_, err := s.AddXPEvent(model.XPEvent{
			UserID: "alice", Type: model.XPEventAnswer, Amount: 30, CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddXPEvent: %v", err)
		}
	}
	if _, err := s.AddXPEvent(model.XPEvent{
		UserID: "alice", Type: model.XPEventDailyBonus, Amount: 20, CreatedAt: now,
	}); err != nil {
		t.Fatalf("AddXPEvent: %v", err)
	}

	count, err := s.CountAnswerEventsSince("alice", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountAnswerEventsSince: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3 (bonus events excluded)", count)
	}

	count, err = s.CountAnswerEventsSince("alice", now.Add(time.Minute+time.Second))
	if err != nil {
		t.Fatalf("CountAnswerEventsSince: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after cutoff", count)
	}
}

func TestAchievements(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.EnsureProfile("alice", "Alice"); err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := s.UnlockAchievements("alice", []string{"first_question", "first_course"}, now); err != nil {
		t.Fatalf("UnlockAchievements: %v", err)
	}
	// Re-unlocking must be a silent no-op.
	if err := s.UnlockAchievements("alice", []string{"first_question"}, now.Add(time.Hour)); err != nil {
		t.Fatalf("UnlockAchievements repeat: %v", err)
	}

	p, err := s.GetProfile("alice")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if len(p.Achievements) != 2 {
		t.Errorf("Achievements = %v", p.Achievements)
	}
}

func TestExportCourses(t *testing.T) {
	s := newTestStore(t)
	insertTestCourse(t, s, "alice", 2)
	insertTestCourse(t, s, "bob", 1)

	all, err := s.ExportCourses("")
	if err != nil {
		t.Fatalf("ExportCourses: %v", err)
	}
	if len(all.Courses) != 2 {
		t.Errorf("expected 2 courses, got %d", len(all.Courses))
	}

	one, err := s.ExportCourses("alice")
	if err != nil {
		t.Fatalf("ExportCourses: %v", err)
	}
	if len(one.Courses) != 1 || one.Courses[0].UserID != "alice" {
		t.Errorf("got %+v", one.Courses)
	}
	if len(one.Courses[0].Questions) != 2 {
		t.Error("export should include questions")
	}
}

func TestMeta(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMeta("schema_note")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if v != "" {
		t.Errorf("unset key = %q, want empty", v)
	}

	if err := s.SetMeta("schema_note", "v1"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := s.SetMeta("schema_note", "v2"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}
	v, err = s.GetMeta("schema_note")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if v != "v2" {
		t.Errorf("value = %q, want v2", v)
	}
}
