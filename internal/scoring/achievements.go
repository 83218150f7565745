package scoring

// Achievement is a static badge definition. Unlock state lives on the
// user profile, not here.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Achievements is the fixed badge catalog.
var Achievements = []Achievement{
	{ID: "first_question", Title: "First Step", Description: "Answered the first question", Icon: "🎯"},
	{ID: "first_course", Title: "First Course", Description: "Created the first course", Icon: "📚"},
	{ID: "streak_3", Title: "3-Day Streak", Description: "Kept a streak for 3 days", Icon: "🔥"},
	{ID: "streak_7", Title: "Weekly", Description: "Kept a streak for 7 days", Icon: "🔥🔥"},
	{ID: "streak_30", Title: "A Whole Month", Description: "Kept a streak for 30 days", Icon: "💎"},
	{ID: "perfect_session", Title: "Perfect Session", Description: "5/5 correct answers in a day", Icon: "⭐"},
	{ID: "course_complete", Title: "Course Complete", Description: "Finished all questions of a course", Icon: "🏆"},
	{ID: "level_senior", Title: "Senior!", Description: "Reached the Senior level (1000 XP)", Icon: "🚀"},
}

// ProgressSnapshot is the caller-assembled state achievements are judged
// against.
type ProgressSnapshot struct {
	AnsweredQuestions int
	CoursesCreated    int
	StreakDays        int
	PerfectSession    bool
	CourseCompleted   bool
	XP                int
}

// Unlocked returns the ids of every achievement the snapshot satisfies.
// Callers diff the result against already-stored ids.
func Unlocked(s ProgressSnapshot) []string {
	var ids []string
	if s.AnsweredQuestions >= 1 {
		ids = append(ids, "first_question")
	}
	if s.CoursesCreated >= 1 {
		ids = append(ids, "first_course")
	}
	if s.StreakDays >= 3 {
		ids = append(ids, "streak_3")
	}
	if s.StreakDays >= 7 {
		ids = append(ids, "streak_7")
	}
	if s.StreakDays >= 30 {
		ids = append(ids, "streak_30")
	}
	if s.PerfectSession {
		ids = append(ids, "perfect_session")
	}
	if s.CourseCompleted {
		ids = append(ids, "course_complete")
	}
	if s.XP >= 1000 {
		ids = append(ids, "level_senior")
	}
	return ids
}
