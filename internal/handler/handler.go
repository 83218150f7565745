// Package handler exposes the JSON API. Authentication is out of scope:
// callers arrive already identified via the X-User-ID header.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knowix/knowix/internal/ai"
	"github.com/knowix/knowix/internal/model"
	"github.com/knowix/knowix/internal/scoring"
	"github.com/knowix/knowix/internal/store"
)

const (
	defaultQuestionCount = 50
	maxQuestionCount     = 100
	dailySessionSize     = 5 // answers per day that complete a session
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	ai    *ai.Service
	chat  *ai.ChatCoordinator
}

// New creates a new Handler.
func New(s *store.Store, svc *ai.Service, chat *ai.ChatCoordinator) *Handler {
	return &Handler{store: s, ai: svc, chat: chat}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(api chi.Router) {
		api.Use(h.requireUser)
		api.Post("/courses", h.handleCreateCourse)
		api.Get("/courses", h.handleListCourses)
		api.Get("/courses/{courseID}", h.handleGetCourse)
		api.Post("/courses/{courseID}/questions/{questionID}/chat", h.handleChatTurn)
		api.Post("/courses/{courseID}/questions/{questionID}/evaluate", h.handleEvaluate)
		api.Post("/courses/{courseID}/questions/{questionID}/examples", h.handleExamples)
		api.Get("/profile", h.handleProfile)
		api.Put("/profile/keys", h.handleSetKeys)
	})
}

// requireUser extracts the caller identity set upstream.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithUserID(r.Context(), userID)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}

// writeAIError maps orchestration failures onto API error codes. The
// no-usable-credential condition gets its own code so clients can
// prompt for a key instead of showing a generic failure.
func writeAIError(w http.ResponseWriter, err error) {
	switch {
	case ai.IsNoAPIKey(err):
		writeError(w, http.StatusForbidden, "NO_API_KEY", "no usable API key — add one in settings")
	case errors.As(err, new(*ai.ExhaustionError)):
		writeError(w, http.StatusServiceUnavailable, "AI_UNAVAILABLE", "service unavailable, try again")
	case errors.Is(err, ai.ErrEmptyResult):
		writeError(w, http.StatusBadGateway, "AI_EMPTY", "AI returned nothing usable")
	case errors.As(err, new(*ai.ParseError)), errors.As(err, new(*ai.InvalidStatusError)):
		writeError(w, http.StatusBadGateway, "AI_INVALID", "AI returned an unusable response")
	default:
		writeError(w, http.StatusBadGateway, "AI_ERROR", "AI request failed")
	}
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Mode        model.Mode `json:"mode"`
		Count       int        `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "description is required")
		return
	}
	if req.Mode == "" {
		req.Mode = model.ModeTech
	}
	if !model.IsValidMode(req.Mode) {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}
	if req.Count <= 0 {
		req.Count = defaultQuestionCount
	}
	if req.Count > maxQuestionCount {
		req.Count = maxQuestionCount
	}
	if req.Title == "" {
		req.Title = req.Description
	}

	profile, err := h.store.EnsureProfile(userID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	decoded, modelUsed, err := h.ai.GenerateQuestions(r.Context(), req.Description, req.Mode, req.Count, profile.APIKeys)
	if err != nil {
		slog.Error("course generation failed", "user", userID, "error", err)
		writeAIError(w, err)
		return
	}

	now := time.Now()
	course := model.Course{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Mode:        req.Mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, q := range decoded {
		course.Questions = append(course.Questions, model.Question{
			ID:         fmt.Sprintf("q%03d", i+1),
			Text:       q.Text,
			Status:     model.StatusPending,
			Difficulty: q.Difficulty,
			XPBonus:    q.XPBonus,
			Order:      q.Order,
			CreatedAt:  now,
		})
	}

	if err := h.store.CreateCourse(course); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	h.refreshAchievements(userID)

	slog.Info("course created",
		"user", userID,
		"course", course.ID,
		"questions", len(course.Questions),
		"model", modelUsed,
	)
	writeJSON(w, http.StatusCreated, course)
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())
	courses, err := h.store.ListCourses(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

// loadOwnedCourse fetches a course and checks the caller owns it.
func (h *Handler) loadOwnedCourse(w http.ResponseWriter, r *http.Request) (model.Course, bool) {
	userID := model.UserIDFromContext(r.Context())
	course, err := h.store.GetCourse(chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "course not found")
		return model.Course{}, false
	}
	if course.UserID != userID {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "not your course")
		return model.Course{}, false
	}
	return course, true
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadOwnedCourse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handler) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())

	var req struct {
		Message       string `json:"message"`
		ForceEvaluate bool   `json:"forceEvaluate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "message is required")
		return
	}

	course, ok := h.loadOwnedCourse(w, r)
	if !ok {
		return
	}
	questionID := chi.URLParam(r, "questionID")
	question, err := h.store.GetQuestion(course.ID, questionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "question not found")
		return
	}

	profile, err := h.store.EnsureProfile(userID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	history, err := h.store.GetMessages(userID, course.ID, questionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	now := time.Now()
	userMsg := model.Message{
		ID:         uuid.NewString(),
		CourseID:   course.ID,
		QuestionID: questionID,
		UserID:     userID,
		Role:       model.RoleUser,
		Content:    req.Message,
		Score:      model.NoScore,
		CreatedAt:  now,
	}
	if err := h.store.AddMessage(userMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	history = append(history, userMsg)

	result, err := h.chat.SubmitTurn(r.Context(), question.Text, history, req.ForceEvaluate, course.Mode, profile.APIKeys)
	if err != nil {
		slog.Error("chat turn failed", "user", userID, "question", questionID, "error", err)
		writeAIError(w, err)
		return
	}

	turn := turnOutcome{Result: result, QuestionStatus: question.Status, Streak: profile.Streak}
	if result.Kind == model.TurnEvaluation && result.Score >= 0 {
		turn, err = h.applyScore(profile, course, question, result)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
	}

	assistantMsg := model.Message{
		ID:         uuid.NewString(),
		CourseID:   course.ID,
		QuestionID: questionID,
		UserID:     userID,
		Role:       model.RoleAssistant,
		Content:    result.Content,
		Score:      result.Score,
		XPEarned:   turn.XPEarned,
		CreatedAt:  time.Now(),
	}
	if err := h.store.AddMessage(assistantMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, turn)
}

// turnOutcome is the chat endpoint's response payload.
type turnOutcome struct {
	Result         model.ChatTurnResult `json:"result"`
	XPEarned       int                  `json:"xpEarned"`
	BonusXP        int                  `json:"bonusXP"`
	QuestionStatus model.QuestionStatus `json:"questionStatus"`
	Streak         model.UserStreak     `json:"streak"`
}

// applyScore converts a scored turn into XP, streak, question progress,
// and achievement updates. The question's stored score is a high-water
// mark: reporting a lower score never downgrades status or claws back XP.
func (h *Handler) applyScore(profile model.UserProfile, course model.Course, question model.Question, result model.ChatTurnResult) (turnOutcome, error) {
	userID := profile.UserID
	now := time.Now()

	streak := scoring.UpdateStreak(profile.Streak, now)
	if err := h.store.UpdateStreak(userID, streak); err != nil {
		return turnOutcome{}, err
	}

	xpEarned := scoring.DeltaXP(question.Score, result.Score, question.XPBonus, streak.Current)

	newScore := question.Score
	if result.Score > newScore {
		newScore = result.Score
	}
	status := model.QuestionStatus(scoring.StatusFromScore(newScore))

	if err := h.store.UpdateQuestionProgress(course.ID, question.ID, status, newScore, question.XPEarned+xpEarned); err != nil {
		return turnOutcome{}, err
	}

	totalXP := profile.XP
	if xpEarned > 0 {
		totalXP += xpEarned
		if err := h.store.AddXP(userID, xpEarned, scoring.LevelForXP(totalXP).Level); err != nil {
			return turnOutcome{}, err
		}
		if _, err := h.store.AddXPEvent(model.XPEvent{
			UserID: userID, Type: model.XPEventAnswer, Amount: xpEarned,
			QuestionID: question.ID, CourseID: course.ID, CreatedAt: now,
		}); err != nil {
			return turnOutcome{}, err
		}
	}

	bonus, err := h.applyBonuses(userID, course, now, totalXP)
	if err != nil {
		return turnOutcome{}, err
	}

	h.refreshAchievements(userID)

	return turnOutcome{
		Result:         result,
		XPEarned:       xpEarned,
		BonusXP:        bonus,
		QuestionStatus: status,
		Streak:         streak,
	}, nil
}

// applyBonuses awards the daily-session and course-completion bonuses
// when this answer crossed their thresholds.
func (h *Handler) applyBonuses(userID string, course model.Course, now time.Time, totalXP int) (int, error) {
	bonus := 0

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	answersToday, err := h.store.CountAnswerEventsSince(userID, dayStart)
	if err != nil {
		return 0, err
	}
	if answersToday == dailySessionSize {
		bonus += scoring.DailyBonusXP
		if _, err := h.store.AddXPEvent(model.XPEvent{
			UserID: userID, Type: model.XPEventDailyBonus, Amount: scoring.DailyBonusXP, CreatedAt: now,
		}); err != nil {
			return 0, err
		}
	}

	if course.CompletedAt == nil {
		pending, err := h.store.CountPendingQuestions(course.ID)
		if err != nil {
			return 0, err
		}
		if pending == 0 {
			if err := h.store.MarkCourseCompleted(course.ID, now); err != nil {
				return 0, err
			}
			bonus += scoring.CourseCompleteXP
			if _, err := h.store.AddXPEvent(model.XPEvent{
				UserID: userID, Type: model.XPEventCourseComplete, Amount: scoring.CourseCompleteXP,
				CourseID: course.ID, CreatedAt: now,
			}); err != nil {
				return 0, err
			}
		}
	}

	if bonus > 0 {
		if err := h.store.AddXP(userID, bonus, scoring.LevelForXP(totalXP+bonus).Level); err != nil {
			return 0, err
		}
	}
	return bonus, nil
}

// refreshAchievements recomputes and stores any newly earned badges.
// Failures are logged, not surfaced: badges must never break a turn.
func (h *Handler) refreshAchievements(userID string) {
	profile, err := h.store.GetProfile(userID)
	if err != nil || profile == nil {
		slog.Error("load profile for achievements", "user", userID, "error", err)
		return
	}
	answered, err := h.store.CountAnsweredQuestions(userID)
	if err != nil {
		slog.Error("count answered questions", "user", userID, "error", err)
		return
	}
	courses, err := h.store.CountCoursesByUser(userID)
	if err != nil {
		slog.Error("count courses", "user", userID, "error", err)
		return
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	answersToday, err := h.store.CountAnswerEventsSince(userID, dayStart)
	if err != nil {
		slog.Error("count answers today", "user", userID, "error", err)
		return
	}

	completedCourse := false
	all, err := h.store.ListCourses(userID)
	if err != nil {
		slog.Error("list courses for achievements", "user", userID, "error", err)
		return
	}
	for _, c := range all {
		if c.CompletedAt != nil {
			completedCourse = true
			break
		}
	}

	unlocked := scoring.Unlocked(scoring.ProgressSnapshot{
		AnsweredQuestions: answered,
		CoursesCreated:    courses,
		StreakDays:        profile.Streak.Current,
		PerfectSession:    answersToday >= dailySessionSize,
		CourseCompleted:   completedCourse,
		XP:                profile.XP,
	})

	held := make(map[string]bool, len(profile.Achievements))
	for _, id := range profile.Achievements {
		held[id] = true
	}
	var fresh []string
	for _, id := range unlocked {
		if !held[id] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := h.store.UnlockAchievements(userID, fresh, now); err != nil {
		slog.Error("unlock achievements", "user", userID, "error", err)
	}
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())

	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Answer == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "answer is required")
		return
	}

	course, ok := h.loadOwnedCourse(w, r)
	if !ok {
		return
	}
	question, err := h.store.GetQuestion(course.ID, chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "question not found")
		return
	}

	profile, err := h.store.EnsureProfile(userID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	eval, err := h.ai.EvaluateAnswer(r.Context(), question.Text, req.Answer, course.Mode, profile.APIKeys)
	if err != nil {
		slog.Error("evaluation failed", "user", userID, "question", question.ID, "error", err)
		writeAIError(w, err)
		return
	}

	turn, err := h.applyScore(profile, course, question, model.ChatTurnResult{
		Kind:       model.TurnEvaluation,
		Content:    eval.Feedback,
		Evaluation: &eval,
		Score:      eval.Score,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleExamples(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())

	course, ok := h.loadOwnedCourse(w, r)
	if !ok {
		return
	}
	question, err := h.store.GetQuestion(course.ID, chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "question not found")
		return
	}

	profile, err := h.store.EnsureProfile(userID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	examples, modelUsed, err := h.ai.GenerateExamples(r.Context(), question.Text, course.Mode, profile.APIKeys)
	if err != nil {
		slog.Error("example generation failed", "user", userID, "question", question.ID, "error", err)
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"examples": examples, "modelUsed": modelUsed})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())
	profile, err := h.store.EnsureProfile(userID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile":    profile,
		"level":      scoring.LevelForXP(profile.XP),
		"progress":   scoring.Progress(profile.XP),
		"multiplier": scoring.StreakMultiplier(profile.Streak.Current),
		"hasKeys":    len(profile.APIKeys) > 0,
	})
}

func (h *Handler) handleSetKeys(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())

	var req struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	if _, err := h.store.EnsureProfile(userID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if err := h.store.SetAPIKeys(userID, req.Keys); err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": len(req.Keys)})
}
