package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tangobook/internal/middleware"
	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/quiz"
	"github.com/hitoshi/tangobook/internal/repository"
)

// QuizServiceInterface はフラッシュカードハンドラーが必要とするサービスインターフェース。
type QuizServiceInterface interface {
	Start(ctx context.Context, userID string, levelID int64, mode model.Mode, quizMode model.QuizMode) (*quiz.StartResult, error)
	SubmitAnswer(ctx context.Context, userID, progressID, answer string) (*quiz.AnswerResult, error)
	Pause(ctx context.Context, userID, progressID string) (*model.QuizProgress, error)
	Resume(ctx context.Context, userID, progressID string) (*quiz.StartResult, error)
	Delete(ctx context.Context, userID, progressID string) error
	ListProgress(ctx context.Context, userID string, filter repository.ProgressFilter) ([]*model.QuizProgress, error)
	GetProgress(ctx context.Context, userID, progressID string) (*model.QuizProgress, error)
	Statistics(ctx context.Context, userID string) (*quiz.Statistics, error)
	IncorrectWords(ctx context.Context, userID string, filter repository.IncorrectFilter) ([]model.IncorrectWord, error)

	StartReview(ctx context.Context, userID string, mode model.Mode) (*quiz.ReviewStartResult, error)
	SubmitReviewAnswer(ctx context.Context, userID, progressID, answer string) (*quiz.AnswerResult, error)
	PauseReview(ctx context.Context, userID, progressID string) (*model.ReviewProgress, error)
	ResumeReview(ctx context.Context, userID, progressID string) (*quiz.ReviewStartResult, error)
	DeleteReview(ctx context.Context, userID, progressID string) error
	ListReviews(ctx context.Context, userID string, filter repository.ProgressFilter) ([]*model.ReviewProgress, error)
	GetReview(ctx context.Context, userID, progressID string) (*model.ReviewProgress, error)
}

// FlashcardHandler はクイズ・復習セッションのHTTPハンドラー。
type FlashcardHandler struct {
	service QuizServiceInterface
}

// NewFlashcardHandler はFlashcardHandlerを生成する。
func NewFlashcardHandler(service QuizServiceInterface) *FlashcardHandler {
	return &FlashcardHandler{service: service}
}

// --- リクエスト ---

type startQuizRequest struct {
	LevelID  int64  `json:"level_id"`
	Mode     string `json:"mode"`
	QuizMode string `json:"quiz_mode"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type startReviewRequest struct {
	Mode string `json:"mode"`
}

// --- レスポンス ---

type questionResponse struct {
	WordID int64  `json:"id"`
	Prompt string `json:"question"`
	Number int    `json:"question_number"`
	Total  int    `json:"total_questions"`
}

func toQuestionResponse(q quiz.Question) questionResponse {
	return questionResponse{WordID: q.WordID, Prompt: q.Prompt, Number: q.Number, Total: q.Total}
}

type progressResponse struct {
	ID                   string     `json:"id"`
	LevelID              int64      `json:"level_id"`
	LevelName            string     `json:"level_name"`
	Mode                 string     `json:"mode"`
	QuizMode             string     `json:"quiz_mode"`
	Score                int        `json:"score"`
	TotalQuestions       int        `json:"total_questions"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	IsCompleted          bool       `json:"is_completed"`
	IsPaused             bool       `json:"is_paused"`
	CorrectRate          float64    `json:"correct_rate"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

func toProgressResponse(p *model.QuizProgress) progressResponse {
	resp := progressResponse{
		ID:                   p.ID,
		LevelID:              p.LevelID,
		LevelName:            p.LevelName,
		Mode:                 string(p.Mode),
		QuizMode:             string(p.QuizMode),
		Score:                p.Score,
		TotalQuestions:       p.TotalQuestions,
		CurrentQuestionIndex: p.CurrentQuestionIndex,
		IsCompleted:          p.IsCompleted,
		IsPaused:             p.IsPaused,
		CorrectRate:          quiz.Rate(p.Score, p.CurrentQuestionIndex),
	}
	if p.IsCompleted {
		t := p.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

type reviewProgressResponse struct {
	ID                   string    `json:"id"`
	Mode                 string    `json:"mode"`
	Score                int       `json:"score"`
	TotalQuestions       int       `json:"total_questions"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	IsCompleted          bool      `json:"is_completed"`
	IsPaused             bool      `json:"is_paused"`
	CorrectRate          float64   `json:"correct_rate"`
	CreatedAt            time.Time `json:"created_at"`
}

func toReviewProgressResponse(p *model.ReviewProgress) reviewProgressResponse {
	return reviewProgressResponse{
		ID:                   p.ID,
		Mode:                 string(p.Mode),
		Score:                p.Score,
		TotalQuestions:       p.TotalQuestions,
		CurrentQuestionIndex: p.CurrentQuestionIndex,
		IsCompleted:          p.IsCompleted,
		IsPaused:             p.IsPaused,
		CorrectRate:          quiz.Rate(p.Score, p.CurrentQuestionIndex),
		CreatedAt:            p.CreatedAt,
	}
}

type answerResponse struct {
	IsCorrect            bool              `json:"is_correct"`
	CorrectAnswer        string            `json:"correct_answer"`
	Score                int               `json:"score"`
	TotalQuestions       int               `json:"total_questions"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	IsCompleted          bool              `json:"is_completed"`
	CorrectRate          *float64          `json:"correct_rate,omitempty"`
	Next                 *questionResponse `json:"next_question,omitempty"`
}

func toAnswerResponse(result *quiz.AnswerResult) answerResponse {
	resp := answerResponse{
		IsCorrect:            result.IsCorrect,
		CorrectAnswer:        result.CorrectAnswer,
		Score:                result.Score,
		TotalQuestions:       result.Total,
		CurrentQuestionIndex: result.Index,
		IsCompleted:          result.IsCompleted,
	}
	if result.IsCompleted {
		rate := result.CorrectRate
		resp.CorrectRate = &rate
	}
	if result.Next != nil {
		q := toQuestionResponse(*result.Next)
		resp.Next = &q
	}
	return resp
}

// --- クイズセッション ---

// StartQuiz は新しいクイズセッションを開始する。
// POST /api/flashcard/quiz/start
func (h *FlashcardHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.service.Start(r.Context(), user.ID, req.LevelID, model.Mode(req.Mode), model.QuizMode(req.QuizMode))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Progress progressResponse `json:"progress"`
		Question questionResponse `json:"current_question"`
	}{toProgressResponse(result.Progress), toQuestionResponse(result.Current)})
}

// SubmitAnswer は現在の問題への回答を処理する。
// POST /api/flashcard/quiz/{id}/answer
func (h *FlashcardHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.service.SubmitAnswer(r.Context(), user.ID, chi.URLParam(r, "id"), req.Answer)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerResponse(result))
}

// PauseQuiz はセッションを中断する。
// POST /api/flashcard/quiz/{id}/pause
func (h *FlashcardHandler) PauseQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.Pause(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(p))
}

// ResumeQuiz は中断中のセッションを再開する。
// POST /api/flashcard/quiz/{id}/resume
func (h *FlashcardHandler) ResumeQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.Resume(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Progress progressResponse `json:"progress"`
		Question questionResponse `json:"current_question"`
	}{toProgressResponse(result.Progress), toQuestionResponse(result.Current)})
}

// DeleteQuiz はセッションを削除する。
// DELETE /api/flashcard/quiz/{id}
func (h *FlashcardHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListQuiz はセッション一覧を返す。
// GET /api/flashcard/quiz?is_completed=&is_paused=
func (h *FlashcardHandler) ListQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter, apiErr := parseProgressFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	list, err := h.service.ListProgress(r.Context(), user.ID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]progressResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, toProgressResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetQuiz はセッション詳細を返す。
// GET /api/flashcard/quiz/{id}
func (h *FlashcardHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProgress(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(p))
}

// --- 統計・間違えた単語 ---

// Statistics は学習統計を返す。
// GET /api/flashcard/statistics
func (h *FlashcardHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsResponse(stats))
}

type levelSummaryResponse struct {
	LevelID     int64   `json:"level_id"`
	LevelName   string  `json:"level_name"`
	Total       int     `json:"total"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
}

type modeSummaryResponse struct {
	Mode        string  `json:"mode"`
	Label       string  `json:"label"`
	Total       int     `json:"total"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
}

type recentSessionResponse struct {
	ID          string    `json:"id"`
	LevelName   string    `json:"level_name"`
	ModeLabel   string    `json:"mode_label"`
	QuizMode    string    `json:"quiz_mode"`
	Score       int       `json:"score"`
	Total       int       `json:"total_questions"`
	CorrectRate float64   `json:"correct_rate"`
	CompletedAt time.Time `json:"completed_at"`
}

type statisticsResponse struct {
	TotalAttempted int                     `json:"total_attempted"`
	TotalCorrect   int                     `json:"total_correct"`
	TotalIncorrect int                     `json:"total_incorrect"`
	CorrectRate    float64                 `json:"correct_rate"`
	ByLevel        []levelSummaryResponse  `json:"by_level"`
	ByMode         []modeSummaryResponse   `json:"by_mode"`
	Recent         []recentSessionResponse `json:"recent_sessions"`
}

func toStatisticsResponse(stats *quiz.Statistics) statisticsResponse {
	resp := statisticsResponse{
		TotalAttempted: stats.TotalAttempted,
		TotalCorrect:   stats.TotalCorrect,
		TotalIncorrect: stats.TotalIncorrect,
		CorrectRate:    stats.CorrectRate,
		ByLevel:        make([]levelSummaryResponse, 0, len(stats.ByLevel)),
		ByMode:         make([]modeSummaryResponse, 0, len(stats.ByMode)),
		Recent:         make([]recentSessionResponse, 0, len(stats.Recent)),
	}
	for _, lv := range stats.ByLevel {
		resp.ByLevel = append(resp.ByLevel, levelSummaryResponse{
			LevelID:     lv.LevelID,
			LevelName:   lv.LevelName,
			Total:       lv.Total,
			Correct:     lv.Correct,
			CorrectRate: lv.CorrectRate,
		})
	}
	for _, md := range stats.ByMode {
		resp.ByMode = append(resp.ByMode, modeSummaryResponse{
			Mode:        string(md.Mode),
			Label:       md.Label,
			Total:       md.Total,
			Correct:     md.Correct,
			CorrectRate: md.CorrectRate,
		})
	}
	for _, rs := range stats.Recent {
		resp.Recent = append(resp.Recent, recentSessionResponse{
			ID:          rs.ID,
			LevelName:   rs.LevelName,
			ModeLabel:   rs.ModeLabel,
			QuizMode:    string(rs.QuizMode),
			Score:       rs.Score,
			Total:       rs.Total,
			CorrectRate: rs.CorrectRate,
			CompletedAt: rs.CompletedAt,
		})
	}
	return resp
}

type incorrectWordResponse struct {
	WordID          int64     `json:"word_id"`
	English         string    `json:"english"`
	Japanese        string    `json:"japanese"`
	PartOfSpeech    string    `json:"part_of_speech"`
	LevelName       string    `json:"level_name"`
	Phrase          string    `json:"phrase,omitempty"`
	Mode            string    `json:"mode"`
	LastAttemptedAt time.Time `json:"last_attempted_at"`
}

// IncorrectWords は間違えた単語の一覧を返す。
// GET /api/flashcard/incorrect-words?mode=&level_id=
func (h *FlashcardHandler) IncorrectWords(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter := repository.IncorrectFilter{Mode: model.Mode(r.URL.Query().Get("mode"))}
	if raw := r.URL.Query().Get("level_id"); raw != "" {
		levelID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("level_idは整数で指定してください"))
			return
		}
		filter.LevelID = levelID
	}

	list, err := h.service.IncorrectWords(r.Context(), user.ID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]incorrectWordResponse, 0, len(list))
	for _, iw := range list {
		resp = append(resp, incorrectWordResponse{
			WordID:          iw.Word.ID,
			English:         iw.Word.English,
			Japanese:        iw.Word.Japanese,
			PartOfSpeech:    iw.Word.PartOfSpeechName,
			LevelName:       iw.Word.LevelName,
			Phrase:          iw.Word.Phrase,
			Mode:            string(iw.Mode),
			LastAttemptedAt: iw.LastAttemptedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- 復習セッション ---

// StartReview は復習セッションを開始する。
// POST /api/flashcard/review/start
func (h *FlashcardHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req startReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.service.StartReview(r.Context(), user.ID, model.Mode(req.Mode))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Progress reviewProgressResponse `json:"progress"`
		Question questionResponse       `json:"current_question"`
	}{toReviewProgressResponse(result.Progress), toQuestionResponse(result.Current)})
}

// SubmitReviewAnswer は復習セッションの回答を処理する。
// POST /api/flashcard/review/{id}/answer
func (h *FlashcardHandler) SubmitReviewAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.service.SubmitReviewAnswer(r.Context(), user.ID, chi.URLParam(r, "id"), req.Answer)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerResponse(result))
}

// PauseReview は復習セッションを中断する。
// POST /api/flashcard/review/{id}/pause
func (h *FlashcardHandler) PauseReview(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.PauseReview(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewProgressResponse(p))
}

// ResumeReview は中断中の復習セッションを再開する。
// POST /api/flashcard/review/{id}/resume
func (h *FlashcardHandler) ResumeReview(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.ResumeReview(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Progress reviewProgressResponse `json:"progress"`
		Question questionResponse       `json:"current_question"`
	}{toReviewProgressResponse(result.Progress), toQuestionResponse(result.Current)})
}

// DeleteReview は復習セッションを削除する。
// DELETE /api/flashcard/review/{id}
func (h *FlashcardHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListReviews は復習セッション一覧を返す。
// GET /api/flashcard/review?is_completed=&is_paused=
func (h *FlashcardHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter, apiErr := parseProgressFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	list, err := h.service.ListReviews(r.Context(), user.ID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]reviewProgressResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, toReviewProgressResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReview は復習セッション詳細を返す。
// GET /api/flashcard/review/{id}
func (h *FlashcardHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetReview(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewProgressResponse(p))
}

// --- 共通ヘルパー ---

// requireUser はコンテキストから認証済みユーザーを取得する。
// 取得できない場合は401を書き込んでfalseを返す。
func requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}
	return user, true
}

// parseProgressFilter はis_completed/is_pausedクエリパラメータを解析する。
func parseProgressFilter(r *http.Request) (repository.ProgressFilter, *model.APIError) {
	var filter repository.ProgressFilter
	for name, dst := range map[string]**bool{
		"is_completed": &filter.IsCompleted,
		"is_paused":    &filter.IsPaused,
	} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, model.NewInvalidRequestError(name + "はtrueまたはfalseを指定してください")
		}
		*dst = &value
	}
	return filter, nil
}
