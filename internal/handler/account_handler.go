package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tangobook/internal/middleware"
	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/user"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID, displayName string) (*model.User, error)
	Detail(ctx context.Context, userID string) (*user.Detail, error)
	Withdraw(ctx context.Context, userID string) error
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
	config  AuthHandlerConfig
}

// NewAccountHandler はAccountHandlerを生成する。
// Cookie失効のためにAuthHandlerConfigを共有する。
func NewAccountHandler(service AccountServiceInterface, config AuthHandlerConfig) *AccountHandler {
	return &AccountHandler{service: service, config: config}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// Profile はプロフィールを返す。
// GET /api/accounts/profile
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	authed, ok := requireUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.Profile(r.Context(), authed.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateProfile は表示名を更新する。
// PATCH /api/accounts/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	authed, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), authed.ID, req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// modeMasteryResponse は1モード分の習熟状況のAPIレスポンス。
type modeMasteryResponse struct {
	Attempted   int     `json:"attempted"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correct_rate"`
}

// levelMasteryResponse はレベルごとの習熟状況のAPIレスポンス。
type levelMasteryResponse struct {
	LevelID   int64               `json:"level_id"`
	LevelName string              `json:"level_name"`
	WordCount int                 `json:"word_count"`
	En        modeMasteryResponse `json:"en"`
	Jp        modeMasteryResponse `json:"jp"`
}

// Detail はプロフィールと学習概況を返す。
// GET /api/accounts/detail
func (h *AccountHandler) Detail(w http.ResponseWriter, r *http.Request) {
	authed, ok := requireUser(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Detail(r.Context(), authed.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	mastery := make([]levelMasteryResponse, 0, len(detail.Mastery))
	for _, lm := range detail.Mastery {
		mastery = append(mastery, levelMasteryResponse{
			LevelID:   lm.LevelID,
			LevelName: lm.LevelName,
			WordCount: lm.WordCount,
			En:        modeMasteryResponse(lm.En),
			Jp:        modeMasteryResponse(lm.Jp),
		})
	}
	writeJSON(w, http.StatusOK, struct {
		User    userResponse           `json:"user"`
		Mastery []levelMasteryResponse `json:"mastery"`
	}{toUserResponse(detail.User), mastery})
}

// Withdraw は退会処理を行い、セッションCookieを失効させる。
// DELETE /api/accounts/withdraw
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	authed, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), authed.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
