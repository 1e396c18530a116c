package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/tangobook/internal/middleware"
	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/user"
)

type mockAccountService struct {
	profileFn       func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID, displayName string) (*model.User, error)
	detailFn        func(ctx context.Context, userID string) (*user.Detail, error)
	withdrawFn      func(ctx context.Context, userID string) error
}

func (m *mockAccountService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return m.profileFn(ctx, userID)
}
func (m *mockAccountService) UpdateProfile(ctx context.Context, userID, displayName string) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, displayName)
}
func (m *mockAccountService) Detail(ctx context.Context, userID string) (*user.Detail, error) {
	return m.detailFn(ctx, userID)
}
func (m *mockAccountService) Withdraw(ctx context.Context, userID string) error {
	return m.withdrawFn(ctx, userID)
}

// TestAccountHandler_UpdateProfile は表示名更新を検証する。
func TestAccountHandler_UpdateProfile(t *testing.T) {
	svc := &mockAccountService{
		updateProfileFn: func(ctx context.Context, userID, displayName string) (*model.User, error) {
			if displayName != "田中太郎" {
				t.Errorf("displayName = %q, want 田中太郎", displayName)
			}
			return &model.User{ID: userID, Email: "tanaka@example.com", DisplayName: displayName}, nil
		},
	}
	h := NewAccountHandler(svc, AuthHandlerConfig{})

	req := newAuthedRequest(http.MethodPatch, "/api/accounts/profile", `{"display_name": "田中太郎"}`)
	rec := httptest.NewRecorder()

	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.DisplayName != "田中太郎" {
		t.Errorf("display_name = %q", resp.DisplayName)
	}
}

// TestAccountHandler_UpdateProfile_Invalid は不正な表示名の400を検証する。
func TestAccountHandler_UpdateProfile_Invalid(t *testing.T) {
	svc := &mockAccountService{
		updateProfileFn: func(ctx context.Context, userID, displayName string) (*model.User, error) {
			return nil, model.NewInvalidRequestError("表示名は必須です")
		},
	}
	h := NewAccountHandler(svc, AuthHandlerConfig{})

	req := newAuthedRequest(http.MethodPatch, "/api/accounts/profile", `{"display_name": ""}`)
	rec := httptest.NewRecorder()

	h.UpdateProfile(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestAccountHandler_Detail は習熟状況付き詳細の取得を検証する。
func TestAccountHandler_Detail(t *testing.T) {
	svc := &mockAccountService{
		detailFn: func(ctx context.Context, userID string) (*user.Detail, error) {
			return &user.Detail{
				User: &model.User{ID: userID, Email: "tanaka@example.com"},
				Mastery: []user.LevelMastery{
					{
						LevelID: 1, LevelName: "TOEIC 500", WordCount: 10,
						En: user.ModeMastery{Attempted: 5, Correct: 2, CorrectRate: 40.0},
					},
				},
			}, nil
		},
	}
	h := NewAccountHandler(svc, AuthHandlerConfig{})

	req := newAuthedRequest(http.MethodGet, "/api/accounts/detail", "")
	rec := httptest.NewRecorder()

	h.Detail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User    userResponse           `json:"user"`
		Mastery []levelMasteryResponse `json:"mastery"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Mastery) != 1 || resp.Mastery[0].En.CorrectRate != 40.0 {
		t.Errorf("mastery = %+v", resp.Mastery)
	}
}

// TestAccountHandler_Withdraw は退会処理とCookie失効を検証する。
func TestAccountHandler_Withdraw(t *testing.T) {
	var withdrawn string
	svc := &mockAccountService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawn = userID
			return nil
		},
	}
	h := NewAccountHandler(svc, AuthHandlerConfig{})

	req := newAuthedRequest(http.MethodDelete, "/api/accounts/withdraw", "")
	rec := httptest.NewRecorder()

	h.Withdraw(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if withdrawn != "user-1" {
		t.Errorf("withdrawn = %q, want user-1", withdrawn)
	}
	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge == -1 {
			expired = true
		}
	}
	if !expired {
		t.Error("session cookie should be expired")
	}
}
