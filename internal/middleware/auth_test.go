package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/tangobook/internal/model"
)

// --- モック ---

type mockAuthenticator struct {
	authenticateTokenFn   func(ctx context.Context, token string) (*model.User, error)
	authenticateSessionFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthenticator) AuthenticateToken(ctx context.Context, token string) (*model.User, error) {
	return m.authenticateTokenFn(ctx, token)
}
func (m *mockAuthenticator) AuthenticateSession(ctx context.Context, sessionID string) (*model.User, error) {
	return m.authenticateSessionFn(ctx, sessionID)
}

type mockAuthMetrics struct {
	successes int
	failures  []string
}

func (m *mockAuthMetrics) RecordAuthSuccess()              { m.successes++ }
func (m *mockAuthMetrics) RecordAuthFailure(reason string) { m.failures = append(m.failures, reason) }

func okHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := UserFromContext(r.Context())
		if err != nil {
			t.Errorf("UserFromContext returned error: %v", err)
		}
		if user.ID != wantUserID {
			t.Errorf("user ID = %q, want %q", user.ID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

// --- テスト ---

// TestAuthMiddleware_BearerToken はBearerトークン認証を検証する。
func TestAuthMiddleware_BearerToken(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateTokenFn: func(ctx context.Context, token string) (*model.User, error) {
			if token != "valid-token" {
				return nil, model.NewTokenInvalidError()
			}
			return &model.User{ID: "user-1", IsActive: true}, nil
		},
	}
	metrics := &mockAuthMetrics{}
	mw := NewAuthMiddleware(authenticator, metrics)

	req := httptest.NewRequest(http.MethodGet, "/api/flashcard/levels", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	mw(okHandler(t, "user-1")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if metrics.successes != 1 {
		t.Errorf("successes = %d, want 1", metrics.successes)
	}
}

// TestAuthMiddleware_SessionCookie はセッションCookieへのフォールバックを検証する。
func TestAuthMiddleware_SessionCookie(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateSessionFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "sess-1" {
				return nil, model.NewUnauthorizedError()
			}
			return &model.User{ID: "user-2", IsActive: true}, nil
		},
	}
	mw := NewAuthMiddleware(authenticator, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()

	mw(okHandler(t, "user-2")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestAuthMiddleware_Unauthorized は認証失敗時の401応答を検証する。
func TestAuthMiddleware_Unauthorized(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateTokenFn: func(ctx context.Context, token string) (*model.User, error) {
			return nil, model.NewTokenExpiredError()
		},
		authenticateSessionFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, model.NewUnauthorizedError()
		},
	}
	metrics := &mockAuthMetrics{}
	mw := NewAuthMiddleware(authenticator, metrics)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})

	tests := []struct {
		name    string
		prepare func(req *http.Request)
	}{
		{"認証情報なし", func(req *http.Request) {}},
		{"不正なヘッダー形式", func(req *http.Request) {
			req.Header.Set("Authorization", "Basic abc")
		}},
		{"期限切れトークン", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer expired")
		}},
		{"無効なセッション", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-x"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/flashcard/levels", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			mw(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
		})
	}
	if len(metrics.failures) != len(tests) {
		t.Errorf("failures = %d, want %d", len(metrics.failures), len(tests))
	}
}

// TestUserFromContext_Missing は未認証コンテキストでのエラーを検証する。
func TestUserFromContext_Missing(t *testing.T) {
	if _, err := UserFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user")
	}
}
