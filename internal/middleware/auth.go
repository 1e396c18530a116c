// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/tangobook/internal/model"
)

// SessionCookieName はブラウザセッションのCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// Authenticator はBearerトークンまたはセッションIDからユーザーを解決する。
// auth.Serviceの部分集合として定義する。
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*model.User, error)
	AuthenticateSession(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthMetrics は認証結果のメトリクス記録先。
type AuthMetrics interface {
	RecordAuthSuccess()
	RecordAuthFailure(reason string)
}

// NewAuthMiddleware は認証ミドルウェアを返す。
// Authorization: Bearerヘッダーを優先して検証し、なければ
// セッションCookieにフォールバックする。どちらも通らなければ401。
// 認証済みユーザーをリクエストコンテキストに注入する。
func NewAuthMiddleware(authenticator Authenticator, metrics AuthMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, apiErr := resolveUser(r, authenticator)
			if apiErr != nil {
				if metrics != nil {
					metrics.RecordAuthFailure(strings.ToLower(apiErr.Code))
				}
				status := http.StatusUnauthorized
				WriteErrorResponse(w, status, apiErr)
				return
			}
			if metrics != nil {
				metrics.RecordAuthSuccess()
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveUser はリクエストの認証情報からユーザーを解決する。
func resolveUser(r *http.Request, authenticator Authenticator) (*model.User, *model.APIError) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return nil, model.NewTokenInvalidError()
		}
		user, err := authenticator.AuthenticateToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			return nil, toAuthError(err)
		}
		return user, nil
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, model.NewUnauthorizedError()
	}
	user, err := authenticator.AuthenticateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, toAuthError(err)
	}
	return user, nil
}

// toAuthError は認証エラーをAPIエラーに変換する。
// 想定外のエラーは詳細をログに残し、クライアントには401だけを返す。
func toAuthError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	slog.Error("authentication failed", slog.String("error", err.Error()))
	return model.NewUnauthorizedError()
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
