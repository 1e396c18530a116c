// Package auth は外部IDプロバイダーとのトークン認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// Bearerトークンの検証・ローカルユーザーへの解決と、
// ブラウザ向けCookieセッションの発行・破棄を担う。
type Service struct {
	verifier    TokenVerifier
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	verifier TokenVerifier,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		verifier:    verifier,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// AuthenticateToken はBearerトークンを検証し、ローカルユーザーに解決する。
// 解決順序: subject一致（email追随更新）→ email一致（subject紐付け）→ 新規作成。
// 新規作成時の表示名はemailのローカル部をプレースホルダーとして使用する。
// 検証・永続化のいずれが失敗してもfail closed（認証失敗）となる。
func (s *Service) AuthenticateToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.verifier.Verify(ctx, tokenString)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			slog.Warn("token expired")
			return nil, model.NewTokenExpiredError()
		case errors.Is(err, ErrMissingClaims):
			slog.Warn("token missing required claims")
			return nil, model.NewTokenInvalidError()
		default:
			slog.Warn("token verification failed", slog.String("error", err.Error()))
			return nil, model.NewTokenInvalidError()
		}
	}

	// 仮の表示名（後でプロフィール更新で完成させる）
	placeholder := claims.Email
	if at := strings.Index(claims.Email, "@"); at > 0 {
		placeholder = claims.Email[:at]
	}

	user, err := s.userRepo.ResolveExternal(ctx, claims.SubjectID, claims.Email, placeholder)
	if err != nil {
		// ユーザーストア書き込み失敗もfail closed。詳細はログのみに残す。
		slog.Error("failed to resolve external identity",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUnauthorizedError()
	}

	if !user.IsActive {
		slog.Warn("inactive user attempted login", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// AuthenticateSession はセッションIDからユーザーを解決する。
// 期限切れ・存在しないセッションや無効化されたユーザーは認証失敗。
func (s *Service) AuthenticateSession(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		slog.Error("failed to find session", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError()
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		slog.Error("failed to find session user", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError()
	}
	if user == nil || !user.IsActive {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// CreateSession は認証済みユーザーのセッションを発行し永続化する。
func (s *Service) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetUser は指定IDのユーザーを取得する。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
