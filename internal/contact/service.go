// Package contact はお問い合わせフォームの受付と管理者通知を提供する。
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
	"github.com/hitoshi/tangobook/internal/security"
)

const (
	subjectMaxLength = 100
	bodyMaxLength    = 2000
)

// Service はお問い合わせの受付ロジックを提供する。
type Service struct {
	inquiryRepo repository.InquiryRepository
	sanitizer   *security.Sanitizer
	mailer      Mailer
	adminEmail  string
}

// NewService はServiceを生成する。mailerがnilの場合は通知を送らない。
func NewService(inquiryRepo repository.InquiryRepository, sanitizer *security.Sanitizer, mailer Mailer, adminEmail string) *Service {
	return &Service{
		inquiryRepo: inquiryRepo,
		sanitizer:   sanitizer,
		mailer:      mailer,
		adminEmail:  adminEmail,
	}
}

// Submit はお問い合わせを受け付ける。件名・本文はHTMLタグを除去して
// 保存し、管理者への通知メールと本人への受付確認メールを送る。
// 送信の失敗は受付の成否に影響させず、ログに残すだけにする。
func (s *Service) Submit(ctx context.Context, user *model.User, subject, body string) (*model.Inquiry, error) {
	subject = s.sanitizer.Clean(subject)
	body = s.sanitizer.Clean(body)
	if subject == "" {
		return nil, model.NewInvalidRequestError("件名を入力してください")
	}
	if utf8.RuneCountInString(subject) > subjectMaxLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("件名は%d文字以内で入力してください", subjectMaxLength))
	}
	if body == "" {
		return nil, model.NewInvalidRequestError("お問い合わせ内容を入力してください")
	}
	if utf8.RuneCountInString(body) > bodyMaxLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("お問い合わせ内容は%d文字以内で入力してください", bodyMaxLength))
	}

	inquiry := &model.Inquiry{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Subject:   subject,
		Context:   body,
		CreatedAt: time.Now(),
	}
	if err := s.inquiryRepo.Create(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}

	s.notify(user, inquiry)
	return inquiry, nil
}

// List はユーザー自身のお問い合わせ履歴を新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Inquiry, error) {
	list, err := s.inquiryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	return list, nil
}

func (s *Service) notify(user *model.User, inquiry *model.Inquiry) {
	if s.mailer == nil {
		return
	}

	if s.adminEmail != "" {
		body := fmt.Sprintf(
			"ユーザー: %s (%s)\n件名: %s\n\n%s\n",
			user.DisplayName, user.Email, inquiry.Subject, inquiry.Context,
		)
		if err := s.mailer.Send(s.adminEmail, "【お問い合わせ】"+inquiry.Subject, body); err != nil {
			slog.Error("failed to send inquiry notification",
				slog.String("inquiry_id", inquiry.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// 本人への受付確認（自動返信）
	reply := fmt.Sprintf(
		"%s様\n\nお問い合わせを受け付けました。内容を確認のうえ、担当者よりご連絡いたします。\n\n件名: %s\n\n%s\n",
		user.DisplayName, inquiry.Subject, inquiry.Context,
	)
	if err := s.mailer.Send(user.Email, "【受付完了】"+inquiry.Subject, reply); err != nil {
		slog.Error("failed to send inquiry auto-reply",
			slog.String("inquiry_id", inquiry.ID),
			slog.String("error", err.Error()),
		)
	}
}
