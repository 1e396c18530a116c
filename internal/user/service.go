// Package user はアカウントのプロフィール・学習概況・退会を提供する。
package user

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/quiz"
	"github.com/hitoshi/tangobook/internal/repository"
	"github.com/hitoshi/tangobook/internal/security"
)

// displayNameMaxLength は表示名の最大文字数。
const displayNameMaxLength = 50

// ModeMastery はレベル内の1モード分の習熟状況。
// Attemptedは挑戦済みの単語数（回答回数ではない）。
type ModeMastery struct {
	Attempted   int
	Correct     int
	CorrectRate float64
}

// LevelMastery はレベルごとの習熟状況。
type LevelMastery struct {
	LevelID   int64
	LevelName string
	WordCount int
	En        ModeMastery
	Jp        ModeMastery
}

// Detail はアカウント詳細画面用のユーザー情報と学習概況。
type Detail struct {
	User    *model.User
	Mastery []LevelMastery
}

// Service はアカウントに関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	wordRepo    repository.WordRepository
	attemptRepo repository.AttemptRepository
	sanitizer   *security.Sanitizer
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	wordRepo repository.WordRepository,
	attemptRepo repository.AttemptRepository,
	sanitizer *security.Sanitizer,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		wordRepo:    wordRepo,
		attemptRepo: attemptRepo,
		sanitizer:   sanitizer,
	}
}

// Profile は指定ユーザーのプロフィールを取得する。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は表示名を更新する。HTMLタグは除去され、
// 除去後に空になる・長すぎる表示名は拒否される。
func (s *Service) UpdateProfile(ctx context.Context, userID, displayName string) (*model.User, error) {
	displayName = s.sanitizer.Clean(displayName)
	if displayName == "" {
		return nil, model.NewInvalidRequestError("表示名を入力してください")
	}
	if utf8.RuneCountInString(displayName) > displayNameMaxLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("表示名は%d文字以内で入力してください", displayNameMaxLength))
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}
	user.DisplayName = displayName
	return user, nil
}

// Detail はプロフィールとレベル×モード別の習熟状況を返す。
// 全レベルを単語数付きで含み、未挑戦のモードはゼロ値になる。
func (s *Service) Detail(ctx context.Context, userID string) (*Detail, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	levels, err := s.wordRepo.ListLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	stats, err := s.attemptRepo.StatsByLevelAndMode(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate level stats: %w", err)
	}
	byLevel := make(map[int64]map[model.Mode]repository.LevelModeStat, len(stats))
	for _, st := range stats {
		if byLevel[st.LevelID] == nil {
			byLevel[st.LevelID] = make(map[model.Mode]repository.LevelModeStat, 2)
		}
		byLevel[st.LevelID][st.Mode] = st
	}

	mastery := make([]LevelMastery, 0, len(levels))
	for _, level := range levels {
		count, err := s.wordRepo.CountByLevel(ctx, level.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count words for level %d: %w", level.ID, err)
		}
		mastery = append(mastery, LevelMastery{
			LevelID:   level.ID,
			LevelName: level.Name,
			WordCount: count,
			En:        modeMastery(byLevel[level.ID][model.ModeEn]),
			Jp:        modeMastery(byLevel[level.ID][model.ModeJp]),
		})
	}

	return &Detail{User: user, Mastery: mastery}, nil
}

// Withdraw は退会処理を行う。全セッションを破棄した上でユーザーを
// 削除し、進行状況・正誤レコード・お問い合わせもCASCADE削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if _, err := s.Profile(ctx, userID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func modeMastery(st repository.LevelModeStat) ModeMastery {
	return ModeMastery{
		Attempted:   st.Total,
		Correct:     st.Correct,
		CorrectRate: quiz.Rate(st.Correct, st.Total),
	}
}
