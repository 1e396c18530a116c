package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
)

// LevelSummary はレベル別の学習成績。
type LevelSummary struct {
	LevelID     int64
	LevelName   string
	Total       int
	Correct     int
	CorrectRate float64
}

// ModeSummary はモード別の学習成績。
type ModeSummary struct {
	Mode        model.Mode
	Label       string
	Total       int
	Correct     int
	CorrectRate float64
}

// RecentSession は直近の完了済みセッションの要約。
type RecentSession struct {
	ID          string
	LevelName   string
	ModeLabel   string
	QuizMode    model.QuizMode
	Score       int
	Total       int
	CorrectRate float64
	CompletedAt time.Time
}

// Statistics はユーザーの学習統計。
// ByLevel・ByModeはレコードが1件以上あるものだけを含む。
type Statistics struct {
	TotalAttempted int
	TotalCorrect   int
	TotalIncorrect int
	CorrectRate    float64
	ByLevel        []LevelSummary
	ByMode         []ModeSummary
	Recent         []RecentSession
}

// recentSessionLimit は統計に含める直近セッションの件数。
const recentSessionLimit = 5

// Statistics はユーザーの学習統計を集計して返す。
// 各正答率の分母は単語ごとの最新正誤レコード数（総回答数ではない）。
func (s *Service) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	total, correct, err := s.attemptRepo.CountTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempt totals: %w", err)
	}

	levelStats, err := s.attemptRepo.StatsByLevel(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate level stats: %w", err)
	}
	byLevel := make([]LevelSummary, 0, len(levelStats))
	for _, st := range levelStats {
		byLevel = append(byLevel, LevelSummary{
			LevelID:     st.LevelID,
			LevelName:   st.LevelName,
			Total:       st.Total,
			Correct:     st.Correct,
			CorrectRate: Rate(st.Correct, st.Total),
		})
	}

	modeStats, err := s.attemptRepo.StatsByMode(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate mode stats: %w", err)
	}
	byMode := make([]ModeSummary, 0, len(modeStats))
	for _, st := range modeStats {
		byMode = append(byMode, ModeSummary{
			Mode:        st.Mode,
			Label:       ModeLabel(st.Mode),
			Total:       st.Total,
			Correct:     st.Correct,
			CorrectRate: Rate(st.Correct, st.Total),
		})
	}

	completed, err := s.progressRepo.ListRecentCompleted(ctx, userID, recentSessionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent sessions: %w", err)
	}
	recent := make([]RecentSession, 0, len(completed))
	for _, p := range completed {
		recent = append(recent, RecentSession{
			ID:          p.ID,
			LevelName:   p.LevelName,
			ModeLabel:   ModeLabel(p.Mode),
			QuizMode:    p.QuizMode,
			Score:       p.Score,
			Total:       p.TotalQuestions,
			CorrectRate: Rate(p.Score, p.TotalQuestions),
			CompletedAt: p.CompletedAt,
		})
	}

	return &Statistics{
		TotalAttempted: total,
		TotalCorrect:   correct,
		TotalIncorrect: total - correct,
		CorrectRate:    Rate(correct, total),
		ByLevel:        byLevel,
		ByMode:         byMode,
		Recent:         recent,
	}, nil
}

// ModeLabel は出題方向の表示名を返す。
func ModeLabel(mode model.Mode) string {
	if mode == model.ModeJp {
		return "English → Japanese"
	}
	return "Japanese → English"
}
