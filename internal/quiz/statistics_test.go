package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// TestService_Statistics は学習統計の集計を検証する。
func TestService_Statistics(t *testing.T) {
	now := time.Now()
	attemptRepo := &mockAttemptRepo{
		countTotalsFn: func(ctx context.Context, userID string) (int, int, error) {
			return 30, 10, nil
		},
		statsByLevelFn: func(ctx context.Context, userID string) ([]repository.LevelStat, error) {
			return []repository.LevelStat{
				{LevelID: 1, LevelName: "TOEIC 600", Total: 20, Correct: 8},
				{LevelID: 2, LevelName: "TOEIC 800", Total: 10, Correct: 2},
			}, nil
		},
		statsByModeFn: func(ctx context.Context, userID string) ([]repository.ModeStat, error) {
			return []repository.ModeStat{
				{Mode: model.ModeEn, Total: 30, Correct: 10},
			}, nil
		},
	}
	progressRepo := &mockQuizProgressRepo{
		listRecentCompletedFn: func(ctx context.Context, userID string, limit int) ([]*model.QuizProgress, error) {
			if limit != 5 {
				t.Errorf("limit = %d, want 5", limit)
			}
			return []*model.QuizProgress{
				{
					ID:             "prog-1",
					LevelName:      "TOEIC 600",
					Mode:           model.ModeJp,
					QuizMode:       model.QuizModeNormal,
					Score:          1,
					TotalQuestions: 3,
					CompletedAt:    now,
				},
			}, nil
		},
	}

	svc := newTestService(nil, progressRepo, nil, attemptRepo)

	stats, err := svc.Statistics(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Statistics returned error: %v", err)
	}
	if stats.TotalAttempted != 30 || stats.TotalCorrect != 10 {
		t.Errorf("totals = %d/%d, want 10/30", stats.TotalCorrect, stats.TotalAttempted)
	}
	if stats.TotalIncorrect != 20 {
		t.Errorf("TotalIncorrect = %d, want 20", stats.TotalIncorrect)
	}
	if stats.CorrectRate != 33.3 {
		t.Errorf("CorrectRate = %v, want 33.3", stats.CorrectRate)
	}
	if len(stats.ByLevel) != 2 {
		t.Fatalf("len(ByLevel) = %d, want 2", len(stats.ByLevel))
	}
	if stats.ByLevel[0].CorrectRate != 40.0 {
		t.Errorf("ByLevel[0].CorrectRate = %v, want 40.0", stats.ByLevel[0].CorrectRate)
	}
	if len(stats.ByMode) != 1 {
		t.Fatalf("len(ByMode) = %d, want 1", len(stats.ByMode))
	}
	if stats.ByMode[0].Label != "Japanese → English" {
		t.Errorf("ByMode[0].Label = %q, want Japanese → English", stats.ByMode[0].Label)
	}
	if len(stats.Recent) != 1 {
		t.Fatalf("len(Recent) = %d, want 1", len(stats.Recent))
	}
	recent := stats.Recent[0]
	if recent.ModeLabel != "English → Japanese" {
		t.Errorf("ModeLabel = %q, want English → Japanese", recent.ModeLabel)
	}
	if recent.CorrectRate != 33.3 {
		t.Errorf("recent CorrectRate = %v, want 33.3", recent.CorrectRate)
	}
}

// TestService_IncorrectWords は間違えた単語一覧の取得を検証する。
func TestService_IncorrectWords(t *testing.T) {
	attemptRepo := &mockAttemptRepo{
		listIncorrectFn: func(ctx context.Context, userID string, filter repository.IncorrectFilter) ([]model.IncorrectWord, error) {
			if filter.Mode != model.ModeEn || filter.LevelID != 2 {
				t.Errorf("filter = %+v, want mode en level 2", filter)
			}
			return []model.IncorrectWord{
				{
					WordAttempt: model.WordAttempt{WordID: 5, Mode: model.ModeEn},
					Word:        model.Word{ID: 5, English: "grape", Japanese: "ぶどう"},
				},
			}, nil
		},
	}

	svc := newTestService(nil, nil, nil, attemptRepo)

	list, err := svc.IncorrectWords(context.Background(), "user-1", repository.IncorrectFilter{Mode: model.ModeEn, LevelID: 2})
	if err != nil {
		t.Fatalf("IncorrectWords returned error: %v", err)
	}
	if len(list) != 1 || list[0].Word.English != "grape" {
		t.Errorf("list = %+v, want grape", list)
	}

	_, err = svc.IncorrectWords(context.Background(), "user-1", repository.IncorrectFilter{Mode: model.Mode("fr")})
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidRequest {
		t.Errorf("Code = %q, want %q", code, model.ErrCodeInvalidRequest)
	}
}
