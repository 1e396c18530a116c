package repository

import (
	"testing"

	"github.com/hitoshi/tangobook/internal/model"
)

// TestPostgresQuizProgressRepo_ImplementsInterface はPostgresQuizProgressRepoがQuizProgressRepositoryを実装することを検証する。
func TestPostgresQuizProgressRepo_ImplementsInterface(t *testing.T) {
	var _ QuizProgressRepository = (*PostgresQuizProgressRepo)(nil)
}

// NewPostgresQuizProgressRepoが正しく初期化されることを検証
func TestNewPostgresQuizProgressRepo_Initializes(t *testing.T) {
	repo := NewPostgresQuizProgressRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestPostgresReviewProgressRepo_ImplementsInterface はPostgresReviewProgressRepoがReviewProgressRepositoryを実装することを検証する。
func TestPostgresReviewProgressRepo_ImplementsInterface(t *testing.T) {
	var _ ReviewProgressRepository = (*PostgresReviewProgressRepo)(nil)
}

// NewPostgresReviewProgressRepoが正しく初期化されることを検証
func TestNewPostgresReviewProgressRepo_Initializes(t *testing.T) {
	repo := NewPostgresReviewProgressRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestPostgresAttemptRepo_ImplementsInterface はPostgresAttemptRepoがAttemptRepositoryを実装することを検証する。
func TestPostgresAttemptRepo_ImplementsInterface(t *testing.T) {
	var _ AttemptRepository = (*PostgresAttemptRepo)(nil)
}

// NewPostgresAttemptRepoが正しく初期化されることを検証
func TestNewPostgresAttemptRepo_Initializes(t *testing.T) {
	repo := NewPostgresAttemptRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestPostgresInquiryRepo_ImplementsInterface はPostgresInquiryRepoがInquiryRepositoryを実装することを検証する。
func TestPostgresInquiryRepo_ImplementsInterface(t *testing.T) {
	var _ InquiryRepository = (*PostgresInquiryRepo)(nil)
}

// NewPostgresInquiryRepoが正しく初期化されることを検証
func TestNewPostgresInquiryRepo_Initializes(t *testing.T) {
	repo := NewPostgresInquiryRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// QuizProgressモデルの不変条件の初期状態を検証
func TestQuizProgressModel_InitialState(t *testing.T) {
	progress := &model.QuizProgress{
		ID:             "progress-1",
		UserID:         "user-1",
		LevelID:        1,
		Mode:           model.ModeEn,
		QuizMode:       model.QuizModeNormal,
		TotalQuestions: 3,
		QuestionIDs:    []int64{10, 20, 30},
	}

	if progress.CurrentQuestionIndex != 0 {
		t.Errorf("CurrentQuestionIndex = %d, want 0", progress.CurrentQuestionIndex)
	}
	if progress.Score != 0 {
		t.Errorf("Score = %d, want 0", progress.Score)
	}
	if len(progress.QuestionIDs) != progress.TotalQuestions {
		t.Errorf("len(QuestionIDs) = %d, want %d", len(progress.QuestionIDs), progress.TotalQuestions)
	}
	if progress.IsCompleted || progress.IsPaused {
		t.Error("new progress should be neither completed nor paused")
	}
}
