package quiz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// ReviewStartResult は復習セッション開始の結果。
type ReviewStartResult struct {
	Progress *model.ReviewProgress
	Current  Question
}

// StartReview は復習セッションを開始する。
// 出題プールはレベルを問わず、指定モードで現在不正解と
// マークされている全単語。対象がなければNO_REVIEW_WORDS。
func (s *Service) StartReview(ctx context.Context, userID string, mode model.Mode) (*ReviewStartResult, error) {
	if !mode.IsValid() {
		return nil, model.NewInvalidRequestError("modeはenまたはjpを指定してください")
	}

	pool, err := s.attemptRepo.ListIncorrectWordIDs(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to list incorrect word ids: %w", err)
	}
	if len(pool) == 0 {
		return nil, model.NewNoReviewWordsError()
	}
	s.shuffle(pool)

	progress := &model.ReviewProgress{
		ID:             uuid.New().String(),
		UserID:         userID,
		Mode:           mode,
		TotalQuestions: len(pool),
		QuestionIDs:    pool,
		CreatedAt:      time.Now(),
	}
	if err := s.reviewRepo.Create(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to create review progress: %w", err)
	}

	current, err := s.questionAt(ctx, mode, pool, 0)
	if err != nil {
		return nil, err
	}
	return &ReviewStartResult{Progress: progress, Current: *current}, nil
}

// SubmitReviewAnswer は復習セッションの1問回答を処理する。
// 判定と永続化のルールはクイズセッションと同じで、正解すると
// 正誤レコードが正解に上書きされ、以後の復習対象から外れる。
func (s *Service) SubmitReviewAnswer(ctx context.Context, userID, progressID, answer string) (*AnswerResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, model.NewInvalidRequestError("answerを入力してください")
	}

	var result *AnswerResult
	err := s.reviewRepo.Mutate(ctx, progressID, userID, func(mu repository.ProgressMutation, p *model.ReviewProgress) error {
		if p.IsCompleted {
			return model.NewProgressNotFoundError()
		}
		if p.CurrentQuestionIndex >= len(p.QuestionIDs) {
			return fmt.Errorf("review progress %s index %d out of range", p.ID, p.CurrentQuestionIndex)
		}

		wordID := p.QuestionIDs[p.CurrentQuestionIndex]
		word, err := s.wordRepo.FindByID(ctx, wordID)
		if err != nil {
			return fmt.Errorf("failed to find word: %w", err)
		}
		if word == nil {
			return fmt.Errorf("word %d referenced by review progress %s not found", wordID, p.ID)
		}

		correct, correctAnswer := judge(p.Mode, word, answer)
		if err := mu.UpsertAttempt(ctx, &model.WordAttempt{
			ID:              uuid.New().String(),
			UserID:          userID,
			WordID:          wordID,
			Mode:            p.Mode,
			IsCorrect:       correct,
			LastAttemptedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to upsert attempt: %w", err)
		}

		if correct {
			p.Score++
		}
		p.CurrentQuestionIndex++
		if p.CurrentQuestionIndex >= p.TotalQuestions {
			p.IsCompleted = true
			p.IsPaused = false
		}
		if err := mu.SaveReviewProgress(ctx, p); err != nil {
			return fmt.Errorf("failed to save review progress: %w", err)
		}

		result = &AnswerResult{
			IsCorrect:     correct,
			CorrectAnswer: correctAnswer,
			Score:         p.Score,
			Total:         p.TotalQuestions,
			Index:         p.CurrentQuestionIndex,
			IsCompleted:   p.IsCompleted,
		}
		if p.IsCompleted {
			result.CorrectRate = Rate(p.Score, p.TotalQuestions)
			return nil
		}
		next, err := s.questionAt(ctx, p.Mode, p.QuestionIDs, p.CurrentQuestionIndex)
		if err != nil {
			return err
		}
		result.Next = next
		return nil
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, model.NewProgressNotFoundError()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordAnswer(result.IsCorrect)
	}
	return result, nil
}

// PauseReview は復習セッションを中断する。中断済みなら何もしない。
func (s *Service) PauseReview(ctx context.Context, userID, progressID string) (*model.ReviewProgress, error) {
	p, err := s.findActiveReview(ctx, progressID, userID)
	if err != nil {
		return nil, err
	}
	if p.IsPaused {
		return p, nil
	}
	p.IsPaused = true
	if err := s.reviewRepo.UpdateFlags(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to pause review progress: %w", err)
	}
	return p, nil
}

// ResumeReview は中断中の復習セッションを再開し、現在の問題を返す。
func (s *Service) ResumeReview(ctx context.Context, userID, progressID string) (*ReviewStartResult, error) {
	p, err := s.findActiveReview(ctx, progressID, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsPaused {
		return nil, model.NewProgressNotFoundError()
	}
	p.IsPaused = false
	if err := s.reviewRepo.UpdateFlags(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to resume review progress: %w", err)
	}
	current, err := s.questionAt(ctx, p.Mode, p.QuestionIDs, p.CurrentQuestionIndex)
	if err != nil {
		return nil, err
	}
	return &ReviewStartResult{Progress: p, Current: *current}, nil
}

// DeleteReview は復習セッションを論理削除する。
func (s *Service) DeleteReview(ctx context.Context, userID, progressID string) error {
	p, err := s.reviewRepo.FindByIDForUser(ctx, progressID, userID)
	if err != nil {
		return fmt.Errorf("failed to find review progress: %w", err)
	}
	if p == nil {
		return model.NewProgressNotFoundError()
	}
	p.IsCompleted = true
	p.IsPaused = false
	if err := s.reviewRepo.UpdateFlags(ctx, p); err != nil {
		return fmt.Errorf("failed to delete review progress: %w", err)
	}
	return nil
}

// ListReviews はユーザーの復習セッション一覧を新しい順に返す。
func (s *Service) ListReviews(ctx context.Context, userID string, filter repository.ProgressFilter) ([]*model.ReviewProgress, error) {
	list, err := s.reviewRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list review progress: %w", err)
	}
	return list, nil
}

// GetReview は指定IDの復習セッションを取得する。
func (s *Service) GetReview(ctx context.Context, userID, progressID string) (*model.ReviewProgress, error) {
	p, err := s.reviewRepo.FindByIDForUser(ctx, progressID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find review progress: %w", err)
	}
	if p == nil {
		return nil, model.NewProgressNotFoundError()
	}
	return p, nil
}

func (s *Service) findActiveReview(ctx context.Context, progressID, userID string) (*model.ReviewProgress, error) {
	p, err := s.reviewRepo.FindByIDForUser(ctx, progressID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find review progress: %w", err)
	}
	if p == nil || p.IsCompleted {
		return nil, model.NewProgressNotFoundError()
	}
	return p, nil
}
