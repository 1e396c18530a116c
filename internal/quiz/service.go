// Package quiz はフラッシュカードクイズのセッション管理を提供する。
// セッションの出題順は開始時に一度だけシャッフルして確定し、
// 以後の回答・中断・再開はその確定済みリストに対して進行する。
package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// testQuestionLimit はテストモードの最大出題数。
const testQuestionLimit = 100

// MetricsRecorder はクイズ関連メトリクスの記録先。
type MetricsRecorder interface {
	RecordQuizStarted(quizMode string)
	RecordAnswer(correct bool)
}

// Question はクライアントに提示する1問分の情報。
// Promptはモードに応じて日本語（英訳モード）または英語（和訳モード）。
type Question struct {
	WordID int64
	Prompt string
	Number int // 1始まりの問題番号
	Total  int
}

// StartResult はセッション開始の結果。
type StartResult struct {
	Progress *model.QuizProgress
	Current  Question
}

// AnswerResult は1問回答の結果。
// 完了時はNextがnilになり、CorrectRateが確定する。
type AnswerResult struct {
	IsCorrect     bool
	CorrectAnswer string
	Score         int
	Total         int
	Index         int
	IsCompleted   bool
	CorrectRate   float64
	Next          *Question
}

// Service はクイズセッションのビジネスロジックを提供する。
type Service struct {
	wordRepo     repository.WordRepository
	progressRepo repository.QuizProgressRepository
	reviewRepo   repository.ReviewProgressRepository
	attemptRepo  repository.AttemptRepository
	metrics      MetricsRecorder

	// shuffle はテストから差し替えるためのフック。
	shuffle func(ids []int64)
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	wordRepo repository.WordRepository,
	progressRepo repository.QuizProgressRepository,
	reviewRepo repository.ReviewProgressRepository,
	attemptRepo repository.AttemptRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		wordRepo:     wordRepo,
		progressRepo: progressRepo,
		reviewRepo:   reviewRepo,
		attemptRepo:  attemptRepo,
		metrics:      metrics,
		shuffle: func(ids []int64) {
			rand.Shuffle(len(ids), func(i, j int) {
				ids[i], ids[j] = ids[j], ids[i]
			})
		},
	}
}

// Start は新しいクイズセッションを開始する。
// 出題プールはクイズモードで決まる:
//   - normal: レベルの全単語
//   - test:   レベルからランダムに最大100問
//   - replay: そのレベルで過去に間違えた単語のみ
//
// プールをシャッフルして出題順を確定し、最初の問題を返す。
func (s *Service) Start(ctx context.Context, userID string, levelID int64, mode model.Mode, quizMode model.QuizMode) (*StartResult, error) {
	if !mode.IsValid() {
		return nil, model.NewInvalidRequestError("modeはenまたはjpを指定してください")
	}
	if !quizMode.IsValid() {
		return nil, model.NewInvalidRequestError("quiz_modeはnormal、test、replayのいずれかを指定してください")
	}

	level, err := s.wordRepo.FindLevelByID(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find level: %w", err)
	}
	if level == nil {
		return nil, model.NewLevelNotFoundError(levelID)
	}

	ids, err := s.wordRepo.ListIDsByLevel(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list word ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, model.NewEmptyLevelError()
	}

	pool := ids
	if quizMode == model.QuizModeReplay {
		pool, err = s.replayPool(ctx, userID, mode, ids)
		if err != nil {
			return nil, err
		}
	}

	s.shuffle(pool)
	if quizMode == model.QuizModeTest && len(pool) > testQuestionLimit {
		pool = pool[:testQuestionLimit]
	}

	progress := &model.QuizProgress{
		ID:             uuid.New().String(),
		UserID:         userID,
		LevelID:        levelID,
		LevelName:      level.Name,
		Mode:           mode,
		QuizMode:       quizMode,
		TotalQuestions: len(pool),
		QuestionIDs:    pool,
		CompletedAt:    time.Now(),
	}
	if err := s.progressRepo.Create(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to create quiz progress: %w", err)
	}

	current, err := s.questionAt(ctx, mode, pool, 0)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordQuizStarted(string(quizMode))
	}
	return &StartResult{Progress: progress, Current: *current}, nil
}

// replayPool はレベル内の単語のうち、指定モードで現在不正解と
// マークされているものだけに絞り込む。
func (s *Service) replayPool(ctx context.Context, userID string, mode model.Mode, levelIDs []int64) ([]int64, error) {
	incorrect, err := s.attemptRepo.ListIncorrectWordIDs(ctx, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to list incorrect word ids: %w", err)
	}
	inLevel := make(map[int64]bool, len(levelIDs))
	for _, id := range levelIDs {
		inLevel[id] = true
	}
	pool := make([]int64, 0, len(incorrect))
	for _, id := range incorrect {
		if inLevel[id] {
			pool = append(pool, id)
		}
	}
	if len(pool) == 0 {
		return nil, model.NewNoReplayWordsError()
	}
	return pool, nil
}

// SubmitAnswer は現在の問題への回答を処理する。
// 正誤判定・正誤レコードのUPSERT・スコアとインデックスの前進を
// 進行状況の行ロックを持つ単一トランザクション内で行うため、
// 同一セッションへの並行回答で問題が二重に消費されることはない。
func (s *Service) SubmitAnswer(ctx context.Context, userID, progressID, answer string) (*AnswerResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, model.NewInvalidRequestError("answerを入力してください")
	}

	var result *AnswerResult
	err := s.progressRepo.Mutate(ctx, progressID, userID, func(mu repository.ProgressMutation, p *model.QuizProgress) error {
		if p.IsCompleted {
			return model.NewProgressNotFoundError()
		}
		if p.CurrentQuestionIndex >= len(p.QuestionIDs) {
			return fmt.Errorf("progress %s index %d out of range", p.ID, p.CurrentQuestionIndex)
		}

		wordID := p.QuestionIDs[p.CurrentQuestionIndex]
		word, err := s.wordRepo.FindByID(ctx, wordID)
		if err != nil {
			return fmt.Errorf("failed to find word: %w", err)
		}
		if word == nil {
			return fmt.Errorf("word %d referenced by progress %s not found", wordID, p.ID)
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
			p.CompletedAt = time.Now()
		}
		if err := mu.SaveQuizProgress(ctx, p); err != nil {
			return fmt.Errorf("failed to save quiz progress: %w", err)
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

// Pause はセッションを中断する。完了済みセッションは中断できない。
// すでに中断済みの場合は何もせず成功する。
func (s *Service) Pause(ctx context.Context, userID, progressID string) (*model.QuizProgress, error) {
	p, err := s.findActive(ctx, progressID, userID)
	if err != nil {
		return nil, err
	}
	if p.IsPaused {
		return p, nil
	}
	p.IsPaused = true
	if err := s.progressRepo.UpdateFlags(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to pause quiz progress: %w", err)
	}
	return p, nil
}

// Resume は中断中のセッションを再開し、現在の問題を返す。
// 中断されていない・完了済みのセッションは再開できない。
func (s *Service) Resume(ctx context.Context, userID, progressID string) (*StartResult, error) {
	p, err := s.findActive(ctx, progressID, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsPaused {
		return nil, model.NewProgressNotFoundError()
	}
	p.IsPaused = false
	if err := s.progressRepo.UpdateFlags(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to resume quiz progress: %w", err)
	}
	current, err := s.questionAt(ctx, p.Mode, p.QuestionIDs, p.CurrentQuestionIndex)
	if err != nil {
		return nil, err
	}
	return &StartResult{Progress: p, Current: *current}, nil
}

// Delete はセッションを論理削除する。状態を問わず完了扱いに固定され、
// 以後の一覧・再開の対象から外れる。物理削除はしない。
func (s *Service) Delete(ctx context.Context, userID, progressID string) error {
	p, err := s.progressRepo.FindByIDForUser(ctx, progressID, userID)
	if err != nil {
		return fmt.Errorf("failed to find quiz progress: %w", err)
	}
	if p == nil {
		return model.NewProgressNotFoundError()
	}
	p.IsCompleted = true
	p.IsPaused = false
	if err := s.progressRepo.UpdateFlags(ctx, p); err != nil {
		return fmt.Errorf("failed to delete quiz progress: %w", err)
	}
	return nil
}

// ListProgress はユーザーのセッション一覧を新しい順に返す。
func (s *Service) ListProgress(ctx context.Context, userID string, filter repository.ProgressFilter) ([]*model.QuizProgress, error) {
	list, err := s.progressRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz progress: %w", err)
	}
	return list, nil
}

// GetProgress は指定IDのセッションを取得する。
func (s *Service) GetProgress(ctx context.Context, userID, progressID string) (*model.QuizProgress, error) {
	p, err := s.progressRepo.FindByIDForUser(ctx, progressID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find quiz progress: %w", err)
	}
	if p == nil {
		return nil, model.NewProgressNotFoundError()
	}
	return p, nil
}

// IncorrectWords は現在不正解とマークされている単語の一覧を返す。
func (s *Service) IncorrectWords(ctx context.Context, userID string, filter repository.IncorrectFilter) ([]model.IncorrectWord, error) {
	if filter.Mode != "" && !filter.Mode.IsValid() {
		return nil, model.NewInvalidRequestError("modeはenまたはjpを指定してください")
	}
	list, err := s.attemptRepo.ListIncorrect(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list incorrect words: %w", err)
	}
	return list, nil
}

// findActive は未完了のセッションを取得する。
// 存在しない・他ユーザー所有・完了済みはいずれも区別せずPROGRESS_NOT_FOUND。
func (s *Service) findActive(ctx context.Context, progressID, userID string) (*model.QuizProgress, error) {
	p, err := s.progressRepo.FindByIDForUser(ctx, progressID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find quiz progress: %w", err)
	}
	if p == nil || p.IsCompleted {
		return nil, model.NewProgressNotFoundError()
	}
	return p, nil
}

// questionAt は確定済み出題順のindex位置の問題を組み立てる。
func (s *Service) questionAt(ctx context.Context, mode model.Mode, questionIDs []int64, index int) (*Question, error) {
	word, err := s.wordRepo.FindByID(ctx, questionIDs[index])
	if err != nil {
		return nil, fmt.Errorf("failed to find word: %w", err)
	}
	if word == nil {
		return nil, fmt.Errorf("word %d not found", questionIDs[index])
	}
	return &Question{
		WordID: word.ID,
		Prompt: prompt(mode, word),
		Number: index + 1,
		Total:  len(questionIDs),
	}, nil
}

// prompt はモードに応じた出題文字列を返す。
// 英訳モードは日本語を提示し、和訳モードは英語を提示する。
func prompt(mode model.Mode, word *model.Word) string {
	if mode == model.ModeEn {
		return word.Japanese
	}
	return word.English
}

// judge は回答の正誤を判定し、併せて模範解答を返す。
// 英訳モードは英語表記と完全一致（前後空白は無視）。
// 和訳モードはカンマ区切りの訳のいずれかと一致すれば正解。
func judge(mode model.Mode, word *model.Word, answer string) (bool, string) {
	if mode == model.ModeEn {
		return answer == word.English, word.English
	}
	for _, accepted := range strings.Split(word.Japanese, ",") {
		if answer == strings.TrimSpace(accepted) {
			return true, word.Japanese
		}
	}
	return false, word.Japanese
}
