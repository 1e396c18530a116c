package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresQuizProgressRepo はPostgreSQLを使用したクイズ進行状況リポジトリ。
type PostgresQuizProgressRepo struct {
	db *sql.DB
}

// NewPostgresQuizProgressRepo はPostgresQuizProgressRepoを生成する。
func NewPostgresQuizProgressRepo(db *sql.DB) *PostgresQuizProgressRepo {
	return &PostgresQuizProgressRepo{db: db}
}

func marshalQuestionIDs(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

func unmarshalQuestionIDs(raw []byte) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode question ids: %w", err)
	}
	return ids, nil
}

// Create は進行状況を作成する。
func (r *PostgresQuizProgressRepo) Create(ctx context.Context, p *model.QuizProgress) error {
	raw, err := marshalQuestionIDs(p.QuestionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode question ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO quiz_progress
		   (id, user_id, level_id, mode, quiz_mode, score, total_questions,
		    current_question_index, question_ids, is_completed, is_paused, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.UserID, p.LevelID, p.Mode, p.QuizMode, p.Score, p.TotalQuestions,
		p.CurrentQuestionIndex, raw, p.IsCompleted, p.IsPaused, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz progress: %w", err)
	}
	return nil
}

const quizProgressSelect = `
	SELECT q.id, q.user_id, q.level_id, l.name, q.mode, q.quiz_mode,
	       q.score, q.total_questions, q.current_question_index, q.question_ids,
	       q.is_completed, q.is_paused, q.completed_at
	FROM quiz_progress q
	JOIN levels l ON l.id = q.level_id`

type quizProgressScanner interface {
	Scan(dest ...any) error
}

func scanQuizProgress(s quizProgressScanner) (*model.QuizProgress, error) {
	p := &model.QuizProgress{}
	var raw []byte
	err := s.Scan(&p.ID, &p.UserID, &p.LevelID, &p.LevelName, &p.Mode, &p.QuizMode,
		&p.Score, &p.TotalQuestions, &p.CurrentQuestionIndex, &raw,
		&p.IsCompleted, &p.IsPaused, &p.CompletedAt)
	if err != nil {
		return nil, err
	}
	if p.QuestionIDs, err = unmarshalQuestionIDs(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// FindByIDForUser は指定IDかつ指定ユーザー所有の進行状況をレベル名付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresQuizProgressRepo) FindByIDForUser(ctx context.Context, id, userID string) (*model.QuizProgress, error) {
	p, err := scanQuizProgress(r.db.QueryRowContext(ctx,
		quizProgressSelect+` WHERE q.id = $1 AND q.user_id = $2`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find quiz progress: %w", err)
	}
	return p, nil
}

// ListByUser はユーザーの進行状況一覧を新しい順に返す。
func (r *PostgresQuizProgressRepo) ListByUser(ctx context.Context, userID string, filter ProgressFilter) ([]*model.QuizProgress, error) {
	query := quizProgressSelect + ` WHERE q.user_id = $1`
	args := []any{userID}

	if filter.IsCompleted != nil {
		args = append(args, *filter.IsCompleted)
		query += fmt.Sprintf(" AND q.is_completed = $%d", len(args))
	}
	if filter.IsPaused != nil {
		args = append(args, *filter.IsPaused)
		query += fmt.Sprintf(" AND q.is_paused = $%d", len(args))
	}
	query += " ORDER BY q.completed_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz progress: %w", err)
	}
	defer rows.Close()

	var result []*model.QuizProgress
	for rows.Next() {
		p, err := scanQuizProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz progress: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListRecentCompleted は完了済みセッションを新しい順に最大limit件返す。
func (r *PostgresQuizProgressRepo) ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*model.QuizProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		quizProgressSelect+` WHERE q.user_id = $1 AND q.is_completed = TRUE
		 ORDER BY q.completed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent progress: %w", err)
	}
	defer rows.Close()

	var result []*model.QuizProgress
	for rows.Next() {
		p, err := scanQuizProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz progress: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// UpdateFlags はis_paused/is_completedフラグのみを保存する。
func (r *PostgresQuizProgressRepo) UpdateFlags(ctx context.Context, p *model.QuizProgress) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE quiz_progress SET is_completed = $1, is_paused = $2, updated_at = now()
		 WHERE id = $3 AND user_id = $4`,
		p.IsCompleted, p.IsPaused, p.ID, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quiz progress flags: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// progressMutation はProgressMutationのトランザクション実装。
// Mutateが開いたトランザクション内でのみ使用される。
type progressMutation struct {
	tx *sql.Tx
}

// UpsertAttempt は(ユーザー, 単語, モード)の正誤レコードをUPSERTする。
// 最新結果キャッシュなので既存行は上書きされる。
func (m *progressMutation) UpsertAttempt(ctx context.Context, attempt *model.WordAttempt) error {
	_, err := m.tx.ExecContext(ctx,
		`INSERT INTO word_attempts (id, user_id, word_id, mode, is_correct, last_attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, word_id, mode) DO UPDATE SET
		   is_correct = EXCLUDED.is_correct,
		   last_attempted_at = EXCLUDED.last_attempted_at`,
		attempt.ID, attempt.UserID, attempt.WordID, attempt.Mode,
		attempt.IsCorrect, attempt.LastAttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert word attempt: %w", err)
	}
	return nil
}

// SaveQuizProgress はスコア・インデックス・フラグを保存する。
func (m *progressMutation) SaveQuizProgress(ctx context.Context, p *model.QuizProgress) error {
	_, err := m.tx.ExecContext(ctx,
		`UPDATE quiz_progress
		 SET score = $1, current_question_index = $2, is_completed = $3, is_paused = $4,
		     updated_at = now()
		 WHERE id = $5`,
		p.Score, p.CurrentQuestionIndex, p.IsCompleted, p.IsPaused, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz progress: %w", err)
	}
	return nil
}

// SaveReviewProgress は復習セッションのスコア・インデックス・フラグを保存する。
func (m *progressMutation) SaveReviewProgress(ctx context.Context, p *model.ReviewProgress) error {
	_, err := m.tx.ExecContext(ctx,
		`UPDATE review_progress
		 SET score = $1, current_question_index = $2, is_completed = $3, is_paused = $4
		 WHERE id = $5`,
		p.Score, p.CurrentQuestionIndex, p.IsCompleted, p.IsPaused, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save review progress: %w", err)
	}
	return nil
}

// Mutate は進行状況の行ロックを取得した単一トランザクション内でfnを実行する。
// 同一セッションへの同時回答送信はこのロックで直列化され、
// スコア加算とインデックス前進が常に一体で適用される。
func (r *PostgresQuizProgressRepo) Mutate(ctx context.Context, id, userID string, fn func(mu ProgressMutation, p *model.QuizProgress) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanQuizProgress(tx.QueryRowContext(ctx,
		quizProgressSelect+` WHERE q.id = $1 AND q.user_id = $2 FOR UPDATE OF q`,
		id, userID))
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock quiz progress: %w", err)
	}

	if err := fn(&progressMutation{tx: tx}, p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FreezeStalePaused は指定時刻より前から更新のない中断中セッションを
// 完了扱いに凍結し、件数を返す。completed_atは作成時刻を保持したままの
// 場合があるため、判定にはupdated_atを使う。
func (r *PostgresQuizProgressRepo) FreezeStalePaused(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE quiz_progress
		 SET is_completed = TRUE, is_paused = FALSE, updated_at = now()
		 WHERE is_paused = TRUE AND is_completed = FALSE AND updated_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to freeze stale progress: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ QuizProgressRepository = (*PostgresQuizProgressRepo)(nil)
