package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresReviewProgressRepo はPostgreSQLを使用した復習セッションリポジトリ。
type PostgresReviewProgressRepo struct {
	db *sql.DB
}

// NewPostgresReviewProgressRepo はPostgresReviewProgressRepoを生成する。
func NewPostgresReviewProgressRepo(db *sql.DB) *PostgresReviewProgressRepo {
	return &PostgresReviewProgressRepo{db: db}
}

// Create は復習セッションを作成する。
func (r *PostgresReviewProgressRepo) Create(ctx context.Context, p *model.ReviewProgress) error {
	raw, err := marshalQuestionIDs(p.QuestionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode question ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO review_progress
		   (id, user_id, mode, score, total_questions, current_question_index,
		    question_ids, is_completed, is_paused, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, p.Mode, p.Score, p.TotalQuestions, p.CurrentQuestionIndex,
		raw, p.IsCompleted, p.IsPaused, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review progress: %w", err)
	}
	return nil
}

const reviewProgressSelect = `
	SELECT id, user_id, mode, score, total_questions, current_question_index,
	       question_ids, is_completed, is_paused, created_at
	FROM review_progress`

func scanReviewProgress(s quizProgressScanner) (*model.ReviewProgress, error) {
	p := &model.ReviewProgress{}
	var raw []byte
	err := s.Scan(&p.ID, &p.UserID, &p.Mode, &p.Score, &p.TotalQuestions,
		&p.CurrentQuestionIndex, &raw, &p.IsCompleted, &p.IsPaused, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.QuestionIDs, err = unmarshalQuestionIDs(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// FindByIDForUser は指定IDかつ指定ユーザー所有の復習セッションを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresReviewProgressRepo) FindByIDForUser(ctx context.Context, id, userID string) (*model.ReviewProgress, error) {
	p, err := scanReviewProgress(r.db.QueryRowContext(ctx,
		reviewProgressSelect+` WHERE id = $1 AND user_id = $2`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review progress: %w", err)
	}
	return p, nil
}

// ListByUser はユーザーの復習セッション一覧を新しい順に返す。
func (r *PostgresReviewProgressRepo) ListByUser(ctx context.Context, userID string, filter ProgressFilter) ([]*model.ReviewProgress, error) {
	query := reviewProgressSelect + ` WHERE user_id = $1`
	args := []any{userID}

	if filter.IsCompleted != nil {
		args = append(args, *filter.IsCompleted)
		query += fmt.Sprintf(" AND is_completed = $%d", len(args))
	}
	if filter.IsPaused != nil {
		args = append(args, *filter.IsPaused)
		query += fmt.Sprintf(" AND is_paused = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list review progress: %w", err)
	}
	defer rows.Close()

	var result []*model.ReviewProgress
	for rows.Next() {
		p, err := scanReviewProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review progress: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// UpdateFlags はis_paused/is_completedフラグのみを保存する。
func (r *PostgresReviewProgressRepo) UpdateFlags(ctx context.Context, p *model.ReviewProgress) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE review_progress SET is_completed = $1, is_paused = $2
		 WHERE id = $3 AND user_id = $4`,
		p.IsCompleted, p.IsPaused, p.ID, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review progress flags: %w", err)
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

// Mutate は復習セッションの行ロックを取得した単一トランザクション内でfnを実行する。
// クイズ進行状況のMutateと同じ直列化保証を持つ。
func (r *PostgresReviewProgressRepo) Mutate(ctx context.Context, id, userID string, fn func(mu ProgressMutation, p *model.ReviewProgress) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanReviewProgress(tx.QueryRowContext(ctx,
		reviewProgressSelect+` WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID))
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock review progress: %w", err)
	}

	if err := fn(&progressMutation{tx: tx}, p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ReviewProgressRepository = (*PostgresReviewProgressRepo)(nil)
