package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, subject_id, email, display_name, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.SubjectID, &user.Email, &user.DisplayName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// ResolveExternal は外部IDのsubject/emailからユーザーを解決する。
// 単一トランザクションで (a) subject一致→email追随更新、
// (b) email一致→subject紐付け、(c) 新規作成 の順に処理する。
// 同一subjectの同時初回ログインでも重複ユーザーを作らない。
func (r *PostgresUserRepo) ResolveExternal(ctx context.Context, subjectID, email, displayName string) (*model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// (a) subject_idで検索。行ロックを取り同時ログインを直列化する。
	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE subject_id = $1 FOR UPDATE`, subjectID))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by subject: %w", err)
	}

	if user != nil {
		// IdP側がemailの情報源。変わっていれば追随する。
		if user.Email != email {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET email = $1, updated_at = $2 WHERE id = $3`,
				email, now, user.ID,
			); err != nil {
				return nil, fmt.Errorf("failed to update email: %w", err)
			}
			user.Email = email
			user.UpdatedAt = now
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return user, nil
	}

	// (b) emailで既存アカウントを検索し、subject_idを紐付ける。
	user, err = scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET subject_id = $1, updated_at = $2 WHERE id = $3`,
			subjectID, now, user.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to link subject: %w", err)
		}
		user.SubjectID = &subjectID
		user.UpdatedAt = now
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return user, nil
	}

	// (c) 新規作成。同時初回ログインとの競合はsubject_idの
	// 部分ユニークインデックスとON CONFLICTで吸収する。
	newUser := &model.User{
		ID:          uuid.New().String(),
		SubjectID:   &subjectID,
		Email:       email,
		DisplayName: displayName,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO users (id, subject_id, email, display_name, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (subject_id) WHERE subject_id IS NOT NULL
		 DO UPDATE SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns,
		newUser.ID, subjectID, email, displayName, true, now, now,
	)
	created := &model.User{}
	if err := row.Scan(&created.ID, &created.SubjectID, &created.Email, &created.DisplayName,
		&created.IsActive, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// UpdateDisplayName は表示名を更新する。
func (r *PostgresUserRepo) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = $1, updated_at = now() WHERE id = $2`,
		displayName, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
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

// DeleteByID は指定IDのユーザーを削除する。
// 関連するセッション・進行状況・正誤レコード等はCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
