package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresInquiryRepo はPostgreSQLを使用したお問い合わせリポジトリ。
type PostgresInquiryRepo struct {
	db *sql.DB
}

// NewPostgresInquiryRepo はPostgresInquiryRepoを生成する。
func NewPostgresInquiryRepo(db *sql.DB) *PostgresInquiryRepo {
	return &PostgresInquiryRepo{db: db}
}

// Create はお問い合わせを作成する。
func (r *PostgresInquiryRepo) Create(ctx context.Context, inquiry *model.Inquiry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inquiries (id, user_id, subject, context, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		inquiry.ID, inquiry.UserID, inquiry.Subject, inquiry.Context, inquiry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのお問い合わせ一覧を新しい順に返す。
func (r *PostgresInquiryRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Inquiry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, subject, context, created_at
		 FROM inquiries
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	var result []*model.Inquiry
	for rows.Next() {
		inq := &model.Inquiry{}
		if err := rows.Scan(&inq.ID, &inq.UserID, &inq.Subject, &inq.Context, &inq.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		result = append(result, inq)
	}
	return result, rows.Err()
}

// compile-time interface check
var _ InquiryRepository = (*PostgresInquiryRepo)(nil)
