package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresAttemptRepo はPostgreSQLを使用した正誤レコードリポジトリ。
// 各行は(ユーザー, 単語, モード)の最新結果のみを保持する。
type PostgresAttemptRepo struct {
	db *sql.DB
}

// NewPostgresAttemptRepo はPostgresAttemptRepoを生成する。
func NewPostgresAttemptRepo(db *sql.DB) *PostgresAttemptRepo {
	return &PostgresAttemptRepo{db: db}
}

// CountTotals はユーザーの全レコードの(総数, 正解数)を返す。
func (r *PostgresAttemptRepo) CountTotals(ctx context.Context, userID string) (int, int, error) {
	var total, correct int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		 FROM word_attempts WHERE user_id = $1`,
		userID,
	).Scan(&total, &correct)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return total, correct, nil
}

// StatsByLevel はレベル別集計をレコードが存在するレベルに限って返す。
func (r *PostgresAttemptRepo) StatsByLevel(ctx context.Context, userID string) ([]LevelStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.name, COUNT(*), COUNT(*) FILTER (WHERE a.is_correct)
		 FROM word_attempts a
		 JOIN words w ON w.id = a.word_id
		 JOIN levels l ON l.id = w.level_id
		 WHERE a.user_id = $1
		 GROUP BY l.id, l.name
		 ORDER BY l.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by level: %w", err)
	}
	defer rows.Close()

	var stats []LevelStat
	for rows.Next() {
		var s LevelStat
		if err := rows.Scan(&s.LevelID, &s.LevelName, &s.Total, &s.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan level stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// StatsByMode はモード別集計をレコードが存在するモードに限って返す。
func (r *PostgresAttemptRepo) StatsByMode(ctx context.Context, userID string) ([]ModeStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT mode, COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		 FROM word_attempts
		 WHERE user_id = $1
		 GROUP BY mode
		 ORDER BY mode`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by mode: %w", err)
	}
	defer rows.Close()

	var stats []ModeStat
	for rows.Next() {
		var s ModeStat
		if err := rows.Scan(&s.Mode, &s.Total, &s.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan mode stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// StatsByLevelAndMode はレベル×モード別集計を返す。
func (r *PostgresAttemptRepo) StatsByLevelAndMode(ctx context.Context, userID string) ([]LevelModeStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.level_id, a.mode, COUNT(*), COUNT(*) FILTER (WHERE a.is_correct)
		 FROM word_attempts a
		 JOIN words w ON w.id = a.word_id
		 WHERE a.user_id = $1
		 GROUP BY w.level_id, a.mode
		 ORDER BY w.level_id, a.mode`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by level and mode: %w", err)
	}
	defer rows.Close()

	var stats []LevelModeStat
	for rows.Next() {
		var s LevelModeStat
		if err := rows.Scan(&s.LevelID, &s.Mode, &s.Total, &s.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan level-mode stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ListIncorrect は現在不正解とマークされているレコードを
// 単語・レベル・品詞の表示情報付きで返す。
func (r *PostgresAttemptRepo) ListIncorrect(ctx context.Context, userID string, filter IncorrectFilter) ([]model.IncorrectWord, error) {
	query := `
		SELECT a.id, a.user_id, a.word_id, a.mode, a.is_correct, a.last_attempted_at,
		       w.id, w.english, w.japanese,
		       w.part_of_speech_id, p.name,
		       w.level_id, l.name,
		       COALESCE(w.phrase, '')
		FROM word_attempts a
		JOIN words w ON w.id = a.word_id
		JOIN parts_of_speech p ON p.id = w.part_of_speech_id
		JOIN levels l ON l.id = w.level_id
		WHERE a.user_id = $1 AND a.is_correct = FALSE`
	args := []any{userID}

	if filter.Mode != "" {
		args = append(args, filter.Mode)
		query += fmt.Sprintf(" AND a.mode = $%d", len(args))
	}
	if filter.LevelID != 0 {
		args = append(args, filter.LevelID)
		query += fmt.Sprintf(" AND w.level_id = $%d", len(args))
	}
	query += " ORDER BY a.last_attempted_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incorrect words: %w", err)
	}
	defer rows.Close()

	var result []model.IncorrectWord
	for rows.Next() {
		var iw model.IncorrectWord
		if err := rows.Scan(
			&iw.WordAttempt.ID, &iw.UserID, &iw.WordID, &iw.Mode, &iw.IsCorrect, &iw.LastAttemptedAt,
			&iw.Word.ID, &iw.Word.English, &iw.Word.Japanese,
			&iw.Word.PartOfSpeechID, &iw.Word.PartOfSpeechName,
			&iw.Word.LevelID, &iw.Word.LevelName,
			&iw.Word.Phrase,
		); err != nil {
			return nil, fmt.Errorf("failed to scan incorrect word: %w", err)
		}
		result = append(result, iw)
	}
	return result, rows.Err()
}

// ListIncorrectWordIDs は指定モードで不正解の単語IDを返す。
// リプレイ・復習セッションの出題プール決定に使用する。
func (r *PostgresAttemptRepo) ListIncorrectWordIDs(ctx context.Context, userID string, mode model.Mode) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT word_id FROM word_attempts
		 WHERE user_id = $1 AND mode = $2 AND is_correct = FALSE
		 ORDER BY word_id`,
		userID, mode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list incorrect word ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan word id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// compile-time interface check
var _ AttemptRepository = (*PostgresAttemptRepo)(nil)
