package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresWordRepo はPostgreSQLを使用した辞書リポジトリ。
// 単語・レベル・品詞の参照データを扱う。
type PostgresWordRepo struct {
	db *sql.DB
}

// NewPostgresWordRepo はPostgresWordRepoを生成する。
func NewPostgresWordRepo(db *sql.DB) *PostgresWordRepo {
	return &PostgresWordRepo{db: db}
}

const wordSelect = `
	SELECT w.id, w.english, w.japanese,
	       w.part_of_speech_id, p.name,
	       w.level_id, l.name,
	       COALESCE(w.phrase, '')
	FROM words w
	JOIN parts_of_speech p ON p.id = w.part_of_speech_id
	JOIN levels l ON l.id = w.level_id`

func scanWordRows(rows *sql.Rows) ([]*model.Word, error) {
	defer rows.Close()

	var words []*model.Word
	for rows.Next() {
		w := &model.Word{}
		if err := rows.Scan(&w.ID, &w.English, &w.Japanese,
			&w.PartOfSpeechID, &w.PartOfSpeechName,
			&w.LevelID, &w.LevelName, &w.Phrase); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// FindByID は指定IDの単語をレベル・品詞名付きで取得する。見つからない場合はnilを返す。
func (r *PostgresWordRepo) FindByID(ctx context.Context, id int64) (*model.Word, error) {
	w := &model.Word{}
	err := r.db.QueryRowContext(ctx, wordSelect+` WHERE w.id = $1`, id).
		Scan(&w.ID, &w.English, &w.Japanese,
			&w.PartOfSpeechID, &w.PartOfSpeechName,
			&w.LevelID, &w.LevelName, &w.Phrase)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find word: %w", err)
	}
	return w, nil
}

// List はフィルタ条件に一致する単語一覧を返す。
func (r *PostgresWordRepo) List(ctx context.Context, filter WordFilter) ([]*model.Word, error) {
	query := wordSelect + ` WHERE 1=1`
	args := []any{}

	if filter.LevelID != 0 {
		args = append(args, filter.LevelID)
		query += fmt.Sprintf(" AND w.level_id = $%d", len(args))
	}
	if filter.PartOfSpeechID != 0 {
		args = append(args, filter.PartOfSpeechID)
		query += fmt.Sprintf(" AND w.part_of_speech_id = $%d", len(args))
	}

	// orderingはユーザー入力なのでホワイトリストで解決する
	switch filter.Ordering {
	case "english":
		query += " ORDER BY w.english ASC"
	case "-english":
		query += " ORDER BY w.english DESC"
	default:
		query += " ORDER BY w.id ASC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	return scanWordRows(rows)
}

// ListByIDs は指定ID群の単語を返す。戻り順はids順に整列される。
func (r *PostgresWordRepo) ListByIDs(ctx context.Context, ids []int64) ([]*model.Word, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, wordSelect+` WHERE w.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list words by ids: %w", err)
	}
	words, err := scanWordRows(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Word, len(words))
	for _, w := range words {
		byID[w.ID] = w
	}
	ordered := make([]*model.Word, 0, len(words))
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			ordered = append(ordered, w)
		}
	}
	return ordered, nil
}

// ListIDsByLevel はレベルに属する全単語のIDを返す。
func (r *PostgresWordRepo) ListIDsByLevel(ctx context.Context, levelID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM words WHERE level_id = $1 ORDER BY id`, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list word ids: %w", err)
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

// CountByLevel はレベルに属する単語数を返す。
func (r *PostgresWordRepo) CountByLevel(ctx context.Context, levelID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM words WHERE level_id = $1`, levelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return count, nil
}

// likeEscaper はLIKEパターンのメタ文字をエスケープする。
// エスケープしないと q=% が全件一致してしまう。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Search は英語の前方一致または日本語の部分一致で単語を検索する。
func (r *PostgresWordRepo) Search(ctx context.Context, query string, filter WordFilter, limit int) ([]*model.Word, error) {
	sqlQuery := wordSelect + ` WHERE (w.english ILIKE $1 || '%' OR w.japanese LIKE '%' || $1 || '%')`
	args := []any{escapeLike(query)}

	if filter.LevelID != 0 {
		args = append(args, filter.LevelID)
		sqlQuery += fmt.Sprintf(" AND w.level_id = $%d", len(args))
	}
	if filter.PartOfSpeechID != 0 {
		args = append(args, filter.PartOfSpeechID)
		sqlQuery += fmt.Sprintf(" AND w.part_of_speech_id = $%d", len(args))
	}

	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY w.english ASC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search words: %w", err)
	}
	return scanWordRows(rows)
}

// Random はランダムな単語を1件返す。levelIDが0以外の場合はそのレベルに限定する。
// 対象が存在しない場合はnilを返す。
func (r *PostgresWordRepo) Random(ctx context.Context, levelID int64) (*model.Word, error) {
	query := wordSelect
	args := []any{}
	if levelID != 0 {
		query += ` WHERE w.level_id = $1`
		args = append(args, levelID)
	}
	query += ` ORDER BY random() LIMIT 1`

	w := &model.Word{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&w.ID, &w.English, &w.Japanese,
			&w.PartOfSpeechID, &w.PartOfSpeechName,
			&w.LevelID, &w.LevelName, &w.Phrase)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick random word: %w", err)
	}
	return w, nil
}

// FindLevelByID は指定IDのレベルを取得する。見つからない場合はnilを返す。
func (r *PostgresWordRepo) FindLevelByID(ctx context.Context, id int64) (*model.Level, error) {
	level := &model.Level{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, '') FROM levels WHERE id = $1`, id).
		Scan(&level.ID, &level.Name, &level.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find level: %w", err)
	}
	return level, nil
}

// ListLevels は全レベルをID順に返す。
func (r *PostgresWordRepo) ListLevels(ctx context.Context) ([]*model.Level, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, '') FROM levels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	var levels []*model.Level
	for rows.Next() {
		l := &model.Level{}
		if err := rows.Scan(&l.ID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// ListPartsOfSpeech は全品詞をID順に返す。
func (r *PostgresWordRepo) ListPartsOfSpeech(ctx context.Context) ([]*model.PartOfSpeech, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM parts_of_speech ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts of speech: %w", err)
	}
	defer rows.Close()

	var parts []*model.PartOfSpeech
	for rows.Next() {
		p := &model.PartOfSpeech{}
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan part of speech: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// GetOrCreateLevel は名前でレベルを取得し、なければ作成する。
func (r *PostgresWordRepo) GetOrCreateLevel(ctx context.Context, name string) (*model.Level, error) {
	level := &model.Level{Name: name}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(description, '') FROM levels WHERE name = $1`, name).
		Scan(&level.ID, &level.Description)
	if err == nil {
		return level, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find level by name: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO levels (name) VALUES ($1) RETURNING id`, name).Scan(&level.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create level: %w", err)
	}
	return level, nil
}

// GetOrCreatePartOfSpeech は名前で品詞を取得し、なければ作成する。
func (r *PostgresWordRepo) GetOrCreatePartOfSpeech(ctx context.Context, name string) (*model.PartOfSpeech, error) {
	part := &model.PartOfSpeech{Name: name}
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM parts_of_speech WHERE name = $1`, name).Scan(&part.ID)
	if err == nil {
		return part, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find part of speech by name: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO parts_of_speech (name) VALUES ($1) RETURNING id`, name).Scan(&part.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create part of speech: %w", err)
	}
	return part, nil
}

// UpsertWord は英語表記をキーに単語をUPSERTする。新規作成時はtrueを返す。
func (r *PostgresWordRepo) UpsertWord(ctx context.Context, word *model.Word) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO words (english, japanese, part_of_speech_id, level_id, phrase)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 ON CONFLICT (english) DO UPDATE SET
		   japanese = EXCLUDED.japanese,
		   part_of_speech_id = EXCLUDED.part_of_speech_id,
		   level_id = EXCLUDED.level_id,
		   phrase = EXCLUDED.phrase
		 RETURNING id, (xmax = 0)`,
		word.English, word.Japanese, word.PartOfSpeechID, word.LevelID, word.Phrase,
	).Scan(&word.ID, &created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert word: %w", err)
	}
	return created, nil
}

// compile-time interface check
var _ WordRepository = (*PostgresWordRepo)(nil)
