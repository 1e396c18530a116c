// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
)

// ErrNotFound は対象行が存在しない（または呼び出しユーザーの所有でない）
// ことを表す。トランザクション系メソッドが返すセンチネルエラー。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// ResolveExternal は外部IDのsubject/emailからユーザーを解決する。
	// 単一トランザクションで (a) subject一致→email追随更新、
	// (b) email一致→subject紐付け、(c) 新規作成 の順に処理する。
	// displayNameは新規作成時のみ使用するプレースホルダー。
	ResolveExternal(ctx context.Context, subjectID, email, displayName string) (*model.User, error)

	// UpdateDisplayName は表示名を更新する。
	UpdateDisplayName(ctx context.Context, id, displayName string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するセッション・進行状況・正誤レコード等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// WordFilter は単語一覧のフィルタ条件。ゼロ値のフィールドは無視される。
type WordFilter struct {
	LevelID        int64
	PartOfSpeechID int64
	// Ordering は "id"（既定）、"english"、"-english" のいずれか。
	Ordering string
}

// WordRepository は辞書参照データの読み取りインターフェース。
// クイズ側からは読み取り専用で、書き込みはインポート操作のみが行う。
type WordRepository interface {
	// FindByID は指定IDの単語をレベル・品詞名付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Word, error)

	// List はフィルタ条件に一致する単語一覧を返す。
	List(ctx context.Context, filter WordFilter) ([]*model.Word, error)

	// ListByIDs は指定ID群の単語を返す。戻り順はids順に整列される。
	ListByIDs(ctx context.Context, ids []int64) ([]*model.Word, error)

	// ListIDsByLevel はレベルに属する全単語のIDを返す。
	ListIDsByLevel(ctx context.Context, levelID int64) ([]int64, error)

	// CountByLevel はレベルに属する単語数を返す。
	CountByLevel(ctx context.Context, levelID int64) (int, error)

	// Search は英語の前方一致または日本語の部分一致で単語を検索する。
	Search(ctx context.Context, query string, filter WordFilter, limit int) ([]*model.Word, error)

	// Random はランダムな単語を1件返す。levelIDが0以外の場合はそのレベルに限定する。
	// 対象が存在しない場合はnilを返す。
	Random(ctx context.Context, levelID int64) (*model.Word, error)

	// FindLevelByID は指定IDのレベルを取得する。見つからない場合はnilを返す。
	FindLevelByID(ctx context.Context, id int64) (*model.Level, error)

	// ListLevels は全レベルをID順に返す。
	ListLevels(ctx context.Context) ([]*model.Level, error)

	// ListPartsOfSpeech は全品詞をID順に返す。
	ListPartsOfSpeech(ctx context.Context) ([]*model.PartOfSpeech, error)

	// GetOrCreateLevel は名前でレベルを取得し、なければ作成する。
	GetOrCreateLevel(ctx context.Context, name string) (*model.Level, error)

	// GetOrCreatePartOfSpeech は名前で品詞を取得し、なければ作成する。
	GetOrCreatePartOfSpeech(ctx context.Context, name string) (*model.PartOfSpeech, error)

	// UpsertWord は英語表記をキーに単語をUPSERTする。新規作成時はtrueを返す。
	UpsertWord(ctx context.Context, word *model.Word) (bool, error)
}

// ProgressFilter は進行状況一覧のフィルタ条件。nilのフィールドは無視される。
type ProgressFilter struct {
	IsCompleted *bool
	IsPaused    *bool
}

// ProgressMutation は行ロック中の進行状況に対して許される書き込み操作。
// Mutateのコールバック内でのみ有効で、全操作は同一トランザクションに属する。
type ProgressMutation interface {
	// UpsertAttempt は(ユーザー, 単語, モード)の正誤レコードをUPSERTする。
	UpsertAttempt(ctx context.Context, attempt *model.WordAttempt) error
	// SaveQuizProgress はスコア・インデックス・フラグを保存する。
	SaveQuizProgress(ctx context.Context, p *model.QuizProgress) error
	// SaveReviewProgress は復習セッションのスコア・インデックス・フラグを保存する。
	SaveReviewProgress(ctx context.Context, p *model.ReviewProgress) error
}

// QuizProgressRepository はクイズ進行状況の永続化インターフェース。
type QuizProgressRepository interface {
	// Create は進行状況を作成する。
	Create(ctx context.Context, p *model.QuizProgress) error

	// FindByIDForUser は指定IDかつ指定ユーザー所有の進行状況をレベル名付きで取得する。
	// 見つからない場合はnilを返す。
	FindByIDForUser(ctx context.Context, id, userID string) (*model.QuizProgress, error)

	// ListByUser はユーザーの進行状況一覧を新しい順に返す。
	ListByUser(ctx context.Context, userID string, filter ProgressFilter) ([]*model.QuizProgress, error)

	// ListRecentCompleted は完了済みセッションを新しい順に最大limit件返す。
	ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*model.QuizProgress, error)

	// UpdateFlags はis_paused/is_completedフラグのみを保存する。
	UpdateFlags(ctx context.Context, p *model.QuizProgress) error

	// Mutate は進行状況の行ロックを取得した単一トランザクション内でfnを実行する。
	// 行が存在しない・所有者が異なる場合はErrNotFoundを返す。
	// fnがエラーを返した場合は全ての書き込みがロールバックされる。
	Mutate(ctx context.Context, id, userID string, fn func(mu ProgressMutation, p *model.QuizProgress) error) error

	// FreezeStalePaused は指定時刻より前から中断されたままの未完了セッションを
	// 完了扱いに凍結し、件数を返す。
	FreezeStalePaused(ctx context.Context, before time.Time) (int64, error)
}

// ReviewProgressRepository は復習セッションの永続化インターフェース。
type ReviewProgressRepository interface {
	// Create は復習セッションを作成する。
	Create(ctx context.Context, p *model.ReviewProgress) error

	// FindByIDForUser は指定IDかつ指定ユーザー所有の復習セッションを取得する。
	// 見つからない場合はnilを返す。
	FindByIDForUser(ctx context.Context, id, userID string) (*model.ReviewProgress, error)

	// ListByUser はユーザーの復習セッション一覧を新しい順に返す。
	ListByUser(ctx context.Context, userID string, filter ProgressFilter) ([]*model.ReviewProgress, error)

	// UpdateFlags はis_paused/is_completedフラグのみを保存する。
	UpdateFlags(ctx context.Context, p *model.ReviewProgress) error

	// Mutate は復習セッションの行ロックを取得した単一トランザクション内でfnを実行する。
	// 行が存在しない・所有者が異なる場合はErrNotFoundを返す。
	Mutate(ctx context.Context, id, userID string, fn func(mu ProgressMutation, p *model.ReviewProgress) error) error
}

// LevelStat はレベル別の正誤集計。
type LevelStat struct {
	LevelID   int64
	LevelName string
	Total     int
	Correct   int
}

// ModeStat はモード別の正誤集計。
type ModeStat struct {
	Mode    model.Mode
	Total   int
	Correct int
}

// LevelModeStat はレベル×モード別の正誤集計。
type LevelModeStat struct {
	LevelID int64
	Mode    model.Mode
	Total   int
	Correct int
}

// IncorrectFilter は間違えた単語一覧のフィルタ条件。ゼロ値のフィールドは無視される。
type IncorrectFilter struct {
	Mode    model.Mode
	LevelID int64
}

// AttemptRepository は単語ごとの最新正誤レコードの永続化インターフェース。
type AttemptRepository interface {
	// CountTotals はユーザーの全レコードの(総数, 正解数)を返す。
	CountTotals(ctx context.Context, userID string) (total, correct int, err error)

	// StatsByLevel はレベル別集計をレコードが存在するレベルに限って返す。
	StatsByLevel(ctx context.Context, userID string) ([]LevelStat, error)

	// StatsByMode はモード別集計をレコードが存在するモードに限って返す。
	StatsByMode(ctx context.Context, userID string) ([]ModeStat, error)

	// StatsByLevelAndMode はレベル×モード別集計を返す。
	StatsByLevelAndMode(ctx context.Context, userID string) ([]LevelModeStat, error)

	// ListIncorrect は現在不正解とマークされているレコードを
	// 単語・レベル・品詞の表示情報付きで返す。
	ListIncorrect(ctx context.Context, userID string, filter IncorrectFilter) ([]model.IncorrectWord, error)

	// ListIncorrectWordIDs は指定モードで不正解の単語IDを返す。
	ListIncorrectWordIDs(ctx context.Context, userID string, mode model.Mode) ([]int64, error)
}

// InquiryRepository はお問い合わせの永続化インターフェース。
type InquiryRepository interface {
	// Create はお問い合わせを作成する。
	Create(ctx context.Context, inquiry *model.Inquiry) error
	// ListByUserID はユーザーのお問い合わせ一覧を新しい順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Inquiry, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
