package model

import "time"

// Mode は出題方向を表す。
// プロンプトに表示する言語と正誤判定のルールを決める。
type Mode string

const (
	// ModeEn は英訳モード（日本語を提示し英語で回答する）。
	ModeEn Mode = "en"
	// ModeJp は和訳モード（英語を提示し日本語で回答する）。
	ModeJp Mode = "jp"
)

// IsValid はサポートされているモードかどうかを返す。
func (m Mode) IsValid() bool {
	return m == ModeEn || m == ModeJp
}

// QuizMode は出題プールの選び方を表す。
type QuizMode string

const (
	// QuizModeNormal はレベルの全単語を出題する。
	QuizModeNormal QuizMode = "normal"
	// QuizModeTest はレベルからランダムに最大100問を出題する。
	QuizModeTest QuizMode = "test"
	// QuizModeReplay は過去に間違えた単語のみを出題する。
	QuizModeReplay QuizMode = "replay"
)

// IsValid はサポートされているクイズモードかどうかを返す。
func (q QuizMode) IsValid() bool {
	return q == QuizModeNormal || q == QuizModeTest || q == QuizModeReplay
}

// QuizProgress は1セッション分のクイズ進行状況を表す。
//
// QuestionIDsは作成時に一度だけシャッフルして確定する不変の出題順で、
// 以後再クエリしない。常に次の不変条件を満たす:
//
//	0 <= CurrentQuestionIndex <= TotalQuestions
//	Score <= CurrentQuestionIndex
//	len(QuestionIDs) == TotalQuestions
type QuizProgress struct {
	ID                   string
	UserID               string
	LevelID              int64
	LevelName            string
	Mode                 Mode
	QuizMode             QuizMode
	Score                int
	TotalQuestions       int
	CurrentQuestionIndex int
	QuestionIDs          []int64
	IsCompleted          bool
	IsPaused             bool
	CompletedAt          time.Time
}

// ReviewProgress は復習セッションの進行状況を表す。
// レベルではなく過去に間違えた単語の集合を対象にする点以外は
// QuizProgressと同じ状態機械に従う。
type ReviewProgress struct {
	ID                   string
	UserID               string
	Mode                 Mode
	Score                int
	TotalQuestions       int
	CurrentQuestionIndex int
	QuestionIDs          []int64
	IsCompleted          bool
	IsPaused             bool
	CreatedAt            time.Time
}

// WordAttempt は(ユーザー, 単語, モード)ごとの最新の正誤結果を表す。
// 回答のたびにUPSERTされる最新結果キャッシュであり、履歴ログではない。
type WordAttempt struct {
	ID              string
	UserID          string
	WordID          int64
	Mode            Mode
	IsCorrect       bool
	LastAttemptedAt time.Time
}

// IncorrectWord は間違えた単語の一覧表示用に、
// 正誤レコードと単語・レベル・品詞の表示情報を結合したもの。
type IncorrectWord struct {
	WordAttempt
	Word Word
}
