package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, quiz, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "TOKEN_INVALID"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeLevelNotFound    = "LEVEL_NOT_FOUND"
	ErrCodeWordNotFound     = "WORD_NOT_FOUND"
	ErrCodeProgressNotFound = "PROGRESS_NOT_FOUND"
	ErrCodeEmptyLevel       = "EMPTY_LEVEL"
	ErrCodeNoReplayWords    = "NO_REPLAY_WORDS"
	ErrCodeNoReviewWords    = "NO_REVIEW_WORDS"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeInquiryNotFound  = "INQUIRY_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてトークンを取得し直してください。",
	}
}

// NewTokenInvalidError は無効トークンエラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "無効なトークンです。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewLevelNotFoundError はレベル未検出エラーを生成する。
func NewLevelNotFoundError(levelID int64) *APIError {
	return &APIError{
		Code:     ErrCodeLevelNotFound,
		Message:  fmt.Sprintf("指定された難易度が見つかりません: %d", levelID),
		Category: "validation",
		Action:   "難易度IDを確認してください。",
	}
}

// NewWordNotFoundError は単語未検出エラーを生成する。
func NewWordNotFoundError(wordID int64) *APIError {
	return &APIError{
		Code:     ErrCodeWordNotFound,
		Message:  fmt.Sprintf("指定された単語が見つかりません: %d", wordID),
		Category: "quiz",
		Action:   "単語IDを確認してください。",
	}
}

// NewProgressNotFoundError は進行状況未検出エラーを生成する。
// 存在しない場合と他ユーザー所有・状態不正の場合を意図的に区別しない。
func NewProgressNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProgressNotFound,
		Message:  "指定された進行状況が見つかりません。",
		Category: "quiz",
		Action:   "進行状況IDを確認してください。",
	}
}

// NewEmptyLevelError は出題対象の単語がないレベルに対するエラーを生成する。
func NewEmptyLevelError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyLevel,
		Message:  "この難易度には出題できる単語がありません。",
		Category: "quiz",
		Action:   "別の難易度を選択してください。",
	}
}

// NewNoReplayWordsError はリプレイ対象の単語がない場合のエラーを生成する。
func NewNoReplayWordsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoReplayWords,
		Message:  "リプレイする問題がありません。まず通常モードで学習してください。",
		Category: "quiz",
		Action:   "通常モードで学習してから再度お試しください。",
	}
}

// NewNoReviewWordsError は復習対象の単語がない場合のエラーを生成する。
func NewNoReviewWordsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoReviewWords,
		Message:  "復習する問題がありません。",
		Category: "quiz",
		Action:   "クイズで学習してから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
