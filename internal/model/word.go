// Package model はドメインモデルを定義する。
package model

// Level は単語の難易度を表す参照データ。
type Level struct {
	ID          int64
	Name        string
	Description string
}

// PartOfSpeech は品詞を表す参照データ。
type PartOfSpeech struct {
	ID   int64
	Name string
}

// Word は英語・日本語の単語ペアを表す。
// Japaneseはカンマ区切りで複数の訳を持つことがある。
// 管理者のインポート操作でのみ作成され、クイズ側からは読み取り専用。
type Word struct {
	ID               int64
	English          string
	Japanese         string
	PartOfSpeechID   int64
	PartOfSpeechName string
	LevelID          int64
	LevelName        string
	Phrase           string
}
