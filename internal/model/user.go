// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// SubjectIDは外部IDプロバイダーのsubクレーム。外部トークンで
// 初回認証されるまでnilのままのことがある。
type User struct {
	ID          string
	SubjectID   *string
	Email       string
	DisplayName string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session はユーザーのログインセッションを表す。
// Bearerトークンを持たないブラウザ向けのCookie認証で使用する。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
