package model

import "time"

// Inquiry はお問い合わせフォームからの投稿を表す。
type Inquiry struct {
	ID        string
	UserID    string
	Subject   string
	Context   string
	CreatedAt time.Time
}
