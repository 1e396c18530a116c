// Package security はユーザー入力のサニタイズを提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はユーザー入力からHTMLタグを除去する。
// 表示名・お問い合わせ本文など、他ユーザーや管理者の画面に
// 表示されうる自由入力のテキストはすべてここを通す。
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer はタグを一切許可しないSanitizerを生成する。
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
func (s *Sanitizer) Clean(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
