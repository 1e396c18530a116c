package security

import "testing"

// TestSanitizer_Clean はHTML除去と空白整形を検証する。
func TestSanitizer_Clean(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキスト", "こんにちは", "こんにちは"},
		{"スクリプトタグ", `<script>alert("x")</script>日本語`, "日本語"},
		{"装飾タグ", "<b>太字</b>のまま", "太字のまま"},
		{"前後の空白", "  spaced  ", "spaced"},
		{"空文字", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
