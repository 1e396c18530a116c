package repository

import (
	"testing"

	"github.com/hitoshi/tangobook/internal/model"
)

// PostgresWordRepoがWordRepositoryインターフェースを満たすことを検証
func TestPostgresWordRepo_ImplementsInterface(t *testing.T) {
	var _ WordRepository = (*PostgresWordRepo)(nil)
}

// NewPostgresWordRepoが正しく初期化されることを検証
func TestNewPostgresWordRepo_Initializes(t *testing.T) {
	repo := NewPostgresWordRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Wordモデルのフィールドが正しく構築されることを検証
func TestPostgresWordRepo_WordModel_Fields(t *testing.T) {
	word := &model.Word{
		ID:               1,
		English:          "apple",
		Japanese:         "りんご,リンゴ",
		PartOfSpeechID:   2,
		PartOfSpeechName: "名詞",
		LevelID:          3,
		LevelName:        "初級",
		Phrase:           "I ate an apple.",
	}

	if word.English != "apple" {
		t.Errorf("word.English = %q, want %q", word.English, "apple")
	}
	if word.Japanese != "りんご,リンゴ" {
		t.Errorf("word.Japanese = %q, want %q", word.Japanese, "りんご,リンゴ")
	}
	if word.LevelName != "初級" {
		t.Errorf("word.LevelName = %q, want %q", word.LevelName, "初級")
	}
}

// Wordの例文フィールドが省略可能であることを検証
func TestPostgresWordRepo_WordModel_EmptyPhrase(t *testing.T) {
	word := &model.Word{
		ID:       2,
		English:  "grape",
		Japanese: "ぶどう",
	}

	if word.Phrase != "" {
		t.Error("phrase should be empty by default")
	}
}

// LIKEパターンのメタ文字がエスケープされることを検証
func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "通常の文字列はそのまま", input: "apple", want: "apple"},
		{name: "パーセントをエスケープ", input: "100%", want: `100\%`},
		{name: "アンダースコアをエスケープ", input: "part_of", want: `part\_of`},
		{name: "バックスラッシュをエスケープ", input: `a\b`, want: `a\\b`},
		{name: "ワイルドカードのみ", input: "%", want: `\%`},
		{name: "複合", input: `%_\`, want: `\%\_\\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLike(tt.input); got != tt.want {
				t.Errorf("escapeLike(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// WordFilterのゼロ値が全件を意味することを検証
func TestWordFilter_ZeroValue(t *testing.T) {
	var filter WordFilter

	if filter.LevelID != 0 {
		t.Errorf("filter.LevelID = %d, want 0", filter.LevelID)
	}
	if filter.PartOfSpeechID != 0 {
		t.Errorf("filter.PartOfSpeechID = %d, want 0", filter.PartOfSpeechID)
	}
	if filter.Ordering != "" {
		t.Errorf("filter.Ordering = %q, want empty", filter.Ordering)
	}
}
