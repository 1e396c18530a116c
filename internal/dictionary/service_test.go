package dictionary

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// --- モック ---

type mockWordRepo struct {
	findByIDFn      func(ctx context.Context, id int64) (*model.Word, error)
	listFn          func(ctx context.Context, filter repository.WordFilter) ([]*model.Word, error)
	searchFn        func(ctx context.Context, query string, filter repository.WordFilter, limit int) ([]*model.Word, error)
	randomFn        func(ctx context.Context, levelID int64) (*model.Word, error)
	findLevelByIDFn func(ctx context.Context, id int64) (*model.Level, error)
	listLevelsFn    func(ctx context.Context) ([]*model.Level, error)
	countByLevelFn  func(ctx context.Context, levelID int64) (int, error)
}

func (m *mockWordRepo) FindByID(ctx context.Context, id int64) (*model.Word, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockWordRepo) List(ctx context.Context, filter repository.WordFilter) ([]*model.Word, error) {
	return m.listFn(ctx, filter)
}
func (m *mockWordRepo) ListByIDs(ctx context.Context, ids []int64) ([]*model.Word, error) {
	return nil, nil
}
func (m *mockWordRepo) ListIDsByLevel(ctx context.Context, levelID int64) ([]int64, error) {
	return nil, nil
}
func (m *mockWordRepo) CountByLevel(ctx context.Context, levelID int64) (int, error) {
	return m.countByLevelFn(ctx, levelID)
}
func (m *mockWordRepo) Search(ctx context.Context, query string, filter repository.WordFilter, limit int) ([]*model.Word, error) {
	return m.searchFn(ctx, query, filter, limit)
}
func (m *mockWordRepo) Random(ctx context.Context, levelID int64) (*model.Word, error) {
	return m.randomFn(ctx, levelID)
}
func (m *mockWordRepo) FindLevelByID(ctx context.Context, id int64) (*model.Level, error) {
	return m.findLevelByIDFn(ctx, id)
}
func (m *mockWordRepo) ListLevels(ctx context.Context) ([]*model.Level, error) {
	return m.listLevelsFn(ctx)
}
func (m *mockWordRepo) ListPartsOfSpeech(ctx context.Context) ([]*model.PartOfSpeech, error) {
	return []*model.PartOfSpeech{{ID: 1, Name: "名詞"}}, nil
}
func (m *mockWordRepo) GetOrCreateLevel(ctx context.Context, name string) (*model.Level, error) {
	return nil, nil
}
func (m *mockWordRepo) GetOrCreatePartOfSpeech(ctx context.Context, name string) (*model.PartOfSpeech, error) {
	return nil, nil
}
func (m *mockWordRepo) UpsertWord(ctx context.Context, word *model.Word) (bool, error) {
	return false, nil
}

func apiErrCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

// --- テスト ---

// TestService_ListWords は単語一覧の取得と並び順の検証をする。
func TestService_ListWords(t *testing.T) {
	repo := &mockWordRepo{
		listFn: func(ctx context.Context, filter repository.WordFilter) ([]*model.Word, error) {
			if filter.LevelID != 2 || filter.Ordering != "english" {
				t.Errorf("filter = %+v, want level 2 ordering english", filter)
			}
			return []*model.Word{{ID: 1, English: "apple"}}, nil
		},
	}
	svc := NewService(repo)

	words, err := svc.ListWords(context.Background(), repository.WordFilter{LevelID: 2, Ordering: "english"})
	if err != nil {
		t.Fatalf("ListWords returned error: %v", err)
	}
	if len(words) != 1 || words[0].English != "apple" {
		t.Errorf("words = %+v, want apple", words)
	}

	_, err = svc.ListWords(context.Background(), repository.WordFilter{Ordering: "japanese"})
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidRequest {
		t.Errorf("Code = %q, want %q", code, model.ErrCodeInvalidRequest)
	}
}

// TestService_GetWord は単語詳細の取得を検証する。
func TestService_GetWord(t *testing.T) {
	repo := &mockWordRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.Word, error) {
			if id == 1 {
				return &model.Word{ID: 1, English: "apple", Japanese: "りんご"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo)

	word, err := svc.GetWord(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetWord returned error: %v", err)
	}
	if word.Japanese != "りんご" {
		t.Errorf("Japanese = %q, want りんご", word.Japanese)
	}

	_, err = svc.GetWord(context.Background(), 99)
	if code := apiErrCode(t, err); code != model.ErrCodeWordNotFound {
		t.Errorf("Code = %q, want %q", code, model.ErrCodeWordNotFound)
	}
}

// TestService_Search は単語検索を検証する。
func TestService_Search(t *testing.T) {
	searched := false
	repo := &mockWordRepo{
		searchFn: func(ctx context.Context, query string, filter repository.WordFilter, limit int) ([]*model.Word, error) {
			searched = true
			if query != "app" {
				t.Errorf("query = %q, want app", query)
			}
			if limit != 50 {
				t.Errorf("limit = %d, want 50", limit)
			}
			return []*model.Word{{ID: 1, English: "apple"}}, nil
		},
	}
	svc := NewService(repo)

	words, err := svc.Search(context.Background(), " app ", repository.WordFilter{}, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(words) != 1 {
		t.Errorf("len(words) = %d, want 1", len(words))
	}

	// 空のクエリはリポジトリに問い合わせずエラーにする
	searched = false
	_, err = svc.Search(context.Background(), "   ", repository.WordFilter{}, 0)
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidRequest {
		t.Errorf("Code = %q, want %q", code, model.ErrCodeInvalidRequest)
	}
	if searched {
		t.Error("empty query should not hit the repository")
	}
}

// TestService_Search_LimitClamp はlimitの既定値と上限への丸めを検証する。
func TestService_Search_LimitClamp(t *testing.T) {
	var gotLimit int
	repo := &mockWordRepo{
		searchFn: func(ctx context.Context, query string, filter repository.WordFilter, limit int) ([]*model.Word, error) {
			gotLimit = limit
			return []*model.Word{}, nil
		},
	}
	svc := NewService(repo)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"ゼロは既定値", 0, 50},
		{"負数は既定値", -1, 50},
		{"範囲内はそのまま", 10, 10},
		{"上限超過は上限", 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Search(context.Background(), "app", repository.WordFilter{}, tt.limit); err != nil {
				t.Fatalf("Search returned error: %v", err)
			}
			if gotLimit != tt.want {
				t.Errorf("limit = %d, want %d", gotLimit, tt.want)
			}
		})
	}
}

// TestService_RandomWord はランダム出題の取得を検証する。
func TestService_RandomWord(t *testing.T) {
	repo := &mockWordRepo{
		findLevelByIDFn: func(ctx context.Context, id int64) (*model.Level, error) {
			if id == 1 {
				return &model.Level{ID: 1, Name: "TOEIC 600"}, nil
			}
			return nil, nil
		},
		randomFn: func(ctx context.Context, levelID int64) (*model.Word, error) {
			if levelID == 1 {
				return &model.Word{ID: 3, English: "grape"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo)

	word, err := svc.RandomWord(context.Background(), 1)
	if err != nil {
		t.Fatalf("RandomWord returned error: %v", err)
	}
	if word.English != "grape" {
		t.Errorf("English = %q, want grape", word.English)
	}

	_, err = svc.RandomWord(context.Background(), 42)
	if code := apiErrCode(t, err); code != model.ErrCodeLevelNotFound {
		t.Errorf("Code = %q, want %q", code, model.ErrCodeLevelNotFound)
	}
}

// TestService_ListLevels はレベル一覧と単語数の取得を検証する。
func TestService_ListLevels(t *testing.T) {
	repo := &mockWordRepo{
		listLevelsFn: func(ctx context.Context) ([]*model.Level, error) {
			return []*model.Level{
				{ID: 1, Name: "TOEIC 600"},
				{ID: 2, Name: "TOEIC 800"},
			}, nil
		},
		countByLevelFn: func(ctx context.Context, levelID int64) (int, error) {
			return int(levelID * 10), nil
		},
	}
	svc := NewService(repo)

	levels, err := svc.ListLevels(context.Background())
	if err != nil {
		t.Fatalf("ListLevels returned error: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("len(levels) = %d, want 2", len(levels))
	}
	if levels[1].Level.Name != "TOEIC 800" || levels[1].WordCount != 20 {
		t.Errorf("levels[1] = %+v, want TOEIC 800 with 20 words", levels[1])
	}
}
