package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
	"github.com/hitoshi/tangobook/internal/security"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
	updateDisplayNameFn func(ctx context.Context, id, displayName string) error
	deleteByIDFn        func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockUserRepo) ResolveExternal(ctx context.Context, subjectID, email, displayName string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	return m.updateDisplayNameFn(ctx, id, displayName)
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}
func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type mockWordRepo struct {
	listLevelsFn   func(ctx context.Context) ([]*model.Level, error)
	countByLevelFn func(ctx context.Context, levelID int64) (int, error)
}

func (m *mockWordRepo) FindByID(ctx context.Context, id int64) (*model.Word, error) {
	return nil, nil
}
func (m *mockWordRepo) List(ctx context.Context, filter repository.WordFilter) ([]*model.Word, error) {
	return nil, nil
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
	return nil, nil
}
func (m *mockWordRepo) Random(ctx context.Context, levelID int64) (*model.Word, error) {
	return nil, nil
}
func (m *mockWordRepo) FindLevelByID(ctx context.Context, id int64) (*model.Level, error) {
	return nil, nil
}
func (m *mockWordRepo) ListLevels(ctx context.Context) ([]*model.Level, error) {
	return m.listLevelsFn(ctx)
}
func (m *mockWordRepo) ListPartsOfSpeech(ctx context.Context) ([]*model.PartOfSpeech, error) {
	return nil, nil
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

type mockAttemptRepo struct {
	statsByLevelAndModeFn func(ctx context.Context, userID string) ([]repository.LevelModeStat, error)
}

func (m *mockAttemptRepo) CountTotals(ctx context.Context, userID string) (int, int, error) {
	return 0, 0, nil
}
func (m *mockAttemptRepo) StatsByLevel(ctx context.Context, userID string) ([]repository.LevelStat, error) {
	return nil, nil
}
func (m *mockAttemptRepo) StatsByMode(ctx context.Context, userID string) ([]repository.ModeStat, error) {
	return nil, nil
}
func (m *mockAttemptRepo) StatsByLevelAndMode(ctx context.Context, userID string) ([]repository.LevelModeStat, error) {
	return m.statsByLevelAndModeFn(ctx, userID)
}
func (m *mockAttemptRepo) ListIncorrect(ctx context.Context, userID string, filter repository.IncorrectFilter) ([]model.IncorrectWord, error) {
	return nil, nil
}
func (m *mockAttemptRepo) ListIncorrectWordIDs(ctx context.Context, userID string, mode model.Mode) ([]int64, error) {
	return nil, nil
}

func existingUser(id string) func(ctx context.Context, id string) (*model.User, error) {
	return func(ctx context.Context, got string) (*model.User, error) {
		if got == id {
			return &model.User{ID: id, Email: "tanaka@example.com", DisplayName: "tanaka", IsActive: true}, nil
		}
		return nil, nil
	}
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

// TestService_UpdateProfile は表示名の更新とサニタイズを検証する。
func TestService_UpdateProfile(t *testing.T) {
	var savedName string
	userRepo := &mockUserRepo{
		findByIDFn: existingUser("user-1"),
		updateDisplayNameFn: func(ctx context.Context, id, displayName string) error {
			savedName = displayName
			return nil
		},
	}
	svc := NewService(userRepo, nil, nil, nil, security.NewSanitizer())

	user, err := svc.UpdateProfile(context.Background(), "user-1", "  <b>田中</b>太郎  ")
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if savedName != "田中太郎" {
		t.Errorf("saved name = %q, want 田中太郎", savedName)
	}
	if user.DisplayName != "田中太郎" {
		t.Errorf("DisplayName = %q, want 田中太郎", user.DisplayName)
	}
}

// TestService_UpdateProfile_Invalid は不正な表示名の拒否を検証する。
func TestService_UpdateProfile_Invalid(t *testing.T) {
	userRepo := &mockUserRepo{findByIDFn: existingUser("user-1")}
	svc := NewService(userRepo, nil, nil, nil, security.NewSanitizer())

	tests := []struct {
		name  string
		input string
	}{
		{"空文字", "   "},
		{"タグ除去後に空", "<script>alert(1)</script>"},
		{"長すぎる", strings.Repeat("あ", 51)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), "user-1", tt.input)
			if code := apiErrCode(t, err); code != model.ErrCodeInvalidRequest {
				t.Errorf("Code = %q, want %q", code, model.ErrCodeInvalidRequest)
			}
		})
	}
}

// TestService_Detail はレベル×モード別の習熟状況を検証する。
func TestService_Detail(t *testing.T) {
	userRepo := &mockUserRepo{findByIDFn: existingUser("user-1")}
	wordRepo := &mockWordRepo{
		listLevelsFn: func(ctx context.Context) ([]*model.Level, error) {
			return []*model.Level{
				{ID: 1, Name: "TOEIC 600"},
				{ID: 2, Name: "TOEIC 800"},
			}, nil
		},
		countByLevelFn: func(ctx context.Context, levelID int64) (int, error) {
			return 100, nil
		},
	}
	attemptRepo := &mockAttemptRepo{
		statsByLevelAndModeFn: func(ctx context.Context, userID string) ([]repository.LevelModeStat, error) {
			return []repository.LevelModeStat{
				{LevelID: 1, Mode: model.ModeEn, Total: 10, Correct: 4},
				{LevelID: 1, Mode: model.ModeJp, Total: 8, Correct: 8},
			}, nil
		},
	}
	svc := NewService(userRepo, nil, wordRepo, attemptRepo, security.NewSanitizer())

	detail, err := svc.Detail(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if len(detail.Mastery) != 2 {
		t.Fatalf("len(Mastery) = %d, want 2", len(detail.Mastery))
	}
	first := detail.Mastery[0]
	if first.WordCount != 100 {
		t.Errorf("WordCount = %d, want 100", first.WordCount)
	}
	if first.En.CorrectRate != 40.0 || first.Jp.CorrectRate != 100.0 {
		t.Errorf("rates = %v/%v, want 40.0/100.0", first.En.CorrectRate, first.Jp.CorrectRate)
	}
	// 未挑戦レベルはゼロ値
	second := detail.Mastery[1]
	if second.En.Attempted != 0 || second.En.CorrectRate != 0.0 {
		t.Errorf("untouched level should have zero mastery, got %+v", second.En)
	}
}

// TestService_Withdraw は退会処理を検証する。
func TestService_Withdraw(t *testing.T) {
	sessionsDeleted := false
	userDeleted := false
	userRepo := &mockUserRepo{
		findByIDFn: existingUser("user-1"),
		deleteByIDFn: func(ctx context.Context, id string) error {
			userDeleted = true
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			sessionsDeleted = true
			return nil
		},
	}
	svc := NewService(userRepo, sessionRepo, nil, nil, security.NewSanitizer())

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if !sessionsDeleted || !userDeleted {
		t.Errorf("sessionsDeleted = %v, userDeleted = %v, want both true", sessionsDeleted, userDeleted)
	}

	err := svc.Withdraw(context.Background(), "user-x")
	if code := apiErrCode(t, err); code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", code, model.ErrCodeUserNotFound)
	}
}
