package repository

import (
	"testing"
)

// TestPostgresUserRepo_ImplementsInterface はPostgresUserRepoがUserRepositoryを実装することを検証する。
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresUserRepoがUserRepositoryを満たすことを検証
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestPostgresSessionRepo_ImplementsInterface はPostgresSessionRepoがSessionRepositoryを実装することを検証する。
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
