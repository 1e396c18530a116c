// Package dictionary は単語辞書の参照APIを提供する。
// 単語・レベル・品詞は管理者のインポート操作でのみ更新される
// 参照データで、このパッケージからは読み取り専用。
package dictionary

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// 検索結果件数の既定値と上限。
const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
)

// LevelWithCount はレベルと所属単語数の組。
type LevelWithCount struct {
	Level     model.Level
	WordCount int
}

// Service は辞書参照のビジネスロジックを提供する。
type Service struct {
	wordRepo repository.WordRepository
}

// NewService はServiceを生成する。
func NewService(wordRepo repository.WordRepository) *Service {
	return &Service{wordRepo: wordRepo}
}

// ListWords はフィルタ条件に一致する単語一覧を返す。
// orderingは "id"（既定）、"english"、"-english" のいずれか。
func (s *Service) ListWords(ctx context.Context, filter repository.WordFilter) ([]*model.Word, error) {
	switch filter.Ordering {
	case "", "id", "english", "-english":
	default:
		return nil, model.NewInvalidRequestError("orderingはid、english、-englishのいずれかを指定してください")
	}
	words, err := s.wordRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	return words, nil
}

// GetWord は指定IDの単語を取得する。
func (s *Service) GetWord(ctx context.Context, id int64) (*model.Word, error) {
	word, err := s.wordRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find word: %w", err)
	}
	if word == nil {
		return nil, model.NewWordNotFoundError(id)
	}
	return word, nil
}

// Search は英語の前方一致または日本語の部分一致で単語を検索する。
// クエリは必須。limitが0以下なら既定値、上限を超えたら上限に丸める。
func (s *Service) Search(ctx context.Context, query string, filter repository.WordFilter, limit int) ([]*model.Word, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewInvalidRequestError("検索キーワードを指定してください")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	words, err := s.wordRepo.Search(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search words: %w", err)
	}
	return words, nil
}

// RandomWord はランダムな単語を1件返す。levelIDが0以外の場合は
// そのレベルに限定する。対象単語がなければEMPTY_LEVEL。
func (s *Service) RandomWord(ctx context.Context, levelID int64) (*model.Word, error) {
	if levelID != 0 {
		level, err := s.wordRepo.FindLevelByID(ctx, levelID)
		if err != nil {
			return nil, fmt.Errorf("failed to find level: %w", err)
		}
		if level == nil {
			return nil, model.NewLevelNotFoundError(levelID)
		}
	}
	word, err := s.wordRepo.Random(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to pick random word: %w", err)
	}
	if word == nil {
		return nil, model.NewEmptyLevelError()
	}
	return word, nil
}

// ListLevels は全レベルを所属単語数付きでID順に返す。
func (s *Service) ListLevels(ctx context.Context) ([]LevelWithCount, error) {
	levels, err := s.wordRepo.ListLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	result := make([]LevelWithCount, 0, len(levels))
	for _, level := range levels {
		count, err := s.wordRepo.CountByLevel(ctx, level.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count words for level %d: %w", level.ID, err)
		}
		result = append(result, LevelWithCount{Level: *level, WordCount: count})
	}
	return result, nil
}

// ListPartsOfSpeech は全品詞をID順に返す。
func (s *Service) ListPartsOfSpeech(ctx context.Context) ([]*model.PartOfSpeech, error) {
	list, err := s.wordRepo.ListPartsOfSpeech(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts of speech: %w", err)
	}
	return list, nil
}
