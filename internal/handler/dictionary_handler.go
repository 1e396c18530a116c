package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tangobook/internal/dictionary"
	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// DictionaryServiceInterface は辞書ハンドラーが必要とするサービスインターフェース。
type DictionaryServiceInterface interface {
	ListWords(ctx context.Context, filter repository.WordFilter) ([]*model.Word, error)
	GetWord(ctx context.Context, id int64) (*model.Word, error)
	Search(ctx context.Context, query string, filter repository.WordFilter, limit int) ([]*model.Word, error)
	RandomWord(ctx context.Context, levelID int64) (*model.Word, error)
	ListLevels(ctx context.Context) ([]dictionary.LevelWithCount, error)
	ListPartsOfSpeech(ctx context.Context) ([]*model.PartOfSpeech, error)
}

// DictionaryHandler は単語辞書のHTTPハンドラー。
type DictionaryHandler struct {
	service DictionaryServiceInterface
}

// NewDictionaryHandler はDictionaryHandlerを生成する。
func NewDictionaryHandler(service DictionaryServiceInterface) *DictionaryHandler {
	return &DictionaryHandler{service: service}
}

// wordResponse は単語のAPIレスポンス。
type wordResponse struct {
	ID           int64  `json:"id"`
	English      string `json:"english"`
	Japanese     string `json:"japanese"`
	PartOfSpeech string `json:"part_of_speech"`
	LevelID      int64  `json:"level_id"`
	LevelName    string `json:"level_name"`
	Phrase       string `json:"phrase,omitempty"`
}

func toWordResponse(word *model.Word) wordResponse {
	return wordResponse{
		ID:           word.ID,
		English:      word.English,
		Japanese:     word.Japanese,
		PartOfSpeech: word.PartOfSpeechName,
		LevelID:      word.LevelID,
		LevelName:    word.LevelName,
		Phrase:       word.Phrase,
	}
}

func toWordResponses(words []*model.Word) []wordResponse {
	resp := make([]wordResponse, 0, len(words))
	for _, word := range words {
		resp = append(resp, toWordResponse(word))
	}
	return resp
}

// parseWordFilter はlevel_id/part_of_speech_id/orderingクエリパラメータを解析する。
func parseWordFilter(r *http.Request) (repository.WordFilter, *model.APIError) {
	var filter repository.WordFilter
	if raw := r.URL.Query().Get("level_id"); raw != "" {
		levelID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, model.NewInvalidRequestError("level_idは整数で指定してください")
		}
		filter.LevelID = levelID
	}
	if raw := r.URL.Query().Get("part_of_speech_id"); raw != "" {
		posID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, model.NewInvalidRequestError("part_of_speech_idは整数で指定してください")
		}
		filter.PartOfSpeechID = posID
	}
	filter.Ordering = r.URL.Query().Get("ordering")
	return filter, nil
}

// ListWords は単語一覧を返す。
// GET /api/dictionary/words?level_id=&part_of_speech_id=&ordering=
func (h *DictionaryHandler) ListWords(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseWordFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	words, err := h.service.ListWords(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWordResponses(words))
}

// GetWord は単語詳細を返す。
// GET /api/dictionary/words/{id}
func (h *DictionaryHandler) GetWord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("単語IDは整数で指定してください"))
		return
	}

	word, err := h.service.GetWord(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWordResponse(word))
}

// Search は単語を検索する。
// GET /api/dictionary/search?q=&level_id=&part_of_speech_id=&limit=
func (h *DictionaryHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseWordFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("limitは整数で指定してください"))
			return
		}
		limit = parsed
	}

	words, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), filter, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWordResponses(words))
}

// RandomWord はランダムな単語を1件返す。
// GET /api/dictionary/random?level_id=
func (h *DictionaryHandler) RandomWord(w http.ResponseWriter, r *http.Request) {
	var levelID int64
	if raw := r.URL.Query().Get("level_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("level_idは整数で指定してください"))
			return
		}
		levelID = parsed
	}

	word, err := h.service.RandomWord(r.Context(), levelID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWordResponse(word))
}

// levelResponse はレベルのAPIレスポンス。
type levelResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WordCount   int    `json:"word_count"`
}

// ListLevels はレベル一覧を返す。
// GET /api/dictionary/levels
func (h *DictionaryHandler) ListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.ListLevels(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]levelResponse, 0, len(levels))
	for _, lv := range levels {
		resp = append(resp, levelResponse{
			ID:          lv.Level.ID,
			Name:        lv.Level.Name,
			Description: lv.Level.Description,
			WordCount:   lv.WordCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// partOfSpeechResponse は品詞のAPIレスポンス。
type partOfSpeechResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListPartsOfSpeech は品詞一覧を返す。
// GET /api/dictionary/parts-of-speech
func (h *DictionaryHandler) ListPartsOfSpeech(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPartsOfSpeech(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]partOfSpeechResponse, 0, len(list))
	for _, pos := range list {
		resp = append(resp, partOfSpeechResponse{ID: pos.ID, Name: pos.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}
