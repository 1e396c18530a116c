package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
)

// ContactServiceInterface はお問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, user *model.User, subject, body string) (*model.Inquiry, error)
	List(ctx context.Context, userID string) ([]*model.Inquiry, error)
}

// ContactHandler はお問い合わせのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// submitInquiryRequest はお問い合わせ送信リクエストのボディ。
type submitInquiryRequest struct {
	Subject string `json:"subject"`
	Context string `json:"context"`
}

// inquiryResponse はお問い合わせのAPIレスポンス。
type inquiryResponse struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Context   string    `json:"context"`
	CreatedAt time.Time `json:"created_at"`
}

func toInquiryResponse(inquiry *model.Inquiry) inquiryResponse {
	return inquiryResponse{
		ID:        inquiry.ID,
		Subject:   inquiry.Subject,
		Context:   inquiry.Context,
		CreatedAt: inquiry.CreatedAt,
	}
}

// Submit はお問い合わせを受け付ける。
// POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	authed, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req submitInquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	inquiry, err := h.service.Submit(r.Context(), authed, req.Subject, req.Context)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInquiryResponse(inquiry))
}

// List はユーザー自身のお問い合わせ履歴を返す。
// GET /api/contact
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	authed, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), authed.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]inquiryResponse, 0, len(list))
	for _, inquiry := range list {
		resp = append(resp, toInquiryResponse(inquiry))
	}
	writeJSON(w, http.StatusOK, resp)
}
