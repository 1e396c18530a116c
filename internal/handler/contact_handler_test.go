package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/tangobook/internal/model"
)

type mockContactService struct {
	submitFn func(ctx context.Context, user *model.User, subject, body string) (*model.Inquiry, error)
	listFn   func(ctx context.Context, userID string) ([]*model.Inquiry, error)
}

func (m *mockContactService) Submit(ctx context.Context, user *model.User, subject, body string) (*model.Inquiry, error) {
	return m.submitFn(ctx, user, subject, body)
}
func (m *mockContactService) List(ctx context.Context, userID string) ([]*model.Inquiry, error) {
	return m.listFn(ctx, userID)
}

// TestContactHandler_Submit はお問い合わせ送信を検証する。
func TestContactHandler_Submit(t *testing.T) {
	svc := &mockContactService{
		submitFn: func(ctx context.Context, u *model.User, subject, body string) (*model.Inquiry, error) {
			if u.ID != "user-1" || subject != "不具合報告" {
				t.Errorf("args = %q, %q", u.ID, subject)
			}
			return &model.Inquiry{
				ID: "inq-1", UserID: u.ID, Subject: subject, Context: body, CreatedAt: time.Now(),
			}, nil
		},
	}
	h := NewContactHandler(svc)

	req := newAuthedRequest(http.MethodPost, "/api/contact",
		`{"subject": "不具合報告", "context": "回答が保存されません"}`)
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp inquiryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != "inq-1" || resp.Subject != "不具合報告" {
		t.Errorf("resp = %+v", resp)
	}
}

// TestContactHandler_Submit_Invalid はバリデーションエラーの400を検証する。
func TestContactHandler_Submit_Invalid(t *testing.T) {
	svc := &mockContactService{
		submitFn: func(ctx context.Context, u *model.User, subject, body string) (*model.Inquiry, error) {
			return nil, model.NewInvalidRequestError("件名は必須です")
		},
	}
	h := NewContactHandler(svc)

	req := newAuthedRequest(http.MethodPost, "/api/contact", `{"subject": "", "context": "x"}`)
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestContactHandler_List は履歴一覧の取得を検証する。
func TestContactHandler_List(t *testing.T) {
	svc := &mockContactService{
		listFn: func(ctx context.Context, userID string) ([]*model.Inquiry, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return []*model.Inquiry{
				{ID: "inq-2", UserID: userID, Subject: "要望", Context: "ダークモードが欲しいです"},
				{ID: "inq-1", UserID: userID, Subject: "不具合報告", Context: "回答が保存されません"},
			}, nil
		},
	}
	h := NewContactHandler(svc)

	req := newAuthedRequest(http.MethodGet, "/api/contact", "")
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp []inquiryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != "inq-2" {
		t.Errorf("resp = %+v", resp)
	}
}
