package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stackmirror/internal/model"
	"github.com/hitoshi/stackmirror/internal/question"
)

// --- モック定義 ---

// mockQuestionService はQuestionServiceInterfaceのモック実装。
type mockQuestionService struct {
	listFn   func(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error)
	getFn    func(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error)
	createFn func(ctx context.Context, title string, tags []string) (*model.Question, error)
	updateFn func(ctx context.Context, questionID int64, title string, tags []string) (*model.QuestionWithOwner, error)
	deleteFn func(ctx context.Context, questionID int64) error
}

func (m *mockQuestionService) List(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, query)
	}
	return &question.ListResult{Questions: []model.QuestionWithOwner{}}, nil
}

func (m *mockQuestionService) Get(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error) {
	if m.getFn != nil {
		return m.getFn(ctx, questionID)
	}
	return nil, nil
}

func (m *mockQuestionService) Create(ctx context.Context, title string, tags []string) (*model.Question, error) {
	if m.createFn != nil {
		return m.createFn(ctx, title, tags)
	}
	return nil, nil
}

func (m *mockQuestionService) Update(ctx context.Context, questionID int64, title string, tags []string) (*model.QuestionWithOwner, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, questionID, title, tags)
	}
	return nil, nil
}

func (m *mockQuestionService) Delete(ctx context.Context, questionID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, questionID)
	}
	return nil
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func sampleQuestionWithOwner(questionID int64) model.QuestionWithOwner {
	now := time.Now().UTC().Truncate(time.Second)
	return model.QuestionWithOwner{
		Question: model.Question{
			ID:               "uuid-1",
			QuestionID:       questionID,
			Title:            "Goのスライスの初期化方法",
			Tags:             []string{"go", "slice"},
			IsAnswered:       true,
			ViewCount:        120,
			AnswerCount:      3,
			Score:            5,
			LastActivityDate: now,
			CreationDate:     now,
			Link:             "https://stackoverflow.com/questions/1001",
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		Owner: &model.Owner{
			ID:          "owner-uuid-1",
			AccountID:   900,
			UserID:      1234,
			Reputation:  4500,
			UserType:    "registered",
			DisplayName: "gopher",
			Link:        "https://stackoverflow.com/users/1234",
		},
	}
}

// --- GET /api/questions テスト ---

func TestQuestionHandler_ListQuestions_Success(t *testing.T) {
	svc := &mockQuestionService{
		listFn: func(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error) {
			if query.Page != 1 || query.Limit != 10 {
				t.Errorf("query = %+v, want Page:1 Limit:10", query)
			}
			return &question.ListResult{
				Questions: []model.QuestionWithOwner{sampleQuestionWithOwner(1001)},
				Meta:      model.PageMeta{Total: 1, Page: 1, Limit: 10, TotalPages: 1},
			}, nil
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	w := httptest.NewRecorder()

	h.ListQuestions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp listQuestionsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(resp.Questions))
	}
	if resp.Questions[0].QuestionID != 1001 {
		t.Errorf("question_id = %d, want 1001", resp.Questions[0].QuestionID)
	}
	if resp.Questions[0].Owner == nil || resp.Questions[0].Owner.DisplayName != "gopher" {
		t.Errorf("owner = %+v, want display_name gopher", resp.Questions[0].Owner)
	}
	if resp.Meta.Total != 1 || resp.Meta.TotalPages != 1 {
		t.Errorf("meta = %+v", resp.Meta)
	}
}

func TestQuestionHandler_ListQuestions_PassesFilters(t *testing.T) {
	var gotQuery *model.QuestionQuery
	svc := &mockQuestionService{
		listFn: func(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error) {
			gotQuery = query
			return &question.ListResult{Questions: []model.QuestionWithOwner{}}, nil
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions?is_answered=true&tags=go,slice&answer_count_gt=2&sort=score&page=3&limit=20", nil)
	w := httptest.NewRecorder()

	h.ListQuestions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotQuery == nil {
		t.Fatal("サービスにクエリが渡されていない")
	}
	if gotQuery.IsAnswered == nil || !*gotQuery.IsAnswered {
		t.Error("is_answered がパースされていない")
	}
	if len(gotQuery.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", gotQuery.Tags)
	}
	if gotQuery.Sort != model.SortByScore {
		t.Errorf("sort = %q, want %q", gotQuery.Sort, model.SortByScore)
	}
	if gotQuery.Page != 3 || gotQuery.Limit != 20 {
		t.Errorf("page/limit = %d/%d, want 3/20", gotQuery.Page, gotQuery.Limit)
	}
}

func TestQuestionHandler_ListQuestions_InvalidParam_Returns400(t *testing.T) {
	svc := &mockQuestionService{
		listFn: func(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error) {
			t.Fatal("不正なパラメータでサービスが呼ばれるべきではない")
			return nil, nil
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions?answer_count_gt=abc", nil)
	w := httptest.NewRecorder()

	h.ListQuestions(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidQuery {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidQuery)
	}
}

func TestQuestionHandler_ListQuestions_ServiceError_Returns500(t *testing.T) {
	svc := &mockQuestionService{
		listFn: func(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	w := httptest.NewRecorder()

	h.ListQuestions(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInternal)
	}
}

// --- POST /api/questions テスト ---

func TestQuestionHandler_CreateQuestion_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &mockQuestionService{
		createFn: func(ctx context.Context, title string, tags []string) (*model.Question, error) {
			if title != "新しい質問" {
				t.Errorf("title = %q, want %q", title, "新しい質問")
			}
			return &model.Question{
				ID:           "uuid-new",
				QuestionID:   1700000000000,
				Title:        title,
				Tags:         tags,
				CreationDate: now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		},
	}
	h := NewQuestionHandler(svc)

	body, _ := json.Marshal(questionRequest{Title: "新しい質問", Tags: []string{"go"}})
	req := httptest.NewRequest(http.MethodPost, "/api/questions", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.CreateQuestion(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp questionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.QuestionID != 1700000000000 {
		t.Errorf("question_id = %d", resp.QuestionID)
	}
	if resp.Owner != nil {
		t.Error("ローカル作成質問にオーナーは付かない")
	}
}

func TestQuestionHandler_CreateQuestion_InvalidBody_Returns400(t *testing.T) {
	h := NewQuestionHandler(&mockQuestionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/questions", bytes.NewReader([]byte("{invalid")))
	w := httptest.NewRecorder()

	h.CreateQuestion(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQuestionHandler_CreateQuestion_ValidationError_Returns400(t *testing.T) {
	svc := &mockQuestionService{
		createFn: func(ctx context.Context, title string, tags []string) (*model.Question, error) {
			return nil, model.NewValidationError("title は必須です。")
		},
	}
	h := NewQuestionHandler(svc)

	body, _ := json.Marshal(questionRequest{Title: "", Tags: nil})
	req := httptest.NewRequest(http.MethodPost, "/api/questions", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.CreateQuestion(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	respBody := parseAPIErrorResponse(t, w)
	if respBody["code"] != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", respBody["code"], model.ErrCodeValidation)
	}
}

// --- GET /api/questions/{id} テスト ---

func TestQuestionHandler_GetQuestion_Success(t *testing.T) {
	svc := &mockQuestionService{
		getFn: func(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error) {
			if questionID != 1001 {
				t.Errorf("questionID = %d, want 1001", questionID)
			}
			qo := sampleQuestionWithOwner(questionID)
			return &qo, nil
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions/1001", nil)
	req = withChiURLParam(req, "id", "1001")
	w := httptest.NewRecorder()

	h.GetQuestion(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp questionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.QuestionID != 1001 {
		t.Errorf("question_id = %d, want 1001", resp.QuestionID)
	}
}

func TestQuestionHandler_GetQuestion_NotFound_Returns404(t *testing.T) {
	svc := &mockQuestionService{
		getFn: func(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error) {
			return nil, model.NewQuestionNotFoundError(questionID)
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions/9999", nil)
	req = withChiURLParam(req, "id", "9999")
	w := httptest.NewRecorder()

	h.GetQuestion(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeQuestionNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeQuestionNotFound)
	}
}

func TestQuestionHandler_GetQuestion_NonNumericID_Returns400(t *testing.T) {
	svc := &mockQuestionService{
		getFn: func(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error) {
			t.Fatal("不正なIDでサービスが呼ばれるべきではない")
			return nil, nil
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/questions/abc", nil)
	req = withChiURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.GetQuestion(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/questions/{id} テスト ---

func TestQuestionHandler_UpdateQuestion_Success(t *testing.T) {
	svc := &mockQuestionService{
		updateFn: func(ctx context.Context, questionID int64, title string, tags []string) (*model.QuestionWithOwner, error) {
			if questionID != 1001 {
				t.Errorf("questionID = %d, want 1001", questionID)
			}
			qo := sampleQuestionWithOwner(questionID)
			qo.Title = title
			qo.Tags = tags
			return &qo, nil
		},
	}
	h := NewQuestionHandler(svc)

	body, _ := json.Marshal(questionRequest{Title: "更新後タイトル", Tags: []string{"go", "testing"}})
	req := httptest.NewRequest(http.MethodPut, "/api/questions/1001", bytes.NewReader(body))
	req = withChiURLParam(req, "id", "1001")
	w := httptest.NewRecorder()

	h.UpdateQuestion(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp questionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Title != "更新後タイトル" {
		t.Errorf("title = %q", resp.Title)
	}
	if len(resp.Tags) != 2 {
		t.Errorf("tags = %v", resp.Tags)
	}
}

func TestQuestionHandler_UpdateQuestion_NotFound_Returns404(t *testing.T) {
	svc := &mockQuestionService{
		updateFn: func(ctx context.Context, questionID int64, title string, tags []string) (*model.QuestionWithOwner, error) {
			return nil, model.NewQuestionNotFoundError(questionID)
		},
	}
	h := NewQuestionHandler(svc)

	body, _ := json.Marshal(questionRequest{Title: "t", Tags: []string{"go"}})
	req := httptest.NewRequest(http.MethodPut, "/api/questions/9999", bytes.NewReader(body))
	req = withChiURLParam(req, "id", "9999")
	w := httptest.NewRecorder()

	h.UpdateQuestion(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- DELETE /api/questions/{id} テスト ---

func TestQuestionHandler_DeleteQuestion_Success_Returns204(t *testing.T) {
	deleted := false
	svc := &mockQuestionService{
		deleteFn: func(ctx context.Context, questionID int64) error {
			deleted = true
			return nil
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/questions/1001", nil)
	req = withChiURLParam(req, "id", "1001")
	w := httptest.NewRecorder()

	h.DeleteQuestion(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if !deleted {
		t.Error("サービスのDeleteが呼ばれていない")
	}
}

func TestQuestionHandler_DeleteQuestion_NotFound_Returns404(t *testing.T) {
	svc := &mockQuestionService{
		deleteFn: func(ctx context.Context, questionID int64) error {
			return model.NewQuestionNotFoundError(questionID)
		},
	}
	h := NewQuestionHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/questions/9999", nil)
	req = withChiURLParam(req, "id", "9999")
	w := httptest.NewRecorder()

	h.DeleteQuestion(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
