package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stackmirror/internal/model"
	"github.com/hitoshi/stackmirror/internal/question"
)

// QuestionServiceInterface は質問ハンドラーが必要とするサービスインターフェース。
type QuestionServiceInterface interface {
	// List はクエリ条件に一致する質問の1ページ分とページングメタデータを返す。
	List(ctx context.Context, query *model.QuestionQuery) (*question.ListResult, error)
	// Get は外部question_idで質問をオーナー付きで取得する。
	Get(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error)
	// Create はタイトルとタグからローカル質問を作成する。
	Create(ctx context.Context, title string, tags []string) (*model.Question, error)
	// Update は指定質問のタイトルとタグを更新する。
	Update(ctx context.Context, questionID int64, title string, tags []string) (*model.QuestionWithOwner, error)
	// Delete は指定質問を削除する。
	Delete(ctx context.Context, questionID int64) error
}

// QuestionHandler は質問リソースのHTTPハンドラー。
type QuestionHandler struct {
	service QuestionServiceInterface
}

// NewQuestionHandler はQuestionHandlerを生成する。
func NewQuestionHandler(service QuestionServiceInterface) *QuestionHandler {
	return &QuestionHandler{service: service}
}

// questionRequest は質問作成・更新リクエストのボディ。
type questionRequest struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// ownerResponse はオーナーサブレコードのAPIレスポンス。
type ownerResponse struct {
	AccountID    int64  `json:"account_id"`
	UserID       int64  `json:"user_id"`
	Reputation   int    `json:"reputation"`
	UserType     string `json:"user_type"`
	AcceptRate   *int   `json:"accept_rate,omitempty"`
	ProfileImage string `json:"profile_image"`
	DisplayName  string `json:"display_name"`
	Link         string `json:"link"`
}

// questionResponse は質問のAPIレスポンス。
type questionResponse struct {
	ID               string         `json:"id"`
	QuestionID       int64          `json:"question_id"`
	Title            string         `json:"title"`
	Tags             []string       `json:"tags"`
	IsAnswered       bool           `json:"is_answered"`
	ViewCount        int            `json:"view_count"`
	AnswerCount      int            `json:"answer_count"`
	Score            int            `json:"score"`
	ClosedDate       *time.Time     `json:"closed_date,omitempty"`
	LastActivityDate time.Time      `json:"last_activity_date"`
	CreationDate     time.Time      `json:"creation_date"`
	LastEditDate     *time.Time     `json:"last_edit_date,omitempty"`
	Link             string         `json:"link"`
	ClosedReason     string         `json:"closed_reason,omitempty"`
	Owner            *ownerResponse `json:"owner,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// listQuestionsResponse は質問一覧のAPIレスポンス。
type listQuestionsResponse struct {
	Questions []questionResponse `json:"questions"`
	Meta      model.PageMeta     `json:"meta"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListQuestions は質問一覧を処理する。
// GET /api/questions
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	query, err := question.ParseListQuery(r.URL.Query())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.List(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	questions := make([]questionResponse, 0, len(result.Questions))
	for i := range result.Questions {
		questions = append(questions, toQuestionWithOwnerResponse(&result.Questions[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listQuestionsResponse{
		Questions: questions,
		Meta:      result.Meta,
	})
}

// CreateQuestion はローカル質問の作成を処理する。
// POST /api/questions
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), req.Title, req.Tags)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toQuestionResponse(created, nil))
}

// GetQuestion は質問詳細を取得する。
// GET /api/questions/{id}
func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := parseQuestionID(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	found, err := h.service.Get(r.Context(), questionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toQuestionWithOwnerResponse(found))
}

// UpdateQuestion は質問のタイトルとタグの更新を処理する。
// PUT /api/questions/{id}
func (h *QuestionHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := parseQuestionID(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), questionID, req.Title, req.Tags)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toQuestionWithOwnerResponse(updated))
}

// DeleteQuestion は質問の削除を処理する。
// DELETE /api/questions/{id}
func (h *QuestionHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := parseQuestionID(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), questionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// parseQuestionID はURLパスのidパラメータをquestion_idとして解析する。
func parseQuestionID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	questionID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewInvalidQueryError("id", raw)
	}
	return questionID, nil
}

// toQuestionResponse はmodel.QuestionからAPIレスポンスに変換する。
func toQuestionResponse(q *model.Question, owner *model.Owner) questionResponse {
	resp := questionResponse{
		ID:               q.ID,
		QuestionID:       q.QuestionID,
		Title:            q.Title,
		Tags:             q.Tags,
		IsAnswered:       q.IsAnswered,
		ViewCount:        q.ViewCount,
		AnswerCount:      q.AnswerCount,
		Score:            q.Score,
		ClosedDate:       q.ClosedDate,
		LastActivityDate: q.LastActivityDate,
		CreationDate:     q.CreationDate,
		LastEditDate:     q.LastEditDate,
		Link:             q.Link,
		ClosedReason:     q.ClosedReason,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
	if owner != nil {
		resp.Owner = &ownerResponse{
			AccountID:    owner.AccountID,
			UserID:       owner.UserID,
			Reputation:   owner.Reputation,
			UserType:     owner.UserType,
			AcceptRate:   owner.AcceptRate,
			ProfileImage: owner.ProfileImage,
			DisplayName:  owner.DisplayName,
			Link:         owner.Link,
		}
	}
	return resp
}

// toQuestionWithOwnerResponse はオーナー付き質問からAPIレスポンスに変換する。
func toQuestionWithOwnerResponse(qo *model.QuestionWithOwner) questionResponse {
	return toQuestionResponse(&qo.Question, qo.Owner)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorのコードをHTTPステータスコードに対応付ける。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeQuestionNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidQuery, model.ErrCodeInvalidRequest, model.ErrCodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
