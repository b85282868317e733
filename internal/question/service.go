package question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/stackmirror/internal/model"
	"github.com/hitoshi/stackmirror/internal/repository"
	"github.com/hitoshi/stackmirror/internal/security"
)

// ListResult は質問一覧の取得結果。
type ListResult struct {
	Questions []model.QuestionWithOwner
	Meta      model.PageMeta
}

// Service は質問のCRUDと一覧取得のドメインサービス。
type Service struct {
	repo      repository.QuestionRepository
	sanitizer security.TitleSanitizerService
	baseURL   string
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// baseURLは作成エンドポイントでのリンク合成に使用する。
func NewService(repo repository.QuestionRepository, sanitizer security.TitleSanitizerService, baseURL string) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}
}

// List はクエリ条件に一致する質問一覧をカウントパス→データパスの2段階で取得する。
// 総数が0の場合はデータパスを実行せず空ページを返す。
// 両パスは同一のパイプラインからSQLを構築するため、母集団は常に一致する。
func (s *Service) List(ctx context.Context, query *model.QuestionQuery) (*ListResult, error) {
	total, err := s.repo.CountByQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	if total == 0 {
		return &ListResult{
			Questions: []model.QuestionWithOwner{},
			Meta: model.PageMeta{
				Total:      0,
				Page:       query.Page,
				Limit:      query.Limit,
				TotalPages: 0,
			},
		}, nil
	}

	questions, err := s.repo.ListByQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.QuestionWithOwner{}
	}

	return &ListResult{
		Questions: questions,
		Meta: model.PageMeta{
			Total:      total,
			Page:       query.Page,
			Limit:      query.Limit,
			TotalPages: (total + query.Limit - 1) / query.Limit,
		},
	}, nil
}

// Get は外部question_idで質問をオーナー付きで取得する。
func (s *Service) Get(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error) {
	found, err := s.repo.FindByQuestionID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.NewQuestionNotFoundError(questionID)
	}
	return found, nil
}

// Create は新規質問を作成する。
// question_idは現在時刻のエポックミリ秒から合成し、linkも同じIDで合成する。
// titleとtagsは必須であり、欠落はフィールド単位のバリデーションエラーとなる。
func (s *Service) Create(ctx context.Context, title string, tags []string) (*model.Question, error) {
	if err := validateTitleTags(title, tags); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	questionID := now.UnixMilli()

	q := &model.Question{
		ID:               uuid.New().String(),
		QuestionID:       questionID,
		Title:            s.sanitizer.Sanitize(title),
		Tags:             tags,
		IsAnswered:       false,
		ViewCount:        0,
		AnswerCount:      0,
		Score:            0,
		LastActivityDate: now,
		CreationDate:     now,
		Link:             fmt.Sprintf("%s/questions/%d", s.baseURL, questionID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}

	return q, nil
}

// Update は指定question_idの質問のタイトルとタグのみを更新し、
// オーナー付きの更新後レコードを返す。
func (s *Service) Update(ctx context.Context, questionID int64, title string, tags []string) (*model.QuestionWithOwner, error) {
	if err := validateTitleTags(title, tags); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateTitleTags(ctx, questionID, s.sanitizer.Sanitize(title), tags)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, model.NewQuestionNotFoundError(questionID)
	}

	found, err := s.repo.FindByQuestionID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		// 更新と取得の間に削除された場合
		return nil, model.NewQuestionNotFoundError(questionID)
	}

	return found, nil
}

// Delete は指定question_idの質問を削除する。
func (s *Service) Delete(ctx context.Context, questionID int64) error {
	deleted, err := s.repo.DeleteByQuestionID(ctx, questionID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewQuestionNotFoundError(questionID)
	}
	return nil
}

// validateTitleTags は作成・更新の必須フィールドを検証する。
// 欠落したフィールドごとのメッセージをまとめて返す。
func validateTitleTags(title string, tags []string) error {
	var details []string
	if strings.TrimSpace(title) == "" {
		details = append(details, "title は必須です。")
	}
	if len(tags) == 0 {
		details = append(details, "tags は必須です。")
	}
	if len(details) > 0 {
		return model.NewValidationError(strings.Join(details, " "))
	}
	return nil
}
