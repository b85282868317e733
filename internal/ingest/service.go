// Package ingest は上流質問APIからローカルストアへの取り込み処理を提供する。
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/stackmirror/internal/model"
	"github.com/hitoshi/stackmirror/internal/repository"
	"github.com/hitoshi/stackmirror/internal/security"
	"github.com/hitoshi/stackmirror/internal/stackexchange"
)

// QuestionFetcher は上流APIから質問1バッチを取得するインターフェース。
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context) ([]stackexchange.Question, error)
}

// MetricsRecorder は取り込みメトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordIngestSuccess()
	RecordIngestFailure()
	RecordIngestLatency(d time.Duration)
	RecordQuestionsInserted(n int)
	RecordQuestionsSkipped(n int)
}

// Result は1バッチ分の取り込み結果。
type Result struct {
	Fetched  int // 上流から取得した件数
	Inserted int // 新規挿入された件数
	Skipped  int // question_id重複でスキップされた件数
	Failed   int // レコード単位で失敗した件数
}

// Service は質問バッチの取り込みを行う。
// question_idによる挿入専用の冪等な取り込みであり、既存レコードは一切更新しない。
// オーナーは質問より先に解決し、初回観測時のデータが永続的に勝つ（first-seen-wins）。
type Service struct {
	fetcher      QuestionFetcher
	ownerRepo    repository.OwnerRepository
	questionRepo repository.QuestionRepository
	sanitizer    security.TitleSanitizerService
	metrics      MetricsRecorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	fetcher QuestionFetcher,
	ownerRepo repository.OwnerRepository,
	questionRepo repository.QuestionRepository,
	sanitizer security.TitleSanitizerService,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		fetcher:      fetcher,
		ownerRepo:    ownerRepo,
		questionRepo: questionRepo,
		sanitizer:    sanitizer,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Run は1バッチ分の取り込みを実行する。
// バッチ取得の失敗（ネットワーク・APIエラー）はバッチ全体の失敗として返す。
// レコード単位の失敗はログに記録して次のレコードへ継続し、伝播させない。
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := s.now()

	items, err := s.fetcher.FetchQuestions(ctx)
	if err != nil {
		s.metrics.RecordIngestFailure()
		return nil, fmt.Errorf("質問バッチの取得に失敗しました: %w", err)
	}

	result := &Result{Fetched: len(items)}

	for _, item := range items {
		inserted, err := s.ingestOne(ctx, item)
		if err != nil {
			// 不正なレコードが残りのレコードの取り込みを妨げてはならない
			s.logger.Error("質問レコードの取り込みに失敗しました",
				slog.Int64("question_id", item.QuestionID),
				slog.String("error", err.Error()),
			)
			result.Failed++
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	duration := s.now().Sub(start)
	s.metrics.RecordIngestSuccess()
	s.metrics.RecordIngestLatency(duration)
	s.metrics.RecordQuestionsInserted(result.Inserted)
	s.metrics.RecordQuestionsSkipped(result.Skipped)

	s.logger.Info("質問バッチの取り込みが完了しました",
		slog.Int("fetched", result.Fetched),
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return result, nil
}

// ingestOne は1レコードを取り込む。戻り値は新規挿入されたかどうか。
// オーナーを先に解決し、質問レコードを正規化してから挿入専用で保存する。
func (s *Service) ingestOne(ctx context.Context, item stackexchange.Question) (bool, error) {
	// 必須の日時フィールド。欠落は不正レコードとして扱う。
	if item.CreationDate == 0 || item.LastActivityDate == 0 {
		return false, fmt.Errorf("必須の日時フィールドが欠落しています: question_id=%d", item.QuestionID)
	}
	if item.Title == "" {
		return false, fmt.Errorf("タイトルが欠落しています: question_id=%d", item.QuestionID)
	}
	if len(item.Tags) == 0 {
		return false, fmt.Errorf("タグが欠落しています: question_id=%d", item.QuestionID)
	}

	ownerID, err := s.resolveOwner(ctx, item.Owner)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	q := &model.Question{
		ID:               uuid.New().String(),
		QuestionID:       item.QuestionID,
		Title:            s.sanitizer.Sanitize(item.Title),
		Tags:             item.Tags,
		IsAnswered:       item.IsAnswered,
		ViewCount:        item.ViewCount,
		AnswerCount:      item.AnswerCount,
		Score:            item.Score,
		ClosedDate:       epochToTimePtr(item.ClosedDate),
		LastActivityDate: epochToTime(item.LastActivityDate),
		CreationDate:     epochToTime(item.CreationDate),
		LastEditDate:     epochToTimePtr(item.LastEditDate),
		Link:             item.Link,
		ClosedReason:     item.ClosedReason,
		OwnerID:          ownerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// 既存のquestion_idはスキップ（更新も重複もしない）。
	// ユニーク制約に基づくON CONFLICT DO NOTHINGのため、並行実行の競合も無害。
	return s.questionRepo.CreateIfAbsent(ctx, q)
}

// resolveOwner は埋め込みオーナーサブレコードを内部オーナーIDに解決する。
// オーナーが存在しない、またはuser_idを持たない場合は未解決（空文字列）を返す。
// 既存オーナーのフィールドは決して更新しない。
func (s *Service) resolveOwner(ctx context.Context, owner *stackexchange.Owner) (string, error) {
	if owner == nil || owner.UserID == 0 {
		return "", nil
	}

	resolved, err := s.ownerRepo.CreateIfAbsent(ctx, &model.Owner{
		ID:           uuid.New().String(),
		AccountID:    owner.AccountID,
		UserID:       owner.UserID,
		Reputation:   owner.Reputation,
		UserType:     owner.UserType,
		AcceptRate:   owner.AcceptRate,
		ProfileImage: owner.ProfileImage,
		DisplayName:  owner.DisplayName,
		Link:         owner.Link,
	})
	if err != nil {
		return "", err
	}

	return resolved.ID, nil
}

// epochToTime はエポック秒をUTCのtime.Timeに変換する。
func epochToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// epochToTimePtr は任意のエポック秒を*time.Timeに変換する。欠落はnilのまま。
func epochToTimePtr(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}
