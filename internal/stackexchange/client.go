// Package stackexchange は上流の質問一覧APIのクライアントを提供する。
// 取り込みルーチンが1バッチ分の質問レコードを取得するために使用する。
package stackexchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"
)

// Owner はAPIレスポンスに埋め込まれる投稿者サブレコード。
type Owner struct {
	AccountID    int64  `json:"account_id"`
	Reputation   int    `json:"reputation"`
	UserID       int64  `json:"user_id"`
	UserType     string `json:"user_type"`
	AcceptRate   *int   `json:"accept_rate,omitempty"`
	ProfileImage string `json:"profile_image"`
	DisplayName  string `json:"display_name"`
	Link         string `json:"link"`
}

// Question はAPIレスポンスの質問レコード。
// 日時フィールドはすべてエポック秒で返される。
type Question struct {
	QuestionID       int64    `json:"question_id"`
	Title            string   `json:"title"`
	Tags             []string `json:"tags"`
	IsAnswered       bool     `json:"is_answered"`
	ViewCount        int      `json:"view_count"`
	AnswerCount      int      `json:"answer_count"`
	Score            int      `json:"score"`
	ClosedDate       *int64   `json:"closed_date,omitempty"`
	LastActivityDate int64    `json:"last_activity_date"`
	CreationDate     int64    `json:"creation_date"`
	LastEditDate     *int64   `json:"last_edit_date,omitempty"`
	Link             string   `json:"link"`
	ClosedReason     string   `json:"closed_reason,omitempty"`
	Owner            *Owner   `json:"owner"`
}

// questionsResponse は質問一覧APIのレスポンス全体。
type questionsResponse struct {
	Items          []Question `json:"items"`
	HasMore        bool       `json:"has_more"`
	QuotaRemaining int        `json:"quota_remaining"`
	Backoff        int        `json:"backoff"`
}

// ClientConfig はClientの設定を保持する。
type ClientConfig struct {
	Endpoint  string  // 質問一覧APIのエンドポイントURL
	Site      string  // 対象サイト（例: stackoverflow）
	PageSize  int     // 1バッチの取得件数
	RateLimit float64 // リクエストレート（req/sec）。0以下で制限なし。
}

// StatusRecorder は上流HTTPステータスの記録インターフェース。
type StatusRecorder interface {
	RecordUpstreamStatus(statusCode int)
}

// Client は上流質問APIのクライアント。
// 上流はクォータ制を敷いているため、rate.Limiterで外向きリクエストを抑制する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	metrics    StatusRecorder
	config     ClientConfig
}

// NewClient はClientの新しいインスタンスを生成する。
// metricsはnilを許容し、その場合ステータスの記録を行わない。
func NewClient(httpClient *http.Client, logger *slog.Logger, metrics StatusRecorder, config ClientConfig) *Client {
	limit := rate.Limit(config.RateLimit)
	if config.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		limiter:    rate.NewLimiter(limit, 1),
		metrics:    metrics,
		config:     config,
	}
}

// FetchQuestions は活動日時降順の質問1バッチを取得する。
// ネットワークエラーおよび非200ステータスはバッチ全体の失敗として返す。
func (c *Client) FetchQuestions(ctx context.Context) ([]Question, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("レートリミッタの待機に失敗しました: %w", err)
	}

	reqURL, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("order", "desc")
	q.Set("sort", "activity")
	q.Set("site", c.config.Site)
	q.Set("pagesize", strconv.Itoa(c.config.PageSize))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Stackmirror/1.0 Question Ingester")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("質問APIの呼び出しに失敗しました",
			slog.String("endpoint", c.config.Endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("質問APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus(resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("質問APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("site", c.config.Site),
		)
		return nil, fmt.Errorf("質問APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result questionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if result.Backoff > 0 {
		// 上流からのバックオフ指示。次回実行はスケジューラ間隔に委ねるが、記録は残す。
		c.logger.Warn("質問APIがバックオフを要求しています",
			slog.Int("backoff_seconds", result.Backoff),
		)
	}

	c.logger.Info("質問バッチを取得しました",
		slog.String("site", c.config.Site),
		slog.Int("items", len(result.Items)),
		slog.Bool("has_more", result.HasMore),
		slog.Int("quota_remaining", result.QuotaRemaining),
	)

	return result.Items, nil
}
