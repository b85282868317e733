// Package model はドメインモデルを定義する。
package model

import "time"

// Question は質問を表す。
// question_idは外部IDであり、取り込みの重複排除キーとなる。
type Question struct {
	ID               string
	QuestionID       int64
	Title            string
	Tags             []string
	IsAnswered       bool
	ViewCount        int
	AnswerCount      int
	Score            int
	ClosedDate       *time.Time
	LastActivityDate time.Time
	CreationDate     time.Time
	LastEditDate     *time.Time
	Link             string
	ClosedReason     string
	OwnerID          string // 内部オーナーID。未解決の場合は空文字列。
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// QuestionWithOwner は質問とオーナー情報をLEFT JOINで結合したモデル。
// オーナーが未解決の場合、Ownerはnilとなる（質問自体は除外しない）。
type QuestionWithOwner struct {
	Question
	Owner *Owner
}

// SortKey は質問一覧のソート種別を表す。
type SortKey string

const (
	// SortByScore はスコア降順ソート。
	SortByScore SortKey = "score"
	// SortByCreatedAt は作成日時降順ソート。
	SortByCreatedAt SortKey = "created_at"
	// SortNone は挿入順（ソート指定なし）。
	SortNone SortKey = ""
)

// QuestionQuery は質問一覧のフィルタ・ソート・ページネーション条件を表す。
// HTTPクエリパラメータのパース結果であり、すべてのフィルタは任意。
type QuestionQuery struct {
	IsAnswered    *bool    // is_answeredフィルタ。nilの場合は適用しない。
	Tags          []string // タグのAND条件。空の場合は適用しない。
	AnswerCountGT *int     // answer_count > GT。nilの場合は適用しない。
	AnswerCountLT *int     // answer_count < LT。nilの場合は適用しない。
	Sort          SortKey
	Page          int // 1始まり。
	Limit         int
}

// Offset はページネーションのスキップ件数を返す。
func (q *QuestionQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// PageMeta は質問一覧のページネーションメタ情報。
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}
