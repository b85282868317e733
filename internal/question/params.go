// Package question は質問の管理機能を提供する。
package question

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/stackmirror/internal/model"
)

const (
	// defaultPage は一覧のデフォルトページ番号。
	defaultPage = 1
	// defaultLimit は一覧の1ページあたりのデフォルト件数。
	defaultLimit = 10
)

// ParseListQuery はHTTPクエリパラメータをQuestionQueryにパースする。
// すべてのパラメータは任意。数値パラメータの不正値は暗黙のデフォルトに
// 落とさず、明示的にINVALID_QUERYエラーとして失敗させる。
func ParseListQuery(values url.Values) (*model.QuestionQuery, error) {
	query := &model.QuestionQuery{
		Page:  defaultPage,
		Limit: defaultLimit,
	}

	// is_answered: パラメータが存在する場合のみフィルタを適用する。
	// "true" のみ真、それ以外の値は偽として扱う。
	if values.Has("is_answered") {
		answered := values.Get("is_answered") == "true"
		query.IsAnswered = &answered
	}

	// tags: カンマ区切りをAND条件のタグ集合として扱う。
	if tags := values.Get("tags"); tags != "" {
		query.Tags = strings.Split(tags, ",")
	}

	if raw := values.Get("answers_count_gt"); raw != "" {
		gt, err := strconv.Atoi(raw)
		if err != nil {
			return nil, model.NewInvalidQueryError("answers_count_gt", raw)
		}
		query.AnswerCountGT = &gt
	}

	if raw := values.Get("answers_count_lt"); raw != "" {
		lt, err := strconv.Atoi(raw)
		if err != nil {
			return nil, model.NewInvalidQueryError("answers_count_lt", raw)
		}
		query.AnswerCountLT = &lt
	}

	// sort: score / created_at 以外の値は挿入順としてパイプライン側で扱う。
	query.Sort = model.SortKey(values.Get("sort"))

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return nil, model.NewInvalidQueryError("page", raw)
		}
		query.Page = page
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return nil, model.NewInvalidQueryError("limit", raw)
		}
		query.Limit = limit
	}

	return query, nil
}
