package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/stackmirror/internal/model"
)

// questionPipeline は質問一覧クエリのステージ列を保持する。
// フィルタ → ソート → オーナー結合の順で構築され、カウントパスとデータパスの
// 両方が同一インスタンスからSQLを導出する。ストアを変更するステージは存在しない。
type questionPipeline struct {
	where   []string
	args    []interface{}
	orderBy string
}

// questionJoinClause はオーナー解決の結合ステージ。
// オーナー未解決の質問を除外しないLEFT JOIN（left-outer）とする。
const questionJoinClause = "FROM questions q LEFT JOIN owners o ON q.owner_id = o.id"

// questionSelectColumns はデータパスで取得するカラム列。
const questionSelectColumns = `q.id, q.question_id, q.title, q.tags, q.is_answered,
       q.view_count, q.answer_count, q.score,
       q.closed_date, q.last_activity_date, q.creation_date, q.last_edit_date,
       q.link, q.closed_reason, q.owner_id, q.created_at, q.updated_at,
       o.id, o.account_id, o.user_id, o.reputation, o.user_type,
       o.accept_rate, o.profile_image, o.display_name, o.link`

// buildQuestionPipeline はQuestionQueryからステージ列を構築する純粋関数。
// ステージの追加順は固定: is_answered → tags（全含有） → answer_count範囲 → ソート。
// 対応する入力が存在しないステージは追加されない。
func buildQuestionPipeline(query *model.QuestionQuery) *questionPipeline {
	p := &questionPipeline{}

	if query.IsAnswered != nil {
		p.appendCond("q.is_answered = $%d", *query.IsAnswered)
	}

	if len(query.Tags) > 0 {
		// @> は配列の全含有（AND条件）。指定タグをすべて持つ質問のみ一致する。
		p.appendCond("q.tags @> $%d", pq.Array(query.Tags))
	}

	if query.AnswerCountGT != nil {
		p.appendCond("q.answer_count > $%d", *query.AnswerCountGT)
	}
	if query.AnswerCountLT != nil {
		p.appendCond("q.answer_count < $%d", *query.AnswerCountLT)
	}

	switch query.Sort {
	case model.SortByScore:
		p.orderBy = "q.score DESC"
	case model.SortByCreatedAt:
		p.orderBy = "q.creation_date DESC"
	default:
		// 挿入順を保つ。行作成時刻とidで順序を安定させる。
		p.orderBy = "q.created_at ASC, q.id ASC"
	}

	return p
}

// appendCond はWHERE条件を1つ追加する。プレースホルダ番号は引数位置から採番する。
func (p *questionPipeline) appendCond(format string, arg interface{}) {
	p.args = append(p.args, arg)
	p.where = append(p.where, fmt.Sprintf(format, len(p.args)))
}

// whereClause はWHERE句を返す。条件がない場合は空文字列。
func (p *questionPipeline) whereClause() string {
	if len(p.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.where, " AND ")
}

// countSQL はカウントパス用のSQLと引数を返す。
// データパスと同一のFROM/JOIN/WHEREを共有する。ORDER BYは件数に影響しないため省く。
func (p *questionPipeline) countSQL() (string, []interface{}) {
	return "SELECT COUNT(*) " + questionJoinClause + p.whereClause(), p.args
}

// pageSQL はデータパス用のSQLと引数を返す。
// カウントパスのステージ列にスキップとリミットの終端ステージを加えたもの。
func (p *questionPipeline) pageSQL(offset, limit int) (string, []interface{}) {
	args := make([]interface{}, len(p.args), len(p.args)+2)
	copy(args, p.args)

	sql := "SELECT " + questionSelectColumns + "\n" + questionJoinClause + p.whereClause() +
		" ORDER BY " + p.orderBy

	args = append(args, limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	return sql, args
}
