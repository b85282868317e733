package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/stackmirror/internal/model"
)

// PostgresQuestionRepo はPostgreSQLを使用した質問リポジトリ。
type PostgresQuestionRepo struct {
	db *sql.DB
}

// NewPostgresQuestionRepo はPostgresQuestionRepoを生成する。
func NewPostgresQuestionRepo(db *sql.DB) *PostgresQuestionRepo {
	return &PostgresQuestionRepo{db: db}
}

// FindByQuestionID は外部question_idで質問をオーナー付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresQuestionRepo) FindByQuestionID(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+questionSelectColumns+`
		 `+questionJoinClause+` WHERE q.question_id = $1`,
		questionID,
	)

	qwo, err := scanQuestionWithOwner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("質問の取得に失敗しました: %w", err)
	}

	return qwo, nil
}

// CountByQuery はクエリ条件に一致する質問の総数を返す。
// ListByQueryと同一のbuildQuestionPipelineからSQLを構築する。
func (r *PostgresQuestionRepo) CountByQuery(ctx context.Context, query *model.QuestionQuery) (int, error) {
	sqlStr, args := buildQuestionPipeline(query).countSQL()

	var total int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("質問件数の取得に失敗しました: %w", err)
	}

	return total, nil
}

// ListByQuery はクエリ条件に一致する質問の1ページ分をオーナー付きで返す。
func (r *PostgresQuestionRepo) ListByQuery(ctx context.Context, query *model.QuestionQuery) ([]model.QuestionWithOwner, error) {
	sqlStr, args := buildQuestionPipeline(query).pageSQL(query.Offset(), query.Limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("質問一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var questions []model.QuestionWithOwner
	for rows.Next() {
		qwo, err := scanQuestionWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("質問行の読み取りに失敗しました: %w", err)
		}
		questions = append(questions, *qwo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("質問一覧の走査に失敗しました: %w", err)
	}

	return questions, nil
}

// Create は質問を作成する。question_id重複はユニーク制約違反エラーとなる。
func (r *PostgresQuestionRepo) Create(ctx context.Context, question *model.Question) error {
	_, err := r.db.ExecContext(ctx, insertQuestionSQL, insertQuestionArgs(question)...)
	if err != nil {
		return fmt.Errorf("質問の作成に失敗しました: %w", err)
	}
	return nil
}

// CreateIfAbsent はquestion_idが未登録の場合のみ質問を作成する。
// question_idのユニーク制約に基づくON CONFLICT DO NOTHINGにより、
// 並行する取り込みが同じquestion_idで競合しても重複も失敗も発生しない。
func (r *PostgresQuestionRepo) CreateIfAbsent(ctx context.Context, question *model.Question) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		insertQuestionSQL+" ON CONFLICT (question_id) DO NOTHING",
		insertQuestionArgs(question)...,
	)
	if err != nil {
		return false, fmt.Errorf("質問の作成に失敗しました: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("挿入結果の確認に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// UpdateTitleTags は指定question_idの質問のタイトルとタグのみを更新する。
func (r *PostgresQuestionRepo) UpdateTitleTags(ctx context.Context, questionID int64, title string, tags []string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE questions SET title = $2, tags = $3, updated_at = now()
		 WHERE question_id = $1`,
		questionID, title, pq.Array(tags),
	)
	if err != nil {
		return false, fmt.Errorf("質問の更新に失敗しました: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// DeleteByQuestionID は指定question_idの質問を削除する。
func (r *PostgresQuestionRepo) DeleteByQuestionID(ctx context.Context, questionID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM questions WHERE question_id = $1`,
		questionID,
	)
	if err != nil {
		return false, fmt.Errorf("質問の削除に失敗しました: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// insertQuestionSQL は質問挿入の共通SQL。CreateとCreateIfAbsentで共有する。
const insertQuestionSQL = `INSERT INTO questions (
    id, question_id, title, tags, is_answered, view_count, answer_count, score,
    closed_date, last_activity_date, creation_date, last_edit_date,
    link, closed_reason, owner_id, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

// insertQuestionArgs はinsertQuestionSQLのプレースホルダに対応する引数列を返す。
func insertQuestionArgs(q *model.Question) []interface{} {
	return []interface{}{
		q.ID, q.QuestionID, q.Title, pq.Array(q.Tags), q.IsAnswered,
		q.ViewCount, q.AnswerCount, q.Score,
		q.ClosedDate, q.LastActivityDate, q.CreationDate, q.LastEditDate,
		q.Link, nullString(q.ClosedReason), nullString(q.OwnerID),
		q.CreatedAt, q.UpdatedAt,
	}
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanQuestionWithOwner はquestionSelectColumns順の行を読み取る。
// LEFT JOINによりオーナー列はすべてNULL許容であり、o.idがNULLの場合Ownerはnilとなる。
func scanQuestionWithOwner(row rowScanner) (*model.QuestionWithOwner, error) {
	qwo := &model.QuestionWithOwner{}
	var closedDate, lastEditDate sql.NullTime
	var closedReason, ownerID sql.NullString

	var oID, oUserType, oProfileImage, oDisplayName, oLink sql.NullString
	var oAccountID, oUserID, oReputation, oAcceptRate sql.NullInt64

	err := row.Scan(
		&qwo.ID, &qwo.QuestionID, &qwo.Title, pq.Array(&qwo.Tags), &qwo.IsAnswered,
		&qwo.ViewCount, &qwo.AnswerCount, &qwo.Score,
		&closedDate, &qwo.LastActivityDate, &qwo.CreationDate, &lastEditDate,
		&qwo.Link, &closedReason, &ownerID, &qwo.CreatedAt, &qwo.UpdatedAt,
		&oID, &oAccountID, &oUserID, &oReputation, &oUserType,
		&oAcceptRate, &oProfileImage, &oDisplayName, &oLink,
	)
	if err != nil {
		return nil, err
	}

	if closedDate.Valid {
		qwo.ClosedDate = &closedDate.Time
	}
	if lastEditDate.Valid {
		qwo.LastEditDate = &lastEditDate.Time
	}
	qwo.ClosedReason = nullStringValue(closedReason)
	qwo.OwnerID = nullStringValue(ownerID)

	if oID.Valid {
		qwo.Owner = &model.Owner{
			ID:           oID.String,
			AccountID:    oAccountID.Int64,
			UserID:       oUserID.Int64,
			Reputation:   int(oReputation.Int64),
			UserType:     nullStringValue(oUserType),
			AcceptRate:   nullIntValue(oAcceptRate),
			ProfileImage: nullStringValue(oProfileImage),
			DisplayName:  nullStringValue(oDisplayName),
			Link:         nullStringValue(oLink),
		}
	}

	return qwo, nil
}

// compile-time interface check
var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
