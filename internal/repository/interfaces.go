// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/stackmirror/internal/model"
)

// OwnerRepository はオーナー（質問投稿者プロファイル）の永続化インターフェース。
type OwnerRepository interface {
	// FindByUserID は外部user_idでオーナーを検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID int64) (*model.Owner, error)

	// CreateIfAbsent はuser_idが未登録の場合のみオーナーを作成する。
	// ストレージのユニーク制約に基づくINSERT ... ON CONFLICT DO NOTHINGで実行され、
	// 既存レコードがある場合は一切更新せず、その既存レコードを返す（first-seen-wins）。
	// 並行実行で同じuser_idが競合しても重複は発生しない。
	CreateIfAbsent(ctx context.Context, owner *model.Owner) (*model.Owner, error)
}

// QuestionRepository は質問データの永続化インターフェース。
// 一覧系の読み取りはQuestionQueryから構築した共有パイプラインで実行する。
type QuestionRepository interface {
	// FindByQuestionID は外部question_idで質問をオーナー付きで取得する。
	// 見つからない場合はnilを返す。オーナー未解決の場合Ownerはnil。
	FindByQuestionID(ctx context.Context, questionID int64) (*model.QuestionWithOwner, error)

	// CountByQuery はクエリ条件に一致する質問の総数を返す（カウントパス）。
	// ListByQueryと同一のパイプラインからSQLを構築するため、母集団は常に一致する。
	CountByQuery(ctx context.Context, query *model.QuestionQuery) (int, error)

	// ListByQuery はクエリ条件に一致する質問の1ページ分をオーナー付きで返す（データパス）。
	ListByQuery(ctx context.Context, query *model.QuestionQuery) ([]model.QuestionWithOwner, error)

	// Create は質問を作成する。question_id重複はエラーとなる。
	Create(ctx context.Context, question *model.Question) error

	// CreateIfAbsent はquestion_idが未登録の場合のみ質問を作成する。
	// INSERT ... ON CONFLICT DO NOTHINGで実行され、重複時は何もせずfalseを返す。
	// 挿入された場合はtrueを返す。既存レコードのフィールドは変更しない。
	CreateIfAbsent(ctx context.Context, question *model.Question) (bool, error)

	// UpdateTitleTags は指定question_idの質問のタイトルとタグのみを更新する。
	// 更新対象が存在しない場合はfalseを返す。
	UpdateTitleTags(ctx context.Context, questionID int64, title string, tags []string) (bool, error)

	// DeleteByQuestionID は指定question_idの質問を削除する。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteByQuestionID(ctx context.Context, questionID int64) (bool, error)
}
