package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/stackmirror/internal/model"
)

// PostgresOwnerRepo はPostgreSQLを使用したオーナーリポジトリ。
type PostgresOwnerRepo struct {
	db *sql.DB
}

// NewPostgresOwnerRepo はPostgresOwnerRepoを生成する。
func NewPostgresOwnerRepo(db *sql.DB) *PostgresOwnerRepo {
	return &PostgresOwnerRepo{db: db}
}

// FindByUserID は外部user_idでオーナーを検索する。見つからない場合はnilを返す。
func (r *PostgresOwnerRepo) FindByUserID(ctx context.Context, userID int64) (*model.Owner, error) {
	owner := &model.Owner{}
	var acceptRate sql.NullInt64
	var profileImage, link sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, user_id, reputation, user_type,
		        accept_rate, profile_image, display_name, link
		 FROM owners WHERE user_id = $1`,
		userID,
	).Scan(
		&owner.ID, &owner.AccountID, &owner.UserID, &owner.Reputation, &owner.UserType,
		&acceptRate, &profileImage, &owner.DisplayName, &link,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("オーナーの検索に失敗しました: %w", err)
	}

	owner.AcceptRate = nullIntValue(acceptRate)
	owner.ProfileImage = nullStringValue(profileImage)
	owner.Link = nullStringValue(link)

	return owner, nil
}

// CreateIfAbsent はuser_idが未登録の場合のみオーナーを作成する。
// user_idのユニーク制約を競合の唯一の防波堤とし、check-then-insertの
// TOCTOU窓を排除する。競合時は既存レコードを無害な重複として返す。
func (r *PostgresOwnerRepo) CreateIfAbsent(ctx context.Context, owner *model.Owner) (*model.Owner, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (id, account_id, user_id, reputation, user_type,
		                     accept_rate, profile_image, display_name, link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id) DO NOTHING`,
		owner.ID, owner.AccountID, owner.UserID, owner.Reputation, owner.UserType,
		nullInt(owner.AcceptRate), nullString(owner.ProfileImage),
		owner.DisplayName, nullString(owner.Link),
	)
	if err != nil {
		return nil, fmt.Errorf("オーナーの作成に失敗しました: %w", err)
	}

	// 挿入済み・既存・並行挿入のいずれでも正となる行を読み直す。
	existing, err := r.FindByUserID(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("オーナーの作成後に行が見つかりません: user_id=%d", owner.UserID)
	}

	return existing, nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はNULLを空文字列に変換する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullInt は*intをNULL許容値に変換する。
func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// nullIntValue はNULL許容値を*intに変換する。
func nullIntValue(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// compile-time interface check
var _ OwnerRepository = (*PostgresOwnerRepo)(nil)
