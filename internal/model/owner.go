// Package model はドメインモデルを定義する。
package model

// Owner は質問投稿者のレピュテーションプロファイルを表す。
// 取り込み時に初めて見つかった時点で作成され、以後更新・削除されない。
type Owner struct {
	ID           string
	AccountID    int64
	UserID       int64
	Reputation   int
	UserType     string
	AcceptRate   *int
	ProfileImage string
	DisplayName  string
	Link         string
}
