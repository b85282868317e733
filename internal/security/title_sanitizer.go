// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizerService は質問タイトルのサニタイズ機能のインターフェースを定義する。
// 上流APIからの取り込み時と、作成・更新エンドポイントの入力保存前に使用される。
type TitleSanitizerService interface {
	// Sanitize はタイトル文字列からすべてのHTMLタグを除去し、
	// HTMLエンティティ（&amp;quot; 等、上流APIはタイトルをエスケープ済みで返す）を
	// デコードしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	Sanitize(title string) string
}

// titleSanitizer はTitleSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerServiceの新しいインスタンスを生成する。
// タイトルは表示専用のプレーンテキストであり、許可するタグは存在しない。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタイトルからHTMLタグを除去し、エンティティをデコードして返す。
func (s *titleSanitizer) Sanitize(title string) string {
	if title == "" {
		return ""
	}
	stripped := s.policy.Sanitize(title)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ TitleSanitizerService = (*titleSanitizer)(nil)
