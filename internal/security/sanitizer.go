// Package security はコンテンツのサニタイズと画像取得の保護機能を提供する。
//
// 生成パイプラインが返すテキストはサーバー由来とはいえ外部モデルの出力であり、
// そのままプレゼンテーション層に渡すとXSSの温床になる。
// TextSanitizer はbluemondayの許可リストベースポリシーで
// 危険なマークアップを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は生成コンテンツのサニタイズ機能を提供する。
// 2種類のポリシーを保持する:
//   - 整形ポリシー: 説明文フィールド用。基本的な整形タグのみ通過させる。
//   - プレーンポリシー: キーワード・営業時間等の単一行フィールド用。全タグを除去する。
//
// script, iframe, styleタグおよびon*イベント属性はどちらのポリシーでも除去される。
// 同一入力に対して常に同一出力を返す（冪等）。
type TextSanitizer struct {
	formatted *bluemonday.Policy
	plain     *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// 整形ポリシーの許可タグ: p, br, ul, ol, li, strong, em。
// リンクと画像は生成テキストに不要なため許可しない。
func NewTextSanitizer() *TextSanitizer {
	formatted := bluemonday.NewPolicy()
	formatted.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	return &TextSanitizer{
		formatted: formatted,
		plain:     bluemonday.StrictPolicy(),
	}
}

// SanitizeFormatted は説明文フィールドをサニタイズする。
// 基本的な整形タグを残し、それ以外のマークアップを除去する。
func (s *TextSanitizer) SanitizeFormatted(text string) string {
	return s.formatted.Sanitize(text)
}

// SanitizePlain は単一行フィールドをサニタイズする。
// すべてのタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
func (s *TextSanitizer) SanitizePlain(text string) string {
	return strings.TrimSpace(s.plain.Sanitize(text))
}
