// Package model はドメインモデルを定義する。
package model

import "time"

// ImageType は生成画像のフォーマット種別を表す。
type ImageType string

const (
	// ImageTypeHeader はWebヘッダー向けフォーマット（16:9）。
	ImageTypeHeader ImageType = "header"
	// ImageTypeKachel はタイル向けフォーマット（4:3）。
	ImageTypeKachel ImageType = "kachel"
)

// IsValid は画像種別が定義済みの値かを検証する。
func (t ImageType) IsValid() bool {
	return t == ImageTypeHeader || t == ImageTypeKachel
}

// ImageRecord はAI生成画像を表す。
// 生成直後の結果と履歴エントリの両方で同一の形状を持つ。
type ImageRecord struct {
	ID        int
	ImageURL  string
	ImageType ImageType
	ImageSize string
	UserInput string
	CreatedAt time.Time
}
