// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// timestampLayouts はサーバーが返すISO 8601タイムスタンプの候補フォーマット。
// バックエンドはタイムゾーンなしのisoformat文字列を返すことがあるため、
// RFC3339系に加えてnaiveなレイアウトもパースを試みる。
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp はISO 8601文字列をtime.Timeにパースする。
// 空文字列はゼロ値を返す（エラーにしない）。
// タイムゾーン表記のない文字列はUTCとして解釈する。
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", s)
}
