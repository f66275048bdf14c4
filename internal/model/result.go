// Package model はドメインモデルを定義する。
package model

import "time"

// ResultSummary はSEO分析結果の一覧サマリーを表す。
// ページネーション付き一覧クエリで取得され、取得後は不変として扱う
// （サーバーが信頼できる唯一の情報源）。
type ResultSummary struct {
	ID        int
	Domain    string
	CreatedAt time.Time
	Username  string
}

// ResultDetail はSEO分析結果の詳細を表す。
// サマリーの選択時にIDで個別取得される。自由テキストフィールドは
// 表示前にサニタイズ済み（seoパッケージが保証する）。
type ResultDetail struct {
	ResultSummary
	ShortDescription string
	LongDescription  string
	Keywords         string
	OpeningHours     string
	CompanyInfo      string
}
