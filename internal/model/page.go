// Package model はドメインモデルを定義する。
package model

// Page は1ページ分のアイテム列とページネーション状態を表す。
// 不変条件: TotalPagesは常に1以上、1 <= CurrentPage <= TotalPages。
// 空の結果セットはTotalPages == 1・アイテム0件として表現する
// （TotalPages == 0は存在しない。ページネーションUIを常に定義可能に保つため）。
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
}

// EmptyPage は不変条件を満たす空ページを返す。
func EmptyPage[T any]() Page[T] {
	return Page[T]{Items: nil, CurrentPage: 1, TotalPages: 1}
}

// NormalizePage はサーバーレスポンス由来のページをPage不変条件に合わせて正規化する。
// totalPagesが0以下の場合は1に、currentPageは[1, totalPages]にクランプする。
func NormalizePage[T any](items []T, currentPage, totalPages int) Page[T] {
	if totalPages < 1 {
		totalPages = 1
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}
	return Page[T]{Items: items, CurrentPage: currentPage, TotalPages: totalPages}
}

// ClampPage はページ番号を[1, totalPages]の範囲にクランプする。
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
