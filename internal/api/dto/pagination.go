package dto

// Page is a window over an ordered collection.
type Page[T any] struct {
	Limit         int   `json:"limit"`
	Skip          int   `json:"skip"`
	NoItems       int   `json:"no_items"`
	NoTotalItems  int64 `json:"no_total_items"`
	NoItemsBefore int64 `json:"no_items_before"`
	NoItemsAfter  int64 `json:"no_items_after"`
	Page          int   `json:"page"`
	NoPages       int64 `json:"no_pages"`
	NoPagesBefore int64 `json:"no_pages_before"`
	NoPagesAfter  int64 `json:"no_pages_after"`
	Items         []T   `json:"items"`
}

// NewPage computes the window counters for items found at page*limit.
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	skip := page * limit
	before := int64(skip)
	after := total - before - int64(len(items))
	if after < 0 {
		after = 0
	}
	return Page[T]{
		Limit:         limit,
		Skip:          skip,
		NoItems:       len(items),
		NoTotalItems:  total,
		NoItemsBefore: before,
		NoItemsAfter:  after,
		Page:          page,
		NoPages:       pageCount(total, limit),
		NoPagesBefore: pageCount(before, limit),
		NoPagesAfter:  pageCount(after, limit),
		Items:         items,
	}
}

func pageCount(n int64, limit int) int64 {
	if n <= 0 || limit <= 0 {
		return 0
	}
	pages := n / int64(limit)
	if n%int64(limit) != 0 {
		pages++
	}
	return pages
}
