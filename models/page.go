package models

// Page is one slice of a paginated listing together with the total match count.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPage builds a Page, computing TotalPages and never returning nil Items.
func NewPage[T any](items []T, total, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Page[T]{Items: items, TotalCount: total, Page: page, PageSize: pageSize, TotalPages: pages}
}

// CursorPage is a keyset-paginated slice; NextPageToken is empty on the last page.
type CursorPage[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}
