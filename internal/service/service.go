// Package service holds helpers shared by the users, blog and admin services.
package service

import (
	"strings"

	"blogPlatform/internal/apperr"
	"blogPlatform/repository"
)

// PageQuery is the page selector accepted by every offset-paginated listing.
// Out-of-range values are clamped rather than rejected.
type PageQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"pageSize" json:"pageSize"`
}

// Params returns normalized repository page parameters.
func (q PageQuery) Params() repository.PageParams {
	return repository.PageParams{Page: q.Page, PageSize: q.PageSize}.Normalize()
}

// CheckSort validates a sort key against the allowed names (case-insensitive).
// An empty key is accepted and means the listing's default order.
func CheckSort(sortBy string, allowed ...string) error {
	if sortBy == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(sortBy, a) {
			return nil
		}
	}
	return apperr.Invalid("sortBy must be one of %s", strings.Join(allowed, ", ")).WithDetail("allowed", allowed)
}

// SortDesc interprets a sort direction string; anything but "desc" is ascending.
func SortDesc(dir string) bool {
	return strings.EqualFold(strings.TrimSpace(dir), "desc")
}
