package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"blogPlatform/internal/db"
)

const (
	// DefaultPageSize is used when a caller leaves the page size unset.
	DefaultPageSize = 20
	// MaxPageSize caps every offset-paginated listing.
	MaxPageSize = 100

	queryTimeout = 3 * time.Second
	listTimeout  = 5 * time.Second
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// PageParams selects a 1-based page of results.
type PageParams struct {
	Page     int
	PageSize int
}

// Normalize clamps page to >= 1 and page size to [1, MaxPageSize].
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// LimitOffset returns SQL LIMIT/OFFSET values for the normalized page.
func (p PageParams) LimitOffset() (int, int) {
	n := p.Normalize()
	return n.PageSize, (n.Page - 1) * n.PageSize
}

// orderBy renders an ORDER BY clause from a whitelisted sort key, always ending with
// an id tiebreaker so pages are stable.
func orderBy(sortBy string, desc bool, allowed map[string]string, fallback string, idColumn string) string {
	col, ok := allowed[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		col = allowed[fallback]
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", " + idColumn + " " + dir
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards; queries pair it with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likePattern turns a user search term into a contains-match pattern.
func likePattern(term string) string {
	return "%" + escapeLike(strings.TrimSpace(term)) + "%"
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func parseTS(s string) time.Time {
	t, _ := db.ParseTime(s)
	return t
}

func parseNullTS(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := db.ParseTime(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatNullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return db.FormatTime(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rowsAffectedOrNoRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DailyCount is the number of rows created on one UTC day (YYYY-MM-DD).
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

func scanDailyCounts(rows *sql.Rows) ([]DailyCount, error) {
	var out []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
