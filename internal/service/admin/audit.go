package admin

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"blogPlatform/internal/apperr"
	"blogPlatform/models"
	"blogPlatform/repository"
)

const cursorSeparator = "|"

// AuditQuery filters ListAuditLogs. PageToken is the NextPageToken of the previous page.
type AuditQuery struct {
	AdminID   *int64     `form:"adminId"`
	Action    string     `form:"action"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	PageSize  int        `form:"pageSize"`
	PageToken string     `form:"pageToken"`
}

// ListAuditLogs pages the audit log newest first using an opaque keyset cursor.
func (s *Service) ListAuditLogs(ctx context.Context, q AuditQuery) (models.CursorPage[models.AdminAuditLog], error) {
	var out models.CursorPage[models.AdminAuditLog]
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return out, apperr.Invalid("from must not be after to")
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = repository.DefaultPageSize
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}

	var afterSeconds, afterID int64
	if q.PageToken != "" {
		if err := decodeCursor(q.PageToken, &afterSeconds, &afterID); err != nil {
			return out, apperr.Invalid("invalid pageToken: %v", err)
		}
	}

	items, err := s.audit.List(ctx, repository.AuditListParams{
		AdminID:      q.AdminID,
		Action:       strings.TrimSpace(q.Action),
		From:         q.From,
		To:           q.To,
		PageSize:     pageSize,
		AfterSeconds: afterSeconds,
		AfterID:      afterID,
	})
	if err != nil {
		return out, apperr.Wrap(err, "list audit logs")
	}
	if items == nil {
		items = []models.AdminAuditLog{}
	}
	out.Items = items

	// A full page means there may be more.
	if len(items) == pageSize {
		last := items[len(items)-1]
		out.NextPageToken = encodeCursor(last.CreatedAt.Unix(), last.ID)
	}
	return out, nil
}

// encodeCursor builds an opaque page token from unix seconds and a row id.
func encodeCursor(seconds int64, id int64) string {
	raw := strconv.FormatInt(seconds, 10) + cursorSeparator + strconv.FormatInt(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor parses a page token produced by encodeCursor.
func decodeCursor(token string, seconds *int64, id *int64) error {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("base64: %w", err)
	}
	parts := strings.SplitN(string(b), cursorSeparator, 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid cursor format")
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse seconds: %w", err)
	}
	rid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse id: %w", err)
	}
	if sec <= 0 || rid <= 0 {
		return fmt.Errorf("cursor out of range")
	}
	*seconds = sec
	*id = rid
	return nil
}
