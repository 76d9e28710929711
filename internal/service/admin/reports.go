package admin

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// Report resolution actions.
const (
	ReportActionNone        = "none"
	ReportActionHideContent = "hide_content"
	ReportActionBanUser     = "ban_user"
)

// ListReportsQuery filters ListReports. Empty strings mean no filter.
type ListReportsQuery struct {
	Status     string `form:"status"`
	TargetType string `form:"targetType"`
	service.PageQuery
}

func (s *Service) ListReports(ctx context.Context, q ListReportsQuery) (models.Page[models.Report], error) {
	st := models.ReportStatus(strings.TrimSpace(q.Status))
	if st != "" && !st.Valid() {
		return models.Page[models.Report]{}, apperr.Invalid("unknown report status %q", q.Status)
	}
	tt := models.TargetType(strings.TrimSpace(q.TargetType))
	if tt != "" && !tt.Valid() {
		return models.Page[models.Report]{}, apperr.Invalid("unknown target type %q", q.TargetType)
	}
	page := q.Params()
	items, total, err := s.reports.List(ctx, repository.ReportListParams{Status: st, TargetType: tt, PageParams: page})
	if err != nil {
		return models.Page[models.Report]{}, apperr.Wrap(err, "list reports")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

func (s *Service) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get report %d", id)
	}
	if r == nil {
		return nil, apperr.NotFound("report not found")
	}
	return r, nil
}

// ReviewReport claims a pending report for review.
func (s *Service) ReviewReport(ctx context.Context, actor *models.AdminUser, id int64) (*models.Report, error) {
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.ReportPending {
		return nil, apperr.Conflict("report is %s, only pending reports can be taken for review", r.Status)
	}
	if err := s.reports.Transition(ctx, id, []models.ReportStatus{models.ReportPending}, models.ReportUnderReview, actor.ID, "", s.now()); err != nil {
		if isNoRows(err) {
			return nil, apperr.Conflict("report was updated concurrently")
		}
		return nil, apperr.Wrap(err, "review report")
	}
	s.record(ctx, actor, ActionReviewReport, "report", id, nil)
	return s.GetReport(ctx, id)
}

// ResolveInput closes a report.
type ResolveInput struct {
	Outcome          string `json:"outcome" validate:"required,oneof=resolved dismissed"`
	Note             string `json:"note" validate:"max=1000"`
	Action           string `json:"action" validate:"omitempty,oneof=none hide_content ban_user"`
	BanDurationHours *int   `json:"banDurationHours"`
}

// ResolveReport applies the chosen action and moves the report into a terminal state.
// The action runs first so a failed action leaves the report open.
func (s *Service) ResolveReport(ctx context.Context, actor *models.AdminUser, id int64, in ResolveInput) (*models.Report, error) {
	in.Note = strings.TrimSpace(in.Note)
	if in.Action == "" {
		in.Action = ReportActionNone
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	outcome := models.ReportStatus(in.Outcome)
	if outcome == models.ReportDismissed && in.Action != ReportActionNone {
		return nil, apperr.Invalid("a dismissed report cannot carry an action")
	}
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.Open() {
		return nil, apperr.Conflict("report is already %s", r.Status)
	}
	if err := s.applyReportAction(ctx, actor, r, in); err != nil {
		return nil, err
	}
	open := []models.ReportStatus{models.ReportPending, models.ReportUnderReview}
	if err := s.reports.Transition(ctx, id, open, outcome, actor.ID, in.Note, s.now()); err != nil {
		if isNoRows(err) {
			return nil, apperr.Conflict("report was closed concurrently")
		}
		return nil, apperr.Wrap(err, "resolve report")
	}
	s.record(ctx, actor, ActionResolveReport, "report", id, map[string]any{
		"outcome": in.Outcome,
		"action":  in.Action,
		"target":  string(r.TargetType),
	})
	return s.GetReport(ctx, id)
}

func (s *Service) applyReportAction(ctx context.Context, actor *models.AdminUser, r *models.Report, in ResolveInput) error {
	switch in.Action {
	case ReportActionHideContent:
		if r.TargetType == models.TargetUser {
			return apperr.Invalid("users cannot be hidden; use ban_user")
		}
		reason := "hidden after report #" + strconv.FormatInt(r.ID, 10)
		if err := s.content.HideContent(ctx, r.TargetType, r.TargetID, reason); err != nil {
			return err
		}
		action := ActionHidePost
		if r.TargetType == models.TargetComment {
			action = ActionHideComment
		}
		s.record(ctx, actor, action, string(r.TargetType), r.TargetID, map[string]any{"reportId": r.ID})
	case ReportActionBanUser:
		userID := r.TargetID
		if r.TargetType != models.TargetUser {
			author, err := s.content.ContentAuthor(ctx, r.TargetType, r.TargetID)
			if err != nil {
				return err
			}
			userID = author
		}
		reason := in.Note
		if reason == "" {
			reason = "report #" + strconv.FormatInt(r.ID, 10) + ": " + r.Reason
		}
		_, err := s.BanUser(ctx, actor, userID, BanRequest{Reason: reason, DurationHours: in.BanDurationHours})
		if apperr.Is(err, apperr.KindConflict) {
			s.log.Info("report ban skipped, user already banned", zap.Int64("user_id", userID), zap.Int64("report_id", r.ID))
			return nil
		}
		return err
	}
	return nil
}

// ListFlags lists content flags, optionally restricted to one status.
func (s *Service) ListFlags(ctx context.Context, status string, q service.PageQuery) (models.Page[models.ContentFlag], error) {
	st := models.FlagStatus(strings.TrimSpace(status))
	switch st {
	case "", models.FlagOpen, models.FlagReviewed, models.FlagDismissed:
	default:
		return models.Page[models.ContentFlag]{}, apperr.Invalid("unknown flag status %q", status)
	}
	page := q.Params()
	items, total, err := s.flags.List(ctx, st, page)
	if err != nil {
		return models.Page[models.ContentFlag]{}, apperr.Wrap(err, "list flags")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

// CreateFlagInput raises a flag by hand.
type CreateFlagInput struct {
	ContentType string `json:"contentType" validate:"required,oneof=post comment"`
	ContentID   int64  `json:"contentId" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

func (s *Service) CreateFlag(ctx context.Context, actor *models.AdminUser, in CreateFlagInput) (*models.ContentFlag, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	tt := models.TargetType(in.ContentType)
	ok, err := s.content.ContentExists(ctx, tt, in.ContentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("%s not found", tt)
	}
	by := actor.ID
	f, err := s.flags.Create(ctx, &models.ContentFlag{
		ContentType: tt,
		ContentID:   in.ContentID,
		Reason:      in.Reason,
		Source:      models.FlagSourceAdmin,
		FlaggedBy:   &by,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "create flag")
	}
	s.record(ctx, actor, ActionCreateFlag, string(tt), in.ContentID, map[string]any{"flagId": f.ID, "reason": f.Reason})
	return f, nil
}

// ReviewFlagInput closes an open flag, optionally hiding the content.
type ReviewFlagInput struct {
	Outcome string `json:"outcome" validate:"required,oneof=reviewed dismissed"`
	Hide    bool   `json:"hide"`
}

func (s *Service) ReviewFlag(ctx context.Context, actor *models.AdminUser, id int64, in ReviewFlagInput) (*models.ContentFlag, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	f, err := s.flags.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get flag %d", id)
	}
	if f == nil {
		return nil, apperr.NotFound("flag not found")
	}
	if f.Status != models.FlagOpen {
		return nil, apperr.Conflict("flag is already %s", f.Status)
	}
	if in.Hide {
		if err := s.content.HideContent(ctx, f.ContentType, f.ContentID, "hidden after flag #"+strconv.FormatInt(f.ID, 10)); err != nil {
			return nil, err
		}
	}
	if err := s.flags.Review(ctx, id, models.FlagStatus(in.Outcome), actor.ID, s.now()); err != nil {
		if isNoRows(err) {
			return nil, apperr.Conflict("flag was closed concurrently")
		}
		return nil, apperr.Wrap(err, "review flag")
	}
	s.record(ctx, actor, ActionReviewFlag, string(f.ContentType), f.ContentID, map[string]any{
		"flagId":  f.ID,
		"outcome": in.Outcome,
		"hidden":  in.Hide,
	})
	out, err := s.flags.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get flag %d", id)
	}
	return out, nil
}
