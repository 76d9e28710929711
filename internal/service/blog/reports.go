package blog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// ReportInput is the body of a report.
type ReportInput struct {
	TargetType  models.TargetType `json:"targetType" validate:"required,oneof=post comment user"`
	TargetID    int64             `json:"targetId" validate:"required,gt=0"`
	Reason      string            `json:"reason" validate:"required,max=100"`
	Description string            `json:"description" validate:"max=1000"`
}

// CreateReport files a report. Reporting yourself or your own content is
// rejected, as is a second pending report on the same target.
func (s *Service) CreateReport(ctx context.Context, reporterID int64, in ReportInput) (*models.Report, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkReportTarget(ctx, reporterID, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}
	dup, err := s.reports.ExistsPending(ctx, reporterID, in.TargetType, in.TargetID)
	if err != nil {
		return nil, apperr.Wrap(err, "check pending report")
	}
	if dup {
		return nil, apperr.Conflict("you already reported this")
	}
	rep, err := s.reports.Create(ctx, &models.Report{
		ReporterID:  reporterID,
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Reason:      in.Reason,
		Description: in.Description,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "create report")
	}
	s.log.Info("report filed", zap.Int64("report_id", rep.ID), zap.String("target_type", string(in.TargetType)), zap.Int64("target_id", in.TargetID))
	if in.TargetType == models.TargetPost {
		s.maybeAutoHide(ctx, in.TargetID)
	}
	return rep, nil
}

func (s *Service) checkReportTarget(ctx context.Context, reporterID int64, tt models.TargetType, id int64) error {
	switch tt {
	case models.TargetPost:
		p, err := s.loadPost(ctx, Viewer{UserID: reporterID}, id)
		if err != nil {
			return err
		}
		if p.AuthorID == reporterID {
			return apperr.Invalid("you cannot report your own post")
		}
	case models.TargetComment:
		c, err := s.loadComment(ctx, id)
		if err != nil {
			return err
		}
		if c.AuthorID == reporterID {
			return apperr.Invalid("you cannot report your own comment")
		}
	case models.TargetUser:
		if id == reporterID {
			return apperr.Invalid("you cannot report yourself")
		}
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return apperr.Wrap(err, "get user %d", id)
		}
		if u == nil {
			return apperr.NotFound("user not found")
		}
	default:
		return apperr.Invalid("unknown target type %q", tt)
	}
	return nil
}

// maybeAutoHide hides a post once its open reports reach the configured threshold.
// Failures are logged; the report itself has already been stored.
func (s *Service) maybeAutoHide(ctx context.Context, postID int64) {
	threshold, err := s.settings.Int(ctx, service.SettingAutoHideThreshold, 5)
	if err != nil || threshold <= 0 {
		return
	}
	n, err := s.reports.CountOpenForTarget(ctx, models.TargetPost, postID)
	if err != nil {
		s.log.Warn("count open reports failed", zap.Int64("post_id", postID), zap.Error(err))
		return
	}
	if n < threshold {
		return
	}
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil || p == nil || p.IsHidden {
		return
	}
	if err := s.posts.SetHidden(ctx, postID, true, "hidden automatically after repeated reports"); err != nil {
		s.log.Warn("auto-hide failed", zap.Int64("post_id", postID), zap.Error(err))
		return
	}
	s.log.Info("post auto-hidden", zap.Int64("post_id", postID), zap.Int("open_reports", n))
}

// ListMyReports returns the reports filed by reporterID, newest first.
func (s *Service) ListMyReports(ctx context.Context, reporterID int64, q service.PageQuery) (models.Page[models.Report], error) {
	page := q.Params()
	items, total, err := s.reports.List(ctx, repository.ReportListParams{ReporterID: &reporterID, PageParams: page})
	if err != nil {
		return models.Page[models.Report]{}, apperr.Wrap(err, "list reports")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}
