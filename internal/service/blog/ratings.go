package blog

import (
	"context"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
)

// RatePost records or replaces userID's 1..5 score for a post.
func (s *Service) RatePost(ctx context.Context, userID, postID int64, score int) (models.RatingSummary, error) {
	if score < 1 || score > 5 {
		return models.RatingSummary{}, apperr.Invalid("score must be between 1 and 5")
	}
	p, err := s.loadPost(ctx, Viewer{UserID: userID}, postID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	if p.AuthorID == userID {
		return models.RatingSummary{}, apperr.Invalid("you cannot rate your own post")
	}
	if err := s.ratings.Upsert(ctx, postID, userID, score); err != nil {
		return models.RatingSummary{}, apperr.Wrap(err, "rate post")
	}
	return s.ratingSummary(ctx, postID, userID)
}

// RemoveRating deletes userID's score for a post.
func (s *Service) RemoveRating(ctx context.Context, userID, postID int64) (models.RatingSummary, error) {
	if err := s.ratings.Delete(ctx, postID, userID); err != nil {
		if isNoRows(err) {
			return models.RatingSummary{}, apperr.NotFound("rating not found")
		}
		return models.RatingSummary{}, apperr.Wrap(err, "remove rating")
	}
	return s.ratingSummary(ctx, postID, userID)
}

// RatingSummary returns the average, count and the viewer's own score for a
// post the viewer can see.
func (s *Service) RatingSummary(ctx context.Context, v Viewer, postID int64) (models.RatingSummary, error) {
	if _, err := s.loadPost(ctx, v, postID); err != nil {
		return models.RatingSummary{}, err
	}
	return s.ratingSummary(ctx, postID, v.UserID)
}

func (s *Service) ratingSummary(ctx context.Context, postID, viewerID int64) (models.RatingSummary, error) {
	sum, err := s.ratings.Summary(ctx, postID, viewerID)
	if err != nil {
		return sum, apperr.Wrap(err, "rating summary")
	}
	return sum, nil
}

// SavePost bookmarks a visible post.
func (s *Service) SavePost(ctx context.Context, userID, postID int64) error {
	if _, err := s.loadPost(ctx, Viewer{UserID: userID}, postID); err != nil {
		return err
	}
	if err := s.ratings.Save(ctx, postID, userID); err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("post already saved")
		}
		return apperr.Wrap(err, "save post")
	}
	return nil
}

func (s *Service) UnsavePost(ctx context.Context, userID, postID int64) error {
	if err := s.ratings.Unsave(ctx, postID, userID); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("post is not saved")
		}
		return apperr.Wrap(err, "unsave post")
	}
	return nil
}

// ListSaved returns userID's bookmarks, most recently saved first.
func (s *Service) ListSaved(ctx context.Context, userID int64, q service.PageQuery) (models.Page[models.PostSummary], error) {
	page := q.Params()
	items, total, err := s.ratings.ListSaved(ctx, userID, page)
	if err != nil {
		return models.Page[models.PostSummary]{}, apperr.Wrap(err, "list saved posts")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}
