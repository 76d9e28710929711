package blog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
)

const maxCommentLength = 2000

// CommentInput is the body of a new comment.
type CommentInput struct {
	Content  string `json:"content" validate:"required,max=2000"`
	ParentID *int64 `json:"parentId" validate:"omitempty,gt=0"`
}

// LikeState is the result of toggling a like.
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"likeCount"`
}

// ListComments returns a post's comments oldest first. Hidden comments are shown to admins only.
func (s *Service) ListComments(ctx context.Context, v Viewer, postID int64, q service.PageQuery) (models.Page[models.CommentView], error) {
	if _, err := s.loadPost(ctx, v, postID); err != nil {
		return models.Page[models.CommentView]{}, err
	}
	page := q.Params()
	items, total, err := s.comments.ListByPost(ctx, postID, v.UserID, v.Admin, page)
	if err != nil {
		return models.Page[models.CommentView]{}, apperr.Wrap(err, "list comments")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

func (s *Service) cleanComment(content string) (string, error) {
	c := strings.TrimSpace(s.plain(content))
	if c == "" {
		return "", apperr.Invalid("content is required").WithDetail("fields", map[string]string{"content": "required"})
	}
	if len([]rune(c)) > maxCommentLength {
		return "", apperr.Invalid("content must be at most %d characters", maxCommentLength)
	}
	return c, nil
}

// AddComment posts a comment, optionally replying to a comment of the same post.
func (s *Service) AddComment(ctx context.Context, userID, postID int64, in CommentInput) (*models.Comment, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	content, err := s.cleanComment(in.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadPost(ctx, Viewer{UserID: userID}, postID); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, apperr.Wrap(err, "get parent comment")
		}
		if parent == nil || parent.PostID != postID {
			return nil, apperr.Invalid("parent comment does not belong to this post")
		}
	}
	c, err := s.comments.Create(ctx, &models.Comment{PostID: postID, AuthorID: userID, ParentID: in.ParentID, Content: content})
	if err != nil {
		return nil, apperr.Wrap(err, "create comment")
	}
	s.log.Debug("comment added", zap.Int64("comment_id", c.ID), zap.Int64("post_id", postID))
	s.autoModerate(ctx, models.TargetComment, c.ID, content)
	return c, nil
}

// EditComment replaces the text of userID's own comment.
func (s *Service) EditComment(ctx context.Context, userID, commentID int64, content string) (*models.Comment, error) {
	clean, err := s.cleanComment(content)
	if err != nil {
		return nil, err
	}
	c, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != userID {
		return nil, apperr.Forbidden("only the author can edit this comment")
	}
	if err := s.comments.UpdateContent(ctx, commentID, clean); err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("comment not found")
		}
		return nil, apperr.Wrap(err, "update comment")
	}
	s.autoModerate(ctx, models.TargetComment, commentID, clean)
	return s.loadComment(ctx, commentID)
}

// DeleteComment removes a comment and its replies. Allowed for the comment
// author, the post author and admins.
func (s *Service) DeleteComment(ctx context.Context, v Viewer, commentID int64) error {
	c, err := s.loadComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !v.Admin && c.AuthorID != v.UserID {
		p, err := s.posts.GetByID(ctx, c.PostID)
		if err != nil {
			return apperr.Wrap(err, "get post %d", c.PostID)
		}
		if p == nil || p.AuthorID != v.UserID {
			return apperr.Forbidden("you cannot delete this comment")
		}
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		if isNoRows(err) {
			return apperr.NotFound("comment not found")
		}
		return apperr.Wrap(err, "delete comment")
	}
	s.log.Info("comment deleted", zap.Int64("comment_id", commentID), zap.Bool("by_admin", v.Admin))
	return nil
}

// ToggleLike likes the comment, or removes userID's like when already present.
func (s *Service) ToggleLike(ctx context.Context, userID, commentID int64) (LikeState, error) {
	c, err := s.loadComment(ctx, commentID)
	if err != nil {
		return LikeState{}, err
	}
	if c.IsHidden {
		return LikeState{}, apperr.NotFound("comment not found")
	}
	liked := true
	if err := s.comments.AddLike(ctx, commentID, userID); err != nil {
		if !isDuplicate(err) {
			return LikeState{}, apperr.Wrap(err, "like comment")
		}
		if err := s.comments.RemoveLike(ctx, commentID, userID); err != nil && !isNoRows(err) {
			return LikeState{}, apperr.Wrap(err, "unlike comment")
		}
		liked = false
	}
	n, err := s.comments.CountLikes(ctx, commentID)
	if err != nil {
		return LikeState{}, apperr.Wrap(err, "count likes")
	}
	return LikeState{Liked: liked, Count: n}, nil
}
