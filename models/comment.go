package models

import "time"

// Comment belongs to a post and optionally replies to another comment of the same post.
type Comment struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"postId"`
	AuthorID  int64     `db:"author_id" json:"authorId"`
	ParentID  *int64    `db:"parent_id" json:"parentId,omitempty"`
	Content   string    `db:"content" json:"content"`
	IsHidden  bool      `db:"is_hidden" json:"isHidden"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CommentView adds author and like aggregates for listing.
type CommentView struct {
	Comment
	AuthorUsername string `json:"authorUsername"`
	LikeCount      int    `json:"likeCount"`
	LikedByMe      bool   `json:"likedByMe"`
}

// CommentLike records that a user liked a comment.
type CommentLike struct {
	CommentID int64     `db:"comment_id" json:"commentId"`
	UserID    int64     `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
