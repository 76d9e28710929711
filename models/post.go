package models

import "time"

// BlogPost is an authored article. Content holds sanitised HTML; ContentText is
// its tag-free rendering, used for search.
type BlogPost struct {
	ID           int64     `db:"id" json:"id"`
	AuthorID     int64     `db:"author_id" json:"authorId"`
	Title        string    `db:"title" json:"title"`
	Summary      string    `db:"summary" json:"summary"`
	Content      string    `db:"content" json:"content"`
	ContentText  string    `db:"content_text" json:"-"`
	Tags         []string  `db:"tags" json:"tags"`
	ViewCount    int64     `db:"view_count" json:"viewCount"`
	IsHidden     bool      `db:"is_hidden" json:"isHidden"`
	HiddenReason string    `db:"hidden_reason" json:"hiddenReason,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// PostSummary is the listing projection with computed aggregates.
type PostSummary struct {
	BlogPost
	AuthorUsername string  `json:"authorUsername"`
	AverageRating  float64 `json:"averageRating"`
	RatingCount    int     `json:"ratingCount"`
	CommentCount   int     `json:"commentCount"`
}

// PostRating is one user's 1..5 score for a post.
type PostRating struct {
	PostID    int64     `db:"post_id" json:"postId"`
	UserID    int64     `db:"user_id" json:"userId"`
	Score     int       `db:"score" json:"score"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RatingSummary aggregates the ratings of a post. Mine is zero when the viewer has not rated.
type RatingSummary struct {
	PostID  int64   `json:"postId"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Mine    int     `json:"mine,omitempty"`
}

// SavedBlog is a user's bookmark of a post.
type SavedBlog struct {
	PostID    int64     `db:"post_id" json:"postId"`
	UserID    int64     `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
