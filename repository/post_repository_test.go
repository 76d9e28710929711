package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogPlatform/internal/testutil"
	"blogPlatform/models"
)

func TestPostRepository_CRUDAndList(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "postrepo")
	posts := NewPostRepository(d)
	ratings := NewRatingRepository(d)
	ctx := context.Background()
	alice := testutil.InsertUser(t, d, "alice")
	bob := testutil.InsertUser(t, d, "bob")

	p1, err := posts.Create(ctx, &models.BlogPost{AuthorID: alice, Title: "Go tips", Content: "<p>goroutines</p>", Tags: []string{"go", "tips"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "tips"}, p1.Tags)
	p2, err := posts.Create(ctx, &models.BlogPost{AuthorID: bob, Title: "Baking", Content: "bread 100%", ContentText: "bread 100%", Tags: []string{"food"}})
	require.NoError(t, err)
	p3, err := posts.Create(ctx, &models.BlogPost{AuthorID: alice, Title: "Algorithms", Content: "graphs", Tags: []string{"go_lang"}})
	require.NoError(t, err)

	_, err = posts.Create(ctx, &models.BlogPost{AuthorID: 999, Title: "x", Content: "y"})
	require.Error(t, err)

	require.NoError(t, posts.IncrementViews(ctx, p2.ID))
	require.NoError(t, posts.IncrementViews(ctx, p2.ID))
	require.NoError(t, ratings.Upsert(ctx, p1.ID, bob, 5))
	require.NoError(t, ratings.Upsert(ctx, p3.ID, bob, 2))

	// Search
	list, total, err := posts.ListPage(ctx, PostListParams{Search: "bread"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, p2.ID, list[0].ID)
	assert.Equal(t, "bob", list[0].AuthorUsername)

	// Tag matches whole entries only; '_' is not a wildcard.
	_, total, err = posts.ListPage(ctx, PostListParams{Tag: "GO"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = posts.ListPage(ctx, PostListParams{Tag: "go_lang"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// Author filter and sorting
	list, total, err = posts.ListPage(ctx, PostListParams{AuthorID: &alice, SortBy: "title"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Algorithms", list[0].Title)

	list, _, err = posts.ListPage(ctx, PostListParams{SortBy: "views", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, p2.ID, list[0].ID)
	assert.Equal(t, int64(2), list[0].ViewCount)

	list, _, err = posts.ListPage(ctx, PostListParams{SortBy: "rating", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, p1.ID, list[0].ID)
	assert.InDelta(t, 5.0, list[0].AverageRating, 0.001)
	assert.Equal(t, 1, list[0].RatingCount)

	// Unknown sort keys fall back to creation order.
	list, _, err = posts.ListPage(ctx, PostListParams{SortBy: "'; DROP TABLE users; --"})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	// Hidden posts
	require.NoError(t, posts.SetHidden(ctx, p3.ID, true, "spam"))
	visible := false
	_, total, err = posts.ListPage(ctx, PostListParams{Hidden: &visible})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	got, _ := posts.GetByID(ctx, p3.ID)
	assert.True(t, got.IsHidden)
	assert.Equal(t, "spam", got.HiddenReason)
	n, err := posts.CountByAuthor(ctx, alice, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	top, err := posts.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, p1.ID, top[0].ID)

	counts, err := posts.Counts(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, PostCounts{Total: 3, Hidden: 1, NewSince: 3}, counts)

	// Update and delete
	p1.Title = "Go tips, revised"
	p1.Tags = []string{"go"}
	require.NoError(t, posts.Update(ctx, p1))
	s, err := posts.GetSummary(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go tips, revised", s.Title)
	assert.Equal(t, []string{"go"}, s.Tags)

	require.NoError(t, posts.Delete(ctx, p1.ID))
	gone, err := posts.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.ErrorIs(t, posts.Delete(ctx, p1.ID), sql.ErrNoRows)

	// Cascade removed the rating.
	sum, err := ratings.Summary(ctx, p1.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Count)
}

func TestRatingRepository_RatingsAndSaves(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "ratingrepo")
	repo := NewRatingRepository(d)
	ctx := context.Background()
	alice := testutil.InsertUser(t, d, "alice")
	bob := testutil.InsertUser(t, d, "bob")
	carol := testutil.InsertUser(t, d, "carol")
	post := testutil.InsertPost(t, d, alice, "hello")

	require.NoError(t, repo.Upsert(ctx, post, bob, 4))
	require.NoError(t, repo.Upsert(ctx, post, bob, 2))
	require.NoError(t, repo.Upsert(ctx, post, carol, 5))
	require.Error(t, repo.Upsert(ctx, post, carol, 6), "score is constrained to 1..5")

	s, err := repo.Summary(ctx, post, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 3.5, s.Average, 0.001)
	assert.Equal(t, 2, s.Mine)

	s, err = repo.Summary(ctx, post, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Mine)

	r, err := repo.Get(ctx, post, carol)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 5, r.Score)

	require.NoError(t, repo.Delete(ctx, post, carol))
	assert.ErrorIs(t, repo.Delete(ctx, post, carol), sql.ErrNoRows)

	require.NoError(t, repo.Save(ctx, post, bob))
	assert.ErrorIs(t, repo.Save(ctx, post, bob), ErrDuplicate)
	saved, err := repo.IsSaved(ctx, post, bob)
	require.NoError(t, err)
	assert.True(t, saved)

	list, total, err := repo.ListSaved(ctx, bob, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, post, list[0].ID)

	require.NoError(t, repo.Unsave(ctx, post, bob))
	assert.ErrorIs(t, repo.Unsave(ctx, post, bob), sql.ErrNoRows)
}

func TestCommentRepository_ThreadsAndLikes(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "commentrepo")
	repo := NewCommentRepository(d)
	ctx := context.Background()
	alice := testutil.InsertUser(t, d, "alice")
	bob := testutil.InsertUser(t, d, "bob")
	post := testutil.InsertPost(t, d, alice, "hello")

	root, err := repo.Create(ctx, &models.Comment{PostID: post, AuthorID: bob, Content: "first"})
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)
	reply, err := repo.Create(ctx, &models.Comment{PostID: post, AuthorID: alice, ParentID: &root.ID, Content: "thanks"})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)

	require.NoError(t, repo.AddLike(ctx, root.ID, alice))
	assert.ErrorIs(t, repo.AddLike(ctx, root.ID, alice), ErrDuplicate)
	n, err := repo.CountLikes(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	views, total, err := repo.ListByPost(ctx, post, alice, false, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, views, 2)
	assert.Equal(t, root.ID, views[0].ID)
	assert.Equal(t, "bob", views[0].AuthorUsername)
	assert.Equal(t, 1, views[0].LikeCount)
	assert.True(t, views[0].LikedByMe)
	assert.False(t, views[1].LikedByMe)

	require.NoError(t, repo.SetHidden(ctx, reply.ID, true))
	_, total, err = repo.ListByPost(ctx, post, 0, false, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = repo.ListByPost(ctx, post, 0, true, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	require.NoError(t, repo.UpdateContent(ctx, root.ID, "first, edited"))
	c, _ := repo.GetByID(ctx, root.ID)
	assert.Equal(t, "first, edited", c.Content)

	require.NoError(t, repo.RemoveLike(ctx, root.ID, alice))
	assert.ErrorIs(t, repo.RemoveLike(ctx, root.ID, alice), sql.ErrNoRows)

	// Deleting the parent removes its replies.
	require.NoError(t, repo.Delete(ctx, root.ID))
	gone, err := repo.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	total, recent, err := repo.Count(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, recent)
}
