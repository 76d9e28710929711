package blog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/internal/testutil"
	"blogPlatform/models"
	"blogPlatform/repository"
)

type fixture struct {
	db       *sql.DB
	svc      *Service
	settings *repository.SettingRepository
	flags    *repository.FlagRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, "blog_svc")
	settings := repository.NewSettingRepository(d)
	flags := repository.NewFlagRepository(d)
	svc := New(Options{
		Posts:    repository.NewPostRepository(d),
		Comments: repository.NewCommentRepository(d),
		Ratings:  repository.NewRatingRepository(d),
		Reports:  repository.NewReportRepository(d),
		Flags:    flags,
		Users:    repository.NewUserRepository(d),
		Settings: settings,
		Logger:   testutil.Logger(t),
	})
	return &fixture{db: d, svc: svc, settings: settings, flags: flags}
}

func TestCreatePost_SanitisesAndNormalises(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "writer")

	p, err := f.svc.CreatePost(ctx, author, PostInput{
		Title:   "  Hello <b>Go</b> ",
		Content: `<p>First   paragraph</p> <script>alert(1)</script> <a href="javascript:x()">link</a>`,
		Tags:    []string{"Go", " go ", "Web Dev", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Go", p.Title)
	assert.NotContains(t, p.Content, "script")
	assert.NotContains(t, p.Content, "javascript:")
	assert.Contains(t, p.Content, "<p>First   paragraph</p>")
	assert.Equal(t, "First paragraph link", p.Summary)
	assert.Equal(t, []string{"go", "web-dev"}, p.Tags)

	_, err = f.svc.CreatePost(ctx, author, PostInput{Title: "t", Content: "<script>only</script>"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	require.NoError(t, f.settings.Set(ctx, service.SettingMaxTitleLength, "10", nil))
	_, err = f.svc.CreatePost(ctx, author, PostInput{Title: "a title that is too long", Content: "body"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	many := make([]string, 11)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	_, err = f.svc.CreatePost(ctx, author, PostInput{Title: "tags", Content: "body", Tags: many})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

func TestListPosts_SearchIgnoresMarkup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "writer")
	_, err := f.svc.CreatePost(ctx, author, PostInput{
		Title:   "Formatted",
		Content: `<p>nothing <strong>here</strong> <a href="https://example.com">x</a></p>`,
	})
	require.NoError(t, err)

	for _, term := range []string{"strong", "href", "example.com"} {
		page, err := f.svc.ListPosts(ctx, Viewer{}, ListPostsQuery{Search: term})
		require.NoError(t, err)
		assert.Equal(t, 0, page.TotalCount, term)
	}
	page, err := f.svc.ListPosts(ctx, Viewer{}, ListPostsQuery{Search: "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestListPosts_SortDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "writer")
	for _, title := range []string{"Banana", "Apple", "Cherry"} {
		_, err := f.svc.CreatePost(ctx, author, PostInput{Title: title, Content: "body"})
		require.NoError(t, err)
	}
	titles := func(q ListPostsQuery) []string {
		page, err := f.svc.ListPosts(ctx, Viewer{}, q)
		require.NoError(t, err)
		var out []string
		for _, p := range page.Items {
			out = append(out, p.Title)
		}
		return out
	}
	assert.Equal(t, []string{"Apple", "Banana", "Cherry"}, titles(ListPostsQuery{SortBy: "title"}))
	assert.Equal(t, []string{"Cherry", "Banana", "Apple"}, titles(ListPostsQuery{SortBy: "title", SortDir: "desc"}))
}

func TestRatingSummary_HiddenPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "owner")
	rater := testutil.InsertUser(t, f.db, "rater")
	p, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Rated", Content: "text"})
	require.NoError(t, err)
	_, err = f.svc.RatePost(ctx, rater, p.ID, 4)
	require.NoError(t, err)
	require.NoError(t, f.svc.HidePost(ctx, p.ID, "review"))

	_, err = f.svc.RatingSummary(ctx, Viewer{}, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.svc.RatingSummary(ctx, Viewer{UserID: rater}, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	sum, err := f.svc.RatingSummary(ctx, Viewer{UserID: author}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	_, err = f.svc.RatingSummary(ctx, Viewer{Admin: true}, p.ID)
	require.NoError(t, err)
}

func TestPostVisibilityAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "owner")
	other := testutil.InsertUser(t, f.db, "reader")

	p, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Visible", Content: "text"})
	require.NoError(t, err)
	hidden, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Secret", Content: "text"})
	require.NoError(t, err)
	require.NoError(t, f.svc.HidePost(ctx, hidden.ID, ""))

	d, err := f.svc.GetPost(ctx, Viewer{UserID: other}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ViewCount)
	assert.Equal(t, "owner", d.AuthorUsername)

	_, err = f.svc.GetPost(ctx, Viewer{UserID: other}, hidden.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.svc.GetPost(ctx, Viewer{UserID: author}, hidden.ID)
	require.NoError(t, err)
	_, err = f.svc.GetPost(ctx, Viewer{Admin: true}, hidden.ID)
	require.NoError(t, err)

	public, err := f.svc.ListPosts(ctx, Viewer{}, ListPostsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, public.TotalCount)

	own, err := f.svc.ListPosts(ctx, Viewer{UserID: author}, ListPostsQuery{AuthorID: &author})
	require.NoError(t, err)
	assert.Equal(t, 2, own.TotalCount)

	_, err = f.svc.ListPosts(ctx, Viewer{}, ListPostsQuery{SortBy: "author"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.UpdatePost(ctx, other, p.ID, PostInput{Title: "Mine now", Content: "x"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	upd, err := f.svc.UpdatePost(ctx, author, p.ID, PostInput{Title: "Edited", Content: "new body"})
	require.NoError(t, err)
	assert.Equal(t, "Edited", upd.Title)

	assert.True(t, apperr.Is(f.svc.DeletePost(ctx, Viewer{UserID: other}, p.ID), apperr.KindForbidden))
	require.NoError(t, f.svc.DeletePost(ctx, Viewer{UserID: author}, p.ID))
	require.NoError(t, f.svc.AdminDeletePost(ctx, hidden.ID))

	n, err := f.svc.AuthorPostCount(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAutoModeration_FlagsBannedWords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "spammer")
	require.NoError(t, f.settings.Set(ctx, service.SettingBannedWords, "casino,free money", nil))

	_, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Casinos are fun", Content: "nothing here"})
	require.NoError(t, err)
	n, err := f.flags.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "substring of a longer word is not a hit")

	p, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Deal", Content: "<p>Visit the CASINO for free money!</p>"})
	require.NoError(t, err)
	flags, total, err := f.flags.List(ctx, models.FlagOpen, repository.PageParams{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, p.ID, flags[0].ContentID)
	assert.Equal(t, models.FlagSourceAuto, flags[0].Source)
	assert.Contains(t, flags[0].Reason, "casino")
	assert.Contains(t, flags[0].Reason, "free money")
}

func TestRatingsAndSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "a")
	u1 := testutil.InsertUser(t, f.db, "u1")
	u2 := testutil.InsertUser(t, f.db, "u2")
	p, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Rate me", Content: "body"})
	require.NoError(t, err)

	_, err = f.svc.RatePost(ctx, author, p.ID, 5)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.svc.RatePost(ctx, u1, p.ID, 6)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.RatePost(ctx, u1, p.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.RatePost(ctx, u1, p.ID, 4)
	require.NoError(t, err)
	sum, err := f.svc.RatePost(ctx, u2, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 4.5, sum.Average, 0.001)
	assert.Equal(t, 5, sum.Mine)

	sum, err = f.svc.RemoveRating(ctx, u2, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	_, err = f.svc.RemoveRating(ctx, u2, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, f.svc.SavePost(ctx, u1, p.ID))
	assert.True(t, apperr.Is(f.svc.SavePost(ctx, u1, p.ID), apperr.KindConflict))
	saved, err := f.svc.ListSaved(ctx, u1, service.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TotalCount)

	d, err := f.svc.GetPost(ctx, Viewer{UserID: u1}, p.ID)
	require.NoError(t, err)
	assert.True(t, d.SavedByMe)
	assert.Equal(t, 4, d.Rating.Mine)

	require.NoError(t, f.svc.UnsavePost(ctx, u1, p.ID))
	assert.True(t, apperr.Is(f.svc.UnsavePost(ctx, u1, p.ID), apperr.KindNotFound))
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "poster")
	u1 := testutil.InsertUser(t, f.db, "c1")
	u2 := testutil.InsertUser(t, f.db, "c2")
	p, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Talk", Content: "body"})
	require.NoError(t, err)
	p2, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Other", Content: "body"})
	require.NoError(t, err)

	root, err := f.svc.AddComment(ctx, u1, p.ID, CommentInput{Content: "<b>nice</b> post"})
	require.NoError(t, err)
	assert.Equal(t, "nice post", root.Content)

	_, err = f.svc.AddComment(ctx, u2, p2.ID, CommentInput{Content: "wrong thread", ParentID: &root.ID})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	reply, err := f.svc.AddComment(ctx, u2, p.ID, CommentInput{Content: "agreed", ParentID: &root.ID})
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, u2, p.ID, CommentInput{Content: "   "})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.EditComment(ctx, u2, root.ID, "hijack")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	edited, err := f.svc.EditComment(ctx, u1, root.ID, "very nice post")
	require.NoError(t, err)
	assert.Equal(t, "very nice post", edited.Content)

	st, err := f.svc.ToggleLike(ctx, u2, root.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, Count: 1}, st)
	st, err = f.svc.ToggleLike(ctx, u2, root.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: false, Count: 0}, st)
	_, err = f.svc.ToggleLike(ctx, u2, root.ID)
	require.NoError(t, err)

	list, err := f.svc.ListComments(ctx, Viewer{UserID: u2}, p.ID, service.PageQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, list.TotalCount)
	assert.Equal(t, root.ID, list.Items[0].ID)
	assert.True(t, list.Items[0].LikedByMe)
	assert.Equal(t, 1, list.Items[0].LikeCount)

	require.NoError(t, f.svc.SetCommentHidden(ctx, reply.ID, true))
	list, err = f.svc.ListComments(ctx, Viewer{}, p.ID, service.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalCount)
	list, err = f.svc.ListComments(ctx, Viewer{Admin: true}, p.ID, service.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)

	assert.True(t, apperr.Is(f.svc.DeleteComment(ctx, Viewer{UserID: u2}, root.ID), apperr.KindForbidden))
	// The post author may delete comments on their post; replies go with it.
	require.NoError(t, f.svc.DeleteComment(ctx, Viewer{UserID: author}, root.ID))
	list, err = f.svc.ListComments(ctx, Viewer{Admin: true}, p.ID, service.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.TotalCount)
}

func TestReports_ValidationAndAutoHide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.InsertUser(t, f.db, "target")
	r1 := testutil.InsertUser(t, f.db, "r1")
	r2 := testutil.InsertUser(t, f.db, "r2")
	p, err := f.svc.CreatePost(ctx, author, PostInput{Title: "Edgy", Content: "body"})
	require.NoError(t, err)
	require.NoError(t, f.settings.Set(ctx, service.SettingAutoHideThreshold, "2", nil))

	_, err = f.svc.CreateReport(ctx, author, ReportInput{TargetType: models.TargetPost, TargetID: p.ID, Reason: "spam"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.svc.CreateReport(ctx, r1, ReportInput{TargetType: models.TargetUser, TargetID: r1, Reason: "me"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.svc.CreateReport(ctx, r1, ReportInput{TargetType: "image", TargetID: 1, Reason: "x"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.svc.CreateReport(ctx, r1, ReportInput{TargetType: models.TargetComment, TargetID: 999, Reason: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	rep, err := f.svc.CreateReport(ctx, r1, ReportInput{TargetType: models.TargetPost, TargetID: p.ID, Reason: "spam"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, rep.Status)
	_, err = f.svc.CreateReport(ctx, r1, ReportInput{TargetType: models.TargetPost, TargetID: p.ID, Reason: "spam"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.GetPost(ctx, Viewer{UserID: r2}, p.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateReport(ctx, r2, ReportInput{TargetType: models.TargetPost, TargetID: p.ID, Reason: "abuse"})
	require.NoError(t, err)
	_, err = f.svc.GetPost(ctx, Viewer{UserID: r2}, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "second report reaches the threshold")

	mine, err := f.svc.ListMyReports(ctx, r1, service.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, mine.TotalCount)

	_, err = f.svc.CreateReport(ctx, r1, ReportInput{TargetType: models.TargetUser, TargetID: author, Reason: "rude"})
	require.NoError(t, err)

	st, err := f.svc.Stats(ctx, p.CreatedAt.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Hidden)
	assert.Equal(t, 3, st.PendingReports)
}

func TestMatchBannedWords(t *testing.T) {
	assert.Equal(t, []string{"spam"}, matchBannedWords("buy spam now", []string{"spam", "ham"}))
	assert.Empty(t, matchBannedWords("spammer", []string{"spam"}))
	assert.Equal(t, []string{"c++"}, matchBannedWords("i love c++ a lot", []string{"c++"}))
}
