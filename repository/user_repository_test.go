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

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "userrepo")
	repo := NewUserRepository(d)
	ctx := context.Background()

	// Create
	u, err := repo.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.CreatedAt.IsZero())

	// Duplicates are case-insensitive.
	_, err = repo.Create(ctx, &models.User{Username: "ALICE", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = repo.Create(ctx, &models.User{Username: "alice2", Email: "Alice@Example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Lookups
	g, err := repo.GetByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, u.ID, g.ID)
	g, err = repo.GetByLogin(ctx, "Alice")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, u.ID, g.ID)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// OAuth-only accounts have neither email nor password.
	o, err := repo.Create(ctx, &models.User{Username: "bob", OAuthProvider: "google", OAuthSubject: "g-1"})
	require.NoError(t, err)
	assert.False(t, o.HasPassword())
	got, err := repo.GetByOAuth(ctx, "google", "g-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, o.ID, got.ID)
	assert.ErrorIs(t, repo.LinkOAuth(ctx, u.ID, "google", "g-1"), ErrDuplicate)

	// Updates
	require.NoError(t, repo.UpdateProfile(ctx, u.ID, "Alice A.", "bio", "https://img.example.com/a.png"))
	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "h2"))
	require.NoError(t, repo.TouchLogin(ctx, u.ID, time.Now()))
	g, _ = repo.GetByID(ctx, u.ID)
	assert.Equal(t, "Alice A.", g.DisplayName)
	assert.Equal(t, "h2", g.PasswordHash)
	assert.NotNil(t, g.LastLoginAt)
	assert.ErrorIs(t, repo.UpdateProfile(ctx, 9999, "x", "", ""), sql.ErrNoRows)

	exists, err := repo.UsernameExists(ctx, "BOB")
	require.NoError(t, err)
	assert.True(t, exists)

	// Delete
	require.NoError(t, repo.Delete(ctx, o.ID))
	gone, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUserRepository_ListPage(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "userlist")
	repo := NewUserRepository(d)
	bans := NewBanRepository(d)
	ctx := context.Background()

	names := []string{"carol", "alice", "bob", "dave", "erin"}
	ids := map[string]int64{}
	for _, n := range names {
		u, err := repo.Create(ctx, &models.User{Username: n, Email: n + "@example.com", DisplayName: "User " + n})
		require.NoError(t, err)
		ids[n] = u.ID
	}
	require.NoError(t, repo.SetActive(ctx, ids["dave"], false))
	_, err := bans.Create(ctx, &models.Ban{UserID: ids["erin"], Reason: "spam", BannedBy: 1})
	require.NoError(t, err)

	list, total, err := repo.ListPage(ctx, UserListParams{SortBy: "username", PageParams: PageParams{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "bob", list[1].Username)

	list, _, err = repo.ListPage(ctx, UserListParams{SortBy: "username", SortDesc: true, PageParams: PageParams{Page: 3, PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)

	list, total, err = repo.ListPage(ctx, UserListParams{Search: "car"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "carol", list[0].Username)

	// LIKE wildcards in the search term are literal.
	_, total, err = repo.ListPage(ctx, UserListParams{Search: "%"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	active := false
	list, total, err = repo.ListPage(ctx, UserListParams{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "dave", list[0].Username)

	banned := true
	list, total, err = repo.ListPage(ctx, UserListParams{Banned: &banned})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "erin", list[0].Username)

	counts, err := repo.Counts(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, UserCounts{Total: 5, Active: 4, NewSince: 5}, counts)

	days, err := repo.DailySignups(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, days)
	sum := 0
	for _, dc := range days {
		sum += dc.Count
	}
	assert.Equal(t, 5, sum)
}

func TestPageParams_Normalize(t *testing.T) {
	assert.Equal(t, PageParams{Page: 1, PageSize: DefaultPageSize}, PageParams{}.Normalize())
	assert.Equal(t, PageParams{Page: 2, PageSize: MaxPageSize}, PageParams{Page: 2, PageSize: 1000}.Normalize())
	limit, offset := PageParams{Page: 3, PageSize: 10}.LimitOffset()
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)
}
