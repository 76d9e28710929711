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

func TestFriendshipRepository_Lifecycle(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "friendrepo")
	repo := NewFriendshipRepository(d)
	ctx := context.Background()
	alice := testutil.InsertUser(t, d, "alice")
	bob := testutil.InsertUser(t, d, "bob")
	carol := testutil.InsertUser(t, d, "carol")

	f, err := repo.Create(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipPending, f.Status)

	// The pair is unique regardless of direction.
	_, err = repo.Create(ctx, bob, alice)
	assert.ErrorIs(t, err, ErrDuplicate)

	between, err := repo.GetBetween(ctx, bob, alice)
	require.NoError(t, err)
	require.NotNil(t, between)
	assert.Equal(t, f.ID, between.ID)

	// Only the addressee can respond.
	assert.ErrorIs(t, repo.Respond(ctx, f.ID, alice, models.FriendshipAccepted, time.Now()), sql.ErrNoRows)
	require.NoError(t, repo.Respond(ctx, f.ID, bob, models.FriendshipRejected, time.Now()))
	// Not pending any more.
	assert.ErrorIs(t, repo.Respond(ctx, f.ID, bob, models.FriendshipAccepted, time.Now()), sql.ErrNoRows)

	// Rejected rows can be reopened by either side.
	require.NoError(t, repo.Reopen(ctx, f.ID, bob, alice, time.Now()))
	f, _ = repo.GetByID(ctx, f.ID)
	assert.Equal(t, bob, f.RequesterID)
	assert.Equal(t, models.FriendshipPending, f.Status)
	assert.Nil(t, f.RespondedAt)
	assert.ErrorIs(t, repo.Reopen(ctx, f.ID, bob, alice, time.Now()), sql.ErrNoRows)

	require.NoError(t, repo.Respond(ctx, f.ID, alice, models.FriendshipAccepted, time.Now()))
	_, err = repo.Create(ctx, carol, alice)
	require.NoError(t, err)

	friends, total, err := repo.ListForUser(ctx, alice, models.FriendshipAccepted, DirectionAny, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, friends, 1)
	assert.Equal(t, bob, friends[0].OtherUserID)
	assert.Equal(t, "bob", friends[0].OtherUsername)

	incoming, total, err := repo.ListForUser(ctx, alice, models.FriendshipPending, DirectionIncoming, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, carol, incoming[0].OtherUserID)

	_, total, err = repo.ListForUser(ctx, alice, models.FriendshipPending, DirectionOutgoing, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	n, err := repo.CountFriends(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, f.ID))
	assert.ErrorIs(t, repo.Delete(ctx, f.ID), sql.ErrNoRows)
}

func TestBanRepository_ActiveAndExpiry(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "banrepo")
	repo := NewBanRepository(d)
	ctx := context.Background()
	alice := testutil.InsertUser(t, d, "alice")
	bob := testutil.InsertUser(t, d, "bob")
	now := time.Now().UTC()

	soon := now.Add(time.Hour)
	b, err := repo.Create(ctx, &models.Ban{UserID: alice, Reason: "spam", BannedBy: 1, ExpiresAt: &soon})
	require.NoError(t, err)
	assert.True(t, b.IsActive)
	assert.Equal(t, "alice", b.Username)
	require.NotNil(t, b.ExpiresAt)

	active, err := repo.GetActiveForUser(ctx, alice, now)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.ID, active.ID)

	// Past the expiry the ban no longer applies even before the sweep runs.
	later := now.Add(2 * time.Hour)
	active, err = repo.GetActiveForUser(ctx, alice, later)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = repo.Create(ctx, &models.Ban{UserID: bob, Reason: "abuse", BannedBy: 1})
	require.NoError(t, err)
	n, err := repo.CountInEffect(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expired, err := repo.ExpireDue(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired, "permanent bans never expire")
	b, _ = repo.GetByID(ctx, b.ID)
	assert.False(t, b.IsActive)
	require.NotNil(t, b.UnbannedAt)

	activeOnly := true
	list, total, err := repo.List(ctx, BanListParams{Active: &activeOnly})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, bob, list[0].UserID)

	assert.ErrorIs(t, repo.Deactivate(ctx, b.ID, 1, now), sql.ErrNoRows)
	require.NoError(t, repo.Deactivate(ctx, list[0].ID, 7, now))
	lifted, _ := repo.GetByID(ctx, list[0].ID)
	require.NotNil(t, lifted.UnbannedBy)
	assert.Equal(t, int64(7), *lifted.UnbannedBy)
}
