package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogPlatform/internal/testutil"
	"blogPlatform/models"
)

func TestReportRepository_Workflow(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "reportrepo")
	repo := NewReportRepository(d)
	ctx := context.Background()
	alice := testutil.InsertUser(t, d, "alice")
	bob := testutil.InsertUser(t, d, "bob")
	post := testutil.InsertPost(t, d, alice, "hello")

	r, err := repo.Create(ctx, &models.Report{ReporterID: bob, TargetType: models.TargetPost, TargetID: post, Reason: "spam"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, r.Status)

	exists, err := repo.ExistsPending(ctx, bob, models.TargetPost, post)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsPending(ctx, alice, models.TargetPost, post)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Create(ctx, &models.Report{ReporterID: alice, TargetType: models.TargetUser, TargetID: bob, Reason: "rude"})
	require.NoError(t, err)

	n, err := repo.CountOpenForTarget(ctx, models.TargetPost, post)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Transition(ctx, r.ID, []models.ReportStatus{models.ReportPending}, models.ReportUnderReview, 1, "", time.Now()))
	// Still open while under review.
	n, _ = repo.CountOpenForTarget(ctx, models.TargetPost, post)
	assert.Equal(t, 1, n)

	open := []models.ReportStatus{models.ReportPending, models.ReportUnderReview}
	require.NoError(t, repo.Transition(ctx, r.ID, open, models.ReportResolved, 1, "removed", time.Now()))
	assert.ErrorIs(t, repo.Transition(ctx, r.ID, open, models.ReportDismissed, 1, "", time.Now()), sql.ErrNoRows)

	r, _ = repo.GetByID(ctx, r.ID)
	assert.Equal(t, models.ReportResolved, r.Status)
	assert.Equal(t, "removed", r.ResolutionNote)
	require.NotNil(t, r.ReviewedBy)
	require.NotNil(t, r.ReviewedAt)

	list, total, err := repo.List(ctx, ReportListParams{Status: models.ReportPending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.TargetUser, list[0].TargetType)

	_, total, err = repo.List(ctx, ReportListParams{ReporterID: &bob})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	pending, err := repo.CountByStatus(ctx, models.ReportPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestFlagRepository_Review(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "flagrepo")
	repo := NewFlagRepository(d)
	ctx := context.Background()

	f, err := repo.Create(ctx, &models.ContentFlag{ContentType: models.TargetPost, ContentID: 1, Reason: "banned word: casino", Source: models.FlagSourceAuto})
	require.NoError(t, err)
	assert.Equal(t, models.FlagOpen, f.Status)
	assert.Nil(t, f.FlaggedBy)

	admin := int64(3)
	_, err = repo.Create(ctx, &models.ContentFlag{ContentType: models.TargetComment, ContentID: 2, Reason: "off topic", Source: models.FlagSourceAdmin, FlaggedBy: &admin})
	require.NoError(t, err)

	n, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.Review(ctx, f.ID, models.FlagDismissed, admin, time.Now()))
	assert.ErrorIs(t, repo.Review(ctx, f.ID, models.FlagReviewed, admin, time.Now()), sql.ErrNoRows)

	list, total, err := repo.List(ctx, models.FlagOpen, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.TargetComment, list[0].ContentType)

	_, total, err = repo.List(ctx, "", PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestAdminRepository(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "adminrepo")
	repo := NewAdminRepository(d)
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.AdminUser{Username: "root", PasswordHash: "h", Role: models.AdminRoleSuperAdmin})
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	assert.True(t, a.IsSuperAdmin())
	_, err = repo.Create(ctx, &models.AdminUser{Username: "ROOT", PasswordHash: "h", Role: models.AdminRoleModerator})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = repo.Create(ctx, &models.AdminUser{Username: "x", PasswordHash: "h", Role: "owner"})
	assert.Error(t, err, "role is constrained")

	require.NoError(t, repo.SetTOTP(ctx, a.ID, "SECRET", true))
	require.NoError(t, repo.TouchLogin(ctx, a.ID, time.Now()))
	got, err := repo.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, got.TOTPEnabled)
	assert.Equal(t, "SECRET", got.TOTPSecret)
	assert.NotNil(t, got.LastLoginAt)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, total, err := repo.List(ctx, PageParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "root", list[0].Username)

	assert.ErrorIs(t, repo.SetActive(ctx, 99, false), sql.ErrNoRows)
}

func TestAuditRepository_KeysetPagination(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "auditrepo")
	repo := NewAuditRepository(d)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Two rows share a timestamp so the id tiebreaker is exercised.
	stamps := []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
	for i, ts := range stamps {
		action := "user.ban"
		if i%2 == 1 {
			action = "post.hide"
		}
		_, err := repo.Append(ctx, &models.AdminAuditLog{AdminID: 1, Action: action, TargetType: "user", CreatedAt: ts})
		require.NoError(t, err)
	}

	var seen []int64
	p := AuditListParams{PageSize: 2}
	for page := 0; page < 5; page++ {
		items, err := repo.List(ctx, p)
		require.NoError(t, err)
		for _, l := range items {
			seen = append(seen, l.ID)
		}
		if len(items) < p.PageSize {
			break
		}
		last := items[len(items)-1]
		p.AfterSeconds, p.AfterID = last.CreatedAt.Unix(), last.ID
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, seen)

	items, err := repo.List(ctx, AuditListParams{Action: "post.hide"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "{}", items[0].Details)

	from := base.Add(time.Minute)
	to := base.Add(2 * time.Minute)
	items, err = repo.List(ctx, AuditListParams{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSettingRepository(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "settingrepo")
	repo := NewSettingRepository(d)
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	admin := int64(2)
	require.NoError(t, repo.Set(ctx, "registration.enabled", "false", &admin))
	s, err := repo.Get(ctx, "registration.enabled")
	require.NoError(t, err)
	assert.Equal(t, "false", s.Value)
	assert.NotEmpty(t, s.Description, "description survives an update")
	require.NotNil(t, s.UpdatedBy)

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositories_DriverErrorsPropagate(t *testing.T) {
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mdb.Close() })

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").WithArgs(int64(1)).WillReturnError(boom)
	mock.ExpectExec("UPDATE comments SET is_hidden").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)

	_, err = NewUserRepository(mdb).GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)

	err = NewCommentRepository(mdb).SetHidden(context.Background(), 42, true)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, _, err = NewFlagRepository(mdb).List(context.Background(), "", PageParams{})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
