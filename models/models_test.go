package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBanInEffect(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&Ban{IsActive: true}).InEffect(now))
	assert.True(t, (&Ban{IsActive: true, ExpiresAt: &future}).InEffect(now))
	assert.False(t, (&Ban{IsActive: true, ExpiresAt: &past}).InEffect(now))
	assert.False(t, (&Ban{IsActive: false}).InEffect(now))
	var nilBan *Ban
	assert.False(t, nilBan.InEffect(now))
}

func TestNewPage(t *testing.T) {
	p := NewPage[int](nil, 41, 2, 20)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPage([]int{1}, 0, 1, 20)
	assert.Equal(t, 0, p.TotalPages)
}

func TestFriendshipOther(t *testing.T) {
	f := Friendship{RequesterID: 1, AddresseeID: 2}
	assert.Equal(t, int64(2), f.Other(1))
	assert.Equal(t, int64(1), f.Other(2))
	assert.True(t, f.Involves(2))
	assert.False(t, f.Involves(3))
}

func TestReportStatus(t *testing.T) {
	assert.True(t, ReportPending.Open())
	assert.True(t, ReportUnderReview.Open())
	assert.False(t, ReportResolved.Open())
	assert.False(t, ReportStatus("closed").Valid())
	assert.True(t, TargetComment.Valid())
	assert.False(t, TargetType("image").Valid())
}
