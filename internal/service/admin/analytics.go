package admin

import (
	"context"
	"time"

	"blogPlatform/internal/apperr"
	"blogPlatform/models"
	"blogPlatform/repository"
)

const (
	overviewWindow = 7 * 24 * time.Hour
	maxDailyDays   = 90
	maxTopPosts    = 50
)

// Overview is the dashboard summary.
type Overview struct {
	TotalUsers     int `json:"totalUsers"`
	ActiveUsers    int `json:"activeUsers"`
	ActiveBans     int `json:"activeBans"`
	TotalPosts     int `json:"totalPosts"`
	HiddenPosts    int `json:"hiddenPosts"`
	TotalComments  int `json:"totalComments"`
	PendingReports int `json:"pendingReports"`
	OpenFlags      int `json:"openFlags"`
	NewUsers7d     int `json:"newUsers7d"`
	NewPosts7d     int `json:"newPosts7d"`
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	since := s.now().Add(-overviewWindow)
	uc, err := s.users.Counts(ctx, since)
	if err != nil {
		return nil, err
	}
	bans, err := s.users.CountActiveBans(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := s.content.Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	return &Overview{
		TotalUsers:     uc.Total,
		ActiveUsers:    uc.Active,
		ActiveBans:     bans,
		TotalPosts:     cs.Total,
		HiddenPosts:    cs.Hidden,
		TotalComments:  cs.TotalComments,
		PendingReports: cs.PendingReports,
		OpenFlags:      cs.OpenFlags,
		NewUsers7d:     uc.NewSince,
		NewPosts7d:     cs.NewSince,
	}, nil
}

// DailyStat is the activity on one UTC day.
type DailyStat struct {
	Day      string `json:"day"`
	Users    int    `json:"users"`
	Posts    int    `json:"posts"`
	Comments int    `json:"comments"`
}

// Daily returns one row per UTC day for the last days days, oldest first.
// Days without activity are included with zero counts.
func (s *Service) Daily(ctx context.Context, days int) ([]DailyStat, error) {
	if days < 1 || days > maxDailyDays {
		return nil, apperr.Invalid("days must be between 1 and %d", maxDailyDays)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	signups, err := s.users.DailySignups(ctx, start)
	if err != nil {
		return nil, err
	}
	posts, comments, err := s.content.DailyActivity(ctx, start)
	if err != nil {
		return nil, err
	}

	out := make([]DailyStat, days)
	index := make(map[string]int, days)
	for i := range out {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i].Day = day
		index[day] = i
	}
	fill := func(counts []repository.DailyCount, set func(*DailyStat, int)) {
		for _, c := range counts {
			if i, ok := index[c.Day]; ok {
				set(&out[i], c.Count)
			}
		}
	}
	fill(signups, func(d *DailyStat, n int) { d.Users = n })
	fill(posts, func(d *DailyStat, n int) { d.Posts = n })
	fill(comments, func(d *DailyStat, n int) { d.Comments = n })
	return out, nil
}

// TopPosts returns the best-rated visible posts; limit is clamped to [1, 50].
func (s *Service) TopPosts(ctx context.Context, limit int) ([]models.PostSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxTopPosts {
		limit = maxTopPosts
	}
	return s.content.TopPosts(ctx, limit)
}
