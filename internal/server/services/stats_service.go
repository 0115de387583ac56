package services

import (
	"context"
	"sort"
	"time"

	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

const leaderboardLimit = 50

// recentWindow is the trailing window counted as "recent" on the admin
// dashboard.
const recentWindow = 7 * 24 * time.Hour

// StatsService derives leaderboard, dashboard and chart views from the full
// plant snapshot. Every call re-reads and re-scans the collection; nothing is
// cached or updated incrementally.
type StatsService struct {
	store PlantStore
}

func NewStatsService(store PlantStore) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	plants, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeLeaderboard(plants, leaderboardLimit), nil
}

func (s *StatsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	plants, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := ComputeAdminStats(plants, time.Now().UTC())
	return &stats, nil
}

func (s *StatsService) WeeklySeries(ctx context.Context) ([]models.WeeklyBucket, error) {
	plants, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeWeeklySeries(plants), nil
}

// ComputeLeaderboard groups plants by owner, counts per group and ranks
// descending by count. Ties keep the order in which owners first appear in
// the snapshot. Ownerless plants are skipped. limit <= 0 means unbounded.
func ComputeLeaderboard(plants []models.Plant, limit int) []models.LeaderboardEntry {
	index := make(map[string]int)
	entries := []models.LeaderboardEntry{}

	for _, p := range plants {
		if p.UserID == "" || p.UserName == "" {
			continue
		}
		i, ok := index[p.UserID]
		if !ok {
			i = len(entries)
			index[p.UserID] = i
			entries = append(entries, models.LeaderboardEntry{UserID: p.UserID, UserName: p.UserName})
		}
		entries[i].PlantCount++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PlantCount > entries[j].PlantCount
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// ComputeAdminStats counts total plants, distinct owners, and plants created
// within the trailing 7-day window ending at now.
func ComputeAdminStats(plants []models.Plant, now time.Time) models.AdminStats {
	owners := make(map[string]struct{})
	cutoff := now.Add(-recentWindow)

	stats := models.AdminStats{TotalPlants: len(plants)}
	for _, p := range plants {
		if p.UserID != "" {
			owners[p.UserID] = struct{}{}
		}
		if !p.CreatedAt.Before(cutoff) {
			stats.RecentPlants++
		}
	}
	stats.TotalUsers = len(owners)
	return stats
}

// ComputeWeeklySeries buckets plants by the Monday (UTC) starting the week of
// their creation and returns the buckets in chronological order. Each plant
// lands in exactly one bucket.
func ComputeWeeklySeries(plants []models.Plant) []models.WeeklyBucket {
	counts := make(map[string]int)
	for _, p := range plants {
		counts[WeekStart(p.CreatedAt).Format("2006-01-02")]++
	}

	weeks := make([]string, 0, len(counts))
	for week := range counts {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	series := make([]models.WeeklyBucket, 0, len(weeks))
	for _, week := range weeks {
		series = append(series, models.WeeklyBucket{Week: week, Plants: counts[week]})
	}
	return series
}

// WeekStart returns the Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}
