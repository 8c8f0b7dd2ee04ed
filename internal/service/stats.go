package service

import (
	"context"
	"log/slog"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/goals"
	"github.com/bookcaseapp/bookcase-server/internal/tracker"
)

// StatsService computes profile statistics.
type StatsService struct {
	cases  *BookCaseService
	goals  *GoalService
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(cases *BookCaseService, goals *GoalService, logger *slog.Logger) *StatsService {
	return &StatsService{
		cases:  cases,
		goals:  goals,
		logger: logger,
	}
}

// ProfileStats summarizes every bookcase and the goal calendar of the user.
func (s *StatsService) ProfileStats(ctx context.Context, userID string) (*domain.ProfileStats, error) {
	cases, err := s.cases.ListBookCases(ctx, userID)
	if err != nil {
		return nil, err
	}
	cal, err := s.goals.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.cases.clock.Now()
	stats := &domain.ProfileStats{
		TotalBookCases: len(cases),
		BooksByStatus:  make(map[domain.ReadingStatus]int, len(domain.ReadingStatuses)),
	}
	for _, status := range domain.ReadingStatuses {
		stats.BooksByStatus[status] = 0
	}

	for _, bc := range cases {
		for _, b := range bc.Books {
			stats.TotalBooks++
			stats.BooksByStatus[b.ReadingStatus]++
			stats.NotesWritten += len(b.Notes)
			stats.PagesThisWeek += tracker.TotalPages(tracker.FilterSessions(b.ReadingSessions, domain.WindowWeek, now))
			stats.PagesThisMonth += tracker.TotalPages(tracker.FilterSessions(b.ReadingSessions, domain.WindowMonth, now))
		}
	}
	stats.GoalsScheduled, stats.GoalsCompleted = goals.Counts(cal)

	s.logger.Debug("profile stats computed",
		"user_id", userID,
		"books", stats.TotalBooks,
		"bookcases", stats.TotalBookCases,
	)
	return stats, nil
}
