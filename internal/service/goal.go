package service

import (
	"context"
	"log/slog"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/goals"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// GoalService manages the reading goal calendar on the user document.
type GoalService struct {
	profiles *store.ProfileRepository
	logger   *slog.Logger
}

// NewGoalService creates a new goal service.
func NewGoalService(profiles *store.ProfileRepository, logger *slog.Logger) *GoalService {
	return &GoalService{
		profiles: profiles,
		logger:   logger,
	}
}

// Calendar returns the user's goals keyed by day.
func (s *GoalService) Calendar(ctx context.Context, userID string) (domain.ReadingGoals, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, translate(err, nil)
	}
	return goals.Prune(p.ReadingGoals), nil
}

// GoalsOn returns the goals scheduled on date.
func (s *GoalService) GoalsOn(ctx context.Context, userID, date string) ([]domain.Goal, error) {
	if err := goals.ValidateDate(date); err != nil {
		return nil, err
	}
	cal, err := s.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}
	day := cal[date].Goals
	if day == nil {
		day = []domain.Goal{}
	}
	return day, nil
}

// MarkedDates returns the calendar marks for every day with goals.
func (s *GoalService) MarkedDates(ctx context.Context, userID string) (map[string]domain.MarkedDate, error) {
	cal, err := s.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}
	return goals.MarkedDates(cal), nil
}

// mutate applies transform to the user's calendar and writes it back,
// re-reading and re-applying after a lost revision race.
func (s *GoalService) mutate(ctx context.Context, userID string, transform func(domain.ReadingGoals) (domain.ReadingGoals, error)) (domain.ReadingGoals, error) {
	var saved domain.ReadingGoals
	err := retryOnConflict(ctx, func() error {
		p, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return err
		}
		cal, err := transform(goals.Prune(p.ReadingGoals))
		if err != nil {
			return err
		}
		p.ReadingGoals = cal
		if err := s.profiles.SaveGoals(ctx, userID, p); err != nil {
			return err
		}
		saved = cal
		return nil
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	return saved, nil
}

// AddGoal schedules goal on date.
func (s *GoalService) AddGoal(ctx context.Context, userID, date string, goal domain.Goal) ([]domain.Goal, error) {
	cal, err := s.mutate(ctx, userID, func(cal domain.ReadingGoals) (domain.ReadingGoals, error) {
		return goals.AddGoal(cal, date, goal)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("goal added", "user_id", userID, "date", date, "title", goal.Title)
	return cal[date].Goals, nil
}

// UpdateGoal replaces the goal at index on date.
func (s *GoalService) UpdateGoal(ctx context.Context, userID, date string, index int, goal domain.Goal) ([]domain.Goal, error) {
	cal, err := s.mutate(ctx, userID, func(cal domain.ReadingGoals) (domain.ReadingGoals, error) {
		return goals.UpdateGoal(cal, date, index, goal)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("goal updated", "user_id", userID, "date", date, "index", index)
	return cal[date].Goals, nil
}

// SetGoalCompleted marks the goal at index on date done or not done.
func (s *GoalService) SetGoalCompleted(ctx context.Context, userID, date string, index int, completed bool) ([]domain.Goal, error) {
	cal, err := s.mutate(ctx, userID, func(cal domain.ReadingGoals) (domain.ReadingGoals, error) {
		return goals.SetCompleted(cal, date, index, completed)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("goal completion set",
		"user_id", userID,
		"date", date,
		"index", index,
		"completed", completed,
	)
	return cal[date].Goals, nil
}

// DeleteGoal removes the goal at index on date. The remaining goals of the
// day are returned; an empty list means the day left the calendar.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, date string, index int) ([]domain.Goal, error) {
	cal, err := s.mutate(ctx, userID, func(cal domain.ReadingGoals) (domain.ReadingGoals, error) {
		return goals.DeleteGoal(cal, date, index)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("goal deleted", "user_id", userID, "date", date, "index", index)
	remaining := cal[date].Goals
	if remaining == nil {
		remaining = []domain.Goal{}
	}
	return remaining, nil
}
