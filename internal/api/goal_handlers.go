package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func (s *Server) registerGoalRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getGoalCalendar",
		Method:      http.MethodGet,
		Path:        "/api/v1/goals",
		Summary:     "Goal calendar",
		Description: "Returns all reading goals keyed by YYYY-MM-DD",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, s.handleGoalCalendar)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMarkedDates",
		Method:      http.MethodGet,
		Path:        "/api/v1/goals/marked-dates",
		Summary:     "Marked dates",
		Description: "Returns calendar marks for every day that has goals",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, s.handleMarkedDates)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGoalsOnDate",
		Method:      http.MethodGet,
		Path:        "/api/v1/goals/{date}",
		Summary:     "Goals on a day",
		Description: "Returns the goals scheduled on a day",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, s.handleGoalsOnDate)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addGoal",
		Method:        http.MethodPost,
		Path:          "/api/v1/goals/{date}",
		Summary:       "Add goal",
		Description:   "Schedules a reading goal on a day",
		Tags:          []string{"Goals"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateGoal",
		Method:      http.MethodPut,
		Path:        "/api/v1/goals/{date}/{index}",
		Summary:     "Update goal",
		Description: "Replaces the goal at a position on a day",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, s.handleUpdateGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteGoal",
		Method:      http.MethodDelete,
		Path:        "/api/v1/goals/{date}/{index}",
		Summary:     "Delete goal",
		Description: "Removes a goal. A day whose last goal is removed leaves the calendar.",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, s.handleDeleteGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "setGoalCompleted",
		Method:      http.MethodPut,
		Path:        "/api/v1/goals/{date}/{index}/completed",
		Summary:     "Complete goal",
		Description: "Marks a goal done or not done",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, s.handleSetGoalCompleted)
}

// === DTOs ===

// GoalRequest is the request body for creating or replacing a goal.
type GoalRequest struct {
	Title     string `json:"title" validate:"notblank,max=200" doc:"Goal title"`
	Pages     *int   `json:"pages,omitempty" validate:"omitempty,gte=0" doc:"Pages to read"`
	Notes     string `json:"notes,omitempty" validate:"max=2000" doc:"Free text notes"`
	Completed bool   `json:"completed,omitempty" doc:"Whether the goal is done"`
}

func (r GoalRequest) toGoal() domain.Goal {
	return domain.Goal{Title: r.Title, Pages: r.Pages, Notes: r.Notes, Completed: r.Completed}
}

// GoalDateInput addresses a calendar day.
type GoalDateInput struct {
	Date string `path:"date" doc:"Day in YYYY-MM-DD format"`
}

// AddGoalInput wraps the add goal request for Huma.
type AddGoalInput struct {
	Date string `path:"date" doc:"Day in YYYY-MM-DD format"`
	Body GoalRequest
}

// GoalIndexInput addresses a goal on a day.
type GoalIndexInput struct {
	Date  string `path:"date" doc:"Day in YYYY-MM-DD format"`
	Index int    `path:"index" minimum:"0" doc:"Position of the goal on the day"`
}

// UpdateGoalInput wraps the update goal request for Huma.
type UpdateGoalInput struct {
	Date  string `path:"date" doc:"Day in YYYY-MM-DD format"`
	Index int    `path:"index" minimum:"0" doc:"Position of the goal on the day"`
	Body  GoalRequest
}

// CompletedRequest is the request body for completing a goal.
type CompletedRequest struct {
	Completed bool `json:"completed" doc:"Whether the goal is done"`
}

// SetCompletedInput wraps the completion request for Huma.
type SetCompletedInput struct {
	Date  string `path:"date" doc:"Day in YYYY-MM-DD format"`
	Index int    `path:"index" minimum:"0" doc:"Position of the goal on the day"`
	Body  CompletedRequest
}

// GoalCalendarOutput wraps the calendar for Huma.
type GoalCalendarOutput struct {
	Body struct {
		ReadingGoals domain.ReadingGoals `json:"readingGoals"`
	}
}

// MarkedDatesOutput wraps the calendar marks for Huma.
type MarkedDatesOutput struct {
	Body struct {
		MarkedDates map[string]domain.MarkedDate `json:"markedDates"`
	}
}

// GoalsOutput wraps a day's goals for Huma.
type GoalsOutput struct {
	Body GoalsResponse
}

// GoalsResponse lists the goals of one day.
type GoalsResponse struct {
	Date  string        `json:"date"`
	Goals []domain.Goal `json:"goals"`
}

func goalsOutput(date string, goals []domain.Goal) *GoalsOutput {
	if goals == nil {
		goals = []domain.Goal{}
	}
	return &GoalsOutput{Body: GoalsResponse{Date: date, Goals: goals}}
}

// === Handlers ===

func (s *Server) handleGoalCalendar(ctx context.Context, _ *struct{}) (*GoalCalendarOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := s.services.Goals.Calendar(ctx, userID)
	if err != nil {
		return nil, fail(err)
	}
	if cal == nil {
		cal = domain.ReadingGoals{}
	}

	out := &GoalCalendarOutput{}
	out.Body.ReadingGoals = cal
	return out, nil
}

func (s *Server) handleMarkedDates(ctx context.Context, _ *struct{}) (*MarkedDatesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	marks, err := s.services.Goals.MarkedDates(ctx, userID)
	if err != nil {
		return nil, fail(err)
	}

	out := &MarkedDatesOutput{}
	out.Body.MarkedDates = marks
	return out, nil
}

func (s *Server) handleGoalsOnDate(ctx context.Context, input *GoalDateInput) (*GoalsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	goals, err := s.services.Goals.GoalsOn(ctx, userID, input.Date)
	if err != nil {
		return nil, fail(err)
	}
	return goalsOutput(input.Date, goals), nil
}

func (s *Server) handleAddGoal(ctx context.Context, input *AddGoalInput) (*GoalsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	goals, err := s.services.Goals.AddGoal(ctx, userID, input.Date, input.Body.toGoal())
	if err != nil {
		return nil, fail(err)
	}
	return goalsOutput(input.Date, goals), nil
}

func (s *Server) handleUpdateGoal(ctx context.Context, input *UpdateGoalInput) (*GoalsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input.Body); err != nil {
		return nil, err
	}

	goals, err := s.services.Goals.UpdateGoal(ctx, userID, input.Date, input.Index, input.Body.toGoal())
	if err != nil {
		return nil, fail(err)
	}
	return goalsOutput(input.Date, goals), nil
}

func (s *Server) handleDeleteGoal(ctx context.Context, input *GoalIndexInput) (*GoalsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	goals, err := s.services.Goals.DeleteGoal(ctx, userID, input.Date, input.Index)
	if err != nil {
		return nil, fail(err)
	}
	return goalsOutput(input.Date, goals), nil
}

func (s *Server) handleSetGoalCompleted(ctx context.Context, input *SetCompletedInput) (*GoalsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	goals, err := s.services.Goals.SetGoalCompleted(ctx, userID, input.Date, input.Index, input.Body.Completed)
	if err != nil {
		return nil, fail(err)
	}
	return goalsOutput(input.Date, goals), nil
}
