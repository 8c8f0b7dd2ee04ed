package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfileStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile/stats",
		Summary:     "Profile statistics",
		Description: "Returns book and bookcase totals, books per status and pages read this week and month",
		Tags:        []string{"Profile"},
		Security:    bearerSecurity,
	}, s.handleProfileStats)
}

// ProfileStatsOutput wraps the statistics for Huma.
type ProfileStatsOutput struct {
	Body *domain.ProfileStats
}

func (s *Server) handleProfileStats(ctx context.Context, _ *struct{}) (*ProfileStatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Stats.ProfileStats(ctx, userID)
	if err != nil {
		return nil, fail(err)
	}
	return &ProfileStatsOutput{Body: stats}, nil
}
