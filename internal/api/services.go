package api

import (
	"github.com/bookcaseapp/bookcase-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	BookCases *service.BookCaseService
	Books     *service.BookService
	Progress  *service.ProgressService
	Notes     *service.NoteService
	Goals     *service.GoalService
	Stats     *service.StatsService
	Search    *service.SearchService // nil when search is disabled
}
