package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/bookcaseapp/bookcase-server/internal/api"
	"github.com/bookcaseapp/bookcase-server/internal/backup"
	"github.com/bookcaseapp/bookcase-server/internal/config"
	"github.com/bookcaseapp/bookcase-server/internal/logger"
	"github.com/bookcaseapp/bookcase-server/internal/service"
	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/tracker"
)

// ProvideClock provides the clock that decides which calendar day a reading
// session belongs to.
func ProvideClock(i do.Injector) (tracker.Clock, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return tracker.SystemClock{Location: cfg.Reading.Location}, nil
}

// ProvideBookCaseService provides the bookcase service.
func ProvideBookCaseService(i do.Injector) (*service.BookCaseService, error) {
	repo := do.MustInvoke[*store.BookCaseRepository](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	clock := do.MustInvoke[tracker.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookCaseService(repo, indexHandle.Indexer(), clock, log.Logger), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	cases := do.MustInvoke[*service.BookCaseService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(cases, log.Logger), nil
}

// ProvideProgressService provides the reading progress service.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	cases := do.MustInvoke[*service.BookCaseService](i)
	clock := do.MustInvoke[tracker.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProgressService(cases, tracker.NewRecorder(clock), log.Logger), nil
}

// ProvideNoteService provides the note service.
func ProvideNoteService(i do.Injector) (*service.NoteService, error) {
	cases := do.MustInvoke[*service.BookCaseService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNoteService(cases, log.Logger), nil
}

// ProvideGoalService provides the reading goal service.
func ProvideGoalService(i do.Injector) (*service.GoalService, error) {
	profiles := do.MustInvoke[*store.ProfileRepository](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGoalService(profiles, log.Logger), nil
}

// ProvideStatsService provides the profile statistics service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	cases := do.MustInvoke[*service.BookCaseService](i)
	goals := do.MustInvoke[*service.GoalService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(cases, goals, log.Logger), nil
}

// ProvideBackupService provides per-user export and import.
func ProvideBackupService(i do.Injector) (*backup.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	cases := do.MustInvoke[*store.BookCaseRepository](i)
	profiles := do.MustInvoke[*store.ProfileRepository](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewService(
		cases,
		profiles,
		indexHandle.Indexer(),
		filepath.Join(cfg.Data.BasePath, "backups"),
		api.Version,
		log.Logger,
	), nil
}
