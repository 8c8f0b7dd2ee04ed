package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/bookcaseapp/bookcase-server/internal/backup/stream"
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/goals"
	"github.com/bookcaseapp/bookcase-server/internal/library"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// Entity type keys used in ImportResult.
const (
	entityBookCases = "bookcases"
	entityBooks     = "books"
	entityGoalDays  = "goal_days"
)

// Import reads an archive written by Export into the store.
//
// Bookcases keep their ids unless the id belongs to another user, in which
// case the bookcase is created under a new id. Invalid books are dropped
// and reported; they never abort the import.
func (s *Service) Import(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()

	if opts.Mode == "" {
		opts.Mode = RestoreModeMerge
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("invalid restore mode %q", opts.Mode)
	}
	if !opts.MergeStrategy.Valid() {
		return nil, fmt.Errorf("invalid merge strategy %q", opts.MergeStrategy)
	}
	if opts.MergeStrategy == "" {
		opts.MergeStrategy = MergeKeepLocal
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		return nil, err
	}

	userID := opts.UserID
	if userID == "" {
		userID = manifest.UserID
	}
	if userID == "" {
		return nil, ErrMissingUser
	}

	s.logger.Info("starting import",
		"path", path,
		"backup_id", manifest.ID,
		"user_id", userID,
		"mode", opts.Mode,
		"merge_strategy", opts.MergeStrategy,
		"dry_run", opts.DryRun)

	run := &importRun{
		svc:    s,
		opts:   opts,
		userID: userID,
		result: &ImportResult{
			Imported: make(map[string]int),
			Skipped:  make(map[string]int),
		},
	}

	if err := run.bookCases(ctx, &zr.Reader); err != nil {
		return nil, fmt.Errorf("import bookcases: %w", err)
	}
	if err := run.goals(ctx, &zr.Reader); err != nil {
		return nil, fmt.Errorf("import goals: %w", err)
	}

	run.result.Duration = time.Since(start)
	s.logger.Info("import complete",
		"user_id", userID,
		"imported", run.result.Imported,
		"skipped", run.result.Skipped,
		"errors", len(run.result.Errors),
		"duration", run.result.Duration)

	return run.result, nil
}

type importRun struct {
	svc    *Service
	opts   ImportOptions
	userID string
	result *ImportResult
}

func (r *importRun) fail(entityType, entityID string, err error) {
	r.result.Errors = append(r.result.Errors, ImportError{
		EntityType: entityType,
		EntityID:   entityID,
		Error:      err.Error(),
	})
	r.result.Skipped[entityType]++
}

func (r *importRun) bookCases(ctx context.Context, zr *zip.Reader) error {
	local, err := r.svc.cases.ListByUser(ctx, r.userID)
	if err != nil {
		return err
	}

	byID := make(map[string]*domain.BookCase, len(local))
	if r.opts.Mode == RestoreModeReplace {
		for _, bc := range local {
			if !r.opts.DryRun {
				if err := r.svc.cases.Delete(ctx, bc.ID); err != nil {
					return fmt.Errorf("delete bookcase %s: %w", bc.ID, err)
				}
				r.unindex(bc.ID)
			}
		}
		local = nil
	} else {
		for _, bc := range local {
			byID[bc.ID] = bc
		}
	}

	rc, err := stream.OpenFile(zr, bookCasesFile)
	if err != nil {
		return err
	}

	for incoming, err := range stream.NewReader[domain.BookCase](rc).All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			r.fail(entityBookCases, "", err)
			continue
		}

		bc := r.prepare(&incoming)
		if bc.Name == "" {
			r.fail(entityBookCases, bc.ID, errors.New("bookcase name is required"))
			continue
		}

		existing, sameID := byID[bc.ID]
		if sameID && r.opts.MergeStrategy == MergeKeepLocal {
			r.result.Skipped[entityBookCases]++
			continue
		}
		if nameTaken(local, bc.Name, bc.ID) {
			r.fail(entityBookCases, bc.ID, fmt.Errorf("bookcase name %q already in use", bc.Name))
			continue
		}

		if !sameID && bc.ID != "" {
			owned, err := r.ownedElsewhere(ctx, bc.ID)
			if err != nil {
				return err
			}
			if owned {
				bc.ID = ""
			}
		}

		if !r.opts.DryRun {
			if err := r.write(ctx, bc); err != nil {
				return fmt.Errorf("write bookcase %s: %w", bc.ID, err)
			}
			r.index(bc)
		}
		if !sameID {
			local = append(local, bc)
		} else {
			*existing = *bc
		}
		r.result.Imported[entityBookCases]++
		r.result.Imported[entityBooks] += len(bc.Books)
	}
	return nil
}

// prepare assigns the bookcase to the importing user and drops books that
// fail validation or duplicate an earlier book.
func (r *importRun) prepare(in *domain.BookCase) *domain.BookCase {
	bc := &domain.BookCase{
		ID:        in.ID,
		Name:      strings.TrimSpace(in.Name),
		UserID:    r.userID,
		CreatedAt: in.CreatedAt,
		Books:     make([]domain.Book, 0, len(in.Books)),
	}
	for i, candidate := range in.Books {
		b, err := library.ValidateBook(candidate)
		if err != nil {
			r.fail(entityBooks, fmt.Sprintf("%s[%d]", in.ID, i), err)
			continue
		}
		if library.IsDuplicate(bc.Books, b.Title, b.Author, -1) {
			r.fail(entityBooks, fmt.Sprintf("%s[%d]", in.ID, i), library.ErrDuplicateBook)
			continue
		}
		bc.Books = append(bc.Books, b)
	}
	return bc
}

func (r *importRun) write(ctx context.Context, bc *domain.BookCase) error {
	if bc.ID == "" {
		return r.svc.cases.Create(ctx, bc)
	}
	return r.svc.cases.Restore(ctx, bc)
}

func (r *importRun) ownedElsewhere(ctx context.Context, id string) (bool, error) {
	other, err := r.svc.cases.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !other.OwnedBy(r.userID), nil
}

// nameTaken matches names exactly, the same way bookcase creation does.
func nameTaken(cases []*domain.BookCase, name, exceptID string) bool {
	for _, bc := range cases {
		if bc.ID != exceptID && bc.Name == name {
			return true
		}
	}
	return false
}

func (r *importRun) index(bc *domain.BookCase) {
	if r.svc.indexer == nil {
		return
	}
	if err := r.svc.indexer.IndexBookCase(bc); err != nil {
		r.svc.logger.Warn("failed to index imported bookcase", "bookcase_id", bc.ID, "error", err)
	}
}

func (r *importRun) unindex(id string) {
	if r.svc.indexer == nil {
		return
	}
	if err := r.svc.indexer.DeleteBookCase(id); err != nil {
		r.svc.logger.Warn("failed to unindex bookcase", "bookcase_id", id, "error", err)
	}
}

func (r *importRun) goals(ctx context.Context, zr *zip.Reader) error {
	profile, err := r.svc.profiles.Get(ctx, r.userID)
	if err != nil {
		return err
	}

	cal := profile.ReadingGoals
	if r.opts.Mode == RestoreModeReplace {
		cal = domain.ReadingGoals{}
	}

	rc, err := stream.OpenFile(zr, goalsFile)
	if err != nil {
		return err
	}

	for day, err := range stream.NewReader[goalDay](rc).All() {
		if err != nil {
			r.fail(entityGoalDays, "", err)
			continue
		}
		if existing, ok := cal[day.Date]; ok && len(existing.Goals) > 0 && r.opts.MergeStrategy == MergeKeepLocal {
			r.result.Skipped[entityGoalDays]++
			continue
		}

		next := maps.Clone(cal)
		delete(next, day.Date)
		for _, g := range day.Goals {
			next, err = goals.AddGoal(next, day.Date, g)
			if err != nil {
				break
			}
		}
		if err != nil {
			r.fail(entityGoalDays, day.Date, err)
			continue
		}
		cal = next
		r.result.Imported[entityGoalDays]++
	}

	if r.opts.DryRun {
		return nil
	}
	profile.ReadingGoals = goals.Prune(cal)
	return r.svc.profiles.SaveGoals(ctx, r.userID, profile)
}

func readManifest(zr *zip.Reader) (*Manifest, error) {
	rc, err := stream.OpenFile(zr, manifestFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrVersionMismatch, m.Version, FormatVersion)
	}
	return &m, nil
}

// Validate checks an archive without importing it.
func (s *Service) Validate(_ context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	result := &ValidationResult{Valid: true}

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.Manifest = manifest
	result.ExpectedCounts = manifest.Counts

	got, err := countLines(&zr.Reader, bookCasesFile)
	switch {
	case err != nil:
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	case got != manifest.Counts.BookCases:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("manifest lists %d bookcases, archive has %d", manifest.Counts.BookCases, got))
	}

	got, err = countLines(&zr.Reader, goalsFile)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case got != manifest.Counts.GoalDays:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("manifest lists %d goal days, archive has %d", manifest.Counts.GoalDays, got))
	}

	return result, nil
}

func countLines(zr *zip.Reader, path string) (int, error) {
	rc, err := stream.OpenFile(zr, path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, err := range stream.NewReader[json.RawMessage](rc).All() {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
