package backup_test

import (
	"archive/zip"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/backup"
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

type env struct {
	docs      *store.Store
	cases     *store.BookCaseRepository
	profiles  *store.ProfileRepository
	svc       *backup.Service
	backupDir string
}

func testSetup(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	docs, err := store.NewInMemory(logger, store.WithIndex(domain.CollectionBookCases, "userId"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	backupDir := filepath.Join(t.TempDir(), "backups")
	cases := store.NewBookCaseRepository(docs)
	profiles := store.NewProfileRepository(docs)

	return &env{
		docs:      docs,
		cases:     cases,
		profiles:  profiles,
		svc:       backup.NewService(cases, profiles, nil, backupDir, "test", logger),
		backupDir: backupDir,
	}
}

func intPtr(n int) *int { return &n }

var created = domain.NewTimestamp(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))

// seed creates a reading history for userID: one bookcase with Dune in
// progress and a note, plus two days of goals.
func (e *env) seed(t *testing.T, userID string) *domain.BookCase {
	t.Helper()
	ctx := context.Background()

	bc := &domain.BookCase{
		Name:      "Sci-Fi",
		UserID:    userID,
		CreatedAt: created,
		Books: []domain.Book{
			{
				Title:         "Dune",
				Author:        "Frank Herbert",
				PageCount:     intPtr(412),
				ReadingStatus: domain.StatusReading,
				AddedAt:       created,
				CurrentPage:   150,
				ReadingSessions: []domain.ReadingSession{
					{Date: created, PagesRead: 100, CurrentPage: 150},
				},
				Notes: []domain.Note{
					{ID: "note-1", Title: "Litany", Text: "Fear is the mind-killer.", CreatedAt: created},
				},
			},
			{Title: "Hyperion", Author: "Dan Simmons", ReadingStatus: domain.StatusUnread, AddedAt: created},
		},
	}
	require.NoError(t, e.cases.Create(ctx, bc))

	profile, err := e.profiles.Get(ctx, userID)
	require.NoError(t, err)
	profile.ReadingGoals = domain.ReadingGoals{
		"2024-01-10": {Goals: []domain.Goal{{Title: "Read 50 pages", Pages: intPtr(50)}}},
		"2024-01-11": {Goals: []domain.Goal{{Title: "Finish part one", Completed: true}, {Title: "Write a note"}}},
	}
	require.NoError(t, e.profiles.SaveGoals(ctx, userID, profile))
	return bc
}

func TestExport_WritesArchive(t *testing.T) {
	e := testSetup(t)
	e.seed(t, "user-alice")
	ctx := context.Background()

	result, err := e.svc.Export(ctx, backup.ExportOptions{UserID: "user-alice"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Len(t, result.Checksum, 64)
	assert.Positive(t, result.Size)
	assert.Equal(t, backup.EntityCounts{
		BookCases:       1,
		Books:           2,
		ReadingSessions: 1,
		Notes:           1,
		GoalDays:        2,
		Goals:           3,
	}, result.Counts)

	zr, err := zip.OpenReader(result.Path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"manifest.json", "entities/bookcases.jsonl", "entities/goals.jsonl"}, names)

	_, err = os.Stat(result.Path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is removed")
}

func TestExport_RequiresUser(t *testing.T) {
	e := testSetup(t)
	_, err := e.svc.Export(context.Background(), backup.ExportOptions{})
	assert.ErrorIs(t, err, backup.ErrMissingUser)
}

func TestExportImport_RoundTrip(t *testing.T) {
	source := testSetup(t)
	original := source.seed(t, "user-alice")
	ctx := context.Background()

	result, err := source.svc.Export(ctx, backup.ExportOptions{
		UserID:     "user-alice",
		OutputPath: filepath.Join(t.TempDir(), "alice.bookcase.zip"),
	})
	require.NoError(t, err)

	dest := testSetup(t)
	imported, err := dest.svc.Import(ctx, result.Path, backup.ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, imported.Errors)
	assert.Equal(t, 1, imported.Imported["bookcases"])
	assert.Equal(t, 2, imported.Imported["books"])
	assert.Equal(t, 2, imported.Imported["goal_days"])

	got, err := dest.cases.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-alice", got.UserID)
	assert.Equal(t, original.Name, got.Name)
	require.Len(t, got.Books, 2)
	dune := got.Books[0]
	assert.Equal(t, 150, dune.CurrentPage)
	require.Len(t, dune.ReadingSessions, 1)
	assert.Equal(t, 100, dune.ReadingSessions[0].PagesRead)
	require.Len(t, dune.Notes, 1)
	assert.Equal(t, "note-1", dune.Notes[0].ID)

	profile, err := dest.profiles.Get(ctx, "user-alice")
	require.NoError(t, err)
	assert.Len(t, profile.ReadingGoals, 2)
	assert.True(t, profile.ReadingGoals["2024-01-11"].Goals[0].Completed)
}

func TestImport_ForAnotherUser(t *testing.T) {
	e := testSetup(t)
	original := e.seed(t, "user-alice")
	ctx := context.Background()

	result, err := e.svc.Export(ctx, backup.ExportOptions{UserID: "user-alice"})
	require.NoError(t, err)

	imported, err := e.svc.Import(ctx, result.Path, backup.ImportOptions{UserID: "user-bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Imported["bookcases"])

	alice, err := e.cases.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-alice", alice.UserID, "the source bookcase is untouched")

	bobs, err := e.cases.ListByUser(ctx, "user-bob")
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.NotEqual(t, original.ID, bobs[0].ID)
	assert.Len(t, bobs[0].Books, 2)
}

func TestImport_DropsInvalidBooks(t *testing.T) {
	e := testSetup(t)
	ctx := context.Background()

	bc := &domain.BookCase{
		Name:   "Mixed",
		UserID: "user-alice",
		Books: []domain.Book{
			{Title: "Dune", Author: "Frank Herbert", ReadingStatus: domain.StatusUnread},
			{Title: "", Author: "Nobody", ReadingStatus: domain.StatusUnread},
			{Title: "DUNE", Author: "frank herbert", ReadingStatus: domain.StatusUnread},
			{Title: "Solaris", Author: "Stanisław Lem", PageCount: intPtr(10), CurrentPage: 20, ReadingStatus: domain.StatusReading},
		},
	}
	require.NoError(t, e.cases.Create(ctx, bc))

	result, err := e.svc.Export(ctx, backup.ExportOptions{UserID: "user-alice"})
	require.NoError(t, err)

	dest := testSetup(t)
	imported, err := dest.svc.Import(ctx, result.Path, backup.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Imported["books"])
	assert.Equal(t, 3, imported.Skipped["books"])
	assert.Len(t, imported.Errors, 3)
}

func TestImport_DryRunWritesNothing(t *testing.T) {
	source := testSetup(t)
	source.seed(t, "user-alice")
	ctx := context.Background()

	result, err := source.svc.Export(ctx, backup.ExportOptions{UserID: "user-alice"})
	require.NoError(t, err)

	dest := testSetup(t)
	imported, err := dest.svc.Import(ctx, result.Path, backup.ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Imported["bookcases"])

	cases, err := dest.cases.ListByUser(ctx, "user-alice")
	require.NoError(t, err)
	assert.Empty(t, cases)

	profile, err := dest.profiles.Get(ctx, "user-alice")
	require.NoError(t, err)
	assert.Empty(t, profile.ReadingGoals)
}

func TestValidate(t *testing.T) {
	e := testSetup(t)
	e.seed(t, "user-alice")
	ctx := context.Background()

	result, err := e.svc.Export(ctx, backup.ExportOptions{UserID: "user-alice"})
	require.NoError(t, err)

	validation, err := e.svc.Validate(ctx, result.Path)
	require.NoError(t, err)
	assert.True(t, validation.Valid, validation.Errors)
	require.NotNil(t, validation.Manifest)
	assert.Equal(t, "user-alice", validation.Manifest.UserID)
	assert.Equal(t, backup.FormatVersion, validation.Manifest.Version)
	assert.Empty(t, validation.Warnings)
}

func TestValidate_InvalidPath(t *testing.T) {
	e := testSetup(t)

	validation, err := e.svc.Validate(context.Background(), "/nonexistent/backup.zip")
	require.NoError(t, err)
	assert.False(t, validation.Valid)
	assert.NotEmpty(t, validation.Errors)
}

func TestImport_RejectsArchiveWithoutManifest(t *testing.T) {
	e := testSetup(t)

	path := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(f).Close())
	require.NoError(t, f.Close())

	_, err = e.svc.Import(context.Background(), path, backup.ImportOptions{UserID: "user-alice"})
	assert.ErrorIs(t, err, backup.ErrInvalidManifest)
}

func TestListGetDelete(t *testing.T) {
	e := testSetup(t)
	e.seed(t, "user-alice")
	ctx := context.Background()

	result, err := e.svc.Export(ctx, backup.ExportOptions{UserID: "user-alice"})
	require.NoError(t, err)

	backups, err := e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, result.Path, backups[0].Path)

	info, err := e.svc.Get(ctx, backups[0].ID)
	require.NoError(t, err)
	assert.Equal(t, result.Size, info.Size)

	require.NoError(t, e.svc.Delete(ctx, backups[0].ID))

	_, err = e.svc.Get(ctx, backups[0].ID)
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
	assert.ErrorIs(t, e.svc.Delete(ctx, backups[0].ID), backup.ErrBackupNotFound)
}
