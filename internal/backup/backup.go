package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookcaseapp/bookcase-server/internal/backup/stream"
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/goals"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// Indexer receives every bookcase an import writes. The search index
// implements it.
type Indexer interface {
	IndexBookCase(bc *domain.BookCase) error
	DeleteBookCase(bookCaseID string) error
}

// goalDay is one line of goals.jsonl.
type goalDay struct {
	Date  string        `json:"date"`
	Goals []domain.Goal `json:"goals"`
}

// Service exports and imports per-user archives.
type Service struct {
	cases     *store.BookCaseRepository
	profiles  *store.ProfileRepository
	indexer   Indexer
	backupDir string
	version   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. indexer may be nil when search is disabled.
func NewService(cases *store.BookCaseRepository, profiles *store.ProfileRepository, indexer Indexer, backupDir, version string, logger *slog.Logger) *Service {
	return &Service{
		cases:     cases,
		profiles:  profiles,
		indexer:   indexer,
		backupDir: backupDir,
		version:   version,
		logger:    logger,
		now:       time.Now,
	}
}

// Export writes the user's bookcases and goal calendar to a zip archive.
func (s *Service) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	if opts.UserID == "" {
		return nil, ErrMissingUser
	}
	start := time.Now()

	manifest := &Manifest{
		ID:            uuid.New().String(),
		Version:       FormatVersion,
		CreatedAt:     s.now().UTC(),
		UserID:        opts.UserID,
		ServerVersion: s.version,
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
		name := fmt.Sprintf("%s-%s", manifest.CreatedAt.Format("2006-01-02-150405"), manifest.ID[:8])
		outputPath = filepath.Join(s.backupDir, name+archiveSuffix)
	}

	s.logger.Info("exporting user data",
		"user_id", opts.UserID,
		"output", outputPath)

	// Write to temp file, rename on success
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	if err := s.exportBookCases(ctx, zw, opts.UserID, &manifest.Counts); err != nil {
		return nil, fmt.Errorf("export bookcases: %w", err)
	}
	if err := s.exportGoals(ctx, zw, opts.UserID, &manifest.Counts); err != nil {
		return nil, fmt.Errorf("export goals: %w", err)
	}

	// Manifest goes last so it carries the final counts.
	if err := writeManifest(zw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		ID:       manifest.ID,
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}

	s.logger.Info("export complete",
		"user_id", opts.UserID,
		"path", result.Path,
		"bookcases", result.Counts.BookCases,
		"books", result.Counts.Books,
		"size", result.Size,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) exportBookCases(ctx context.Context, zw *zip.Writer, userID string, counts *EntityCounts) error {
	cases, err := s.cases.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	w, err := stream.NewWriter(zw, bookCasesFile)
	if err != nil {
		return err
	}
	for _, bc := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(bc); err != nil {
			return err
		}
		counts.Books += len(bc.Books)
		for _, b := range bc.Books {
			counts.ReadingSessions += len(b.ReadingSessions)
			counts.Notes += len(b.Notes)
		}
	}
	counts.BookCases = w.Count()
	return nil
}

func (s *Service) exportGoals(ctx context.Context, zw *zip.Writer, userID string, counts *EntityCounts) error {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}

	w, err := stream.NewWriter(zw, goalsFile)
	if err != nil {
		return err
	}
	for _, date := range goals.Dates(profile.ReadingGoals) {
		day := profile.ReadingGoals[date]
		if err := w.Write(goalDay{Date: date, Goals: day.Goals}); err != nil {
			return err
		}
		counts.Goals += len(day.Goals)
	}
	counts.GoalDays = w.Count()
	return nil
}

func writeManifest(zw *zip.Writer, m *Manifest) error {
	w, err := zw.Create(manifestFile)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// List returns the archives in the backup directory, newest first.
func (s *Service) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archiveSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), archiveSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns a backup by ID.
func (s *Service) Get(_ context.Context, id string) (*BackupInfo, error) {
	path := s.Path(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *Service) Delete(ctx context.Context, id string) error {
	info, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return os.Remove(info.Path)
}

// Path returns the file path for a backup ID.
func (s *Service) Path(id string) string {
	return filepath.Join(s.backupDir, filepath.Base(id)+archiveSuffix)
}
