package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

// Index wraps a Bleve index with bookcase-level operations.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type Index struct {
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	Path   string       // Directory for index storage
	Logger *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

// deleteChunk bounds how many ids a stale-document lookup fetches at once.
const deleteChunk = 1000

// NewIndex creates or opens a search index under opts.Path.
// If the existing index is corrupted or has an outdated mapping, it's removed
// and recreated empty; callers reindex from the store.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	indexPath := filepath.Join(opts.Path, "books.bleve")
	versionPath := filepath.Join(opts.Path, "books.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil {
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// NewMemOnly creates an index that lives only in memory.
func NewMemOnly(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create in-memory index: %w", err)
	}
	return &Index{index: index, logger: logger}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBookCase replaces every indexed book of bc with its current books.
// Positions shift when books are deleted, so stale documents are dropped first.
func (s *Index) IndexBookCase(bc *domain.BookCase) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stale, err := s.bookCaseDocIDs(bc.ID)
	if err != nil {
		return err
	}

	batch := s.index.NewBatch()
	for _, id := range stale {
		batch.Delete(id)
	}
	for _, doc := range BookCaseToDocuments(bc) {
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit bookcase %s: %w", bc.ID, err)
	}
	return nil
}

// IndexBookCases indexes many bookcases, as a full reindex does.
func (s *Index) IndexBookCases(cases []*domain.BookCase) error {
	for _, bc := range cases {
		if err := s.IndexBookCase(bc); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBookCase removes every book of the bookcase from the index.
func (s *Index) DeleteBookCase(bookCaseID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.bookCaseDocIDs(bookCaseID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// bookCaseDocIDs lists the document ids indexed for a bookcase.
// Callers hold s.mu.
func (s *Index) bookCaseDocIDs(bookCaseID string) ([]string, error) {
	q := bleve.NewTermQuery(bookCaseID)
	q.SetField("bookcase_id")

	var ids []string
	for from := 0; ; from += deleteChunk {
		req := bleve.NewSearchRequestOptions(q, deleteChunk, from, false)
		res, err := s.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("find bookcase %s documents: %w", bookCaseID, err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < deleteChunk {
			return ids, nil
		}
	}
}

// DocumentCount returns the total number of indexed books.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates a new empty one.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other operations.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var index bleve.Index
	var err error
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
