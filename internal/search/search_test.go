package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := NewMemOnly(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func intPtr(v int) *int { return &v }

func sciFi() *domain.BookCase {
	added := domain.NewTimestamp(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	return &domain.BookCase{
		ID:     "bc-1",
		Name:   "Sci-Fi",
		UserID: "user-1",
		Books: []domain.Book{
			{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi", PageCount: intPtr(412), ReadingStatus: domain.StatusReading, AddedAt: added},
			{Title: "Foundation", Author: "Isaac Asimov", Genre: "Science Fiction", ReadingStatus: domain.StatusFinished, AddedAt: added,
				Notes: []domain.Note{{ID: "note-1", Title: "Psychohistory", Text: "The fall of the Galactic Empire"}}},
			{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Genre: "Literary", ReadingStatus: domain.StatusUnread, AddedAt: added},
		},
	}
}

func TestNewIndex_OnDisk(t *testing.T) {
	dir := t.TempDir()

	index, err := NewIndex(Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexBookCase(sciFi()))
	require.NoError(t, index.Close())

	// Reopen keeps the documents.
	index, err = NewIndex(Options{Path: dir})
	require.NoError(t, err)
	defer index.Close()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndexBookCase_ReplacesStaleDocuments(t *testing.T) {
	index := setupTestIndex(t)
	bc := sciFi()
	require.NoError(t, index.IndexBookCase(bc))

	bc.Books = bc.Books[:1]
	require.NoError(t, index.IndexBookCase(bc))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestDeleteBookCase(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))

	other := &domain.BookCase{ID: "bc-2", Name: "Poetry", UserID: "user-1", Books: []domain.Book{{Title: "Ariel", Author: "Sylvia Plath"}}}
	require.NoError(t, index.IndexBookCase(other))

	require.NoError(t, index.DeleteBookCase("bc-1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.NoError(t, index.DeleteBookCase("bc-404"))
}

func TestSearch_ByTitle(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))

	params := DefaultParams()
	params.UserID = "user-1"
	params.Query = "dune"

	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)

	top := res.Hits[0]
	assert.Equal(t, "Dune", top.Title)
	assert.Equal(t, "bc-1", top.BookCaseID)
	assert.Equal(t, "Sci-Fi", top.BookCaseName)
	assert.Equal(t, 0, top.Index)
	assert.Equal(t, domain.StatusReading, top.Status)
}

func TestSearch_ByAuthorAndNotes(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "user-1", Query: "asimov"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Foundation", res.Hits[0].Title)

	res, err = index.Search(ctx, Params{UserID: "user-1", Query: "galactic"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 1, res.Hits[0].Index)
}

func TestSearch_ScopedToUser(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "user-2", Query: "dune"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	_, err = index.Search(ctx, Params{Query: "dune"})
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestSearch_Filters(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "user-1", Status: domain.StatusFinished})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Foundation", res.Hits[0].Title)

	// "Sci-Fi" and "Science Fiction" share a canonical slug.
	res, err = index.Search(ctx, Params{UserID: "user-1", Genre: "scifi"})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)

	res, err = index.Search(ctx, Params{UserID: "user-1", BookCaseID: "bc-404"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSearch_EmptyQueryKeepsShelfOrder(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))

	res, err := index.Search(context.Background(), Params{UserID: "user-1", IncludeFacets: true})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{res.Hits[0].Index, res.Hits[1].Index, res.Hits[2].Index})
	assert.Len(t, res.Facets.Statuses, 3)
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.IndexBookCase(sciFi()))

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestBookToDocument(t *testing.T) {
	bc := sciFi()
	doc := BookToDocument(bc, 0, bc.Books[0])

	assert.Equal(t, "bc-1/0", doc.ID)
	assert.Equal(t, "science-fiction", doc.GenreSlug)
	assert.Equal(t, 412, doc.PageCount)

	m := doc.ToMap()
	assert.Equal(t, "user-1", m["user_id"])
	assert.NotContains(t, m, "publisher")
	assert.NotContains(t, m, "notes")
}
