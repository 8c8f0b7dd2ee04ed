package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/genre"
)

// ErrMissingUser is returned for a search that is not scoped to a user.
var ErrMissingUser = errors.New("search requires a user id")

// Params configures a search query.
type Params struct {
	UserID string // Required: results never cross users
	Query  string // User's search query (empty = every book)

	// Filters
	BookCaseID string
	Status     domain.ReadingStatus
	Genre      string // Free text, canonicalized to a slug

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy string // "relevance", "title", "author", "recent"

	IncludeFacets bool
	Highlight     bool
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:         20,
		SortBy:        "relevance",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"tookMs"`
	Hits   []Hit  `json:"hits"`
	Facets Facets `json:"facets"`
}

// Hit is one matching book. BookCaseID and Index address it for the book
// operations.
type Hit struct {
	ID           string               `json:"id"`
	Score        float64              `json:"score"`
	BookCaseID   string               `json:"bookCaseId"`
	BookCaseName string               `json:"bookCaseName"`
	Index        int                  `json:"index"`
	Title        string               `json:"title"`
	Author       string               `json:"author"`
	Genre        string               `json:"genre,omitempty"`
	Status       domain.ReadingStatus `json:"readingStatus"`
	Highlights   map[string]string    `json:"highlights,omitempty"`
}

// Facets contains facet counts.
type Facets struct {
	Statuses []FacetCount `json:"statuses,omitempty"`
	Genres   []FacetCount `json:"genres,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.UserID == "" {
		return nil, ErrMissingUser
	}
	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)

	if params.IncludeFacets {
		req.AddFacet("reading_status", bleve.NewFacetRequest("reading_status", 10))
		req.AddFacet("genre_slug", bleve.NewFacetRequest("genre_slug", 20)) // Top 20 values
	}

	if params.Highlight && params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("author")
	}

	req.Fields = []string{
		"bookcase_id", "bookcase_name", "index", "title", "author", "genre", "reading_status",
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}

	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["bookcase_id"].(string); ok {
			hit.BookCaseID = v
		}
		if v, ok := h.Fields["bookcase_name"].(string); ok {
			hit.BookCaseName = v
		}
		if v, ok := h.Fields["index"].(float64); ok {
			hit.Index = int(v)
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["author"].(string); ok {
			hit.Author = v
		}
		if v, ok := h.Fields["genre"].(string); ok {
			hit.Genre = v
		}
		if v, ok := h.Fields["reading_status"].(string); ok {
			hit.Status = domain.ReadingStatus(v)
		}

		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string)
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, hit)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(res)
	}
	return result, nil
}

func term(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

// buildQuery constructs the Bleve query from params.
//
// Text matches title first, then author, then note text. Filters are ANDed.
func buildQuery(params Params) query.Query {
	queries := []query.Query{term("user_id", params.UserID)}

	if text := strings.TrimSpace(params.Query); text != "" {
		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(text)
		authorMatch.SetField("author")
		authorMatch.SetBoost(1.5)

		notesMatch := bleve.NewMatchQuery(text)
		notesMatch.SetField("notes")
		notesMatch.SetBoost(0.5)

		// Typo tolerance on title
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, authorMatch, notesMatch, fuzzy}

		// Prefix query for autocomplete (minimum 2 chars)
		if len(text) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(text))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.BookCaseID != "" {
		queries = append(queries, term("bookcase_id", params.BookCaseID))
	}
	if params.Status != "" {
		queries = append(queries, term("reading_status", string(params.Status)))
	}
	if slug := genre.Canonical(params.Genre); slug != "" {
		queries = append(queries, term("genre_slug", slug))
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		req.SortBy([]string{"title", "author"})
	case "author":
		req.SortBy([]string{"author", "title"})
	case "recent":
		req.SortBy([]string{"-added_at"})
	default:
		if params.Query == "" {
			// No relevance without text; keep bookcase order
			req.SortBy([]string{"bookcase_id", "index"})
			return
		}
		req.SortBy([]string{"-_score"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(res *bleve.SearchResult) Facets {
	var facets Facets
	if f, ok := res.Facets["reading_status"]; ok && f.Terms != nil {
		for _, t := range f.Terms.Terms() {
			facets.Statuses = append(facets.Statuses, FacetCount{Value: t.Term, Count: t.Count})
		}
	}
	if f, ok := res.Facets["genre_slug"]; ok && f.Terms != nil {
		for _, t := range f.Terms.Terms() {
			facets.Genres = append(facets.Genres, FacetCount{Value: t.Term, Count: t.Count})
		}
	}
	return facets
}
