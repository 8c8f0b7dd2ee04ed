package api

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/auth"
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/metrics"
	"github.com/bookcaseapp/bookcase-server/internal/search"
	"github.com/bookcaseapp/bookcase-server/internal/service"
	"github.com/bookcaseapp/bookcase-server/internal/sse"
	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/tracker"
)

// testNow is the fixed clock of every API test.
var testNow = time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type testServer struct {
	*Server
	api     humatest.TestAPI
	tokens  *auth.TokenService
	metrics *metrics.Metrics
}

// testEnvelope mirrors APIEnvelope and APIErrorEnvelope with typed data.
type testEnvelope[T any] struct {
	Version int               `json:"v"`
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func setupTestServer(t *testing.T, opts ...func(*Options)) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	docs, err := store.NewInMemory(logger, store.WithIndex(domain.CollectionBookCases, "userId"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	index, err := search.NewMemOnly(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	key, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, "", 15*time.Minute)
	require.NoError(t, err)

	m := metrics.New(false)
	instrumented := store.Instrument(docs, "badger", m)

	clock := tracker.FixedClock(testNow)
	repo := store.NewBookCaseRepository(instrumented)
	cases := service.NewBookCaseService(repo, index, clock, logger)
	goals := service.NewGoalService(store.NewProfileRepository(instrumented), logger)

	services := &Services{
		BookCases: cases,
		Books:     service.NewBookService(cases, logger),
		Progress:  service.NewProgressService(cases, tracker.NewRecorder(clock), logger),
		Notes:     service.NewNoteService(cases, logger),
		Goals:     goals,
		Stats:     service.NewStatsService(cases, goals, logger),
		Search:    service.NewSearchService(index, repo, logger),
	}

	options := Options{Name: "Bookcase API Test", StoreBackend: "badger"}
	for _, opt := range opts {
		opt(&options)
	}

	manager := sse.NewManager(logger, m)
	s := NewServer(services, instrumented, tokens, manager, m, options, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		tokens:  tokens,
		metrics: m,
	}
}

// bearer returns an Authorization header argument for userID.
func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.IssueAccessToken(userID, 0)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// createBookCase creates a bookcase through the API and returns its ID.
func (ts *testServer) createBookCase(t *testing.T, authHeader, name string) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/bookcases", authHeader, map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	env := decode[domain.BookCase](t, resp.Body.Bytes())
	return env.Data.ID
}

// addBook adds a book through the API.
func (ts *testServer) addBook(t *testing.T, authHeader, bookCaseID string, book map[string]any) BookEntry {
	t.Helper()
	resp := ts.api.Post("/api/v1/bookcases/"+bookCaseID+"/books", authHeader, book)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[BookEntry](t, resp.Body.Bytes()).Data
}
