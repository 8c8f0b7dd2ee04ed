package sse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcaseapp/bookcase-server/internal/domain"
)

type fakeSource struct {
	snapshots [][]*domain.BookCase
	err       error
	block     bool
	gotUser   string
}

func (f *fakeSource) WatchBookCases(ctx context.Context, userID string) iter.Seq2[[]*domain.BookCase, error] {
	f.gotUser = userID
	return func(yield func([]*domain.BookCase, error) bool) {
		for _, s := range f.snapshots {
			if !yield(s, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		if f.block {
			<-ctx.Done()
		}
	}
}

type countingObserver struct{ opened, closed int }

func (c *countingObserver) StreamOpened() { c.opened++ }
func (c *countingObserver) StreamClosed() { c.closed++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedUser(userID string) UserFunc {
	return func(*http.Request) (string, bool) { return userID, userID != "" }
}

type frame struct {
	event string
	data  Event
}

func parseFrames(t *testing.T, body string) []frame {
	t.Helper()
	var frames []frame
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.Split(block, "\n")
		require.Len(t, lines, 2, block)
		var f frame
		f.event = strings.TrimPrefix(lines[0], "event: ")
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &f.data))
		frames = append(frames, f)
	}
	return frames
}

func TestHandler_StreamsSnapshots(t *testing.T) {
	source := &fakeSource{snapshots: [][]*domain.BookCase{
		{},
		{{ID: "bc-1", Name: "Fiction", UserID: "user-1"}},
	}}
	observer := &countingObserver{}
	manager := NewManager(testLogger(), observer)
	h := NewHandler(manager, source, fixedUser("user-1"), testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookcases/stream", nil))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "user-1", source.gotUser)

	frames := parseFrames(t, rec.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, "connected", frames[0].event)
	assert.Equal(t, "snapshot", frames[1].event)
	assert.Equal(t, "snapshot", frames[2].event)

	data, ok := frames[2].data.Data.(map[string]any)
	require.True(t, ok)
	cases, ok := data["bookCases"].([]any)
	require.True(t, ok)
	assert.Len(t, cases, 1)

	empty := frames[1].data.Data.(map[string]any)["bookCases"]
	assert.Equal(t, []any{}, empty)

	assert.Equal(t, 1, observer.opened)
	assert.Equal(t, 1, observer.closed)
	assert.Zero(t, manager.ClientCount())
}

func TestHandler_SubscriptionError(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	h := NewHandler(NewManager(testLogger(), nil), source, fixedUser("user-1"), testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	frames := parseFrames(t, rec.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, "error", frames[1].event)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandler_RequiresUser(t *testing.T) {
	h := NewHandler(NewManager(testLogger(), nil), &fakeSource{}, fixedUser(""), testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_HeartbeatAndShutdown(t *testing.T) {
	source := &fakeSource{block: true}
	manager := NewManager(testLogger(), nil)
	manager.SetHeartbeatInterval(10 * time.Millisecond)
	h := NewHandler(manager, source, fixedUser("user-1"), testLogger())

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	var body strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(body.String(), "event: heartbeat") && time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		body.Write(buf[:n])
		require.NoError(t, err)
	}
	assert.Contains(t, body.String(), "event: heartbeat")
	assert.Equal(t, 1, manager.ClientCount())

	require.NoError(t, manager.Shutdown(context.Background()))
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Zero(t, manager.ClientCount())

	_, err = manager.Connect("user-2")
	assert.ErrorIs(t, err, ErrShuttingDown)
}
