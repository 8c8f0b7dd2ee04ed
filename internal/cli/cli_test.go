package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bookcaseapp/bookcase-server/internal/auth"
	"github.com/bookcaseapp/bookcase-server/internal/config"
	"github.com/bookcaseapp/bookcase-server/internal/di/providers"
	"github.com/bookcaseapp/bookcase-server/internal/domain"
	"github.com/bookcaseapp/bookcase-server/internal/logger"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// setupDataDir points the configuration at a fresh data directory.
func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("STORE_BACKEND", config.BackendSQLite)
	t.Setenv("SEARCH_ENABLED", "false")
	t.Setenv("ENV", "development")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedBookCase(t *testing.T, userID, name string) {
	t.Helper()
	cfg, err := config.LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	docs, err := providers.OpenStore(cfg, logger.New(logger.Config{Writer: &bytes.Buffer{}}))
	require.NoError(t, err)
	defer docs.Close()

	bc := &domain.BookCase{
		Name:   name,
		UserID: userID,
		Books:  []domain.Book{{Title: "Dune", Author: "Frank Herbert", ReadingStatus: domain.StatusUnread}},
	}
	require.NoError(t, store.NewBookCaseRepository(docs).Create(context.Background(), bc))
}

func TestTokenIssue_VerifiesWithServerKey(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "token", "issue", "--user", "u1")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	cfg, err := config.LoadFromEnv("")
	require.NoError(t, err)
	key, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, cfg.Auth.Issuer, cfg.Auth.AccessTokenDuration)
	require.NoError(t, err)

	claims, err := tokens.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestTokenIssue_RequiresUser(t *testing.T) {
	setupDataDir(t)

	_, err := run(t, "token", "issue")
	assert.Error(t, err)
}

func TestInspect_FiltersAndFormats(t *testing.T) {
	setupDataDir(t)
	seedBookCase(t, "u1", "Home")
	seedBookCase(t, "u2", "Office")

	out, err := run(t, "inspect", domain.CollectionBookCases, "--where", "userId=u1")
	require.NoError(t, err)

	var docs []inspected
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Home", docs[0].Fields["name"])

	out, err = run(t, "inspect", domain.CollectionBookCases, "--where", "userId=u2", "-o", "yaml")
	require.NoError(t, err)

	var parsed []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed, 1)
	fields, ok := parsed[0]["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Office", fields["name"])
}

func TestInspect_RejectsBadInput(t *testing.T) {
	setupDataDir(t)

	_, err := run(t, "inspect", domain.CollectionBookCases, "--where", "userId")
	assert.ErrorContains(t, err, "want field=value")

	_, err = run(t, "inspect", domain.CollectionBookCases, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestExportImport_RoundTrip(t *testing.T) {
	dir := setupDataDir(t)
	seedBookCase(t, "u1", "Home")
	archive := filepath.Join(dir, "u1.bookcase.zip")

	out, err := run(t, "export", "--user", "u1", "--out", archive)
	require.NoError(t, err)
	assert.Contains(t, out, archive)
	assert.Contains(t, out, "bookcases        1")

	out, err = run(t, "import", "--in", archive, "--user", "u3", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")

	out, err = run(t, "inspect", domain.CollectionBookCases, "--where", "userId=u3")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, err = run(t, "import", "--in", archive, "--user", "u3")
	require.NoError(t, err)

	out, err = run(t, "inspect", domain.CollectionBookCases, "--where", "userId=u3")
	require.NoError(t, err)
	var docs []inspected
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Len(t, docs, 1)
}

func TestReindex_DisabledSearch(t *testing.T) {
	setupDataDir(t)

	_, err := run(t, "reindex")
	assert.ErrorContains(t, err, "search is disabled")
}

func TestParseWhere_DecodesJSONValues(t *testing.T) {
	preds, err := parseWhere([]string{"pages=42", "name=Home", `quoted="x"`})
	require.NoError(t, err)
	require.Len(t, preds, 3)

	fields := store.Fields{
		"pages":  json.RawMessage(`42`),
		"name":   json.RawMessage(`"Home"`),
		"quoted": json.RawMessage(`"x"`),
	}
	ok, err := store.Matches(fields, preds)
	require.NoError(t, err)
	assert.True(t, ok)
}
