// Package cli implements bookcasectl, the operator tool that works directly
// against the server's data directory.
package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bookcaseapp/bookcase-server/internal/api"
	"github.com/bookcaseapp/bookcase-server/internal/backup"
	"github.com/bookcaseapp/bookcase-server/internal/config"
	"github.com/bookcaseapp/bookcase-server/internal/di/providers"
	"github.com/bookcaseapp/bookcase-server/internal/logger"
	"github.com/bookcaseapp/bookcase-server/internal/search"
	"github.com/bookcaseapp/bookcase-server/internal/service"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// env is what a subcommand needs, opened lazily by the root command.
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	docs   store.DocumentStore
	cases  *store.BookCaseRepository
	closer []func() error
}

func (e *env) openStore() error {
	if e.docs != nil {
		return nil
	}
	docs, err := providers.OpenStore(e.cfg, e.log)
	if err != nil {
		return err
	}
	e.docs = docs
	e.cases = store.NewBookCaseRepository(docs)
	e.closer = append(e.closer, docs.Close)
	return nil
}

// openIndex returns nil when search is disabled.
func (e *env) openIndex() (*search.Index, error) {
	if !e.cfg.Search.Enabled {
		return nil, nil
	}
	index, err := search.NewIndex(search.Options{Path: e.cfg.Search.Path, Logger: e.log.Logger})
	if err != nil {
		return nil, err
	}
	e.closer = append(e.closer, index.Close)
	return index, nil
}

func (e *env) backupService() (*backup.Service, error) {
	if err := e.openStore(); err != nil {
		return nil, err
	}
	index, err := e.openIndex()
	if err != nil {
		return nil, err
	}
	var indexer backup.Indexer = service.NoopIndexer{}
	if index != nil {
		indexer = index
	}
	return backup.NewService(
		e.cases,
		store.NewProfileRepository(e.docs),
		indexer,
		filepath.Join(e.cfg.Data.BasePath, "backups"),
		api.Version,
		e.log.Logger,
	), nil
}

func (e *env) close() {
	for i := len(e.closer) - 1; i >= 0; i-- {
		if err := e.closer[i](); err != nil {
			e.log.Warn("close failed", "error", err)
		}
	}
	e.closer = nil
}

// NewRootCmd creates the root command for bookcasectl.
func NewRootCmd() *cobra.Command {
	var (
		envFile string
		verbose bool
	)
	e := &env{}

	root := &cobra.Command{
		Use:   "bookcasectl",
		Short: "Operate a Bookcase server's data directory",
		Long: `Inspect and maintain the document store behind a Bookcase server.

Configuration is read the same way the server reads it: environment
variables, then the .env file given by --env-file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv(envFile)
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			e.cfg = cfg
			e.log = logger.New(logger.Config{
				Writer: os.Stderr,
				Level:  level,
			})
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			e.close()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newTokenCmd(e))
	root.AddCommand(newExportCmd(e))
	root.AddCommand(newImportCmd(e))
	root.AddCommand(newInspectCmd(e))
	root.AddCommand(newReindexCmd(e))

	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
