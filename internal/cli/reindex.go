package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookcaseapp/bookcase-server/internal/service"
)

func newReindexCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the book search index from the store",
		Long:  `Rebuild the book search index. Stop the server first; the index allows a single writer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.openStore(); err != nil {
				return err
			}
			index, err := e.openIndex()
			if err != nil {
				return err
			}
			if index == nil {
				return errors.New("search is disabled by configuration")
			}

			svc := service.NewSearchService(index, e.cases, e.log.Logger)
			if err := svc.ReindexAll(cmd.Context()); err != nil {
				return err
			}
			count, err := svc.DocumentCount()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d books\n", count)
			return nil
		},
	}
}
