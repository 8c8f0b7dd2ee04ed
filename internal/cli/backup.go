package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookcaseapp/bookcase-server/internal/backup"
)

func newExportCmd(e *env) *cobra.Command {
	var opts backup.ExportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's bookcases and goals to a backup archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.backupService()
			if err != nil {
				return err
			}
			result, err := svc.Export(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%d bytes)\n", result.Path, result.Size)
			printCounts(cmd, result.Counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.UserID, "user", "", "User whose data is exported")
	cmd.Flags().StringVar(&opts.OutputPath, "out", "", "Archive path (default: the server's backup directory)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newImportCmd(e *env) *cobra.Command {
	var (
		path     string
		mode     string
		strategy string
		opts     backup.ImportOptions
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a backup archive",
		Long: `Restore a backup archive into the store.

merge mode keeps bookcases that are not in the archive; replace mode deletes
them first. --strategy decides which side wins when a bookcase exists in both.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Mode = backup.RestoreMode(mode)
			opts.MergeStrategy = backup.MergeStrategy(strategy)

			svc, err := e.backupService()
			if err != nil {
				return err
			}
			result, err := svc.Import(cmd.Context(), path, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.DryRun {
				fmt.Fprintln(out, "Dry run, nothing written")
			}
			for kind, n := range result.Imported {
				fmt.Fprintf(out, "imported %-16s %d\n", kind, n)
			}
			for kind, n := range result.Skipped {
				fmt.Fprintf(out, "skipped  %-16s %d\n", kind, n)
			}
			for _, ie := range result.Errors {
				fmt.Fprintf(out, "error    %s %s: %s\n", ie.EntityType, ie.EntityID, ie.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.UserID, "user", "", "User to restore into (default: the archive's owner)")
	cmd.Flags().StringVar(&path, "in", "", "Archive to restore")
	cmd.Flags().StringVar(&mode, "mode", string(backup.RestoreModeMerge), "Restore mode (merge, replace)")
	cmd.Flags().StringVar(&strategy, "strategy", string(backup.MergeKeepLocal), "Merge strategy (keep_local, keep_backup)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would change without writing")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func printCounts(cmd *cobra.Command, c backup.EntityCounts) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  bookcases        %d\n", c.BookCases)
	fmt.Fprintf(out, "  books            %d\n", c.Books)
	fmt.Fprintf(out, "  reading sessions %d\n", c.ReadingSessions)
	fmt.Fprintf(out, "  notes            %d\n", c.Notes)
	fmt.Fprintf(out, "  goal days        %d\n", c.GoalDays)
	fmt.Fprintf(out, "  goals            %d\n", c.Goals)
}
