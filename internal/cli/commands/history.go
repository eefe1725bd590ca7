package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/oql/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		jsonOut  bool
		limit    int
		session  string
		status   string
		search   string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded parse attempts",
		Long: `Show queries recorded in the parse history store (history.path).
With the default in-memory store the history only lives for one process,
so this is mostly useful with a sqlite file shared with "oql serve".`,
		Example: `  oql history --history oql-history.db --status syntax_error
  oql history --history oql-history.db --search "JOIN u.posts"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			store := cmdCtx.Store

			if clearAll {
				if err := store.Clear(ctx, session); err != nil {
					return fmt.Errorf("clearing history: %w", err)
				}
				_, _ = fmt.Fprintln(out, "history cleared")
				return nil
			}

			var (
				entries []history.Entry
				total   int
			)
			if search != "" {
				entries, err = store.Search(ctx, search, limit)
				total = len(entries)
			} else {
				opts := history.DefaultQueryOptions()
				opts.Limit = limit
				opts.SessionID = session
				opts.Status = status
				entries, _, total, err = store.List(ctx, opts)
			}
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}

			if jsonOut {
				return renderJSON(out, entries)
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "(no history)")
				return nil
			}
			t := newTable(out, "When", "Source", "Status", "Took", "Query")
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.OccurredAt.Local().Format(time.DateTime),
					e.Source,
					e.Status,
					e.Duration.Round(time.Microsecond),
					e.Query,
				})
			}
			t.Render()
			_, _ = fmt.Fprintf(out, "(%d of %d)\n", len(entries), total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&session, "session", "", "Only entries of this REPL session")
	cmd.Flags().StringVar(&status, "status", "", "Only entries with this status (ok, syntax_error, ...)")
	cmd.Flags().StringVar(&search, "search", "", "Only entries whose query contains this text")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete history (limited to --session when given)")
	return cmd
}
