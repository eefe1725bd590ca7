package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/oql"
)

// ErrQueryRejected is returned when the parser rejects a query; the
// details have already been printed.
var ErrQueryRejected = errors.New("query rejected")

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var (
		jsonOut      bool
		check        bool
		params       []string
		walkers      []string
		outputWalker string
	)

	cmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Parse and validate an OQL query",
		Long: `Parse a query against the configured entity metadata and print its
normalized form, the aliases it declares, and its input parameters.

The query is read from stdin when no argument (or "-") is given.`,
		Example: `  # Parse a query
  oql parse "SELECT u FROM User u WHERE u.age > :min"

  # Require every parameter to be bound
  oql parse --check --param min=18 "SELECT u FROM User u WHERE u.age > :min"

  # Read from a file, print JSON
  oql parse --json - < query.oql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			bound, err := parseParams(params)
			if err != nil {
				return err
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			req := analysis.Request{Query: query, Source: "cli", Hints: map[string]any{}}
			if len(walkers) > 0 {
				req.Hints[oql.HintCustomTreeWalkers] = walkers
			}
			if outputWalker != "" {
				req.Hints[oql.HintCustomOutputWalker] = outputWalker
			}
			if check {
				req.Parameters = make(map[string]any, len(bound))
				for k, v := range bound {
					req.Parameters[k] = v
				}
			}

			out := cmd.OutOrStdout()
			rep, err := cmdCtx.Analyzer.Analyze(cmd.Context(), req)
			if err != nil {
				if !analysis.IsClientError(err) {
					return err
				}
				d := analysis.Describe(err)
				if jsonOut {
					_ = renderJSON(out, d)
				} else {
					renderError(cmd.ErrOrStderr(), query, d)
				}
				return ErrQueryRejected
			}

			unbound := rep.Unbound(bound)
			if jsonOut {
				return renderJSON(out, struct {
					*analysis.Report
					Unbound []string `json:"unbound,omitempty"`
				}{rep, unbound})
			}
			renderReport(out, rep, unbound)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "Fail when a query parameter is not bound with --param")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Bind a parameter (name=value, repeatable)")
	cmd.Flags().StringArrayVar(&walkers, "tree-walker", nil, "Custom tree walker class to record (repeatable)")
	cmd.Flags().StringVar(&outputWalker, "output-walker", "", "Custom output walker class to record")
	return cmd
}

func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading query from stdin: %w", err)
	}
	q := strings.TrimSpace(string(b))
	if q == "" {
		return "", errors.New("no query given")
	}
	return q, nil
}

// parseParams turns name=value pairs into a map. A leading colon on the
// name is dropped.
func parseParams(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", p)
		}
		out[name] = value
	}
	return out, nil
}
