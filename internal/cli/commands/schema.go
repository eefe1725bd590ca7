package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/oql/internal/oql"
	"github.com/matthewbaird/oql/internal/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "schema [entity]",
		Short: "Show the entity metadata queries are checked against",
		Example: `  # List entities
  oql schema

  # Show the fields and associations of one entity
  oql schema User --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			reg := cmdCtx.Registry
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				views := make([]schema.EntityView, 0)
				for _, md := range reg.Entities() {
					views = append(views, schema.View(md))
				}
				if jsonOut {
					return renderJSON(out, views)
				}
				t := newTable(out, "Entity", "Identifier", "Fields", "Associations")
				for _, v := range views {
					t.AppendRow(table.Row{v.Name, strings.Join(v.Identifier, ", "), len(v.Fields), len(v.Associations)})
				}
				t.Render()
				return nil
			}

			md := reg.Entity(args[0])
			if md == nil {
				msg := fmt.Sprintf("unknown entity %q", args[0])
				if s := oql.SuggestFrom(args[0], reg.EntityNames(), 2); s != "" {
					msg += ", " + s
				}
				return errors.New(msg)
			}
			v := schema.View(md)
			if jsonOut {
				return renderJSON(out, v)
			}

			_, _ = fmt.Fprintf(out, "%s (identifier: %s)\n", v.Name, strings.Join(v.Identifier, ", "))
			t := newTable(out, "Field", "Type", "Nullable")
			for _, f := range v.Fields {
				t.AppendRow(table.Row{f.Name, f.Type, yesNo(f.Nullable)})
			}
			t.Render()

			if len(v.Associations) > 0 {
				t = newTable(out, "Association", "Target", "Kind", "Owning", "Mapped By", "Inversed By")
				for _, a := range v.Associations {
					t.AppendRow(table.Row{a.Field, a.Target, a.Kind, yesNo(a.Owning), a.MappedBy, a.InversedBy})
				}
				t.Render()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List built-in and configured functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			fns := schema.FunctionCatalog(cmdCtx.Registry)
			out := cmd.OutOrStdout()
			if jsonOut {
				return renderJSON(out, fns)
			}
			t := newTable(out, "Function", "Category", "Custom", "Args")
			for _, f := range fns {
				args := ""
				if f.Custom {
					args = fmt.Sprintf("%d+", f.MinArgs)
					if f.MaxArgs >= 0 {
						args = fmt.Sprintf("%d..%d", f.MinArgs, f.MaxArgs)
					}
				}
				t.AppendRow(table.Row{f.Name, f.Category, yesNo(f.Custom), args})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}
