package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/matthewbaird/oql/internal/analysis"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// renderReport prints the formatted statement, the component table, and
// the parameters.
func renderReport(w io.Writer, rep *analysis.Report, unbound []string) {
	_, _ = fmt.Fprintln(w, rep.Formatted)
	_, _ = fmt.Fprintln(w)

	if len(rep.Components) > 0 {
		t := newTable(w, "Alias", "Entity", "Parent", "Relation", "Result Var", "Depth", "Pos")
		for _, c := range rep.Components {
			rel := c.Relation
			if c.RelationKind != "" {
				rel += " (" + c.RelationKind + ")"
			}
			t.AppendRow(table.Row{c.Alias, c.Entity, c.Parent, rel, yesNo(c.ResultVariable), c.NestingLevel, c.Position})
		}
		t.Render()
	}

	if len(rep.Parameters) > 0 {
		parts := make([]string, len(rep.Parameters))
		for i, p := range rep.Parameters {
			parts[i] = fmt.Sprintf(":%s %v", p.Name, p.Positions)
		}
		_, _ = fmt.Fprintf(w, "parameters: %s\n", strings.Join(parts, ", "))
	}
	if len(unbound) > 0 {
		_, _ = fmt.Fprintf(w, "unbound: %s\n", strings.Join(unbound, ", "))
	}
	if len(rep.TreeWalkers) > 0 {
		_, _ = fmt.Fprintf(w, "tree walkers: %s\n", strings.Join(rep.TreeWalkers, ", "))
	}
	if rep.OutputWalker != "" {
		_, _ = fmt.Fprintf(w, "output walker: %s\n", rep.OutputWalker)
	}
	_, _ = fmt.Fprintf(w, "(%s in %s)\n", rep.Kind, rep.Elapsed)
}

// renderError prints d and, when it carries a position, the offending line
// of query with a caret under the position.
func renderError(w io.Writer, query string, d analysis.ErrorDetail) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", d.Code, d.Message)
	if d.Position != nil && *d.Position >= 0 && *d.Position <= len(query) {
		pos := *d.Position
		start := strings.LastIndexByte(query[:pos], '\n') + 1
		end := strings.IndexByte(query[pos:], '\n')
		if end < 0 {
			end = len(query)
		} else {
			end += pos
		}
		_, _ = fmt.Fprintf(w, "  %s\n  %s^\n", query[start:end], strings.Repeat(" ", pos-start))
	}
	if d.Suggestion != "" {
		_, _ = fmt.Fprintf(w, "hint: %s\n", d.Suggestion)
	}
}
