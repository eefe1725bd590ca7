// Package analysis parses OQL text against a metadata provider and turns
// the result into a JSON-friendly report. Every parse is published as a
// history entry.
package analysis

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/oql"
)

// Publisher receives one entry per parse. *eventbus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, evt history.Entry)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt history.Entry)

func (f PublisherFunc) Publish(ctx context.Context, evt history.Entry) { f(ctx, evt) }

// Request is one parse request.
type Request struct {
	Query      string
	Parameters map[string]any // checked against the query when non-nil
	Hints      map[string]any
	Source     string // cli, http, repl
	SessionID  string
}

// Analyzer parses queries.
type Analyzer struct {
	metadata  oql.MetadataProvider
	maxDepth  int
	publisher Publisher
	logger    *slog.Logger
}

// New creates an Analyzer. publisher may be nil.
func New(md oql.MetadataProvider, maxDepth int, publisher Publisher, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{metadata: md, maxDepth: maxDepth, publisher: publisher, logger: logger}
}

// Analyze parses req.Query and, when req.Parameters is set, checks the
// bound parameter names. The returned error is an *oql.SyntaxError,
// *oql.SemanticError, *oql.ParameterError, or a context error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	q := oql.NewQuery(req.Query)
	q.MaxDepth = a.maxDepth
	q.Parameters = req.Parameters
	q.Hints = req.Hints

	res, err := oql.ParseContext(ctx, q, a.metadata)
	took := time.Since(start)

	if a.publisher != nil {
		// a timed-out parse is still recorded
		a.publisher.Publish(context.WithoutCancel(ctx), history.NewEntry(req.Source, req.SessionID, req.Query, res, err, took))
	}
	if err != nil {
		a.logger.Debug("parse failed", "source", req.Source, "error", err)
		return nil, err
	}
	return NewReport(res, took), nil
}

// Report describes a successfully parsed statement.
type Report struct {
	Kind         string      `json:"kind"`
	Formatted    string      `json:"formatted"`
	Components   []Component `json:"components"`
	Parameters   []Parameter `json:"parameters"`
	TreeWalkers  []string    `json:"tree_walkers,omitempty"`
	OutputWalker string      `json:"output_walker,omitempty"`
	Elapsed      string      `json:"elapsed"`

	Result *oql.Result `json:"-"`
}

// Component is one alias of the query component table.
type Component struct {
	Alias          string `json:"alias"`
	Entity         string `json:"entity,omitempty"`
	ResultVariable bool   `json:"result_variable,omitempty"`
	Parent         string `json:"parent,omitempty"`
	Relation       string `json:"relation,omitempty"`
	RelationKind   string `json:"relation_kind,omitempty"`
	IndexBy        string `json:"index_by,omitempty"`
	NestingLevel   int    `json:"nesting_level"`
	Position       int    `json:"position"`
}

// Parameter is an input parameter and the offsets where it occurs.
type Parameter struct {
	Name      string `json:"name"`
	Positions []int  `json:"positions"`
}

// NewReport builds a report from a parse result.
func NewReport(res *oql.Result, took time.Duration) *Report {
	r := &Report{
		Kind:         history.StatementKind(res.Statement),
		Formatted:    oql.Format(res.Statement),
		Components:   []Component{},
		Parameters:   []Parameter{},
		TreeWalkers:  res.TreeWalkers,
		OutputWalker: res.OutputWalker,
		Elapsed:      took.String(),
		Result:       res,
	}
	for _, c := range res.Components.Components() {
		comp := Component{
			Alias:          c.Alias,
			ResultVariable: c.IsResultVariable(),
			Parent:         c.Parent,
			IndexBy:        c.IndexBy,
			NestingLevel:   c.NestingLevel,
			Position:       c.Token.Pos,
		}
		if c.Metadata != nil {
			comp.Entity = c.Metadata.Name
		}
		if c.Relation != nil {
			comp.Relation = c.Relation.Field
			comp.RelationKind = c.Relation.Kind.String()
		}
		r.Components = append(r.Components, comp)
	}
	for _, name := range res.ParameterNames() {
		r.Parameters = append(r.Parameters, Parameter{Name: name, Positions: res.Parameters[name]})
	}
	return r
}

// Unbound returns the parameter names of the report that bound lacks.
func (r *Report) Unbound(bound map[string]string) []string {
	var out []string
	for _, p := range r.Parameters {
		if _, ok := bound[p.Name]; !ok {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}
