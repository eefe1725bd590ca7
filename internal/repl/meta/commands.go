// Package meta handles REPL meta-commands (:help, :schema, :history, ...).
package meta

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/oql"
	"github.com/matthewbaird/oql/internal/repl/session"
	"github.com/matthewbaird/oql/internal/schema"
)

// Handler dispatches meta-commands.
type Handler struct {
	registry *schema.Registry
	store    history.Store
}

// New creates a meta-command handler. store may be nil, which disables
// ":history all".
func New(registry *schema.Registry, store history.Store) *Handler {
	return &Handler{registry: registry, store: store}
}

// Result is the output of a meta-command execution.
type Result struct {
	Output string `json:"output"`
	Clear  bool   `json:"clear,omitempty"` // Signal frontend to clear screen
}

// IsCommand reports whether line is a meta-command rather than a query.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ":")
}

// Execute runs a meta-command line such as ":schema User".
func (h *Handler) Execute(ctx context.Context, sess *session.Session, line string) (*Result, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], ":") {
		return nil, fmt.Errorf("not a meta-command: %q", line)
	}
	command, args := strings.TrimPrefix(fields[0], ":"), fields[1:]

	switch command {
	case "help":
		return h.help(args)
	case "clear":
		sess.ClearHistory()
		return &Result{Clear: true}, nil
	case "env":
		return h.env(sess)
	case "history":
		return h.history(ctx, sess, args)
	case "schema":
		return h.schemaCmd(args)
	case "functions":
		return h.functions()
	case "set":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: :set <name> <value>")
		}
		name := strings.TrimLeft(args[0], ":?")
		sess.SetParameter(name, strings.Join(args[1:], " "))
		return &Result{Output: fmt.Sprintf("%s = %s", name, strings.Join(args[1:], " "))}, nil
	case "unset":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: :unset <name>")
		}
		name := strings.TrimLeft(args[0], ":?")
		if !sess.UnsetParameter(name) {
			return nil, fmt.Errorf("parameter '%s' is not set", name)
		}
		return &Result{Output: "unset " + name}, nil
	case "params":
		return h.params(sess)
	default:
		return nil, fmt.Errorf("unknown meta-command ':%s'. Type :help for available commands", command)
	}
}

func (h *Handler) help(args []string) (*Result, error) {
	if len(args) > 0 {
		return h.helpTopic(args[0])
	}

	help := `OQL: object query language

Statements:
  SELECT <expr>, ... FROM <Entity> <alias> [JOIN <alias>.<assoc> <alias>] [WHERE ...]
         [GROUP BY ...] [HAVING ...] [ORDER BY ... ASC|DESC]
  UPDATE <Entity> <alias> SET <alias>.<field> = <expr>, ... [WHERE ...]
  DELETE [FROM] <Entity> <alias> [WHERE ...]

Entities may be written short (User), qualified (App\Entity\User),
or through a namespace alias (App:User).

Parameters: :name or ?1. Bind values for the session with :set.

Meta-commands:
  :help [topic]        Show help (topics: select, update, delete, where, functions, parameters)
  :schema [entity]     List entities, or show one entity's fields and associations
  :functions           List built-in and custom functions
  :history [all]       Show this session's queries, or recent queries from every session
  :set <name> <value>  Bind a parameter value
  :unset <name>        Remove a parameter binding
  :params              Show bound parameters
  :env                 Show session info
  :clear               Clear the screen and session history

Examples:
  SELECT u FROM User u WHERE u.age > :min ORDER BY u.name
  SELECT u, COUNT(p.id) AS posts FROM User u LEFT JOIN u.posts p GROUP BY u.id
  UPDATE Post p SET p.published = TRUE WHERE p.score > 4.5
  DELETE FROM Comment c WHERE c.post IS NULL`

	return &Result{Output: help}, nil
}

func (h *Handler) helpTopic(topic string) (*Result, error) {
	switch strings.ToLower(topic) {
	case "select":
		return &Result{Output: "SELECT [DISTINCT] <expr> [AS name], ...\n  FROM <Entity> [AS] <alias> [INDEX BY <alias>.<field>]\n  [[LEFT [OUTER] | INNER] JOIN <alias>.<assoc> [AS] <alias> [WITH <cond>]]\n  [WHERE <cond>] [GROUP BY ...] [HAVING <cond>] [ORDER BY <expr> [ASC|DESC], ...]\n\nSelect expressions may be aliases, paths, aggregates, functions, CASE,\nsubselects, PARTIAL alias.{field, ...} or NEW Class(args)."}, nil
	case "update":
		return &Result{Output: "UPDATE <Entity> [AS] <alias> SET <alias>.<field> = <expr> [, ...] [WHERE <cond>]"}, nil
	case "delete":
		return &Result{Output: "DELETE [FROM] <Entity> [AS] <alias> [WHERE <cond>]"}, nil
	case "where":
		return &Result{Output: "Conditions combine with AND, OR and NOT.\n\n  <expr> = <> != < <= > >= <expr>\n  <expr> [NOT] BETWEEN <a> AND <b>\n  <expr> [NOT] LIKE 'pattern' [ESCAPE 'c']\n  <expr> [NOT] IN (<values> | <subselect>)\n  <alias> [NOT] INSTANCE OF <Entity>\n  <path> IS [NOT] NULL\n  <collection> IS [NOT] EMPTY\n  <expr> [NOT] MEMBER [OF] <collection>\n  [NOT] EXISTS (<subselect>)\n  <expr> <op> ALL|ANY|SOME (<subselect>)"}, nil
	case "functions":
		return h.functions()
	case "parameters":
		return &Result{Output: "Named parameters are written :name, positional ones ?1.\n\n  :set min 18     bind min for this session\n  :params         show bindings\n  :unset min      remove the binding\n\nParsed queries report the parameters that are not yet bound."}, nil
	default:
		return &Result{Output: fmt.Sprintf("No help available for '%s'", topic)}, nil
	}
}

func (h *Handler) env(sess *session.Session) (*Result, error) {
	snap := sess.Snapshot()
	out := fmt.Sprintf("Session: %s\nCreated: %s\nLast active: %s\nHistory entries: %d\nParameters: %d\nDefault namespace: %s",
		snap.ID,
		snap.CreatedAt.Format("2006-01-02 15:04:05"),
		snap.LastActiveAt.Format("2006-01-02 15:04:05"),
		len(snap.History), len(snap.Parameters),
		h.registry.DefaultNamespace())
	return &Result{Output: out}, nil
}

func (h *Handler) history(ctx context.Context, sess *session.Session, args []string) (*Result, error) {
	if len(args) > 0 && args[0] == "all" {
		if h.store == nil {
			return nil, fmt.Errorf("no history store configured")
		}
		entries, _, total, err := h.store.List(ctx, history.QueryOptions{Limit: 20})
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return &Result{Output: "(no history)"}, nil
		}
		var b strings.Builder
		for _, e := range entries {
			fmt.Fprintf(&b, "%s  %-15s %s\n", e.OccurredAt.Local().Format("15:04:05"), e.Status, e.Query)
		}
		fmt.Fprintf(&b, "(%d of %d)", len(entries), total)
		return &Result{Output: b.String()}, nil
	}

	queries := sess.History()
	if len(queries) == 0 {
		return &Result{Output: "(no history)"}, nil
	}

	var b strings.Builder
	for i, q := range queries {
		fmt.Fprintf(&b, "%3d  %s\n", i+1, q)
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) schemaCmd(args []string) (*Result, error) {
	if len(args) == 0 {
		names := h.registry.EntityNames()
		return &Result{Output: fmt.Sprintf("Entities (%d):\n  %s", len(names), strings.Join(names, "\n  "))}, nil
	}

	md := h.registry.Entity(args[0])
	if md == nil {
		msg := fmt.Sprintf("unknown entity '%s'", args[0])
		if s := oql.SuggestFrom(args[0], h.registry.EntityNames(), 2); s != "" {
			msg += ", " + s
		}
		return nil, errors.New(msg)
	}
	return &Result{Output: DescribeEntity(md)}, nil
}

// DescribeEntity renders an entity's fields and associations.
func DescribeEntity(md *oql.EntityMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity: %s\n", md.Name)
	fmt.Fprintf(&b, "Identifier: %s\n", strings.Join(md.Identifier, ", "))

	fmt.Fprintf(&b, "\nFields:\n")
	for _, name := range md.FieldOrder {
		f := md.Fields[name]
		opt := ""
		if f.Nullable {
			opt = " (nullable)"
		}
		fmt.Fprintf(&b, "  %-30s %s%s\n", name, f.Type, opt)
	}

	if len(md.AssociationOrder) > 0 {
		fmt.Fprintf(&b, "\nAssociations:\n")
		for _, name := range md.AssociationOrder {
			a := md.Associations[name]
			side := "inverse"
			if a.Owning {
				side = "owning"
			}
			fmt.Fprintf(&b, "  %-30s -> %s (%s, %s)\n", name, schema.ShortName(a.TargetEntity), a.Kind, side)
		}
	}
	return b.String()
}

func (h *Handler) functions() (*Result, error) {
	var b strings.Builder
	for _, cat := range []oql.FunctionCategory{oql.StringFunction, oql.NumericFunction, oql.DatetimeFunction} {
		fmt.Fprintf(&b, "%s: %s\n", cat, strings.Join(oql.BuiltinFunctions(cat), ", "))
	}
	fmt.Fprintf(&b, "aggregate: AVG, COUNT, MAX, MIN, SUM\n")

	custom := h.registry.Functions()
	if len(custom) > 0 {
		fmt.Fprintf(&b, "\nCustom:\n")
		for _, f := range custom {
			arity := fmt.Sprintf("%d+", f.MinArgs)
			if f.MaxArgs >= 0 {
				arity = fmt.Sprintf("%d..%d", f.MinArgs, f.MaxArgs)
			}
			fmt.Fprintf(&b, "  %-20s %-8s args %s\n", f.Name, f.Category, arity)
		}
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) params(sess *session.Session) (*Result, error) {
	params := sess.Parameters()
	if len(params) == 0 {
		return &Result{Output: "(no parameters)"}, nil
	}
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s = %s\n", n, params[n])
	}
	return &Result{Output: b.String()}, nil
}
