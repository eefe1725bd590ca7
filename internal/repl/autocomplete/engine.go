// Package autocomplete provides context-aware completions for OQL.
package autocomplete

import (
	"sort"
	"strings"

	"github.com/matthewbaird/oql/internal/oql"
	"github.com/matthewbaird/oql/internal/schema"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "keyword", "entity", "alias", "field", "association", "function", "class", "command"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// Engine completes from the in-memory schema registry.
type Engine struct {
	registry *schema.Registry
}

// New creates an autocomplete engine backed by the given registry.
func New(registry *schema.Registry) *Engine {
	return &Engine{registry: registry}
}

var statementKeywords = []string{"SELECT", "UPDATE", "DELETE"}

// clauseKeywords are offered after a complete token when nothing more
// specific applies.
var clauseKeywords = []string{
	"AND", "AS", "ASC", "DESC", "FROM", "GROUP", "HAVING", "INDEX", "INNER",
	"JOIN", "LEFT", "OR", "ORDER", "SET", "WHERE", "WITH",
}

// MetaCommands lists the REPL meta-commands.
var MetaCommands = []string{":clear", ":env", ":functions", ":help", ":history", ":params", ":schema", ":set", ":unset"}

// HelpTopics lists the topics :help accepts.
var HelpTopics = []string{"delete", "functions", "parameters", "select", "update", "where"}

// Complete returns suggestions for text with the cursor at byte offset cursor.
func (e *Engine) Complete(text string, cursor int) []CompletionItem {
	cursor = max(0, min(cursor, len(text)))
	prefix := text[:cursor]

	if trimmed := strings.TrimLeft(prefix, " \t"); strings.HasPrefix(trimmed, ":") {
		return e.completeMeta(trimmed)
	}

	tokens := oql.Tokenize(prefix)
	for _, t := range tokens {
		// An unterminated string literal: the cursor is inside quotes.
		if t.Type == oql.TokenNone && t.Value == "'" {
			return nil
		}
	}

	partial := ""
	if n := len(tokens); n > 0 {
		last := tokens[n-1]
		if last.Type >= oql.TokenIdentifier && last.Pos+len(last.Value) == cursor {
			partial = last.Value
			tokens = tokens[:n-1]
		}
	}

	// Aliases are collected from the whole text so that the select list
	// can complete against a FROM clause typed after it.
	return e.contextualComplete(tokens, partial, e.aliases(oql.Tokenize(text)))
}

func (e *Engine) contextualComplete(tokens []oql.Token, partial string, aliases map[string]*oql.EntityMetadata) []CompletionItem {
	if len(tokens) == 0 {
		return filterItems(statementKeywords, partial, "keyword")
	}

	last := tokens[len(tokens)-1]

	switch last.Type {
	case oql.TokenDot:
		if md := e.resolvePath(tokens[:len(tokens)-1], aliases); md != nil {
			return e.completeMembers(md, partial)
		}
		return nil

	case oql.TokenFrom, oql.TokenUpdate, oql.TokenDelete:
		return e.completeEntities(partial)

	case oql.TokenOf:
		if len(tokens) >= 2 && tokens[len(tokens)-2].Type == oql.TokenInstance {
			return e.completeEntities(partial)
		}

	case oql.TokenJoin:
		return completeAliases(aliases, partial)

	case oql.TokenNew:
		return e.completeClasses(partial)

	case oql.TokenSelect, oql.TokenWhere, oql.TokenAnd, oql.TokenOr, oql.TokenNot,
		oql.TokenBy, oql.TokenHaving, oql.TokenWhen, oql.TokenThen, oql.TokenElse,
		oql.TokenSet, oql.TokenWith, oql.TokenDistinct,
		oql.TokenComma, oql.TokenOpenParenthesis, oql.TokenEquals, oql.TokenGreaterThan,
		oql.TokenLowerThan, oql.TokenPlus, oql.TokenMinus, oql.TokenMultiply, oql.TokenDivide:
		if inFromClause(tokens) {
			return e.completeEntities(partial)
		}
		items := completeAliases(aliases, partial)
		items = append(items, e.completeFunctions(partial)...)
		if partial != "" {
			items = append(items, filterItems(oql.Keywords(), partial, "keyword")...)
		}
		return items
	}

	if partial != "" {
		return filterItems(oql.Keywords(), partial, "keyword")
	}
	if last.Type == oql.TokenString || last.Type == oql.TokenInteger || last.Type == oql.TokenFloat ||
		last.Type == oql.TokenInputParameter || last.Type == oql.TokenCloseParenthesis ||
		last.Type >= oql.TokenIdentifier {
		return filterItems(clauseKeywords, "", "keyword")
	}
	return nil
}

// ── Alias tracking ──────────────────────────────────────────────────────────

// aliases maps each identification variable declared in tokens to its
// entity. Range declarations are "<Entity> [AS] alias"; join association
// declarations are "JOIN alias.assoc [AS] alias".
func (e *Engine) aliases(tokens []oql.Token) map[string]*oql.EntityMetadata {
	out := make(map[string]*oql.EntityMetadata)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Type != oql.TokenIdentifier {
			continue
		}
		if i > 0 && tokens[i-1].Type == oql.TokenDot {
			continue
		}

		if i+1 < len(tokens) && tokens[i+1].Type == oql.TokenDot {
			// alias.assoc [AS] alias after JOIN
			if i == 0 || tokens[i-1].Type != oql.TokenJoin || i+2 >= len(tokens) {
				continue
			}
			parent := out[t.Value]
			if parent == nil {
				continue
			}
			assoc, ok := parent.Association(tokens[i+2].Value)
			if !ok {
				continue
			}
			if alias, ok := aliasAfter(tokens, i+3); ok {
				if target := e.registry.Entity(assoc.TargetEntity); target != nil {
					out[alias] = target
				}
			}
			continue
		}

		md := e.entity(t.Value)
		if md == nil {
			continue
		}
		if alias, ok := aliasAfter(tokens, i+1); ok {
			out[alias] = md
		}
	}
	return out
}

// aliasAfter returns the identifier at i, skipping an optional AS.
func aliasAfter(tokens []oql.Token, i int) (string, bool) {
	if i < len(tokens) && tokens[i].Type == oql.TokenAs {
		i++
	}
	if i < len(tokens) && tokens[i].Type == oql.TokenIdentifier {
		return tokens[i].Value, true
	}
	return "", false
}

// entity resolves a schema name, expanding a namespace alias.
func (e *Engine) entity(name string) *oql.EntityMetadata {
	if alias, short, ok := strings.Cut(name, ":"); ok {
		ns, err := e.registry.ResolveNamespaceAlias(alias)
		if err != nil {
			return nil
		}
		name = ns + `\` + short
	}
	return e.registry.Entity(name)
}

// resolvePath resolves "alias(.assoc)*" at the end of tokens.
func (e *Engine) resolvePath(tokens []oql.Token, aliases map[string]*oql.EntityMetadata) *oql.EntityMetadata {
	var names []string
	i := len(tokens) - 1
	for i >= 0 && tokens[i].Type >= oql.TokenIdentifier {
		names = append([]string{tokens[i].Value}, names...)
		if i == 0 || tokens[i-1].Type != oql.TokenDot {
			break
		}
		i -= 2
	}
	if len(names) == 0 {
		return nil
	}

	md := aliases[names[0]]
	for _, n := range names[1:] {
		if md == nil {
			return nil
		}
		assoc, ok := md.Association(n)
		if !ok {
			return nil
		}
		md = e.registry.Entity(assoc.TargetEntity)
	}
	return md
}

// inFromClause reports whether the innermost open clause is FROM, so that
// a comma starts another range declaration.
func inFromClause(tokens []oql.Token) bool {
	if tokens[len(tokens)-1].Type != oql.TokenComma {
		return false
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		switch tokens[i].Type {
		case oql.TokenFrom:
			return true
		case oql.TokenSelect, oql.TokenWhere, oql.TokenJoin, oql.TokenBy, oql.TokenSet,
			oql.TokenHaving, oql.TokenOpenParenthesis, oql.TokenCloseParenthesis:
			return false
		}
	}
	return false
}

// ── Completion providers ────────────────────────────────────────────────────

func (e *Engine) completeEntities(partial string) []CompletionItem {
	return filterItems(e.registry.EntityNames(), partial, "entity")
}

func (e *Engine) completeMembers(md *oql.EntityMetadata, partial string) []CompletionItem {
	var items []CompletionItem
	p := strings.ToLower(partial)
	for _, name := range md.FieldOrder {
		if strings.HasPrefix(strings.ToLower(name), p) {
			items = append(items, CompletionItem{Label: name, Kind: "field", Detail: md.Fields[name].Type})
		}
	}
	for _, name := range md.AssociationOrder {
		if strings.HasPrefix(strings.ToLower(name), p) {
			a := md.Associations[name]
			items = append(items, CompletionItem{
				Label:  name,
				Kind:   "association",
				Detail: schema.ShortName(a.TargetEntity) + " (" + a.Kind.String() + ")",
			})
		}
	}
	return items
}

func completeAliases(aliases map[string]*oql.EntityMetadata, partial string) []CompletionItem {
	names := make([]string, 0, len(aliases))
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)

	var items []CompletionItem
	for _, a := range names {
		if strings.HasPrefix(strings.ToLower(a), strings.ToLower(partial)) {
			items = append(items, CompletionItem{Label: a, Kind: "alias", Detail: schema.ShortName(aliases[a].Name)})
		}
	}
	return items
}

func (e *Engine) completeFunctions(partial string) []CompletionItem {
	var items []CompletionItem
	seen := make(map[string]bool)
	for _, f := range e.registry.Functions() {
		seen[f.Name] = true
		if hasPrefixFold(f.Name, partial) {
			items = append(items, CompletionItem{Label: f.Name, Kind: "function", Detail: f.Category.String(), InsertText: f.Name + "("})
		}
	}
	for _, cat := range []oql.FunctionCategory{oql.StringFunction, oql.NumericFunction, oql.DatetimeFunction} {
		for _, name := range oql.BuiltinFunctions(cat) {
			if seen[name] || !hasPrefixFold(name, partial) {
				continue
			}
			seen[name] = true
			items = append(items, CompletionItem{Label: name, Kind: "function", Detail: cat.String(), InsertText: name + "("})
		}
	}
	return items
}

func (e *Engine) completeClasses(partial string) []CompletionItem {
	var items []CompletionItem
	for _, c := range e.registry.Classes() {
		if c.Abstract || c.Constructor == nil || !hasPrefixFold(c.Name, partial) {
			continue
		}
		items = append(items, CompletionItem{Label: c.Name, Kind: "class", InsertText: c.Name + "("})
	}
	return items
}

func (e *Engine) completeMeta(line string) []CompletionItem {
	cmd, arg, hasArg := strings.Cut(line, " ")
	if !hasArg {
		return filterItems(MetaCommands, cmd, "command")
	}
	arg = strings.TrimLeft(arg, " ")
	switch cmd {
	case ":schema":
		return e.completeEntities(arg)
	case ":help":
		return filterItems(HelpTopics, arg, "keyword")
	}
	return nil
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func filterItems(candidates []string, partial, kind string) []CompletionItem {
	var items []CompletionItem
	for _, c := range candidates {
		if hasPrefixFold(c, partial) {
			items = append(items, CompletionItem{Label: c, Kind: kind})
		}
	}
	return items
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
