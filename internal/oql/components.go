package oql

// QueryComponent is the symbol-table entry for one alias. Exactly one of
// Metadata and ResultVariable is set.
type QueryComponent struct {
	Alias          string
	Metadata       *EntityMetadata // entity aliases
	ResultVariable Node            // result-variable aliases
	Parent         string          // alias this one was joined from
	Relation       *Association    // association traversed from Parent
	IndexBy        string
	NestingLevel   int
	Token          Token
}

// IsEntity reports whether the component names an entity.
func (c *QueryComponent) IsEntity() bool { return c.Metadata != nil }

// IsResultVariable reports whether the component names a result variable.
func (c *QueryComponent) IsResultVariable() bool { return c.ResultVariable != nil }

// IsRoot reports whether the component is an entity not reached through a
// join association.
func (c *QueryComponent) IsRoot() bool { return c.Metadata != nil && c.Parent == "" }

// ComponentTable maps aliases to components in declaration order. The alias
// namespace is flat for the whole statement, subselects included.
type ComponentTable struct {
	order []string
	byKey map[string]*QueryComponent
}

// NewComponentTable returns an empty table.
func NewComponentTable() *ComponentTable {
	return &ComponentTable{byKey: make(map[string]*QueryComponent)}
}

// declare adds c. The caller must check Has first; redeclaring is a
// semantic error raised by the parser with the right token.
func (t *ComponentTable) declare(c *QueryComponent) {
	if _, ok := t.byKey[c.Alias]; !ok {
		t.order = append(t.order, c.Alias)
	}
	t.byKey[c.Alias] = c
}

// Has reports whether alias is declared.
func (t *ComponentTable) Has(alias string) bool {
	_, ok := t.byKey[alias]
	return ok
}

// Lookup returns the component for alias.
func (t *ComponentTable) Lookup(alias string) (*QueryComponent, bool) {
	c, ok := t.byKey[alias]
	return c, ok
}

// Aliases returns the declared aliases in declaration order.
func (t *ComponentTable) Aliases() []string {
	return append([]string(nil), t.order...)
}

// Components returns the components in declaration order.
func (t *ComponentTable) Components() []*QueryComponent {
	out := make([]*QueryComponent, 0, len(t.order))
	for _, a := range t.order {
		out = append(out, t.byKey[a])
	}
	return out
}

// Len returns the number of declared aliases.
func (t *ComponentTable) Len() int { return len(t.order) }
