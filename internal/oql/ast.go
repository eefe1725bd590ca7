package oql

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeType() string
	Pos() int // byte offset in source
}

// Statement is a top-level SELECT, UPDATE or DELETE.
type Statement interface {
	Node
	stmtNode()
}

// Expr is any node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Condition is any node that produces a truth value.
type Condition interface {
	Node
	condNode()
}

// Declaration is an entry of a FROM clause.
type Declaration interface {
	Node
	declNode()
}

// JoinDeclaration is the target of a JOIN.
type JoinDeclaration interface {
	Node
	joinNode()
}

// NodeType returns the grammar name of a node, e.g. "SelectStatement".
func NodeType(n Node) string { return n.nodeType() }

// ── Statements ──────────────────────────────────────────────────────────────

// SelectStatement represents: SELECT ... FROM ... [WHERE] [GROUP BY] [HAVING] [ORDER BY]
type SelectStatement struct {
	TokenPos int
	Select   *SelectClause
	From     *FromClause
	Where    *WhereClause
	GroupBy  *GroupByClause
	Having   *HavingClause
	OrderBy  *OrderByClause
}

func (s *SelectStatement) nodeType() string { return "SelectStatement" }
func (s *SelectStatement) Pos() int         { return s.TokenPos }
func (s *SelectStatement) stmtNode()        {}

// UpdateStatement represents: UPDATE Entity alias SET ... [WHERE]
type UpdateStatement struct {
	TokenPos int
	Update   *UpdateClause
	Where    *WhereClause
}

func (u *UpdateStatement) nodeType() string { return "UpdateStatement" }
func (u *UpdateStatement) Pos() int         { return u.TokenPos }
func (u *UpdateStatement) stmtNode()        {}

// DeleteStatement represents: DELETE [FROM] Entity alias [WHERE]
type DeleteStatement struct {
	TokenPos int
	Delete   *DeleteClause
	Where    *WhereClause
}

func (d *DeleteStatement) nodeType() string { return "DeleteStatement" }
func (d *DeleteStatement) Pos() int         { return d.TokenPos }
func (d *DeleteStatement) stmtNode()        {}

// ── Clauses ─────────────────────────────────────────────────────────────────

type SelectClause struct {
	TokenPos    int
	Distinct    bool
	Expressions []*SelectExpression
}

func (s *SelectClause) nodeType() string { return "SelectClause" }
func (s *SelectClause) Pos() int         { return s.TokenPos }

// SelectExpression is one item of the SELECT list. ResultVariable is the
// alias after AS, or "".
type SelectExpression struct {
	TokenPos       int
	Expression     Expr
	ResultVariable string
	Hidden         bool
}

func (s *SelectExpression) nodeType() string { return "SelectExpression" }
func (s *SelectExpression) Pos() int         { return s.TokenPos }

type SimpleSelectClause struct {
	TokenPos   int
	Distinct   bool
	Expression *SimpleSelectExpression
}

func (s *SimpleSelectClause) nodeType() string { return "SimpleSelectClause" }
func (s *SimpleSelectClause) Pos() int         { return s.TokenPos }

type SimpleSelectExpression struct {
	TokenPos       int
	Expression     Expr
	ResultVariable string
}

func (s *SimpleSelectExpression) nodeType() string { return "SimpleSelectExpression" }
func (s *SimpleSelectExpression) Pos() int         { return s.TokenPos }

type FromClause struct {
	TokenPos     int
	Declarations []*IdentificationVariableDeclaration
}

func (f *FromClause) nodeType() string { return "FromClause" }
func (f *FromClause) Pos() int         { return f.TokenPos }

// SubselectFromClause holds IdentificationVariableDeclaration or
// AssociationDeclaration entries.
type SubselectFromClause struct {
	TokenPos     int
	Declarations []Declaration
}

func (s *SubselectFromClause) nodeType() string { return "SubselectFromClause" }
func (s *SubselectFromClause) Pos() int         { return s.TokenPos }

// IdentificationVariableDeclaration represents: Entity alias [INDEX BY ...] {JOIN ...}
type IdentificationVariableDeclaration struct {
	TokenPos int
	Range    *RangeVariableDeclaration
	IndexBy  *IndexBy
	Joins    []*Join
}

func (i *IdentificationVariableDeclaration) nodeType() string { return "IdentificationVariableDeclaration" }
func (i *IdentificationVariableDeclaration) Pos() int         { return i.TokenPos }
func (i *IdentificationVariableDeclaration) declNode()        {}

// RangeVariableDeclaration binds an alias to an entity. IsRoot is false when
// the declaration is the target of an ad-hoc JOIN.
type RangeVariableDeclaration struct {
	TokenPos   int
	SchemaName string
	Alias      string
	IsRoot     bool
}

func (r *RangeVariableDeclaration) nodeType() string { return "RangeVariableDeclaration" }
func (r *RangeVariableDeclaration) Pos() int         { return r.TokenPos }
func (r *RangeVariableDeclaration) joinNode()        {}

// AssociationDeclaration represents a subselect FROM entry of the form
// alias.association [AS] alias.
type AssociationDeclaration struct {
	TokenPos int
	Path     *JoinAssociationPathExpression
	Alias    string
}

func (a *AssociationDeclaration) nodeType() string { return "AssociationDeclaration" }
func (a *AssociationDeclaration) Pos() int         { return a.TokenPos }
func (a *AssociationDeclaration) declNode()        {}

type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinLeftOuter
)

func (t JoinType) String() string {
	switch t {
	case JoinLeft:
		return "LEFT"
	case JoinLeftOuter:
		return "LEFT OUTER"
	}
	return "INNER"
}

// Join represents: [LEFT [OUTER] | INNER] JOIN declaration [WITH condition]
type Join struct {
	TokenPos    int
	Type        JoinType
	Declaration JoinDeclaration
	Condition   Condition // WITH, may be nil
}

func (j *Join) nodeType() string { return "Join" }
func (j *Join) Pos() int         { return j.TokenPos }

// JoinAssociationDeclaration represents: alias.association [AS] alias [INDEX BY ...]
type JoinAssociationDeclaration struct {
	TokenPos int
	Path     *JoinAssociationPathExpression
	Alias    string
	IndexBy  *IndexBy
}

func (j *JoinAssociationDeclaration) nodeType() string { return "JoinAssociationDeclaration" }
func (j *JoinAssociationDeclaration) Pos() int         { return j.TokenPos }
func (j *JoinAssociationDeclaration) joinNode()        {}

type JoinAssociationPathExpression struct {
	TokenPos               int
	IdentificationVariable string
	Field                  string
}

func (j *JoinAssociationPathExpression) nodeType() string { return "JoinAssociationPathExpression" }
func (j *JoinAssociationPathExpression) Pos() int         { return j.TokenPos }

type IndexBy struct {
	TokenPos int
	Path     *PathExpression
}

func (i *IndexBy) nodeType() string { return "IndexBy" }
func (i *IndexBy) Pos() int         { return i.TokenPos }

type UpdateClause struct {
	TokenPos   int
	SchemaName string
	Alias      string
	Items      []*UpdateItem
}

func (u *UpdateClause) nodeType() string { return "UpdateClause" }
func (u *UpdateClause) Pos() int         { return u.TokenPos }

// UpdateItem represents: path = value. A nil Value means NULL.
type UpdateItem struct {
	TokenPos int
	Path     *PathExpression
	Value    Expr
}

func (u *UpdateItem) nodeType() string { return "UpdateItem" }
func (u *UpdateItem) Pos() int         { return u.TokenPos }

type DeleteClause struct {
	TokenPos   int
	SchemaName string
	Alias      string
}

func (d *DeleteClause) nodeType() string { return "DeleteClause" }
func (d *DeleteClause) Pos() int         { return d.TokenPos }

type WhereClause struct {
	TokenPos  int
	Condition Condition
}

func (w *WhereClause) nodeType() string { return "WhereClause" }
func (w *WhereClause) Pos() int         { return w.TokenPos }

type HavingClause struct {
	TokenPos  int
	Condition Condition
}

func (h *HavingClause) nodeType() string { return "HavingClause" }
func (h *HavingClause) Pos() int         { return h.TokenPos }

// GroupByClause items are PathExpression, IdentificationVariable or
// ResultVariable nodes.
type GroupByClause struct {
	TokenPos int
	Items    []Expr
}

func (g *GroupByClause) nodeType() string { return "GroupByClause" }
func (g *GroupByClause) Pos() int         { return g.TokenPos }

type OrderByClause struct {
	TokenPos int
	Items    []*OrderByItem
}

func (o *OrderByClause) nodeType() string { return "OrderByClause" }
func (o *OrderByClause) Pos() int         { return o.TokenPos }

type OrderByItem struct {
	TokenPos   int
	Expression Expr
	Descending bool
}

func (o *OrderByItem) nodeType() string { return "OrderByItem" }
func (o *OrderByItem) Pos() int         { return o.TokenPos }

// Subselect is a nested SELECT. It opens a new nesting level.
type Subselect struct {
	TokenPos int
	Select   *SimpleSelectClause
	From     *SubselectFromClause
	Where    *WhereClause
	GroupBy  *GroupByClause
	Having   *HavingClause
	OrderBy  *OrderByClause
}

func (s *Subselect) nodeType() string { return "Subselect" }
func (s *Subselect) Pos() int         { return s.TokenPos }
func (s *Subselect) exprNode()        {}

// ── Conditions ──────────────────────────────────────────────────────────────

// ConditionalExpression is a disjunction of two or more terms.
type ConditionalExpression struct {
	TokenPos int
	Terms    []Condition
}

func (c *ConditionalExpression) nodeType() string { return "ConditionalExpression" }
func (c *ConditionalExpression) Pos() int         { return c.TokenPos }
func (c *ConditionalExpression) condNode()        {}

// ConditionalTerm is a conjunction of two or more factors.
type ConditionalTerm struct {
	TokenPos int
	Factors  []Condition
}

func (c *ConditionalTerm) nodeType() string { return "ConditionalTerm" }
func (c *ConditionalTerm) Pos() int         { return c.TokenPos }
func (c *ConditionalTerm) condNode()        {}

// ConditionalFactor is a negated primary. Unnegated primaries are not
// wrapped.
type ConditionalFactor struct {
	TokenPos int
	Primary  *ConditionalPrimary
}

func (c *ConditionalFactor) nodeType() string { return "ConditionalFactor" }
func (c *ConditionalFactor) Pos() int         { return c.TokenPos }
func (c *ConditionalFactor) condNode()        {}

// ConditionalPrimary holds either a simple condition or, when Grouped, a
// parenthesized conditional expression.
type ConditionalPrimary struct {
	TokenPos  int
	Condition Condition
	Grouped   bool
}

func (c *ConditionalPrimary) nodeType() string { return "ConditionalPrimary" }
func (c *ConditionalPrimary) Pos() int         { return c.TokenPos }
func (c *ConditionalPrimary) condNode()        {}

// ComparisonExpression represents: left op right. Right may be a
// QuantifiedExpression.
type ComparisonExpression struct {
	TokenPos int
	Left     Expr
	Operator string
	Right    Expr
}

func (c *ComparisonExpression) nodeType() string { return "ComparisonExpression" }
func (c *ComparisonExpression) Pos() int         { return c.TokenPos }
func (c *ComparisonExpression) condNode()        {}

type BetweenExpression struct {
	TokenPos int
	Expr     Expr
	Low      Expr
	High     Expr
	Not      bool
}

func (b *BetweenExpression) nodeType() string { return "BetweenExpression" }
func (b *BetweenExpression) Pos() int         { return b.TokenPos }
func (b *BetweenExpression) condNode()        {}

type LikeExpression struct {
	TokenPos int
	Expr     Expr
	Pattern  Expr
	Escape   *Literal
	Not      bool
}

func (l *LikeExpression) nodeType() string { return "LikeExpression" }
func (l *LikeExpression) Pos() int         { return l.TokenPos }
func (l *LikeExpression) condNode()        {}

// InExpression tests membership in Items or, when Subselect is set, in the
// subselect result.
type InExpression struct {
	TokenPos  int
	Expr      Expr
	Items     []Expr
	Subselect *Subselect
	Not       bool
}

func (i *InExpression) nodeType() string { return "InExpression" }
func (i *InExpression) Pos() int         { return i.TokenPos }
func (i *InExpression) condNode()        {}

// InstanceOfExpression types are SchemaName or InputParameter nodes.
type InstanceOfExpression struct {
	TokenPos               int
	IdentificationVariable string
	Types                  []Expr
	Not                    bool
}

func (i *InstanceOfExpression) nodeType() string { return "InstanceOfExpression" }
func (i *InstanceOfExpression) Pos() int         { return i.TokenPos }
func (i *InstanceOfExpression) condNode()        {}

type NullComparisonExpression struct {
	TokenPos int
	Expr     Expr
	Not      bool
}

func (n *NullComparisonExpression) nodeType() string { return "NullComparisonExpression" }
func (n *NullComparisonExpression) Pos() int         { return n.TokenPos }
func (n *NullComparisonExpression) condNode()        {}

type EmptyCollectionComparisonExpression struct {
	TokenPos int
	Path     *PathExpression
	Not      bool
}

func (e *EmptyCollectionComparisonExpression) nodeType() string { return "EmptyCollectionComparisonExpression" }
func (e *EmptyCollectionComparisonExpression) Pos() int         { return e.TokenPos }
func (e *EmptyCollectionComparisonExpression) condNode()        {}

type CollectionMemberExpression struct {
	TokenPos   int
	Entity     Expr
	Collection *PathExpression
	Not        bool
}

func (c *CollectionMemberExpression) nodeType() string { return "CollectionMemberExpression" }
func (c *CollectionMemberExpression) Pos() int         { return c.TokenPos }
func (c *CollectionMemberExpression) condNode()        {}

type ExistsExpression struct {
	TokenPos  int
	Subselect *Subselect
	Not       bool
}

func (e *ExistsExpression) nodeType() string { return "ExistsExpression" }
func (e *ExistsExpression) Pos() int         { return e.TokenPos }
func (e *ExistsExpression) condNode()        {}

// ── Expressions ─────────────────────────────────────────────────────────────

// QuantifiedExpression represents: ALL|ANY|SOME (subselect)
type QuantifiedExpression struct {
	TokenPos   int
	Quantifier string
	Subselect  *Subselect
}

func (q *QuantifiedExpression) nodeType() string { return "QuantifiedExpression" }
func (q *QuantifiedExpression) Pos() int         { return q.TokenPos }
func (q *QuantifiedExpression) exprNode()        {}

// ArithmeticExpression wraps a simple arithmetic expression or a Subselect.
type ArithmeticExpression struct {
	TokenPos int
	Expr     Expr
}

func (a *ArithmeticExpression) nodeType() string { return "ArithmeticExpression" }
func (a *ArithmeticExpression) Pos() int         { return a.TokenPos }
func (a *ArithmeticExpression) exprNode()        {}

// SimpleArithmeticExpression is a chain of terms joined by + and -.
// len(Operators) == len(Terms)-1.
type SimpleArithmeticExpression struct {
	TokenPos  int
	Terms     []Expr
	Operators []string
}

func (s *SimpleArithmeticExpression) nodeType() string { return "SimpleArithmeticExpression" }
func (s *SimpleArithmeticExpression) Pos() int         { return s.TokenPos }
func (s *SimpleArithmeticExpression) exprNode()        {}

// ArithmeticTerm is a chain of factors joined by * and /.
type ArithmeticTerm struct {
	TokenPos  int
	Factors   []Expr
	Operators []string
}

func (a *ArithmeticTerm) nodeType() string { return "ArithmeticTerm" }
func (a *ArithmeticTerm) Pos() int         { return a.TokenPos }
func (a *ArithmeticTerm) exprNode()        {}

// ArithmeticFactor is a signed primary.
type ArithmeticFactor struct {
	TokenPos int
	Primary  Expr
	Sign     string // "+" or "-"
}

func (a *ArithmeticFactor) nodeType() string { return "ArithmeticFactor" }
func (a *ArithmeticFactor) Pos() int         { return a.TokenPos }
func (a *ArithmeticFactor) exprNode()        {}

type ParenthesisExpression struct {
	TokenPos int
	Expr     Expr
}

func (p *ParenthesisExpression) nodeType() string { return "ParenthesisExpression" }
func (p *ParenthesisExpression) Pos() int         { return p.TokenPos }
func (p *ParenthesisExpression) exprNode()        {}

type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumeric
	LiteralBoolean
)

type Literal struct {
	TokenPos int
	Kind     LiteralKind
	Value    string
}

func (l *Literal) nodeType() string { return "Literal" }
func (l *Literal) Pos() int         { return l.TokenPos }
func (l *Literal) exprNode()        {}

// InputParameter is :name or ?N. Name has the prefix stripped.
type InputParameter struct {
	TokenPos   int
	Name       string
	Positional bool
}

func (i *InputParameter) nodeType() string { return "InputParameter" }
func (i *InputParameter) Pos() int         { return i.TokenPos }
func (i *InputParameter) exprNode()        {}

// PathType is a bitmask of the kinds a path expression can resolve to.
type PathType int

const (
	PathStateField                  PathType = 2
	PathSingleValuedAssociation     PathType = 4
	PathCollectionValuedAssociation PathType = 8
)

// PathExpression represents: alias[.field]. ExpectedType is the set of kinds
// allowed where it appears; Type is set by validation. Field is defaulted to
// the entity identifier when absent.
type PathExpression struct {
	TokenPos               int
	ExpectedType           PathType
	Type                   PathType
	IdentificationVariable string
	Field                  string
}

func (p *PathExpression) nodeType() string { return "PathExpression" }
func (p *PathExpression) Pos() int         { return p.TokenPos }
func (p *PathExpression) exprNode()        {}

type IdentificationVariable struct {
	TokenPos int
	Name     string
}

func (i *IdentificationVariable) nodeType() string { return "IdentificationVariable" }
func (i *IdentificationVariable) Pos() int         { return i.TokenPos }
func (i *IdentificationVariable) exprNode()        {}

type ResultVariable struct {
	TokenPos int
	Name     string
}

func (r *ResultVariable) nodeType() string { return "ResultVariable" }
func (r *ResultVariable) Pos() int         { return r.TokenPos }
func (r *ResultVariable) exprNode()        {}

// SchemaName is an entity name in INSTANCE OF.
type SchemaName struct {
	TokenPos int
	Name     string
}

func (s *SchemaName) nodeType() string { return "SchemaName" }
func (s *SchemaName) Pos() int         { return s.TokenPos }
func (s *SchemaName) exprNode()        {}

type AggregateExpression struct {
	TokenPos int
	Function string // AVG, MAX, MIN, SUM or COUNT
	Distinct bool
	Expr     Expr
}

func (a *AggregateExpression) nodeType() string { return "AggregateExpression" }
func (a *AggregateExpression) Pos() int         { return a.TokenPos }
func (a *AggregateExpression) exprNode()        {}

type GeneralCaseExpression struct {
	TokenPos int
	When     []*WhenClause
	Else     Expr
}

func (g *GeneralCaseExpression) nodeType() string { return "GeneralCaseExpression" }
func (g *GeneralCaseExpression) Pos() int         { return g.TokenPos }
func (g *GeneralCaseExpression) exprNode()        {}

type SimpleCaseExpression struct {
	TokenPos int
	Operand  *PathExpression
	When     []*SimpleWhenClause
	Else     Expr
}

func (s *SimpleCaseExpression) nodeType() string { return "SimpleCaseExpression" }
func (s *SimpleCaseExpression) Pos() int         { return s.TokenPos }
func (s *SimpleCaseExpression) exprNode()        {}

type WhenClause struct {
	TokenPos  int
	Condition Condition
	Result    Expr
}

func (w *WhenClause) nodeType() string { return "WhenClause" }
func (w *WhenClause) Pos() int         { return w.TokenPos }

type SimpleWhenClause struct {
	TokenPos int
	Value    Expr
	Result   Expr
}

func (s *SimpleWhenClause) nodeType() string { return "SimpleWhenClause" }
func (s *SimpleWhenClause) Pos() int         { return s.TokenPos }

type CoalesceExpression struct {
	TokenPos int
	Exprs    []Expr
}

func (c *CoalesceExpression) nodeType() string { return "CoalesceExpression" }
func (c *CoalesceExpression) Pos() int         { return c.TokenPos }
func (c *CoalesceExpression) exprNode()        {}

type NullIfExpression struct {
	TokenPos int
	First    Expr
	Second   Expr
}

func (n *NullIfExpression) nodeType() string { return "NullIfExpression" }
func (n *NullIfExpression) Pos() int         { return n.TokenPos }
func (n *NullIfExpression) exprNode()        {}

// PartialObjectExpression represents: PARTIAL alias.{field, ...}
type PartialObjectExpression struct {
	TokenPos               int
	IdentificationVariable string
	Fields                 []string
}

func (p *PartialObjectExpression) nodeType() string { return "PartialObjectExpression" }
func (p *PartialObjectExpression) Pos() int         { return p.TokenPos }
func (p *PartialObjectExpression) exprNode()        {}

// NewObjectExpression represents: NEW ClassName(arg, ...). ClassName is
// namespace-resolved during validation.
type NewObjectExpression struct {
	TokenPos  int
	ClassName string
	Args      []Expr
}

func (n *NewObjectExpression) nodeType() string { return "NewObjectExpression" }
func (n *NewObjectExpression) Pos() int         { return n.TokenPos }
func (n *NewObjectExpression) exprNode()        {}
