package oql

import (
	"fmt"
	"slices"
	"strings"
)

// FunctionCategory is the kind of value a function returns. Custom
// functions are registered per category.
type FunctionCategory int

const (
	StringFunction FunctionCategory = iota
	NumericFunction
	DatetimeFunction
)

var functionCategories = []FunctionCategory{StringFunction, NumericFunction, DatetimeFunction}

func (c FunctionCategory) String() string {
	switch c {
	case StringFunction:
		return "string"
	case NumericFunction:
		return "numeric"
	case DatetimeFunction:
		return "datetime"
	}
	return fmt.Sprintf("FunctionCategory(%d)", int(c))
}

// ParseFunctionCategory maps "string", "numeric" or "datetime" to a category.
func ParseFunctionCategory(s string) (FunctionCategory, error) {
	for _, c := range functionCategories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("oql: unknown function category %q", s)
}

// Function is a function-call node. The parser positions the stream on the
// function name and calls Parse, which consumes everything up to and
// including the closing parenthesis using the parser's productions.
type Function interface {
	Expr
	Name() string
	Category() FunctionCategory
	Parse(p *Parser) error
	Format(pr *Printer) string
}

// FunctionFactory returns an empty function node for the lower-cased name.
type FunctionFactory func(name string, category FunctionCategory) Function

// FunctionNode carries the parts common to every function node. Custom
// functions embed it to satisfy Function.
type FunctionNode struct {
	TokenPos     int
	FunctionName string // upper-cased
	FunctionCat  FunctionCategory
}

func (f *FunctionNode) nodeType() string { return "Function" }
func (f *FunctionNode) Pos() int         { return f.TokenPos }
func (f *FunctionNode) exprNode()        {}

// Name returns the upper-cased function name.
func (f *FunctionNode) Name() string { return f.FunctionName }

// Category returns the function's return category.
func (f *FunctionNode) Category() FunctionCategory { return f.FunctionCat }

// Open consumes the function name and the opening parenthesis.
func (f *FunctionNode) Open(p *Parser) error {
	f.TokenPos = p.stream.Lookahead.Pos
	f.FunctionName = strings.ToUpper(p.stream.Lookahead.Value)
	if err := p.Match(TokenIdentifier); err != nil {
		return err
	}
	return p.Match(TokenOpenParenthesis)
}

// FunctionDeclaration ::= FunctionsReturningStrings | FunctionsReturningNumerics | FunctionsReturningDatetime
//
// Functions the provider registers win over built-ins of the same name.
func (p *Parser) FunctionDeclaration() (Function, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.stream.Lookahead
	name := strings.ToLower(tok.Value)
	factory, category, ok := p.lookupFunction(name)
	if !ok {
		return nil, p.SyntaxErrorAt("known function", tok)
	}
	fn := factory(name, category)
	if err := fn.Parse(p); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) lookupFunction(name string) (FunctionFactory, FunctionCategory, bool) {
	if p.metadata != nil {
		for _, c := range functionCategories {
			if f, ok := p.metadata.CustomFunction(name, c); ok {
				return f, c, true
			}
		}
	}
	for _, c := range functionCategories {
		if f, ok := builtinFunctions[c][name]; ok {
			return f, c, true
		}
	}
	return nil, 0, false
}

// BuiltinFunctions returns the upper-cased built-in function names of a
// category, sorted.
func BuiltinFunctions(c FunctionCategory) []string {
	names := make([]string, 0, len(builtinFunctions[c]))
	for n := range builtinFunctions[c] {
		names = append(names, strings.ToUpper(n))
	}
	slices.Sort(names)
	return names
}

// GenericFunction is a host-defined function taking scalar arguments.
type GenericFunction struct {
	FunctionNode
	MinArgs int
	MaxArgs int // -1 for no limit
	Args    []Expr
}

// GenericFunctionFactory returns a factory for functions whose arguments are
// all ScalarExpressions, with the count checked against min and max.
func GenericFunctionFactory(minArgs, maxArgs int) FunctionFactory {
	return func(_ string, category FunctionCategory) Function {
		return &GenericFunction{
			FunctionNode: FunctionNode{FunctionCat: category},
			MinArgs:      minArgs,
			MaxArgs:      maxArgs,
		}
	}
}

// Parse implements Function.
func (f *GenericFunction) Parse(p *Parser) error {
	nameTok := p.stream.Lookahead
	if err := f.Open(p); err != nil {
		return err
	}
	if !p.stream.IsNextToken(TokenCloseParenthesis) {
		for {
			arg, err := p.ScalarExpression()
			if err != nil {
				return err
			}
			f.Args = append(f.Args, arg)
			if !p.skip(TokenComma) {
				break
			}
		}
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return err
	}

	n := len(f.Args)
	if n < f.MinArgs || (f.MaxArgs >= 0 && n > f.MaxArgs) {
		want := fmt.Sprintf("at least %d", f.MinArgs)
		switch {
		case f.MaxArgs == f.MinArgs:
			want = fmt.Sprintf("%d", f.MinArgs)
		case f.MaxArgs >= 0:
			want = fmt.Sprintf("%d to %d", f.MinArgs, f.MaxArgs)
		}
		return p.semanticErrorf(nameTok, "Function %s expects %s arguments, %d given.", f.FunctionName, want, n)
	}
	return nil
}

// Format implements Function.
func (f *GenericFunction) Format(pr *Printer) string {
	return f.FunctionName + "(" + pr.list(f.Args) + ")"
}
