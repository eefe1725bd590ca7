package oql

import "strings"

// argKind names the production that parses one function argument.
type argKind int

const (
	argString      argKind = iota // StringPrimary
	argArithmetic                 // SimpleArithmeticExpression
	argPrimary                    // ArithmeticPrimary
	argCollection                 // CollectionValuedPathExpression
	argAssociation                // SingleValuedAssociationPathExpression
	argLiteral                    // string literal
)

// signature describes a built-in's argument list. With variadic set, the
// last required kind may repeat.
type signature struct {
	args     []argKind
	optional []argKind
	variadic bool
}

var builtinFunctions map[FunctionCategory]map[string]FunctionFactory

func init() {
	builtinFunctions = map[FunctionCategory]map[string]FunctionFactory{
		StringFunction: {
			"concat":    call(signature{args: []argKind{argString, argString}, variadic: true}),
			"substring": call(signature{args: []argKind{argString, argArithmetic}, optional: []argKind{argArithmetic}}),
			"trim":      newTrimFunction,
			"lower":     call(signature{args: []argKind{argString}}),
			"upper":     call(signature{args: []argKind{argString}}),
			"identity":  call(signature{args: []argKind{argAssociation}, optional: []argKind{argLiteral}}),
		},
		NumericFunction: {
			"length":    call(signature{args: []argKind{argString}}),
			"locate":    call(signature{args: []argKind{argString, argString}, optional: []argKind{argArithmetic}}),
			"abs":       call(signature{args: []argKind{argArithmetic}}),
			"sqrt":      call(signature{args: []argKind{argArithmetic}}),
			"mod":       call(signature{args: []argKind{argArithmetic, argArithmetic}}),
			"size":      call(signature{args: []argKind{argCollection}}),
			"date_diff": call(signature{args: []argKind{argPrimary, argPrimary}}),
			"bit_and":   call(signature{args: []argKind{argPrimary, argPrimary}}),
			"bit_or":    call(signature{args: []argKind{argPrimary, argPrimary}}),
		},
		DatetimeFunction: {
			"current_date":      call(signature{}),
			"current_time":      call(signature{}),
			"current_timestamp": call(signature{}),
			"date_add":          call(signature{args: []argKind{argPrimary, argPrimary, argString}}),
			"date_sub":          call(signature{args: []argKind{argPrimary, argPrimary, argString}}),
		},
	}
}

func call(sig signature) FunctionFactory {
	return func(_ string, category FunctionCategory) Function {
		return &FunctionCall{FunctionNode: FunctionNode{FunctionCat: category}, sig: sig}
	}
}

// FunctionCall is a built-in function with positional arguments.
type FunctionCall struct {
	FunctionNode
	Args []Expr

	sig signature
}

// Parse implements Function.
func (f *FunctionCall) Parse(p *Parser) error {
	if err := f.Open(p); err != nil {
		return err
	}
	for i, kind := range f.sig.args {
		if i > 0 {
			if err := p.Match(TokenComma); err != nil {
				return err
			}
		}
		if err := f.parseArg(p, kind); err != nil {
			return err
		}
	}
	if f.sig.variadic && len(f.sig.args) > 0 {
		last := f.sig.args[len(f.sig.args)-1]
		for p.skip(TokenComma) {
			if err := f.parseArg(p, last); err != nil {
				return err
			}
		}
	}
	for _, kind := range f.sig.optional {
		if !p.skip(TokenComma) {
			break
		}
		if err := f.parseArg(p, kind); err != nil {
			return err
		}
	}
	return p.Match(TokenCloseParenthesis)
}

func (f *FunctionCall) parseArg(p *Parser, kind argKind) error {
	var arg Expr
	var err error
	switch kind {
	case argString:
		arg, err = p.StringPrimary()
	case argArithmetic:
		arg, err = p.SimpleArithmeticExpression()
	case argPrimary:
		arg, err = p.ArithmeticPrimary()
	case argCollection:
		arg, err = p.CollectionValuedPathExpression()
	case argAssociation:
		arg, err = p.SingleValuedAssociationPathExpression()
	case argLiteral:
		if err := p.Match(TokenString); err != nil {
			return err
		}
		tok := p.stream.Token
		arg = &Literal{TokenPos: tok.Pos, Kind: LiteralString, Value: tok.Value}
	}
	if err != nil {
		return err
	}
	f.Args = append(f.Args, arg)
	return nil
}

// Format implements Function.
func (f *FunctionCall) Format(pr *Printer) string {
	return f.FunctionName + "(" + pr.list(f.Args) + ")"
}

// TrimMode selects which end TRIM strips.
type TrimMode int

const (
	TrimDefault TrimMode = iota
	TrimLeading
	TrimTrailing
	TrimBoth
)

func (m TrimMode) String() string {
	switch m {
	case TrimLeading:
		return "LEADING"
	case TrimTrailing:
		return "TRAILING"
	case TrimBoth:
		return "BOTH"
	}
	return ""
}

// TrimFunction is TRIM([[LEADING | TRAILING | BOTH] [char] FROM] StringPrimary).
type TrimFunction struct {
	FunctionNode
	Mode TrimMode
	Char *Literal
	Expr Expr
}

func newTrimFunction(_ string, category FunctionCategory) Function {
	return &TrimFunction{FunctionNode: FunctionNode{FunctionCat: category}}
}

// Parse implements Function.
func (f *TrimFunction) Parse(p *Parser) error {
	if err := f.Open(p); err != nil {
		return err
	}
	switch {
	case p.skip(TokenLeading):
		f.Mode = TrimLeading
	case p.skip(TokenTrailing):
		f.Mode = TrimTrailing
	case p.skip(TokenBoth):
		f.Mode = TrimBoth
	}
	// A string is the trim character only when FROM follows; otherwise it
	// is the operand.
	if p.stream.IsNextToken(TokenString) && p.stream.Glimpse().Type == TokenFrom {
		p.stream.MoveNext()
		tok := p.stream.Token
		f.Char = &Literal{TokenPos: tok.Pos, Kind: LiteralString, Value: tok.Value}
	}
	if f.Mode != TrimDefault || f.Char != nil {
		if err := p.Match(TokenFrom); err != nil {
			return err
		}
	}
	var err error
	if f.Expr, err = p.StringPrimary(); err != nil {
		return err
	}
	return p.Match(TokenCloseParenthesis)
}

// Format implements Function.
func (f *TrimFunction) Format(pr *Printer) string {
	var parts []string
	if f.Mode != TrimDefault {
		parts = append(parts, f.Mode.String())
	}
	if f.Char != nil {
		parts = append(parts, pr.Format(f.Char))
	}
	if len(parts) > 0 {
		parts = append(parts, "FROM")
	}
	parts = append(parts, pr.Format(f.Expr))
	return f.FunctionName + "(" + strings.Join(parts, " ") + ")"
}
