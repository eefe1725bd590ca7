package oql

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidParameters is wrapped by errors from Result.CheckParameters.
var ErrInvalidParameters = errors.New("invalid parameters")

// ParameterError reports a mismatch between the query's input parameters
// and the values bound to them.
type ParameterError struct {
	Message string
}

func (e *ParameterError) Error() string { return e.Message }
func (e *ParameterError) Unwrap() error { return ErrInvalidParameters }

// Result is a validated statement together with what the parser learned
// about it.
type Result struct {
	Statement  Statement
	Components *ComponentTable

	// Parameters maps each input parameter name (":name" and "?1" stored as
	// "name" and "1") to the byte offsets where it occurs, in parse order.
	Parameters map[string][]int

	TreeWalkers  []string
	OutputWalker string
}

func (p *Parser) result(stmt Statement) *Result {
	r := &Result{
		Statement:  stmt,
		Components: p.components,
		Parameters: make(map[string][]int),
	}
	for _, param := range p.parameters {
		r.Parameters[param.Name] = append(r.Parameters[param.Name], param.TokenPos)
	}

	switch v := p.query.Hints[HintCustomTreeWalkers].(type) {
	case []string:
		r.TreeWalkers = append(r.TreeWalkers, v...)
	case string:
		r.TreeWalkers = []string{v}
	}
	if v, ok := p.query.Hints[HintCustomOutputWalker].(string); ok {
		r.OutputWalker = v
	}
	return r
}

// ParameterNames returns the distinct parameter names, sorted.
func (r *Result) ParameterNames() []string {
	names := make([]string, 0, len(r.Parameters))
	for n := range r.Parameters {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CheckParameters verifies that bound supplies exactly the parameters the
// query uses. Keys may carry the ":" or "?" prefix.
func (r *Result) CheckParameters(bound map[string]any) error {
	given := make(map[string]bool, len(bound))
	for k := range bound {
		given[strings.TrimLeft(k, ":?")] = true
	}

	for _, name := range r.ParameterNames() {
		if !given[name] {
			return &ParameterError{Message: fmt.Sprintf(
				"Too few parameters: the query defines %d parameters but you only bound %d.",
				len(r.Parameters), len(bound))}
		}
	}

	extra := make([]string, 0)
	for k := range given {
		if _, ok := r.Parameters[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return &ParameterError{Message: fmt.Sprintf(
			"Invalid parameter: token %s is not defined in the query.", extra[0])}
	}
	return nil
}
