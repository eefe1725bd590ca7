package oql

import (
	"errors"
	"fmt"
	"strings"
)

// nearDistance is the minimum number of characters shown after the token
// position in a semantic error excerpt.
const nearDistance = 12

// SyntaxError is raised when the token stream does not fit the grammar.
type SyntaxError struct {
	Message  string // full formatted message
	Expected string // "" for unexpected-token errors
	Got      Token
	Query    string
}

func (e *SyntaxError) Error() string { return e.Message }

// SemanticError is raised when a structurally valid query refers to
// something that does not exist or is used in the wrong place.
type SemanticError struct {
	Message    string // full formatted message
	Reason     string // message without the position prefix
	Near       string
	Pos        int
	Suggestion string // "did you mean 'age'?" or ""
	Query      string
}

func (e *SemanticError) Error() string { return e.Message }

// IsSyntaxError reports whether err wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsSemanticError reports whether err wraps a *SemanticError.
func IsSemanticError(err error) bool {
	var se *SemanticError
	return errors.As(err, &se)
}

// newSyntaxError formats "line 0, col <pos>: Error: Expected <expected>, got
// '<value>'". At the end of input the got part reads "end of string.".
func newSyntaxError(query, expected string, tok Token) *SyntaxError {
	var b strings.Builder
	fmt.Fprintf(&b, "line 0, col %d: Error: ", tok.Pos)
	if expected != "" {
		fmt.Fprintf(&b, "Expected %s, got ", expected)
	} else {
		b.WriteString("Unexpected ")
	}
	if tok.IsEOF() {
		b.WriteString("end of string.")
	} else {
		fmt.Fprintf(&b, "'%s'", tok.Value)
	}
	return &SyntaxError{Message: b.String(), Expected: expected, Got: tok, Query: query}
}

// newSemanticError formats "line 0, col <pos> near '<excerpt>': Error:
// <message>".
func newSemanticError(query, msg string, tok Token) *SemanticError {
	near := excerpt(query, tok.Pos)
	return &SemanticError{
		Message: fmt.Sprintf("line 0, col %d near '%s': Error: %s", tok.Pos, near, msg),
		Reason:  msg,
		Near:    near,
		Pos:     tok.Pos,
		Query:   query,
	}
}

// excerpt returns the query text from pos up to the first space found at
// least nearDistance characters later, or nearDistance characters when no
// such space exists, clipped to the query length.
func excerpt(query string, pos int) string {
	if pos < 0 || pos >= len(query) {
		return ""
	}
	from := min(pos+nearDistance, len(query))
	end := pos + nearDistance
	if i := strings.IndexByte(query[from:], ' '); i >= 0 {
		end = from + i
	}
	return query[pos:min(end, len(query))]
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr := make([]int, lb+1)
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[lb]
}

// SuggestFrom finds the closest match from candidates within a maximum
// edit distance. Returns "" if no good match is found.
func SuggestFrom(input string, candidates []string, maxDist int) string {
	best := ""
	bestDist := maxDist + 1
	for _, c := range candidates {
		d := Levenshtein(strings.ToLower(input), strings.ToLower(c))
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist <= maxDist {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}
