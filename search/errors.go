package search

import "fmt"

// QueryParserError is a syntax error at a specific character position in
// the raw query string, the one error kind the parser raises and
// suppress mode catches.
type QueryParserError struct {
	Pos int
	Msg string
}

func (e *QueryParserError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("Syntax error at char position %d.", e.Pos)
}

// newSyntaxError builds a QueryParserError at a lexeme's 0-based rune
// offset, reported 1-based to match this format's char-position
// convention.
func newSyntaxError(zeroIndexedPos int) error {
	pos := zeroIndexedPos + 1
	return &QueryParserError{Pos: pos, Msg: fmt.Sprintf("Syntax error at char position %d.", pos)}
}
