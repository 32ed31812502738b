package search

import "strconv"

// Sign is a boolean clause's participation requirement.
type Sign int

const (
	SignShould Sign = iota // optional: contributes to score, never required
	SignMust                // required: a non-match zeroes the whole group
	SignMustNot             // prohibited: a match zeroes the whole group
)

func (s Sign) String() string {
	switch s {
	case SignMust:
		return "+"
	case SignMustNot:
		return "-"
	default:
		return ""
	}
}

// Query is the marker interface every AST node implements. Rewrite,
// Optimize and Execute are free functions operating by type switch
// (rewrite.go, optimize.go, execute.go) rather than methods, since most
// node types need only a subset of the three passes and a closure-based
// per-node virtual dispatch field (the teacher's style) is exactly the
// non-idiomatic pattern this port replaces with plain data and explicit
// functions.
type Query interface {
	String() string
}

// TermQuery is a single (field, text) term. Field == "" before rewrite
// means the parser saw no "field:" prefix and no default field was
// configured; Rewrite expands that case into a FieldUnionQuery.
type TermQuery struct {
	Field string
	Text  string
}

func (q *TermQuery) String() string {
	if q.Field == "" {
		return q.Text
	}
	return q.Field + ":" + q.Text
}

// PhraseQuery matches an ordered (or, with Slop > 0, loosely ordered)
// run of terms in one field.
type PhraseQuery struct {
	Field string
	Terms []string
	Slop  int
}

func (q *PhraseQuery) String() string {
	s := `"` + joinSpace(q.Terms) + `"`
	if q.Field != "" {
		s = q.Field + ":" + s
	}
	if q.Slop > 0 {
		s += "~" + strconv.Itoa(q.Slop)
	}
	return s
}

// RangeQuery is raw, pre-rewrite syntax: Rewrite always replaces it with
// a BooleanQuery union of the terms found between Low and High.
type RangeQuery struct {
	Field     string
	Low, High string
	Inclusive bool
}

func (q *RangeQuery) String() string {
	open, close := "{", "}"
	if q.Inclusive {
		open, close = "[", "]"
	}
	s := open + q.Low + " TO " + q.High + close
	if q.Field != "" {
		s = q.Field + ":" + s
	}
	return s
}

// WildcardQuery is a transient node: Term.Rewrite builds one the moment
// it detects '*' or '?' in the term text, and the returned node's own
// Rewrite immediately expands it into a BooleanQuery of matching terms.
type WildcardQuery struct {
	Field, Pattern string
}

func (q *WildcardQuery) String() string { return q.Field + ":" + q.Pattern }

// FuzzyQuery is a transient node built when the lexer sees WORD '~'
// optionally followed by a similarity NUMBER.
type FuzzyQuery struct {
	Field, Text   string
	MinSimilarity float32
	PrefixLength  int
}

func (q *FuzzyQuery) String() string {
	s := q.Field + ":" + q.Text + "~"
	if q.MinSimilarity != 0.5 {
		s += formatNumber(q.MinSimilarity)
	}
	return s
}

// BooleanClause pairs a sub-query with its participation requirement.
type BooleanClause struct {
	Query Query
	Sign  Sign
}

// BooleanQuery combines clauses built either by the parser (explicit
// AND/OR/+/-/subqueries) or by rewrite (term/phrase field-expansion
// lands in FieldUnionQuery instead; range/wildcard/fuzzy expansion lands
// here as a flat union or required-all group).
type BooleanQuery struct {
	Clauses []BooleanClause
}

func (q *BooleanQuery) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		parts[i] = c.Sign.String() + "(" + c.Query.String() + ")"
	}
	return joinSpace(parts)
}

// FieldUnionQuery is the flat alternative list a field-null Term or
// Phrase expands into: one sub-query per indexed field, rendered
// without the parens/sign a BooleanClause would add, since the fields
// are alternatives of the very same query rather than independent
// clauses.
type FieldUnionQuery struct {
	Children []Query
}

func (q *FieldUnionQuery) String() string {
	parts := make([]string, len(q.Children))
	for i, c := range q.Children {
		parts[i] = c.String()
	}
	return joinSpace(parts)
}

// BoostedQuery multiplies Inner's score contribution by Boost and
// parenthesizes Inner's own text in its String() form. Produced when
// the parser sees '^' NUMBER following a clause; Optimize collapses
// nested BoostedQuery wrappers by multiplying boosts together.
type BoostedQuery struct {
	Inner Query
	Boost float32
}

func (q *BoostedQuery) String() string {
	return "(" + q.Inner.String() + ")^" + formatNumber(q.Boost)
}

// InsignificantQuery is the rewrite result for a term the analyzer
// reduced to zero tokens (e.g. an all-stopword term): matches nothing,
// contributes no error.
type InsignificantQuery struct{}

func (InsignificantQuery) String() string { return "" }

// EmptyResultQuery is the rewrite/optimize result once a subtree is
// statically known to match nothing (a phrase with any token of zero
// document frequency, a required EmptyResult group, ...).
type EmptyResultQuery struct{}

func (EmptyResultQuery) String() string { return "<EmptyQuery>" }

func joinSpace(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

func formatNumber(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
