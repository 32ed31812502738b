package search

import (
	"regexp"
	"strings"
)

// Rewrite turns q into a primitive-only tree executable against idx:
// field-null terms/phrases expand into a union across every indexed
// field, wildcard/fuzzy/range patterns expand into a concrete union of
// matching terms, and boolean/boosted wrappers recurse into their
// children. cfg supplies the wildcard/fuzzy expansion knobs threaded
// down from the orchestrator's construction-time configuration.
func Rewrite(q Query, idx Index, cfg Config) (Query, error) {
	switch t := q.(type) {
	case *TermQuery:
		return rewriteTerm(t, idx, cfg)
	case *PhraseQuery:
		return rewritePhrase(t, idx)
	case *RangeQuery:
		return rewriteRange(t, idx)
	case *WildcardQuery:
		return rewriteWildcard(t, idx, cfg)
	case *FuzzyQuery:
		return rewriteFuzzy(t, idx)
	case *BooleanQuery:
		out := &BooleanQuery{}
		for _, c := range t.Clauses {
			rw, err := Rewrite(c.Query, idx, cfg)
			if err != nil {
				return nil, err
			}
			out.Clauses = append(out.Clauses, BooleanClause{Query: rw, Sign: c.Sign})
		}
		return out, nil
	case *BoostedQuery:
		inner, err := Rewrite(t.Inner, idx, cfg)
		if err != nil {
			return nil, err
		}
		return &BoostedQuery{Inner: inner, Boost: t.Boost}, nil
	case *FieldUnionQuery:
		var children []Query
		for _, c := range t.Children {
			rw, err := Rewrite(c, idx, cfg)
			if err != nil {
				return nil, err
			}
			children = append(children, rw)
		}
		return &FieldUnionQuery{Children: children}, nil
	default:
		// InsignificantQuery/EmptyResultQuery rewrite to themselves.
		return q, nil
	}
}

func containsWildcardChars(s string) bool { return strings.ContainsAny(s, "*?") }

func rewriteTerm(t *TermQuery, idx Index, cfg Config) (Query, error) {
	if t.Field == "" {
		var children []Query
		for _, f := range idx.FieldNames() {
			rw, err := rewriteTerm(&TermQuery{Field: f, Text: t.Text}, idx, cfg)
			if err != nil {
				return nil, err
			}
			children = append(children, rw)
		}
		return &FieldUnionQuery{Children: children}, nil
	}
	ok, err := idx.HasTerm(t.Field, t.Text)
	if err != nil {
		return nil, err
	}
	if ok {
		return &TermQuery{Field: t.Field, Text: t.Text}, nil
	}
	if containsWildcardChars(t.Text) {
		return rewriteWildcard(&WildcardQuery{Field: t.Field, Pattern: t.Text}, idx, cfg)
	}
	toks := idx.Analyze(t.Field, t.Text)
	switch len(toks) {
	case 0:
		return InsignificantQuery{}, nil
	case 1:
		return &TermQuery{Field: t.Field, Text: toks[0]}, nil
	default:
		bq := &BooleanQuery{}
		for _, tok := range toks {
			bq.Clauses = append(bq.Clauses, BooleanClause{Query: &TermQuery{Field: t.Field, Text: tok}, Sign: SignMust})
		}
		return bq, nil
	}
}

func rewritePhrase(ph *PhraseQuery, idx Index) (Query, error) {
	if ph.Field == "" {
		var children []Query
		for _, f := range idx.FieldNames() {
			rw, err := rewritePhrase(&PhraseQuery{Field: f, Terms: ph.Terms, Slop: ph.Slop}, idx)
			if err != nil {
				return nil, err
			}
			children = append(children, rw)
		}
		return &FieldUnionQuery{Children: children}, nil
	}
	var toks []string
	for _, term := range ph.Terms {
		toks = append(toks, idx.Analyze(ph.Field, term)...)
	}
	if len(toks) == 0 {
		return InsignificantQuery{}, nil
	}
	for _, tok := range toks {
		df, err := idx.DocFreq(ph.Field, tok)
		if err != nil {
			return nil, err
		}
		if df == 0 {
			return EmptyResultQuery{}, nil
		}
	}
	return &PhraseQuery{Field: ph.Field, Terms: toks, Slop: ph.Slop}, nil
}

func rewriteRange(r *RangeQuery, idx Index) (Query, error) {
	if r.Field == "" {
		return nil, &QueryParserError{Msg: "Range query requires a field."}
	}
	lowToks := idx.Analyze(r.Field, r.Low)
	highToks := idx.Analyze(r.Field, r.High)
	if len(lowToks) != 1 || len(highToks) != 1 {
		return nil, &QueryParserError{Msg: "Range boundary must be a single token."}
	}
	low, high := lowToks[0], highToks[0]

	cur, err := idx.Terms()
	if err != nil {
		return nil, err
	}
	bq := &BooleanQuery{}
	f, text, ok, err := cur.SkipTo(r.Field, low)
	for ok && err == nil && f == r.Field {
		withinLow := text > low || (r.Inclusive && text == low)
		withinHigh := text < high || (r.Inclusive && text == high)
		if !withinHigh {
			break
		}
		if withinLow {
			bq.Clauses = append(bq.Clauses, BooleanClause{Query: &TermQuery{Field: r.Field, Text: text}, Sign: SignShould})
		}
		f, text, ok, err = cur.Next()
	}
	if err != nil {
		return nil, err
	}
	return bq, nil
}

func rewriteWildcard(w *WildcardQuery, idx Index, cfg Config) (Query, error) {
	re, err := wildcardRegexp(w.Pattern)
	if err != nil {
		return nil, &QueryParserError{Msg: "Invalid wildcard pattern: " + err.Error()}
	}
	prefix := wildcardPrefix(w.Pattern)
	if len(prefix) < cfg.WildcardMinPrefix {
		// Too short a literal prefix to narrow the scan usefully —
		// fall back to scanning the whole field from its first term.
		prefix = ""
	}
	cur, err := idx.Terms()
	if err != nil {
		return nil, err
	}
	f, text, ok, err := cur.SkipTo(w.Field, prefix)
	bq := &BooleanQuery{}
	for ok && err == nil && f == w.Field && strings.HasPrefix(text, prefix) {
		if re.MatchString(text) {
			bq.Clauses = append(bq.Clauses, BooleanClause{Query: &TermQuery{Field: w.Field, Text: text}, Sign: SignShould})
		}
		f, text, ok, err = cur.Next()
	}
	if err != nil {
		return nil, err
	}
	return bq, nil
}

func wildcardPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

func wildcardRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}

func rewriteFuzzy(fq *FuzzyQuery, idx Index) (Query, error) {
	prefix := ""
	if fq.PrefixLength > 0 && fq.PrefixLength < len(fq.Text) {
		prefix = fq.Text[:fq.PrefixLength]
	}
	cur, err := idx.Terms()
	if err != nil {
		return nil, err
	}
	f, text, ok, err := cur.SkipTo(fq.Field, prefix)
	bq := &BooleanQuery{}
	for ok && err == nil && f == fq.Field && strings.HasPrefix(text, prefix) {
		sim := levenshteinSimilarity(fq.Text, text)
		if sim >= fq.MinSimilarity {
			bq.Clauses = append(bq.Clauses, BooleanClause{
				Query: &BoostedQuery{Inner: &TermQuery{Field: fq.Field, Text: text}, Boost: sim},
				Sign:  SignShould,
			})
		}
		f, text, ok, err = cur.Next()
	}
	if err != nil {
		return nil, err
	}
	return bq, nil
}

func levenshteinSimilarity(a, b string) float32 {
	d := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float32(d)/float32(maxLen)
}

// levenshtein is the classic two-row edit-distance dynamic program,
// over runes so multi-byte text compares correctly.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n, m := len(ar), len(br)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		cur[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del, ins, sub := prev[j]+1, cur[j-1]+1, prev[j-1]+cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	return prev[m]
}
