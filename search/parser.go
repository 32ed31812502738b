package search

import (
	"strconv"
	"strings"

	"github.com/gosegment/lucene2x/analysis"
)

// connKind is the boolean connective token, if any, that immediately
// preceded a clause — used after every clause has been parsed to
// resolve the signs left implicit by the input.
type connKind int

const (
	connNone connKind = iota
	connAnd
	connOr
)

// rangeState is the CLOSED_RQ_*/OPENED_RQ_* half of the 11-state
// machine this format's syntax describes: COMMON (the clause loop in
// parseClauseList) plus one 5-state walk per bracket kind. Table-driven
// via the switch below rather than a map of closures, since every
// transition here also needs to stash the just-read term text — a
// closure table would just relocate that state into captured
// variables.
type rangeState int

const (
	rqStart rangeState = iota
	rqFirstTerm
	rqToTerm
	rqLastTerm
	rqEnd
)

type parser struct {
	lex *lexer
	cfg Config
	cur lexeme
}

func newParser(s string, cfg Config) (*parser, error) {
	p := &parser{lex: newLexer(s), cfg: cfg}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	lx, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = lx
	return nil
}

// Parse builds the executable query tree for raw. On a syntax error,
// when cfg.Suppress is set (the default) it falls back to a plain
// MultiTerm built by re-tokenizing raw with the plain word-splitting
// analyzer, rather than propagating the error.
func Parse(raw string, cfg Config) (Query, error) {
	q, err := parseStrict(raw, cfg)
	if err == nil {
		if cfg.DefaultField != "" {
			applyFieldScope(q, cfg.DefaultField)
		}
		return q, nil
	}
	if _, ok := err.(*QueryParserError); !ok || !cfg.Suppress {
		return nil, err
	}
	return fallbackQuery(raw, cfg), nil
}

func parseStrict(raw string, cfg Config) (Query, error) {
	p, err := newParser(raw, cfg)
	if err != nil {
		return nil, err
	}
	return p.parseClauseList(false)
}

// fallbackQuery is the suppress-mode safety net: re-tokenize with the
// plain letter-run analyzer (no stop-word removal — the fallback exists
// precisely so syntax noise like stray brackets still searches on every
// surviving word) and build an all-clauses MultiTerm signed per the
// configured default operator.
func fallbackQuery(raw string, cfg Config) Query {
	sign := SignShould
	if cfg.DefaultOperator == OpAND {
		sign = SignMust
	}
	toks := (analysis.SimpleAnalyzer{}).Analyze(cfg.DefaultField, raw)
	bq := &BooleanQuery{}
	for _, t := range toks {
		bq.Clauses = append(bq.Clauses, BooleanClause{
			Query: &TermQuery{Field: cfg.DefaultField, Text: t.Text},
			Sign:  sign,
		})
	}
	return bq
}

// parseClauseList is the COMMON state: it self-loops over clauses and
// AND/OR connectives until EOF (top level) or a matching ')' (a
// subquery), then resolves every clause's implicit sign from its
// neighboring connectives.
func (p *parser) parseClauseList(stopAtParen bool) (*BooleanQuery, error) {
	var queries []Query
	var signs []Sign
	var hasSign []bool
	var before []connKind

	pendingConn := connNone
	for {
		if p.cur.kind == lexEOF {
			break
		}
		if stopAtParen && p.cur.kind == lexSubqEnd {
			break
		}
		if p.cur.kind == lexAnd || p.cur.kind == lexOr {
			if len(queries) == 0 {
				return nil, newSyntaxError(p.cur.pos)
			}
			if p.cur.kind == lexAnd {
				pendingConn = connAnd
			} else {
				pendingConn = connOr
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		q, sign, ok, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
		signs = append(signs, sign)
		hasSign = append(hasSign, ok)
		before = append(before, pendingConn)
		pendingConn = connNone
	}
	if stopAtParen {
		if p.cur.kind != lexSubqEnd {
			return nil, newSyntaxError(p.cur.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	bq := &BooleanQuery{}
	n := len(queries)
	for i := 0; i < n; i++ {
		sign := signs[i]
		if !hasSign[i] {
			sign = p.resolveSign(i, n, before)
		}
		bq.Clauses = append(bq.Clauses, BooleanClause{Query: queries[i], Sign: sign})
	}
	return bq, nil
}

// resolveSign implements logicalOperator: a clause touching an AND on
// either side becomes required; failing that, one touching an OR
// becomes optional; failing that, the configured default operator
// applies.
func (p *parser) resolveSign(i, n int, before []connKind) Sign {
	and := before[i] == connAnd || (i+1 < n && before[i+1] == connAnd)
	or := before[i] == connOr || (i+1 < n && before[i+1] == connOr)
	switch {
	case and:
		return SignMust
	case or:
		return SignShould
	case p.cfg.DefaultOperator == OpAND:
		return SignMust
	default:
		return SignShould
	}
}

// parseClause consumes one optional sign (setSign), one optional field
// prefix (setField), one primary, and any trailing fuzzy/slop/boost
// modifiers.
func (p *parser) parseClause() (Query, Sign, bool, error) {
	sign := SignShould
	hasSign := false
	switch p.cur.kind {
	case lexRequired:
		sign, hasSign = SignMust, true
		if err := p.advance(); err != nil {
			return nil, 0, false, err
		}
	case lexProhibited:
		sign, hasSign = SignMustNot, true
		if err := p.advance(); err != nil {
			return nil, 0, false, err
		}
	case lexNot:
		sign, hasSign = SignMustNot, true
		if err := p.advance(); err != nil {
			return nil, 0, false, err
		}
	}

	field := ""
	if p.cur.kind == lexField {
		field = p.cur.text
		if err := p.advance(); err != nil {
			return nil, 0, false, err
		}
	}

	q, err := p.parsePrimary(field)
	if err != nil {
		return nil, 0, false, err
	}
	q, err = p.parseModifiers(q)
	if err != nil {
		return nil, 0, false, err
	}
	return q, sign, hasSign, nil
}

func (p *parser) parsePrimary(field string) (Query, error) {
	switch p.cur.kind {
	case lexWord, lexNumber:
		text := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &TermQuery{Field: field, Text: text}, nil
	case lexPhrase:
		text := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &PhraseQuery{Field: field, Terms: strings.Fields(text)}, nil
	case lexRangeInclStart:
		if err := p.advance(); err != nil {
			return nil, err
		}
		rq, err := p.parseRange(true)
		if err != nil {
			return nil, err
		}
		rq.Field = field
		return rq, nil
	case lexRangeExclStart:
		if err := p.advance(); err != nil {
			return nil, err
		}
		rq, err := p.parseRange(false)
		if err != nil {
			return nil, err
		}
		rq.Field = field
		return rq, nil
	case lexSubqStart:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseClauseList(true)
		if err != nil {
			return nil, err
		}
		if field != "" {
			applyFieldScope(inner, field)
		}
		return inner, nil
	}
	return nil, newSyntaxError(p.cur.pos)
}

// parseRange walks the CLOSED_RQ_*/OPENED_RQ_* states explicitly:
// START wants the low term, FIRST_TERM wants TO, TO_TERM wants the high
// term, LAST_TERM wants the bracket matching the one that opened this
// range — a mismatch (e.g. this format opened with '[' but closed with
// '}') is a syntax error at the mismatched token's position.
func (p *parser) parseRange(inclusive bool) (*RangeQuery, error) {
	state := rqStart
	var low, high string
	for state != rqEnd {
		switch state {
		case rqStart:
			if p.cur.kind != lexWord && p.cur.kind != lexNumber {
				return nil, newSyntaxError(p.cur.pos)
			}
			low = p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			state = rqFirstTerm
		case rqFirstTerm:
			if p.cur.kind != lexTo {
				return nil, newSyntaxError(p.cur.pos)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			state = rqToTerm
		case rqToTerm:
			if p.cur.kind != lexWord && p.cur.kind != lexNumber {
				return nil, newSyntaxError(p.cur.pos)
			}
			high = p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			state = rqLastTerm
		case rqLastTerm:
			want := lexRangeInclEnd
			if !inclusive {
				want = lexRangeExclEnd
			}
			if p.cur.kind != want {
				return nil, newSyntaxError(p.cur.pos)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			state = rqEnd
		}
	}
	return &RangeQuery{Low: low, High: high, Inclusive: inclusive}, nil
}

// parseModifiers consumes processFuzzyProximityModifier ('~' plus an
// optional NUMBER, meaning fuzzy on a term or slop on a phrase) and
// processModifierParameter ('^' plus a mandatory NUMBER, boosting
// whatever clause precedes it).
func (p *parser) parseModifiers(q Query) (Query, error) {
	if p.cur.kind == lexFuzzyProx {
		pos := p.cur.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		var num float64
		hasNumber := false
		if p.cur.kind == lexNumber {
			var err error
			num, err = strconv.ParseFloat(p.cur.text, 32)
			if err != nil {
				return nil, newSyntaxError(p.cur.pos)
			}
			hasNumber = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		switch t := q.(type) {
		case *TermQuery:
			sim := p.cfg.FuzzyMinSimilarity
			if hasNumber {
				sim = float32(num)
			}
			q = &FuzzyQuery{Field: t.Field, Text: t.Text, MinSimilarity: sim, PrefixLength: p.cfg.FuzzyPrefixLength}
		case *PhraseQuery:
			slop := 0
			if hasNumber {
				slop = int(num)
			}
			t.Slop = slop
		default:
			return nil, newSyntaxError(pos)
		}
	}
	if p.cur.kind == lexBoost {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != lexNumber {
			return nil, newSyntaxError(p.cur.pos)
		}
		num, err := strconv.ParseFloat(p.cur.text, 32)
		if err != nil {
			return nil, newSyntaxError(p.cur.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		q = &BoostedQuery{Inner: q, Boost: float32(num)}
	}
	return q, nil
}

// applyFieldScope is subqueryStart/subqueryEnd's field-inheritance
// half: "field:(a b c)" sets every inner clause lacking its own field
// prefix to field, without overriding one a nested clause set itself.
func applyFieldScope(q Query, field string) {
	switch t := q.(type) {
	case *TermQuery:
		if t.Field == "" {
			t.Field = field
		}
	case *PhraseQuery:
		if t.Field == "" {
			t.Field = field
		}
	case *RangeQuery:
		if t.Field == "" {
			t.Field = field
		}
	case *WildcardQuery:
		if t.Field == "" {
			t.Field = field
		}
	case *FuzzyQuery:
		if t.Field == "" {
			t.Field = field
		}
	case *BooleanQuery:
		for _, c := range t.Clauses {
			applyFieldScope(c.Query, field)
		}
	case *BoostedQuery:
		applyFieldScope(t.Inner, field)
	}
}
