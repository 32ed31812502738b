package search

// Optimize simplifies an already-rewritten primitive tree: Insignificant
// children are dropped, a required EmptyResult child collapses the
// whole group to EmptyResult, a single surviving clause replaces its
// parent (boost carried along via nested BoostedQuery collapsing), and
// a lone prohibited clause with nothing left to subtract from can never
// match.
func Optimize(q Query) Query {
	switch t := q.(type) {
	case *BooleanQuery:
		return optimizeBoolean(t)
	case *BoostedQuery:
		return optimizeBoosted(t)
	case *FieldUnionQuery:
		return optimizeFieldUnion(t)
	default:
		return q
	}
}

func optimizeBoolean(b *BooleanQuery) Query {
	var kept []BooleanClause
	for _, c := range b.Clauses {
		oc := Optimize(c.Query)
		if isInsignificant(oc) {
			continue
		}
		if isEmptyResult(oc) {
			if c.Sign == SignMust {
				return EmptyResultQuery{}
			}
			continue
		}
		kept = append(kept, BooleanClause{Query: oc, Sign: c.Sign})
	}
	switch len(kept) {
	case 0:
		return InsignificantQuery{}
	case 1:
		c := kept[0]
		if c.Sign == SignMustNot {
			// nothing left for this prohibition to subtract from
			return EmptyResultQuery{}
		}
		return c.Query
	default:
		return &BooleanQuery{Clauses: kept}
	}
}

func optimizeBoosted(b *BoostedQuery) Query {
	inner := Optimize(b.Inner)
	if nested, ok := inner.(*BoostedQuery); ok {
		return &BoostedQuery{Inner: nested.Inner, Boost: nested.Boost * b.Boost}
	}
	if isInsignificant(inner) || isEmptyResult(inner) {
		return inner
	}
	if b.Boost == 1 {
		return inner
	}
	return &BoostedQuery{Inner: inner, Boost: b.Boost}
}

func optimizeFieldUnion(u *FieldUnionQuery) Query {
	var children []Query
	for _, c := range u.Children {
		oc := Optimize(c)
		if isInsignificant(oc) || isEmptyResult(oc) {
			continue
		}
		children = append(children, oc)
	}
	switch len(children) {
	case 0:
		return InsignificantQuery{}
	case 1:
		return children[0]
	default:
		return &FieldUnionQuery{Children: children}
	}
}

func isInsignificant(q Query) bool {
	_, ok := q.(InsignificantQuery)
	return ok
}

func isEmptyResult(q Query) bool {
	_, ok := q.(EmptyResultQuery)
	return ok
}
