package search

import "sort"

// ResultVector is a query node's matched documents and their partial
// scores, ascending by document id. Execute builds one bottom-up:
// leaves populate it from postings, Boolean/FieldUnion combine their
// children's vectors, BoostedQuery scales one.
type ResultVector struct {
	Docs   []int32
	Scores map[int32]float64
}

func newResultVector() *ResultVector {
	return &ResultVector{Scores: make(map[int32]float64)}
}

func (rv *ResultVector) add(doc int32, score float64) {
	if _, ok := rv.Scores[doc]; !ok {
		rv.Docs = append(rv.Docs, doc)
	}
	rv.Scores[doc] += score
}

func (rv *ResultVector) sort() *ResultVector {
	sort.Slice(rv.Docs, func(i, j int) bool { return rv.Docs[i] < rv.Docs[j] })
	return rv
}

func (rv *ResultVector) multiplyAll(factor float64) {
	for d := range rv.Scores {
		rv.Scores[d] *= factor
	}
}

// Execute runs a fully rewritten, optimized primitive tree against idx
// and returns its matched documents with scores.
func Execute(q Query, idx Index) (*ResultVector, error) {
	switch t := q.(type) {
	case *TermQuery:
		return executeTerm(t, idx)
	case *PhraseQuery:
		return executePhrase(t, idx)
	case *BooleanQuery:
		return executeBoolean(t, idx)
	case *FieldUnionQuery:
		return executeFieldUnion(t, idx)
	case *BoostedQuery:
		rv, err := Execute(t.Inner, idx)
		if err != nil {
			return nil, err
		}
		rv.multiplyAll(float64(t.Boost))
		return rv, nil
	case InsignificantQuery, EmptyResultQuery:
		return newResultVector(), nil
	default:
		return newResultVector(), nil
	}
}

func executeTerm(t *TermQuery, idx Index) (*ResultVector, error) {
	postings, err := idx.Postings(t.Field, t.Text, false)
	if err != nil {
		return nil, err
	}
	docFreq, err := idx.DocFreq(t.Field, t.Text)
	if err != nil {
		return nil, err
	}
	w := idf(docFreq, idx.NumDocs())
	rv := newResultVector()
	for _, p := range postings {
		norm, err := idx.Norm(p.DocID, t.Field)
		if err != nil {
			return nil, err
		}
		rv.add(p.DocID, tf(p.Freq)*w*w*float64(norm))
	}
	return rv.sort(), nil
}

func executePhrase(p *PhraseQuery, idx Index) (*ResultVector, error) {
	rv := newResultVector()
	if len(p.Terms) == 0 {
		return rv, nil
	}
	postingsByTerm := make([]map[int32][]int32, len(p.Terms))
	var firstDocs []Posting
	var sumIDF float64
	for i, term := range p.Terms {
		pl, err := idx.Postings(p.Field, term, true)
		if err != nil {
			return nil, err
		}
		df, err := idx.DocFreq(p.Field, term)
		if err != nil {
			return nil, err
		}
		sumIDF += idf(df, idx.NumDocs())
		m := make(map[int32][]int32, len(pl))
		for _, post := range pl {
			m[post.DocID] = post.Positions
		}
		postingsByTerm[i] = m
		if i == 0 {
			firstDocs = pl
		}
	}
	// Phrase weight combines each term's idf the same way a single term's
	// weight squares its own idf, rather than averaging across terms.
	weight := sumIDF * sumIDF

	for _, post := range firstDocs {
		doc := post.DocID
		matched, freq := matchPhrase(postingsByTerm, doc, p.Slop)
		if !matched {
			continue
		}
		norm, err := idx.Norm(doc, p.Field)
		if err != nil {
			return nil, err
		}
		rv.add(doc, tf(int32(freq))*weight*float64(norm))
	}
	return rv.sort(), nil
}

// matchPhrase anchors on every occurrence of the first term and, for
// each, greedily finds the nearest occurrence of every following term
// to its expected in-order slot; slop == 0 demands an exact run, slop >
// 0 tolerates a per-term positional error up to slop. freq counts how
// many anchor positions produced a full alignment.
func matchPhrase(postingsByTerm []map[int32][]int32, doc int32, slop int) (bool, int) {
	first, ok := postingsByTerm[0][doc]
	if !ok {
		return false, 0
	}
	freq := 0
	for _, anchor := range first {
		aligned := true
		for i := 1; i < len(postingsByTerm); i++ {
			positions, present := postingsByTerm[i][doc]
			if !present {
				aligned = false
				break
			}
			want := anchor + int32(i)
			best, bestDist := int32(-1), -1
			for _, pos := range positions {
				d := int(pos - want)
				if d < 0 {
					d = -d
				}
				if bestDist == -1 || d < bestDist {
					best, bestDist = pos, d
				}
			}
			if best == -1 || bestDist > slop {
				aligned = false
				break
			}
		}
		if aligned {
			freq++
		}
	}
	return freq > 0, freq
}

func executeBoolean(b *BooleanQuery, idx Index) (*ResultVector, error) {
	var must, should, mustNot []*ResultVector
	for _, c := range b.Clauses {
		rv, err := Execute(c.Query, idx)
		if err != nil {
			return nil, err
		}
		switch c.Sign {
		case SignMust:
			must = append(must, rv)
		case SignMustNot:
			mustNot = append(mustNot, rv)
		default:
			should = append(should, rv)
		}
	}

	if len(should) == 0 && len(mustNot) == 0 && len(must) > 0 {
		return executeConjunction(must), nil
	}
	return executeGeneral(must, should, mustNot), nil
}

// executeConjunction is the all-required fast path: sort by ascending
// cardinality (cheapest to eliminate non-matches first), intersect, and
// score every surviving document at full coord (n, n).
func executeConjunction(must []*ResultVector) *ResultVector {
	sorted := append([]*ResultVector(nil), must...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i].Docs) < len(sorted[j].Docs) })

	out := newResultVector()
	if len(sorted) == 0 {
		return out
	}
	c := coord(len(sorted), len(sorted))
	for _, doc := range sorted[0].Docs {
		sum := sorted[0].Scores[doc]
		matched := true
		for _, rv := range sorted[1:] {
			s, ok := rv.Scores[doc]
			if !ok {
				matched = false
				break
			}
			sum += s
		}
		if matched {
			out.add(doc, sum*c)
		}
	}
	return out.sort()
}

// executeGeneral handles mixed should/must/mustNot groups: a required
// non-match or a prohibited match zeroes the document entirely (the
// documented behavior this engine preserves over pure set-subtraction),
// otherwise the document scores at coord(matched, maxCoord) over the
// sum of every clause that actually matched it.
func executeGeneral(must, should, mustNot []*ResultVector) *ResultVector {
	candidates := make(map[int32]bool)
	for _, rv := range must {
		for _, d := range rv.Docs {
			candidates[d] = true
		}
	}
	for _, rv := range should {
		for _, d := range rv.Docs {
			candidates[d] = true
		}
	}
	maxCoord := len(must) + len(should)

	out := newResultVector()
	for doc := range candidates {
		ok := true
		for _, rv := range must {
			if _, present := rv.Scores[doc]; !present {
				ok = false
				break
			}
		}
		if ok {
			for _, rv := range mustNot {
				if _, present := rv.Scores[doc]; present {
					ok = false
					break
				}
			}
		}
		if !ok {
			continue
		}
		matched, sum := 0, 0.0
		for _, rv := range must {
			sum += rv.Scores[doc]
			matched++
		}
		for _, rv := range should {
			if s, present := rv.Scores[doc]; present {
				sum += s
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out.add(doc, sum*coord(matched, maxCoord))
	}
	return out.sort()
}

func executeFieldUnion(u *FieldUnionQuery, idx Index) (*ResultVector, error) {
	clauses := make([]BooleanClause, len(u.Children))
	for i, c := range u.Children {
		clauses[i] = BooleanClause{Query: c, Sign: SignShould}
	}
	return executeBoolean(&BooleanQuery{Clauses: clauses}, idx)
}
