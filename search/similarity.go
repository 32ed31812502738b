package search

import "math"

// tf is the classic square-root term-frequency dampening: a term
// appearing twice scores less than twice a single occurrence.
func tf(freq int32) float64 {
	return math.Sqrt(float64(freq))
}

// idf is the classic inverse document frequency: rarer terms score
// higher, with +1 on both sides to keep the ratio and the whole
// expression finite and positive even at docFreq == numDocs.
func idf(docFreq, numDocs int32) float64 {
	if numDocs <= 0 {
		return 0
	}
	return 1 + math.Log(float64(numDocs)/float64(docFreq+1))
}

// coord rewards a document for matching a larger fraction of a boolean
// group's optional/required clauses.
func coord(overlap, maxOverlap int) float64 {
	if maxOverlap == 0 {
		return 0
	}
	return float64(overlap) / float64(maxOverlap)
}
