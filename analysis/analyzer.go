// Package analysis is the minimal tokenizer interface the query rewrite
// pass and the writer's flush path consume. Lucene's full
// AttributeSource-based TokenStream pipeline exists to support
// pluggable custom attributes (payloads, flags) that nothing here
// needs, so this package narrows analysis down to the plain (text,
// position) token list the core actually consumes.
package analysis

import "strings"

// Token is one tokenized unit: its text and its position relative to
// the previous token's position (1 for adjacent tokens; >1 records a
// stop-word gap so phrase slop still lines up across removed terms).
type Token struct {
	Text              string
	PositionIncrement int
}

// Analyzer turns one field's raw text into a token stream.
type Analyzer interface {
	Analyze(field, text string) []Token
}

// KeywordAnalyzer emits the entire input as a single, unmodified token
// — the analyzer implied by "untokenized keyword" field kind.
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Analyze(field, text string) []Token {
	if text == "" {
		return nil
	}
	return []Token{{Text: text, PositionIncrement: 1}}
}

// WhitespaceAnalyzer splits on whitespace only, preserving case and
// punctuation attached to a word.
type WhitespaceAnalyzer struct{}

func (WhitespaceAnalyzer) Analyze(field, text string) []Token {
	var toks []Token
	for _, w := range strings.Fields(text) {
		toks = append(toks, Token{Text: w, PositionIncrement: 1})
	}
	return toks
}

// SimpleAnalyzer splits on runs of non-letter characters and
// lowercases each resulting term, mirroring Lucene's
// LetterTokenizer+LowerCaseFilter combination.
type SimpleAnalyzer struct{}

func (SimpleAnalyzer) Analyze(field, text string) []Token {
	var toks []Token
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !isLetter(r)
	}) {
		toks = append(toks, Token{Text: strings.ToLower(w), PositionIncrement: 1})
	}
	return toks
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// StopAnalyzer layers SimpleAnalyzer's tokenization with English
// stop-word removal, incrementing the following token's position so
// phrase slop still accounts for the gap a removed stop word leaves
// behind, the same convention Lucene's StopFilter follows.
type StopAnalyzer struct {
	Stopwords map[string]bool
}

// EnglishStopwords is Lucene's classic default English stop-word set.
var EnglishStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "such": true, "that": true, "the": true,
	"their": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "to": true, "was": true, "will": true, "with": true,
}

func NewStopAnalyzer() *StopAnalyzer {
	return &StopAnalyzer{Stopwords: EnglishStopwords}
}

func (a *StopAnalyzer) Analyze(field, text string) []Token {
	raw := (SimpleAnalyzer{}).Analyze(field, text)
	var toks []Token
	pending := 0
	for _, t := range raw {
		if a.Stopwords[t.Text] {
			pending++
			continue
		}
		toks = append(toks, Token{Text: t.Text, PositionIncrement: t.PositionIncrement + pending})
		pending = 0
	}
	return toks
}

// DefaultAnalyzer is used wherever a caller does not specify one.
var DefaultAnalyzer Analyzer = NewStopAnalyzer()
