package annotation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	strongIndicatorWeight = 5.0
	longPhraseWeight      = 3.0
	mediumPhraseWeight    = 2.0
	shortPhraseWeight     = 1.0

	longPhraseMinLen   = 11
	mediumPhraseMinLen = 6
	boundaryMaxLen     = 3

	multiMatchStep = 0.05
	multiMatchCap  = 0.2
)

// KeywordScorer scores a knowledge point by weighted phrase presence,
// normalized by the best score its keyword set could reach.
type KeywordScorer struct{}

func (KeywordScorer) Kind() SignalKind { return SignalKeyword }

func (KeywordScorer) Score(p *Prepared, _ Question, e *Entry) Signal {
	sig := Signal{Kind: SignalKeyword}
	if p.Empty() || e == nil || e.maxWeight == 0 {
		return sig
	}
	total := 0.0
	for _, ph := range e.phrases {
		if !containsKeyword(p.Lower, ph) {
			continue
		}
		total += ph.weight
		sig.Matched = append(sig.Matched, ph.display)
	}
	if len(sig.Matched) == 0 {
		return sig
	}
	base := clamp01(total / e.maxWeight)
	bonus := multiMatchBonus(len(sig.Matched))
	sig.Parts.Keyword = base
	sig.Parts.MultiMatchBonus = bonus
	sig.Value = clamp01(base + bonus)
	sig.Notes = append(sig.Notes, fmt.Sprintf("keywords %s (%+.2f)", strings.Join(sig.Matched, ", "), sig.Value))
	return sig
}

func multiMatchBonus(matches int) float64 {
	if matches < 2 {
		return 0
	}
	b := multiMatchStep * float64(matches-1)
	if b > multiMatchCap {
		b = multiMatchCap
	}
	return b
}

func phraseWeight(category, text string) float64 {
	if category == CategoryStrongIndicator {
		return strongIndicatorWeight
	}
	n := utf8.RuneCountInString(text)
	switch {
	case n >= longPhraseMinLen:
		return longPhraseWeight
	case n >= mediumPhraseMinLen:
		return mediumPhraseWeight
	default:
		return shortPhraseWeight
	}
}

// useWordBoundary is true for short ASCII phrases, where plain containment
// would match inside other words ("a" in "cat").
func useWordBoundary(text string) bool {
	n := 0
	for _, r := range text {
		if r > unicode.MaxASCII {
			return false
		}
		n++
	}
	return n > 0 && n <= boundaryMaxLen
}

func containsKeyword(text string, ph phrase) bool {
	if ph.text == "" {
		return false
	}
	if ph.boundary {
		return containsAsWord(text, ph.text)
	}
	return strings.Contains(text, ph.text)
}

func containsAsWord(text, word string) bool {
	start := 0
	for start < len(text) {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		var before rune
		if idx > 0 {
			before, _ = utf8.DecodeLastRuneInString(text[:idx])
		}
		var after rune
		if end := idx + len(word); end < len(text) {
			after, _ = utf8.DecodeRuneInString(text[end:])
		}
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		start = idx + len(word)
	}
	return false
}

func isWordRune(r rune) bool {
	if r == 0 || r == utf8.RuneError {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}
