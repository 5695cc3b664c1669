package annotation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// BlankToken stands in for any run of underscores in a fill-in-the-blank stem.
const BlankToken = "___"

const minStemLength = 3

var (
	optionMarkerA   = regexp.MustCompile(`(?:^|\s)\(?A\s?[.):、]`)
	optionMarkerB   = regexp.MustCompile(`\s\(?B\s?[.):、]`)
	numberingPrefix = regexp.MustCompile(`^(?i:\(?\d{1,3}\s?[.):、]|\d{1,3}\s*-\s|q\d{0,3}\s?[.):]|[-•*·]+)\s*`)
	blankRun        = regexp.MustCompile(`_{2,}`)
	quoteFolder     = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u201c", "\"", "\u201d", "\"")
)

// Prepared is the normalized form of a question used by every scorer.
// Original is kept untouched for reporting.
type Prepared struct {
	Original string
	Stem     string
	Lower    string
	Tokens   []string
}

func (p *Prepared) Empty() bool { return p == nil || strings.TrimSpace(p.Stem) == "" }

// NormalizeText returns the matching stem of a question: answer options,
// numbering and trailing punctuation removed, whitespace collapsed. If that
// would leave fewer than three characters the original text is returned.
func NormalizeText(raw string) string {
	return Prepare(raw).Stem
}

func Prepare(raw string) *Prepared {
	p := &Prepared{Original: raw}
	if strings.TrimSpace(raw) == "" {
		return p
	}
	stem := stripStem(raw)
	if len([]rune(stem)) < minStemLength {
		stem = raw
	}
	p.Stem = stem
	p.Lower = lowerText(stem)
	p.Tokens = tokenize(p.Lower)
	return p
}

func stripStem(raw string) string {
	s := norm.NFKC.String(raw)
	s = quoteFolder.Replace(s)
	s = stripOptions(s)
	s = strings.Join(strings.Fields(s), " ")
	s = numberingPrefix.ReplaceAllString(s, "")
	s = blankRun.ReplaceAllString(s, BlankToken)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '_' && r != ')' && r != '"' && r != '\'')
	})
	return strings.TrimSpace(s)
}

// stripOptions cuts everything from the "A" marker onwards, but only when a
// "B" marker follows it. A lone "A." is treated as ordinary text.
func stripOptions(s string) string {
	loc := optionMarkerA.FindStringIndex(s)
	if loc == nil {
		return s
	}
	if !optionMarkerB.MatchString(s[loc[1]:]) {
		return s
	}
	return s[:loc[0]]
}

func lowerText(s string) string {
	return cases.Lower(language.Und).String(s)
}

func tokenize(lower string) []string {
	var (
		out []string
		b   strings.Builder
	)
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.Trim(b.String(), "'")
		if tok != "" {
			out = append(out, tok)
		}
		b.Reset()
	}
	inBlank := false
	for _, r := range lower {
		switch {
		case r == '_':
			if !inBlank {
				flush()
				out = append(out, BlankToken)
				inBlank = true
			}
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		default:
			flush()
		}
		inBlank = false
	}
	flush()
	return out
}
