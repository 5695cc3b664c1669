package annotation

import (
	"fmt"
	"strings"
)

// rule is one ordered check inside a family. The first rule whose match
// returns true decides the family's confidence.
type rule struct {
	desc       string
	confidence float64
	match      func(p *Prepared) bool
}

type ruleFamily struct {
	key     string
	aliases []string
	rules   []rule
}

func (f *ruleFamily) evaluate(p *Prepared) (rule, bool) {
	for _, r := range f.rules {
		if r.match(p) {
			return r, true
		}
	}
	return rule{}, false
}

// resolveFamily prefers the explicit pattern key and otherwise looks for the
// first family whose alias appears in the knowledge point's name.
func resolveFamily(pattern, nameLower string) *ruleFamily {
	if key := strings.ToLower(strings.TrimSpace(pattern)); key != "" {
		if f, ok := familiesByKey[key]; ok {
			return f
		}
		return nil
	}
	for _, f := range ruleFamilies {
		for _, alias := range f.aliases {
			if strings.Contains(nameLower, alias) {
				return f
			}
		}
	}
	return nil
}

// PatternKeys lists the structural rule families the analyzer knows.
func PatternKeys() []string {
	out := make([]string, 0, len(ruleFamilies))
	for _, f := range ruleFamilies {
		out = append(out, f.key)
	}
	return out
}

// StructuralScorer emits a fixed, near-certain confidence when a grammatical
// construction is recognised. It never looks at keyword density.
type StructuralScorer struct{}

func (StructuralScorer) Kind() SignalKind { return SignalStructural }

func (StructuralScorer) Score(p *Prepared, _ Question, e *Entry) Signal {
	sig := Signal{Kind: SignalStructural}
	if p.Empty() || e == nil || e.family == nil {
		return sig
	}
	r, ok := e.family.evaluate(p)
	if !ok {
		return sig
	}
	sig.Value = r.confidence
	sig.Rule = r.desc
	sig.Parts.Structural = r.confidence
	sig.Notes = append(sig.Notes, fmt.Sprintf("structure: %s (%.2f)", r.desc, r.confidence))
	return sig
}

// token helpers

type wordPred func(string) bool

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func in(set map[string]struct{}) wordPred {
	return func(w string) bool {
		_, ok := set[w]
		return ok
	}
}

func is(words ...string) wordPred { return in(wordSet(words...)) }

func anyOf(preds ...wordPred) wordPred {
	return func(w string) bool {
		for _, p := range preds {
			if p(w) {
				return true
			}
		}
		return false
	}
}

func hasWord(p *Prepared, pred wordPred) bool {
	return indexFrom(p.Tokens, 0, pred) >= 0
}

func indexFrom(toks []string, from int, pred wordPred) int {
	for i := from; i < len(toks); i++ {
		if pred(toks[i]) {
			return i
		}
	}
	return -1
}

// within returns the first index j in (i, i+gap] whose token satisfies pred.
func within(toks []string, i, gap int, pred wordPred) int {
	for j := i + 1; j <= i+gap && j < len(toks); j++ {
		if pred(toks[j]) {
			return j
		}
	}
	return -1
}

// seq reports whether some token matching a is followed within gap tokens by
// one matching b.
func seq(p *Prepared, a wordPred, gap int, b wordPred) bool {
	return seqAt(p.Tokens, a, gap, b) >= 0
}

func seqAt(toks []string, a wordPred, gap int, b wordPred) int {
	for i, t := range toks {
		if !a(t) {
			continue
		}
		if j := within(toks, i, gap, b); j >= 0 {
			return j
		}
	}
	return -1
}

// seq3 is seq over three predicates.
func seq3(p *Prepared, a wordPred, gap1 int, b wordPred, gap2 int, c wordPred) bool {
	toks := p.Tokens
	for i, t := range toks {
		if !a(t) {
			continue
		}
		for j := i + 1; j <= i+gap1 && j < len(toks); j++ {
			if b(toks[j]) && within(toks, j, gap2, c) >= 0 {
				return true
			}
		}
	}
	return false
}

// hasPhrase matches a multi-word phrase on word boundaries.
func hasPhrase(p *Prepared, phrases ...string) bool {
	for _, ph := range phrases {
		if containsAsWord(p.Lower, ph) {
			return true
		}
	}
	return false
}

func startsWith(p *Prepared, phrases ...string) bool {
	for _, ph := range phrases {
		if p.Lower == ph || strings.HasPrefix(p.Lower, ph+" ") || strings.HasPrefix(p.Lower, ph+",") {
			return true
		}
	}
	return false
}

func firstToken(p *Prepared) string {
	if len(p.Tokens) == 0 {
		return ""
	}
	return p.Tokens[0]
}
