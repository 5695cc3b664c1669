package annotation

import (
	"fmt"
	"strings"
)

const (
	coverageWeight     = 0.8
	corroborationBonus = 0.05
)

// SecondOpinion is a lexical-coverage analyzer. Where the keyword matcher
// rewards phrase weight, it asks how many of a knowledge point's keyword
// categories are represented at all, and takes the structural rule as an
// alternative route to the same conclusion.
type SecondOpinion struct{}

func (SecondOpinion) Name() string { return SourceSecondOpinion }

func (SecondOpinion) Candidates(p *Prepared, _ Question, c *Catalog) []Candidate {
	if p.Empty() || c == nil {
		return nil
	}
	var out []Candidate
	for _, e := range c.Entries() {
		cand, ok := secondOpinionFor(p, e)
		if ok {
			out = append(out, cand)
		}
	}
	sortCandidates(out)
	return out
}

func secondOpinionFor(p *Prepared, e *Entry) (Candidate, bool) {
	groups := make(map[string]bool)
	var matched []string
	for _, ph := range e.phrases {
		if _, seen := groups[ph.category]; !seen {
			groups[ph.category] = false
		}
		if containsKeyword(p.Lower, ph) {
			groups[ph.category] = true
			matched = append(matched, ph.display)
		}
	}
	covered := 0
	for _, hit := range groups {
		if hit {
			covered++
		}
	}
	coverage := 0.0
	if len(groups) > 0 {
		coverage = float64(covered) / float64(len(groups))
	}

	var structural float64
	var ruleDesc string
	if e.family != nil {
		if r, ok := e.family.evaluate(p); ok {
			structural, ruleDesc = r.confidence, r.desc
		}
	}
	if coverage == 0 && structural == 0 {
		return Candidate{}, false
	}

	score := coverageWeight * coverage
	if structural > score {
		score = structural
	}
	if coverage > 0 && structural > 0 {
		score += corroborationBonus
	}
	score = clamp01(score)

	c := Candidate{
		KnowledgePointID:   e.ID,
		KnowledgePointName: e.Name,
		Score:              score,
		MatchedKeywords:    matched,
		StructuralRule:     ruleDesc,
		Sources:            []string{SourceSecondOpinion},
	}
	c.notes = append(c.notes, fmt.Sprintf("second opinion: %d/%d keyword categories%s (%.2f)",
		covered, len(groups), ruleSuffix(ruleDesc), score))
	return c, true
}

func ruleSuffix(desc string) string {
	if desc == "" {
		return ""
	}
	return ", " + strings.TrimSpace(desc)
}
