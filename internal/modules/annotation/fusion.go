package annotation

import (
	"fmt"
	"math"
	"strings"
)

// Source is an alternate scorer pipeline whose candidates are blended with
// the primary aggregator output.
type Source interface {
	Name() string
	Candidates(p *Prepared, q Question, c *Catalog) []Candidate
}

// SourceResult is one source's candidate list, in any order.
type SourceResult struct {
	Source     string
	Candidates []Candidate
}

// VerifiedSet holds knowledge point ids an external validator has confirmed
// for the question being scored.
type VerifiedSet map[string]struct{}

func NewVerifiedSet(ids ...string) VerifiedSet {
	if len(ids) == 0 {
		return nil
	}
	v := make(VerifiedSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			v[id] = struct{}{}
		}
	}
	return v
}

func (v VerifiedSet) Has(id string) bool {
	_, ok := v[id]
	return ok
}

type fusedEntry struct {
	base    Candidate
	first   float64
	lo, hi  float64
	sum     float64
	weights float64
	parts   []string
	tags    map[string]struct{}
	seenKW  map[string]struct{}
}

// Fuse blends per-knowledge-point scores across sources as a weighted mean
// over the sources that scored that knowledge point, so a lone source keeps
// its own score and the result never falls below the lowest input. Verified
// knowledge points then gain boost, capped at 1. The result is in rank order.
func Fuse(results []SourceResult, weights map[string]float64, verified VerifiedSet, boost float64) []Candidate {
	boost = clamp(boost, 0, maxValidationBoost)
	fallback := 1.0
	if len(results) > 0 {
		fallback = 1.0 / float64(len(results))
	}

	order := make([]string, 0)
	byID := make(map[string]*fusedEntry)
	for _, res := range results {
		w := weights[res.Source]
		if w <= 0 {
			w = fallback
		}
		for _, c := range res.Candidates {
			f, ok := byID[c.KnowledgePointID]
			if !ok {
				f = &fusedEntry{
					base:   cloneCandidate(c),
					tags:   make(map[string]struct{}),
					seenKW: make(map[string]struct{}),
				}
				f.base.MatchedKeywords = nil
				byID[c.KnowledgePointID] = f
				order = append(order, c.KnowledgePointID)
			}
			score := clamp01(c.Score)
			if len(f.parts) == 0 {
				f.first, f.lo, f.hi = score, score, score
			}
			f.lo, f.hi = math.Min(f.lo, score), math.Max(f.hi, score)
			f.sum += w * score
			f.weights += w
			f.parts = append(f.parts, fmt.Sprintf("%s %.2f", res.Source, score))
			f.tags[res.Source] = struct{}{}
			for _, t := range c.Sources {
				f.tags[t] = struct{}{}
			}
			for _, kw := range c.MatchedKeywords {
				if _, dup := f.seenKW[kw]; dup {
					continue
				}
				f.seenKW[kw] = struct{}{}
				f.base.MatchedKeywords = append(f.base.MatchedKeywords, kw)
			}
			if f.base.StructuralRule == "" && c.StructuralRule != "" {
				f.base.StructuralRule = c.StructuralRule
			}
		}
	}

	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		f := byID[id]
		c := f.base
		prior := clamp01(c.Score)
		fused := f.first
		if len(f.parts) > 1 && f.weights > 0 {
			fused = clamp(f.sum/f.weights, f.lo, f.hi)
		}
		c.Breakdown.FusionDelta = fused - prior
		if len(f.parts) > 1 {
			c.notes = append(c.notes, "fused "+strings.Join(f.parts, ", ")+fmt.Sprintf(" -> %.2f", fused))
		}
		if verified.Has(id) && boost > 0 {
			boosted := clamp01(fused + boost)
			c.Breakdown.ValidationBoost = boosted - fused
			fused = boosted
			f.tags[SourceExternal] = struct{}{}
			c.notes = append(c.notes, fmt.Sprintf("verified externally (%+.2f)", c.Breakdown.ValidationBoost))
		}
		c.Score = fused
		c.Sources = sortedKeys(f.tags)
		out = append(out, c)
	}
	sortCandidates(out)
	return out
}

func cloneCandidate(c Candidate) Candidate {
	out := c
	out.MatchedKeywords = append([]string(nil), c.MatchedKeywords...)
	out.Sources = append([]string(nil), c.Sources...)
	out.notes = append([]string(nil), c.notes...)
	return out
}
