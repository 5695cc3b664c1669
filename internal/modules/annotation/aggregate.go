package annotation

import (
	"fmt"
	"sort"
)

// aggregate runs every scorer against every catalog entry and returns all
// candidates in rank order. Entries without a keyword or structural hit are
// dropped before context is considered.
func aggregate(p *Prepared, q Question, entries []*Entry, scorers []Scorer) []Candidate {
	if p.Empty() {
		return nil
	}
	out := make([]Candidate, 0, 8)
	signals := make([]Signal, 0, len(scorers))
	for _, e := range entries {
		signals = signals[:0]
		fired := false
		for _, s := range scorers {
			sig := s.Score(p, q, e)
			if sig.Fired() {
				fired = true
			}
			signals = append(signals, sig)
		}
		if !fired {
			continue
		}
		out = append(out, combine(e, signals))
	}
	sortCandidates(out)
	return out
}

func combine(e *Entry, signals []Signal) Candidate {
	c := Candidate{
		KnowledgePointID:   e.ID,
		KnowledgePointName: e.Name,
	}
	var kw, structural, ctx float64
	tags := make(map[string]struct{}, len(signals)+1)
	for _, sig := range signals {
		c.Breakdown = addBreakdown(c.Breakdown, sig.Parts)
		c.notes = append(c.notes, sig.Notes...)
		switch sig.Kind {
		case SignalKeyword:
			kw = sig.Value
			c.MatchedKeywords = append(c.MatchedKeywords, sig.Matched...)
		case SignalStructural:
			structural = sig.Value
			c.StructuralRule = sig.Rule
		case SignalContext:
			ctx += sig.Value
		}
		if sig.Fired() || (sig.Kind == SignalContext && sig.Value != 0) {
			tags[sig.Kind.String()] = struct{}{}
		}
	}
	c.Breakdown.StructuralBonus = structural * (1 - kw)
	c.Score = clamp01(kw + c.Breakdown.StructuralBonus + ctx)
	tags[SourcePrimary] = struct{}{}
	c.Sources = sortedKeys(tags)
	return c
}

func addBreakdown(a, b ScoreBreakdown) ScoreBreakdown {
	a.Keyword += b.Keyword
	a.MultiMatchBonus += b.MultiMatchBonus
	a.Structural += b.Structural
	a.StructuralBonus += b.StructuralBonus
	a.TypeBoost += b.TypeBoost
	a.DifficultyBoost += b.DifficultyBoost
	a.HistoryBoost += b.HistoryBoost
	a.Penalty += b.Penalty
	a.FusionDelta += b.FusionDelta
	a.ValidationBoost += b.ValidationBoost
	return a
}

// candidateLess orders by score, then structural evidence, then name and id
// so equal scores always come out the same way.
func candidateLess(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if as, bs := a.hasStructural(), b.hasStructural(); as != bs {
		return as
	}
	if a.KnowledgePointName != b.KnowledgePointName {
		return a.KnowledgePointName < b.KnowledgePointName
	}
	return a.KnowledgePointID < b.KnowledgePointID
}

func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return candidateLess(cs[i], cs[j]) })
}

func topK(cs []Candidate, k int) []Candidate {
	if k > 0 && len(cs) > k {
		return cs[:k]
	}
	return cs
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func describeScore(c Candidate) string {
	return fmt.Sprintf("score %.2f", c.Score)
}
