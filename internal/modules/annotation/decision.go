package annotation

import (
	"fmt"
	"strings"
)

// Decide classifies ranked candidates. Candidates under the confidence
// threshold are dropped; at most MaxAutoAnnotations keep AUTO_APPLY and the
// rest of the qualifying ones are demoted to RECOMMEND.
func Decide(cands []Candidate, cfg Config) []Suggestion {
	cfg = cfg.Normalized()
	ranked := append([]Candidate(nil), cands...)
	sortCandidates(ranked)

	out := make([]Suggestion, 0, len(ranked))
	autos := 0
	for _, c := range ranked {
		score := clamp01(c.Score)
		if score < cfg.ConfidenceThreshold {
			continue
		}
		decision := DecisionRecommend
		var note string
		switch {
		case score >= cfg.AutoApplyThreshold && autos < cfg.MaxAutoAnnotations:
			decision = DecisionAutoApply
			autos++
			note = fmt.Sprintf("auto-apply: %s >= %.2f", describeScore(c), cfg.AutoApplyThreshold)
		case score >= cfg.AutoApplyThreshold:
			note = fmt.Sprintf("recommend: auto-apply cap of %d reached", cfg.MaxAutoAnnotations)
		default:
			note = fmt.Sprintf("recommend: %s below auto-apply %.2f", describeScore(c), cfg.AutoApplyThreshold)
		}
		out = append(out, Suggestion{
			KnowledgePointID:   c.KnowledgePointID,
			KnowledgePointName: c.KnowledgePointName,
			Confidence:         score,
			MatchedKeywords:    nonNil(c.MatchedKeywords),
			Reasoning:          reasoning(c, note),
			SourceTags:         nonNil(c.Sources),
			Decision:           decision,
		})
	}
	return out
}

func reasoning(c Candidate, decision string) string {
	parts := make([]string, 0, len(c.notes)+1)
	parts = append(parts, c.notes...)
	parts = append(parts, decision)
	return strings.Join(parts, "; ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
