package services

import (
	"github.com/yungbote/grammar-annotation-backend/internal/data/repos"
	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
)

// BuildAccuracyTable turns feedback tallies into acceptance ratios. Tallies
// below minSamples are dropped; each knowledge point also gets a wildcard
// entry pooled over every question type.
func BuildAccuracyTable(rows []repos.AccuracyRow, minSamples int64) annotation.AccuracyTable {
	if minSamples < 1 {
		minSamples = 1
	}
	type tally struct{ total, accepted int64 }
	pooled := map[string]*tally{}
	table := annotation.AccuracyTable{}

	for _, r := range rows {
		if r.KnowledgePointID == "" || r.Total <= 0 {
			continue
		}
		p := pooled[r.KnowledgePointID]
		if p == nil {
			p = &tally{}
			pooled[r.KnowledgePointID] = p
		}
		p.total += r.Total
		p.accepted += r.AcceptedCount

		qt, ok := annotation.ParseQuestionType(r.QuestionType)
		if !ok || r.Total < minSamples {
			continue
		}
		if table[r.KnowledgePointID] == nil {
			table[r.KnowledgePointID] = map[annotation.QuestionType]float64{}
		}
		table[r.KnowledgePointID][qt] = float64(r.AcceptedCount) / float64(r.Total)
	}
	for kp, p := range pooled {
		if p.total < minSamples {
			continue
		}
		if table[kp] == nil {
			table[kp] = map[annotation.QuestionType]float64{}
		}
		table[kp][""] = float64(p.accepted) / float64(p.total)
	}
	return table
}
