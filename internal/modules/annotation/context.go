package annotation

import (
	"fmt"
	"strings"
)

const (
	contextCap              = 0.3
	historyCap              = 0.15
	historyScale            = 0.3
	historyNeutral          = 0.5
	difficultyExactBoost    = 0.05
	difficultyAdjacentBoost = 0.02
	overAnnotationStep      = 0.1
	overAnnotationFree      = 2
)

// AccuracyProvider reports how often past suggestions of a knowledge point
// were accepted for a question type. ok=false means no history.
type AccuracyProvider interface {
	Accuracy(kpID string, qt QuestionType) (float64, bool)
}

// AccuracyTable is an in-memory AccuracyProvider keyed by knowledge point id
// and question type. An empty question type acts as a wildcard.
type AccuracyTable map[string]map[QuestionType]float64

func (t AccuracyTable) Accuracy(kpID string, qt QuestionType) (float64, bool) {
	byType, ok := t[kpID]
	if !ok {
		return 0, false
	}
	if v, ok := byType[qt]; ok {
		return v, true
	}
	v, ok := byType[""]
	return v, ok
}

type typeBoost struct {
	substr string
	bonus  float64
}

// typeBoosts is checked in order; every entry whose substring appears in the
// knowledge point name adds its bonus.
var typeBoosts = map[QuestionType][]typeBoost{
	QuestionMultipleChoice: {
		{"voice", 0.05},
		{"tense", 0.03},
		{"clause", 0.03},
		{"mood", 0.03},
	},
	QuestionFillBlank: {
		{"tense", 0.1},
		{"preposition", 0.1},
		{"article", 0.08},
		{"voice", 0.05},
	},
	QuestionReadingComprehension: {
		{"clause", 0.08},
		{"inversion", 0.05},
	},
	QuestionTranslation: {
		{"passive", 0.08},
		{"clause", 0.05},
		{"subjunctive", 0.05},
	},
	QuestionWriting: {
		{"conjunction", 0.05},
		{"clause", 0.05},
		{"comparison", 0.05},
	},
	QuestionListening: {
		{"tense", 0.03},
	},
}

// ContextScorer applies small additive adjustments. It never turns a
// knowledge point into a candidate by itself.
type ContextScorer struct {
	History AccuracyProvider
}

func (ContextScorer) Kind() SignalKind { return SignalContext }

func (s ContextScorer) Score(_ *Prepared, q Question, e *Entry) Signal {
	sig := Signal{Kind: SignalContext}
	if e == nil {
		return sig
	}
	parts := &sig.Parts

	parts.TypeBoost = typeBoostFor(q.Type, e.nameLower)
	if parts.TypeBoost > 0 {
		sig.Notes = append(sig.Notes, fmt.Sprintf("%s question (%+.2f)", q.Type, parts.TypeBoost))
	}

	parts.DifficultyBoost = difficultyBoost(q.Difficulty, e.Difficulty)
	if parts.DifficultyBoost > 0 {
		sig.Notes = append(sig.Notes, fmt.Sprintf("difficulty %s (%+.2f)", q.Difficulty, parts.DifficultyBoost))
	}

	if s.History != nil {
		if acc, ok := s.History.Accuracy(e.ID, q.Type); ok {
			parts.HistoryBoost = historyBoost(acc)
			if parts.HistoryBoost > 0 {
				sig.Notes = append(sig.Notes, fmt.Sprintf("history %.0f%% (%+.2f)", clamp01(acc)*100, parts.HistoryBoost))
			}
		}
	}

	parts.Penalty = overAnnotationPenalty(q.ExistingAnnotationCount)
	if parts.Penalty > 0 {
		sig.Notes = append(sig.Notes, fmt.Sprintf("%d existing annotations (%+.2f)", q.ExistingAnnotationCount, -parts.Penalty))
	}

	sig.Value = parts.context()
	return sig
}

func typeBoostFor(qt QuestionType, nameLower string) float64 {
	total := 0.0
	for _, b := range typeBoosts[qt] {
		if strings.Contains(nameLower, b.substr) {
			total += b.bonus
		}
	}
	return clamp(total, 0, contextCap)
}

func difficultyBoost(question, kp Difficulty) float64 {
	qr, kr := question.rank(), kp.rank()
	if qr == 0 || kr == 0 {
		return 0
	}
	switch d := qr - kr; {
	case d == 0:
		return difficultyExactBoost
	case d == 1 || d == -1:
		return difficultyAdjacentBoost
	default:
		return 0
	}
}

func historyBoost(acc float64) float64 {
	acc = clamp01(acc)
	if acc <= historyNeutral {
		return 0
	}
	return clamp(historyScale*(acc-historyNeutral), 0, historyCap)
}

func overAnnotationPenalty(existing int) float64 {
	if existing <= overAnnotationFree {
		return 0
	}
	return overAnnotationStep * float64(existing-overAnnotationFree)
}
