package annotation

import "strings"

type QuestionType string

const (
	QuestionMultipleChoice       QuestionType = "multiple_choice"
	QuestionFillBlank            QuestionType = "fill_blank"
	QuestionReadingComprehension QuestionType = "reading_comprehension"
	QuestionTranslation          QuestionType = "translation"
	QuestionWriting              QuestionType = "writing"
	QuestionListening            QuestionType = "listening"
)

var questionTypeAliases = map[string]QuestionType{
	"multiple_choice":       QuestionMultipleChoice,
	"choice":                QuestionMultipleChoice,
	"mcq":                   QuestionMultipleChoice,
	"fill_blank":            QuestionFillBlank,
	"fill_in_blank":         QuestionFillBlank,
	"fill_in_the_blank":     QuestionFillBlank,
	"cloze":                 QuestionFillBlank,
	"reading_comprehension": QuestionReadingComprehension,
	"reading":               QuestionReadingComprehension,
	"translation":           QuestionTranslation,
	"writing":               QuestionWriting,
	"listening":             QuestionListening,
}

// ParseQuestionType accepts the canonical names plus a few common spellings
// ("fill-blank", "Multiple Choice", "cloze"). Unknown values report false.
func ParseQuestionType(raw string) (QuestionType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	qt, ok := questionTypeAliases[key]
	return qt, ok
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(raw string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "basic", "elementary":
		return DifficultyEasy, true
	case "medium", "intermediate", "normal":
		return DifficultyMedium, true
	case "hard", "advanced", "difficult":
		return DifficultyHard, true
	default:
		return "", false
	}
}

func (d Difficulty) rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}

// Keyword categories with special meaning to the matcher. Any other category
// name is allowed and weighted by phrase length.
const (
	CategoryStrongIndicator = "strong_indicator"
	CategoryTimeMarker      = "time_marker"
	CategoryGrammarFeature  = "grammar_feature"
)

type KeywordGroup struct {
	Category string   `json:"category" yaml:"category"`
	Phrases  []string `json:"phrases" yaml:"phrases"`
}

// KnowledgePoint is a read-only catalog entry. Pattern names a structural rule
// family (e.g. "passive_voice"); when empty the family is inferred from Name.
type KnowledgePoint struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Pattern     string         `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Keywords    []KeywordGroup `json:"keyword_set" yaml:"keyword_set"`
	Difficulty  Difficulty     `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	GradeLevels []string       `json:"grade_levels,omitempty" yaml:"grade_levels,omitempty"`
}

type Question struct {
	ID                      string
	Content                 string
	Type                    QuestionType
	Difficulty              Difficulty
	ExistingAnnotationCount int
}

type Decision string

const (
	DecisionAutoApply Decision = "AUTO_APPLY"
	DecisionRecommend Decision = "RECOMMEND"
	DecisionReject    Decision = "REJECT"
)

// ScoreBreakdown records every contribution that went into a candidate score.
type ScoreBreakdown struct {
	Keyword         float64 `json:"keyword"`
	MultiMatchBonus float64 `json:"multi_match_bonus"`
	Structural      float64 `json:"structural"`
	StructuralBonus float64 `json:"structural_bonus"`
	TypeBoost       float64 `json:"type_boost"`
	DifficultyBoost float64 `json:"difficulty_boost"`
	HistoryBoost    float64 `json:"history_boost"`
	Penalty         float64 `json:"penalty"`
	FusionDelta     float64 `json:"fusion_delta"`
	ValidationBoost float64 `json:"validation_boost"`
}

func (b ScoreBreakdown) context() float64 {
	return b.TypeBoost + b.DifficultyBoost + b.HistoryBoost - b.Penalty
}

type Candidate struct {
	KnowledgePointID   string
	KnowledgePointName string
	Score              float64
	Breakdown          ScoreBreakdown
	MatchedKeywords    []string
	StructuralRule     string
	Sources            []string
	notes              []string
}

func (c Candidate) hasStructural() bool { return c.StructuralRule != "" }

// Suggestion is the engine's output unit. It is a value computed per call.
type Suggestion struct {
	KnowledgePointID   string   `json:"knowledge_point_id"`
	KnowledgePointName string   `json:"knowledge_point_name"`
	Confidence         float64  `json:"confidence"`
	MatchedKeywords    []string `json:"matched_keywords"`
	Reasoning          string   `json:"reasoning"`
	SourceTags         []string `json:"source_tags"`
	Decision           Decision `json:"decision"`
}
