package annotation

import "testing"

func evaluateFamily(t *testing.T, key, text string) (rule, bool) {
	t.Helper()
	f, ok := familiesByKey[key]
	if !ok {
		t.Fatalf("unknown family %q", key)
	}
	return f.evaluate(Prepare(text))
}

func TestStructuralRules_Fire(t *testing.T) {
	cases := []struct {
		family string
		text   string
		want   float64
	}{
		{"present_simple", "She goes to school every day.", 0.90},
		{"present_simple", "They usually ___ (walk) to work.", 0.85},
		{"past_simple", "I visited my grandparents last week.", 0.88},
		{"present_perfect", "I have already finished my homework.", 0.93},
		{"past_perfect", "By the time we arrived, the film had started.", 0.92},
		{"present_continuous", "Look! The children are playing football.", 0.92},
		{"past_continuous", "I was reading when the phone rang.", 0.91},
		{"future_simple", "We will visit the museum tomorrow.", 0.92},
		{"passive_voice", "The letter was written by Tom yesterday.", 0.95},
		{"passive_voice", "The bridge was built in 1990.", 0.85},
		{"passive_voice", "The work must be finished today.", 0.90},
		{"comparative", "Tom is taller than his brother.", 0.92},
		{"superlative", "It is one of the tallest buildings in the city.", 0.92},
		{"relative_clause", "The man who lives next door is a doctor.", 0.88},
		{"relative_clause", "This is the girl whose father is a pilot.", 0.90},
		{"noun_clause", "I don't know where he lives.", 0.87},
		{"inversion", "Never have I seen such a beautiful sunset.", 0.93},
		{"inversion", "Only then did he realize his mistake.", 0.90},
		{"conditional", "If it rains tomorrow, we will stay at home.", 0.88},
		{"subjunctive", "If I were you, I would accept the offer.", 0.92},
		{"subjunctive", "I wish I had more time.", 0.90},
		{"gerund", "She enjoys reading novels.", 0.90},
		{"infinitive", "He is too young to drive.", 0.92},
		{"infinitive", "She decided to study abroad.", 0.88},
		{"modal_verbs", "He must be at home now.", 0.90},
		{"there_be", "There is a book on the desk.", 0.92},
		{"prepositions_time", "We have no classes on Sunday.", 0.87},
		{"reported_speech", "She said that she was tired.", 0.88},
		{"emphatic_cleft", "It was Tom who broke the window.", 0.88},
	}
	for _, tc := range cases {
		r, ok := evaluateFamily(t, tc.family, tc.text)
		if !ok {
			t.Fatalf("%s: expected a rule to fire for %q", tc.family, tc.text)
		}
		if r.confidence != tc.want {
			t.Fatalf("%s %q: want=%v got=%v (%s)", tc.family, tc.text, tc.want, r.confidence, r.desc)
		}
	}
}

func TestStructuralRules_DoNotFire(t *testing.T) {
	cases := []struct {
		family string
		text   string
	}{
		{"passive_voice", "She goes to school every day."},
		{"past_simple", "She goes to school every day."},
		{"comparative", "The letter was written by Tom yesterday."},
		{"present_continuous", "Every morning she reads the news."},
		{"inversion", "I have never seen him."},
		{"relative_clause", "I don't know who he is."},
	}
	for _, tc := range cases {
		if r, ok := evaluateFamily(t, tc.family, tc.text); ok {
			t.Fatalf("%s: unexpected rule %q for %q", tc.family, r.desc, tc.text)
		}
	}
}

func TestStructuralRules_FirstMatchWins(t *testing.T) {
	// Both the by-agent rule and the bare be + participle rule match; the
	// earlier one decides.
	r, ok := evaluateFamily(t, "passive_voice", "The window was broken by the boy.")
	if !ok || r.confidence != 0.95 {
		t.Fatalf("expected by-agent rule, got %+v ok=%v", r, ok)
	}
}

func TestResolveFamily(t *testing.T) {
	if f := resolveFamily("passive_voice", "anything"); f == nil || f.key != "passive_voice" {
		t.Fatalf("explicit pattern not honoured")
	}
	if f := resolveFamily("", lowerText("Passive Voice")); f == nil || f.key != "passive_voice" {
		t.Fatalf("name inference failed")
	}
	if f := resolveFamily("", "被动语态"); f == nil || f.key != "passive_voice" {
		t.Fatalf("chinese alias not matched")
	}
	if f := resolveFamily("no_such_family", "passive voice"); f != nil {
		t.Fatalf("unknown pattern must not fall back to name inference")
	}
	if f := resolveFamily("", "articles"); f != nil {
		t.Fatalf("expected no family, got %q", f.key)
	}
}

func TestStructuralScorer_NoFamily(t *testing.T) {
	e := testEntry(t, KnowledgePoint{ID: "kp_x", Name: "Articles", Keywords: []KeywordGroup{{Category: "x", Phrases: []string{"an hour"}}}})
	sig := StructuralScorer{}.Score(Prepare("The letter was written by Tom."), Question{}, e)
	if sig.Fired() {
		t.Fatalf("entry without a rule family must not fire")
	}
}

func TestRuleHelpers_DoNotAllocate(t *testing.T) {
	cleft := Prepare("It was Tom who broke the window yesterday.")
	adverb := Prepare("This is the village where I grew up.")
	if !hasCleft(cleft) || !hasRelativeAdverb(adverb) {
		t.Fatalf("helpers did not match their sentences")
	}
	allocs := testing.AllocsPerRun(200, func() {
		hasCleft(cleft)
		hasRelativeAdverb(adverb)
	})
	if allocs != 0 {
		t.Fatalf("allocs per run: want=0 got=%v", allocs)
	}
}
