package annotation

import "strings"

var (
	beVerb     = is("am", "is", "are", "was", "were", "be", "been", "being", "i'm", "isn't", "aren't", "wasn't", "weren't")
	beFinite   = is("am", "is", "are", "was", "were", "i'm", "isn't", "aren't", "wasn't", "weren't")
	bePresent  = is("am", "is", "are", "i'm", "isn't", "aren't", "you're", "we're", "they're", "he's", "she's", "it's")
	bePast     = is("was", "were", "wasn't", "weren't")
	haveAux    = anyOf(is("have", "has", "haven't", "hasn't"), suffix("'ve"))
	hadAux     = anyOf(is("had", "hadn't"), suffix("'d"))
	modalVerb  = is("can", "could", "may", "might", "must", "should", "need", "needn't", "mustn't", "can't", "couldn't", "shouldn't", "ought")
	futureAux  = anyOf(is("will", "shall", "won't", "shan't"), suffix("'ll"))
	auxiliary  = anyOf(is("do", "does", "did", "have", "has", "had", "is", "are", "was", "were", "am", "can", "could", "will", "would", "should", "shall", "may", "might", "must"), is("don't", "doesn't", "didn't"))
	subject3rd = is("he", "she", "it")
	subjectPl  = is("i", "you", "we", "they")
	subject    = anyOf(subject3rd, subjectPl)
	blank      = is(BlankToken)
	skippable  = is("always", "usually", "often", "sometimes", "never", "seldom", "rarely", "also", "not", "just", "still", "already", "really", "hardly", "generally", "normally")

	irregularPast = wordSet(
		"was", "were", "went", "came", "saw", "did", "had", "made", "took", "gave", "got", "wrote", "ate",
		"ran", "bought", "brought", "thought", "taught", "caught", "found", "told", "said", "left", "met",
		"felt", "kept", "sat", "stood", "spoke", "broke", "chose", "drove", "forgot", "knew", "grew", "drew",
		"threw", "began", "sang", "swam", "won", "lost", "sold", "sent", "spent", "built", "paid", "heard",
		"understood", "woke", "wore", "flew", "fell", "held", "led", "became", "rode", "rose", "shook",
		"stole", "hid", "fed", "fought", "hung", "meant", "slept", "drank", "sang", "lay", "taught", "put",
		"cut", "read", "let", "hit", "set", "shut",
	)
	irregularParticiple = wordSet(
		"written", "done", "made", "given", "taken", "seen", "known", "built", "sent", "told", "said",
		"found", "kept", "left", "held", "brought", "bought", "caught", "taught", "thought", "sold",
		"spoken", "broken", "chosen", "eaten", "driven", "forgotten", "gotten", "got", "hidden", "stolen",
		"shown", "grown", "drawn", "thrown", "worn", "born", "begun", "sung", "drunk", "swum", "run",
		"come", "become", "put", "cut", "set", "read", "hit", "let", "shut", "paid", "laid", "lost", "met",
		"spent", "stood", "understood", "won", "fed", "led", "heard", "hung", "meant", "gone", "been",
		"had", "felt", "slept", "flown", "fallen", "ridden", "risen", "shaken", "woken", "beaten",
		"bitten", "forgiven", "frozen", "mistaken", "lent", "held", "made", "sung", "wound", "dug",
	)
	notEdVerbs = wordSet(
		"need", "feed", "seed", "speed", "bed", "red", "shed", "bleed", "breed", "indeed", "hundred",
		"proceed", "succeed", "exceed", "weed", "tired", "bored", "interested", "excited", "surprised",
		"worried", "pleased", "scared", "ashamed", "embarrassed",
	)
	notIngWords = wordSet(
		"thing", "something", "nothing", "anything", "everything", "morning", "evening", "king", "ring",
		"sing", "bring", "spring", "during", "string", "ceiling", "wing", "sibling", "pudding", "wedding",
		"building", "meeting", "ending", "beginning", "feeling", "painting", "darling", "sling", "swing",
	)
	notErWords = wordSet(
		"never", "other", "another", "teacher", "water", "together", "brother", "sister", "mother", "father",
		"after", "over", "under", "paper", "number", "summer", "winter", "letter", "remember", "answer",
		"whether", "either", "neither", "player", "computer", "dinner", "weather", "finger", "daughter",
		"matter", "her", "ever", "however", "river", "corner", "driver", "worker", "singer", "writer",
		"reader", "manager", "member", "chapter", "centre", "center", "enter", "order", "offer", "rather",
		"wonder", "consider", "discover", "cover", "deliver", "prefer", "suffer", "gather", "whenever",
		"wherever", "whatever", "flower", "tower", "power", "hunger", "danger", "leader", "officer",
		"butter", "murder", "soccer", "partner", "user", "owner", "stranger", "passenger", "banker",
	)
	notEstWords = wordSet(
		"interest", "forest", "test", "rest", "west", "guest", "nest", "chest", "honest", "request",
		"suggest", "contest", "protest", "arrest", "invest", "digest", "modest", "harvest", "manifest",
		"priest", "quest", "pest", "vest", "attest",
	)
	comparativeIrregular = is("better", "worse", "more", "less", "fewer", "further", "farther", "elder", "older", "bigger", "smaller")
	superlativeIrregular = is("best", "worst", "most", "least", "eldest", "biggest")

	frequencyAdverbs = is("usually", "always", "often", "sometimes", "seldom", "rarely", "never", "generally", "normally", "everyday")
	timeNouns        = wordSet(
		"day", "days", "morning", "mornings", "afternoon", "afternoons", "evening", "evenings", "night",
		"nights", "week", "weeks", "weekend", "weekends", "month", "months", "year", "years", "monday",
		"tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "mondays", "tuesdays",
		"wednesdays", "thursdays", "fridays", "saturdays", "sundays", "term", "summer", "winter",
		"spring", "autumn", "time",
	)
	pluralDays = is("mondays", "tuesdays", "wednesdays", "thursdays", "fridays", "saturdays", "sundays", "weekends")
	months     = wordSet(
		"january", "february", "march", "april", "may", "june", "july", "august", "september", "october",
		"november", "december",
	)
	dayNames = wordSet("monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "weekend", "weekends")
	seasons  = wordSet("spring", "summer", "autumn", "fall", "winter")
	dayParts = wordSet("morning", "afternoon", "evening", "night", "noon", "midnight", "dawn", "dusk", "christmas", "birthday", "o'clock", "present", "moment", "weekend")

	perfectMarkers = []string{"since", "already", "yet", "ever", "so far", "up to now", "up till now", "recently", "lately", "many times", "for years", "for a long time", "just"}
	futureMarkers  = []string{"tomorrow", "next week", "next month", "next year", "next time", "soon", "in the future", "the day after tomorrow", "tonight", "in a few days"}
	continuousNow  = []string{"now", "right now", "at the moment", "at present", "look", "listen", "these days"}
	pastProgress   = []string{"when", "while", "at this time yesterday", "at that time", "at that moment", "this time yesterday", "at the time"}
	pastPerfectCue = []string{"by the time", "before", "after", "by the end of", "when", "already", "by then"}

	negativeOpeners = []string{
		"never", "seldom", "rarely", "hardly", "scarcely", "barely", "little", "not only", "no sooner",
		"not until", "under no circumstances", "in no way", "at no time", "nowhere", "on no account", "by no means",
	}
	gerundVerbs = is(
		"enjoy", "enjoys", "enjoyed", "finish", "finishes", "finished", "mind", "minds", "minded", "avoid",
		"avoids", "avoided", "practise", "practice", "practises", "practices", "practised", "practiced",
		"keep", "keeps", "kept", "consider", "considers", "considered", "miss", "misses", "missed",
		"imagine", "imagines", "imagined", "suggest", "suggests", "suggested", "admit", "admits",
		"admitted", "deny", "denies", "denied", "risk", "risks", "risked", "quit", "quits", "delay",
		"delays", "delayed", "dislike", "dislikes", "disliked", "appreciate", "appreciated",
	)
	infinitiveVerbs = is(
		"want", "wants", "wanted", "hope", "hopes", "hoped", "decide", "decides", "decided", "plan", "plans",
		"planned", "agree", "agrees", "agreed", "refuse", "refuses", "refused", "promise", "promises",
		"promised", "expect", "expects", "expected", "manage", "manages", "managed", "fail", "fails",
		"failed", "learn", "learns", "learned", "learnt", "seem", "seems", "seemed", "try", "tries",
		"tried", "wish", "wishes", "wished", "offer", "offers", "offered", "choose", "chose", "pretend",
		"pretended", "afford", "arrange", "arranged", "like", "love", "hate", "prefer", "need", "needs",
		"needed", "would",
	)
	prepositions      = is("at", "in", "of", "for", "about", "by", "without", "after", "before", "on", "from", "to")
	gerundToPhrases   = []string{"look forward to", "looking forward to", "be used to", "is used to", "am used to", "are used to", "get used to", "devoted to", "object to", "when it comes to"}
	gerundFixed       = []string{"can't help", "cannot help", "feel like", "give up", "gave up", "spend time", "have fun", "have difficulty", "have trouble", "it's no use", "it is no use", "it's worth", "is worth", "was worth", "busy"}
	timeNounsBeforeWh = is("day", "time", "year", "moment", "days", "years", "morning", "night", "week", "age", "period", "season")
	placeNouns        = is("place", "house", "city", "town", "school", "room", "village", "hotel", "factory", "park", "country", "street", "shop", "restaurant", "home", "office", "village", "library", "hospital", "area")
	clauseVerbs       = is(
		"know", "knows", "knew", "wonder", "wonders", "wondered", "ask", "asks", "asked", "tell", "tells",
		"told", "sure", "idea", "decide", "decided", "understand", "understood", "remember", "forget",
		"forgot", "explain", "explained", "show", "showed", "find", "found", "learn", "see", "guess",
	)
	thatIntroducers = is(
		"said", "say", "says", "think", "thinks", "thought", "know", "knows", "knew", "believe", "believes",
		"believed", "so", "such", "sure", "glad", "afraid", "told", "hope", "hopes", "hoped", "clear", "true",
		"fact", "news", "idea", "reported", "suggest", "suggested", "insist", "insisted", "now", "feel",
		"felt", "realize", "realized", "realise", "realised", "found", "find", "is", "was", "means", "agree",
		"agreed", "happy", "sorry", "possible", "likely", "important", "necessary", "mean",
	)
	reportingVerbs  = is("said", "says", "told", "tells", "asked", "asks", "explained", "reported", "replied", "answered", "added", "announced", "admitted", "complained", "promised", "warned", "informed")
	objectPronouns  = is("me", "him", "her", "us", "them", "you", "it")
	whWords         = is("what", "where", "when", "why", "how", "who", "whom", "which", "whose", "whether", "if")
	mandativeVerbs  = is("suggest", "suggested", "suggests", "insist", "insisted", "insists", "demand", "demanded", "demands", "require", "required", "requires", "order", "ordered", "advise", "advised", "recommend", "recommended", "request", "requested", "propose", "proposed", "command", "commanded", "urge", "urged")
	subjunctiveForm = is("were", "had", "could", "would", "did", "might", "should")
	motionVerbs     = is("comes", "come", "goes", "go", "came", "went", "lies", "lay", "stands", "stood", "rushed", "ran", "runs", "sat", "flew", "jumped")
)

func suffix(s string) wordPred {
	return func(w string) bool { return len(w) > len(s) && strings.HasSuffix(w, s) }
}

// Word predicates used inside rule bodies.
var (
	toWord            = is("to")
	theWord           = is("the")
	thanWord          = is("than")
	ifUnless          = is("if", "unless")
	ifWord            = is("if")
	goingWord         = is("going")
	asWord            = is("as")
	pastAdverbs       = is("yesterday", "ago")
	conditionalModals = is("would", "could", "might", "wouldn't", "couldn't")
	wishVerbs         = is("wish", "wishes", "wished")
	whoseWhom         = is("whose", "whom")
	whetherWord       = is("whether")
	relativeAdverbs   = is("where", "when", "why")
	wereWord          = is("were")
	unlessWord        = is("unless")
	tooWord           = is("too")
	requestVerbs      = is("told", "asked", "tell", "ask", "ordered", "warned")
	theresWord        = is("there's")
	thereWord         = is("there")
	determiners       = is("the", "my", "his", "her", "their", "our", "your")
	thatWord          = is("that")
	soNeitherNor      = is("so", "neither", "nor")
	onWord            = is("on")
	deductionModals   = is("must", "can't", "couldn't", "may", "might", "could")
	lastWord          = is("last")
	itIsForms         = is("it's", "is", "was")
	isWas             = is("is", "was")
	beFiniteNoAm      = is("is", "are", "was", "were", "isn't", "aren't", "wasn't", "weren't")
	timePrepositions  = is("in", "on", "at")
	inWord            = is("in")
	ifThough          = is("if", "though")
	inversionOpeners  = is("here", "there", "out", "away", "in", "up", "down")
	everyWord         = is("every")
	enoughWord        = is("enough")
	doesntWord        = is("doesn't")
	didntWord         = is("didn't")
	byWord            = is("by")
	beenWord          = is("been")
	beHave            = is("be", "have")
	beWord            = is("be")

	shouldBeOrBlank   = anyOf(is("should", "be"), blank)
	baseOrBlank       = anyOf(isBaseVerb, blank)
	placeOrTimeNoun   = anyOf(placeNouns, timeNounsBeforeWh)
	modalOrFuture     = anyOf(modalVerb, futureAux)
	participleOrBlank = anyOf(isPastParticiple, blank)
	perfectAux        = anyOf(haveAux, hadAux)
	timeNoun          = in(timeNouns)
)

func isPastParticiple(w string) bool {
	if _, ok := irregularParticiple[w]; ok {
		return true
	}
	return isRegularEd(w)
}

func isRegularEd(w string) bool {
	if len(w) <= 3 || !strings.HasSuffix(w, "ed") {
		return false
	}
	if _, ok := notEdVerbs[w]; ok {
		return false
	}
	return true
}

func isPastForm(w string) bool {
	if _, ok := irregularPast[w]; ok {
		return true
	}
	if w == "didn't" || w == "wasn't" || w == "weren't" {
		return true
	}
	return isRegularEd(w)
}

func isIng(w string) bool {
	if len(w) <= 4 || !strings.HasSuffix(w, "ing") {
		return false
	}
	_, excluded := notIngWords[w]
	return !excluded
}

func isComparativeWord(w string) bool {
	if comparativeIrregular(w) {
		return true
	}
	if len(w) <= 4 || !strings.HasSuffix(w, "er") {
		return false
	}
	_, excluded := notErWords[w]
	return !excluded
}

func isSuperlativeWord(w string) bool {
	if superlativeIrregular(w) {
		return true
	}
	if len(w) <= 5 || !strings.HasSuffix(w, "est") {
		return false
	}
	_, excluded := notEstWords[w]
	return !excluded
}

// isThirdPersonVerb only runs on the token right after he/she/it.
func isThirdPersonVerb(w string) bool {
	if w == "was" || len(w) < 3 {
		return false
	}
	return strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss")
}

func isBaseVerb(w string) bool {
	if w == "" || w == BlankToken || beVerb(w) || modalVerb(w) || futureAux(w) {
		return false
	}
	if isPastForm(w) || isIng(w) {
		return false
	}
	return true
}

func isYear(w string) bool {
	if len(w) != 4 {
		return false
	}
	if w[0] != '1' && w[0] != '2' {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < '0' || w[i] > '9' {
			return false
		}
	}
	return true
}

func isClockTime(w string) bool {
	if w == "" {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < '0' || w[i] > '9' {
			return false
		}
	}
	return len(w) <= 2
}

func isVerbish(w string) bool {
	return beVerb(w) || modalVerb(w) || futureAux(w) || haveAux(w) || hadAux(w) || isPastForm(w) ||
		isThirdPersonVerb(w) || w == "do" || w == "does" || w == "did" || w == "would"
}

// subjectThenVerb finds subject, skips adverbs, and tests the next token.
func subjectThenVerb(p *Prepared, subj wordPred, verb wordPred) bool {
	toks := p.Tokens
	for i, t := range toks {
		if !subj(t) {
			continue
		}
		j := i + 1
		for j < len(toks) && skippable(toks[j]) {
			j++
		}
		if j < len(toks) && verb(toks[j]) {
			return true
		}
	}
	return false
}

func hasFrequencyMarker(p *Prepared) bool {
	if hasWord(p, frequencyAdverbs) {
		return true
	}
	if seq(p, everyWord, 1, timeNoun) {
		return true
	}
	if seq(p, onWord, 1, pluralDays) {
		return true
	}
	return hasPhrase(p, "once a", "twice a", "three times a", "from time to time", "every other")
}

func hasPastMarker(p *Prepared) bool {
	if hasWord(p, pastAdverbs) {
		return true
	}
	if seq(p, lastWord, 1, timeNoun) {
		return true
	}
	if seq(p, inWord, 1, isYear) {
		return true
	}
	return hasPhrase(p, "just now", "the other day", "once upon a time", "in the past", "at that time", "the day before")
}

func hasTimeAfterPreposition(p *Prepared) bool {
	target := func(w string) bool {
		if _, ok := months[w]; ok {
			return true
		}
		if _, ok := dayNames[w]; ok {
			return true
		}
		if _, ok := seasons[w]; ok {
			return true
		}
		if _, ok := dayParts[w]; ok {
			return true
		}
		return isYear(w) || isClockTime(w)
	}
	return seq(p, timePrepositions, 2, target)
}

func hasReportingFrame(p *Prepared) bool {
	toks := p.Tokens
	for i, t := range toks {
		if !reportingVerbs(t) {
			continue
		}
		j := i + 1
		if j < len(toks) && objectPronouns(toks[j]) {
			j++
		}
		if j < len(toks) && (toks[j] == "that" || whWords(toks[j])) {
			return true
		}
	}
	return false
}

func hasRelativePronoun(p *Prepared) bool {
	toks := p.Tokens
	for i := 1; i < len(toks)-1; i++ {
		switch toks[i] {
		case "who", "which":
			if clauseVerbs(toks[i-1]) || toks[i-1] == "of" {
				continue
			}
			return true
		}
	}
	return false
}

func hasRelativeThat(p *Prepared) bool {
	toks := p.Tokens
	for i := 1; i < len(toks)-1; i++ {
		if toks[i] != "that" {
			continue
		}
		if thatIntroducers(toks[i-1]) || reportingVerbs(toks[i-1]) || objectPronouns(toks[i-1]) {
			continue
		}
		if isVerbish(toks[i+1]) || toks[i+1] == BlankToken {
			return true
		}
	}
	return false
}

func hasRelativeAdverb(p *Prepared) bool {
	return seq(p, placeOrTimeNoun, 1, relativeAdverbs)
}

func hasCleft(p *Prepared) bool {
	toks := p.Tokens
	for i := 0; i+1 < len(toks); i++ {
		opener := (toks[i] == "it" && isWas(toks[i+1])) || toks[i] == "it's"
		if !opener {
			continue
		}
		start := i + 2
		if toks[i] == "it's" {
			start = i + 1
		}
		for j := start + 1; j < len(toks) && j <= start+6; j++ {
			if toks[j] == "that" || toks[j] == "who" {
				return true
			}
		}
	}
	return false
}

func opensWithNegative(p *Prepared) bool {
	for _, opener := range negativeOpeners {
		if !startsWith(p, opener) {
			continue
		}
		n := len(strings.Fields(opener))
		if within(p.Tokens, n-1, 4, auxiliary) >= 0 {
			return true
		}
	}
	return false
}

var ruleFamilies = []*ruleFamily{
	{
		key:     "present_perfect",
		aliases: []string{"present perfect", "现在完成"},
		rules: []rule{
			{"have/has + past participle with a perfect time marker", 0.93, func(p *Prepared) bool {
				return seq(p, haveAux, 3, isPastParticiple) && hasPhrase(p, perfectMarkers...)
			}},
			{"have/has + past participle", 0.88, func(p *Prepared) bool {
				return seq(p, haveAux, 2, participleOrBlank)
			}},
		},
	},
	{
		key:     "past_perfect",
		aliases: []string{"past perfect", "过去完成"},
		rules: []rule{
			{"had + past participle with an earlier-past cue", 0.92, func(p *Prepared) bool {
				return seq(p, hadAux, 2, isPastParticiple) && hasPhrase(p, pastPerfectCue...)
			}},
			{"had + past participle", 0.86, func(p *Prepared) bool {
				return seq(p, hadAux, 2, isPastParticiple)
			}},
		},
	},
	{
		key:     "present_continuous",
		aliases: []string{"present continuous", "present progressive", "现在进行"},
		rules: []rule{
			{"am/is/are + -ing with a now marker", 0.92, func(p *Prepared) bool {
				return seq(p, bePresent, 2, isIng) && hasPhrase(p, continuousNow...)
			}},
			{"am/is/are + -ing", 0.87, func(p *Prepared) bool {
				return seq(p, bePresent, 2, isIng)
			}},
		},
	},
	{
		key:     "past_continuous",
		aliases: []string{"past continuous", "past progressive", "过去进行"},
		rules: []rule{
			{"was/were + -ing with an interrupting or point-in-time cue", 0.91, func(p *Prepared) bool {
				return seq(p, bePast, 2, isIng) && hasPhrase(p, pastProgress...)
			}},
			{"was/were + -ing", 0.86, func(p *Prepared) bool {
				return seq(p, bePast, 2, isIng)
			}},
		},
	},
	{
		key:     "present_simple",
		aliases: []string{"present simple", "simple present", "habitual", "一般现在"},
		rules: []rule{
			{"habitual time marker with third-person singular verb", 0.90, func(p *Prepared) bool {
				return hasFrequencyMarker(p) && subjectThenVerb(p, subject3rd, isThirdPersonVerb)
			}},
			{"habitual time marker with base-form verb", 0.87, func(p *Prepared) bool {
				return hasFrequencyMarker(p) && subjectThenVerb(p, subjectPl, isBaseVerb)
			}},
			{"habitual time marker with a blank for the verb", 0.85, func(p *Prepared) bool {
				return hasFrequencyMarker(p) && subjectThenVerb(p, subject, blank)
			}},
			{"doesn't + base verb", 0.85, func(p *Prepared) bool {
				return seq(p, doesntWord, 1, isBaseVerb)
			}},
		},
	},
	{
		key:     "past_simple",
		aliases: []string{"past simple", "simple past", "一般过去"},
		rules: []rule{
			{"past time marker with past-tense verb", 0.88, func(p *Prepared) bool {
				return hasPastMarker(p) && hasWord(p, isPastForm)
			}},
			{"past time marker with a blank for the verb", 0.85, func(p *Prepared) bool {
				return hasPastMarker(p) && hasWord(p, blank)
			}},
			{"did/didn't + base verb", 0.85, func(p *Prepared) bool {
				return seq(p, didntWord, 1, isBaseVerb) || (firstToken(p) == "did" && seq(p, subject, 1, isBaseVerb))
			}},
		},
	},
	{
		key:     "future_simple",
		aliases: []string{"future", "一般将来"},
		rules: []rule{
			{"will/shall + base verb with a future time marker", 0.92, func(p *Prepared) bool {
				return seq(p, futureAux, 2, baseOrBlank) && hasPhrase(p, futureMarkers...)
			}},
			{"be going to + base verb", 0.90, func(p *Prepared) bool {
				return seq3(p, beFinite, 2, goingWord, 1, toWord) && hasPhrase(p, futureMarkers...)
			}},
			{"will/shall + base verb", 0.88, func(p *Prepared) bool {
				return seq(p, futureAux, 2, isBaseVerb)
			}},
			{"be going to", 0.86, func(p *Prepared) bool {
				return seq3(p, beFinite, 2, goingWord, 1, toWord)
			}},
		},
	},
	{
		key:     "passive_voice",
		aliases: []string{"passive", "被动"},
		rules: []rule{
			{"be-verb + past participle + by-agent", 0.95, func(p *Prepared) bool {
				return seq3(p, beVerb, 2, isPastParticiple, 4, byWord)
			}},
			{"modal + be + past participle", 0.90, func(p *Prepared) bool {
				return seq3(p, modalOrFuture, 1, beWord, 2, isPastParticiple)
			}},
			{"have/has/had been + past participle", 0.90, func(p *Prepared) bool {
				return seq3(p, perfectAux, 1, beenWord, 2, isPastParticiple)
			}},
			{"be-verb + past participle", 0.85, func(p *Prepared) bool {
				return seq(p, beFinite, 2, func(w string) bool {
					_, adjective := notEdVerbs[w]
					return !adjective && isPastParticiple(w)
				})
			}},
		},
	},
	{
		key:     "comparative",
		aliases: []string{"comparative", "comparison", "比较级"},
		rules: []rule{
			{"comparative form + than", 0.92, func(p *Prepared) bool {
				return seq(p, isComparativeWord, 3, thanWord)
			}},
			{"the + comparative, the + comparative", 0.90, func(p *Prepared) bool {
				return startsWith(p, "the more", "the less") || seq3(p, theWord, 1, isComparativeWord, 6, theWord)
			}},
			{"than", 0.85, func(p *Prepared) bool {
				return hasWord(p, thanWord)
			}},
			{"as + adjective + as", 0.86, func(p *Prepared) bool {
				return seq(p, asWord, 2, asWord) && !hasPhrase(p, "as well as", "as soon as", "as long as", "such as", "as if", "as though")
			}},
		},
	},
	{
		key:     "superlative",
		aliases: []string{"superlative", "最高级"},
		rules: []rule{
			{"one of the + superlative", 0.92, func(p *Prepared) bool {
				return hasPhrase(p, "one of the") && seq(p, theWord, 2, isSuperlativeWord)
			}},
			{"the most/least + adjective", 0.90, func(p *Prepared) bool {
				return hasPhrase(p, "the most", "the least")
			}},
			{"the + -est form", 0.90, func(p *Prepared) bool {
				return seq(p, determiners, 1, isSuperlativeWord)
			}},
		},
	},
	{
		key:     "relative_clause",
		aliases: []string{"relative clause", "attributive clause", "定语从句"},
		rules: []rule{
			{"whose/whom introducing a clause", 0.90, func(p *Prepared) bool {
				return indexFrom(p.Tokens, 1, whoseWhom) >= 1
			}},
			{"noun + who/which + clause", 0.88, hasRelativePronoun},
			{"noun + that + verb", 0.86, hasRelativeThat},
			{"place/time noun + where/when", 0.86, hasRelativeAdverb},
		},
	},
	{
		key:     "noun_clause",
		aliases: []string{"noun clause", "object clause", "宾语从句"},
		rules: []rule{
			{"cognition verb + wh-word/if/whether", 0.87, func(p *Prepared) bool {
				return seq(p, clauseVerbs, 2, whWords)
			}},
			{"whether", 0.85, func(p *Prepared) bool {
				return hasWord(p, whetherWord)
			}},
		},
	},
	{
		key:     "inversion",
		aliases: []string{"inversion", "倒装"},
		rules: []rule{
			{"negative opener + auxiliary", 0.93, opensWithNegative},
			{"only + adverbial + auxiliary", 0.90, func(p *Prepared) bool {
				return firstToken(p) == "only" && within(p.Tokens, 0, 5, auxiliary) >= 0
			}},
			{"so/neither/nor + auxiliary", 0.88, func(p *Prepared) bool {
				return soNeitherNor(firstToken(p)) && within(p.Tokens, 0, 1, auxiliary) == 1
			}},
			{"adverb of place + motion verb", 0.86, func(p *Prepared) bool {
				return inversionOpeners(firstToken(p)) && within(p.Tokens, 0, 1, motionVerbs) == 1
			}},
		},
	},
	{
		key:     "conditional",
		aliases: []string{"conditional", "if clause", "条件"},
		rules: []rule{
			{"if-clause with would/could/might", 0.90, func(p *Prepared) bool {
				return seq(p, ifWord, 12, conditionalModals)
			}},
			{"if/unless clause with will", 0.88, func(p *Prepared) bool {
				return seq(p, ifUnless, 12, futureAux) || seq(p, futureAux, 12, ifUnless)
			}},
			{"unless / as long as / provided that", 0.85, func(p *Prepared) bool {
				return hasWord(p, unlessWord) || hasPhrase(p, "as long as", "provided that", "on condition that")
			}},
			{"sentence-initial if", 0.85, func(p *Prepared) bool {
				return firstToken(p) == "if"
			}},
		},
	},
	{
		key:     "subjunctive",
		aliases: []string{"subjunctive", "虚拟"},
		rules: []rule{
			{"if + subject + were", 0.92, func(p *Prepared) bool {
				return seq3(p, ifWord, 1, subject, 1, wereWord)
			}},
			{"wish + past form", 0.90, func(p *Prepared) bool {
				return seq(p, wishVerbs, 3, subjunctiveForm)
			}},
			{"as if / as though + past form", 0.90, func(p *Prepared) bool {
				return hasPhrase(p, "as if", "as though") && seq(p, ifThough, 3, subjunctiveForm)
			}},
			{"mandative verb + that + should/base", 0.87, func(p *Prepared) bool {
				return seq3(p, mandativeVerbs, 1, thatWord, 4, shouldBeOrBlank)
			}},
			{"it is (high) time + past form", 0.86, func(p *Prepared) bool {
				return hasPhrase(p, "it is time", "it's time", "it is high time", "it's high time", "it is about time") && hasWord(p, isPastForm)
			}},
		},
	},
	{
		key:     "gerund",
		aliases: []string{"gerund", "动名词", "-ing form"},
		rules: []rule{
			{"gerund-taking verb + -ing", 0.90, func(p *Prepared) bool {
				return seq(p, gerundVerbs, 2, isIng) || (hasPhrase(p, gerundToPhrases...) && hasWord(p, isIng))
			}},
			{"fixed expression + -ing", 0.88, func(p *Prepared) bool {
				return hasPhrase(p, gerundFixed...) && hasWord(p, isIng)
			}},
			{"preposition + -ing", 0.85, func(p *Prepared) bool {
				return seq(p, prepositions, 1, isIng) && !seq(p, beVerb, 2, isIng)
			}},
			{"-ing subject", 0.86, func(p *Prepared) bool {
				toks := p.Tokens
				return len(toks) > 1 && isIng(toks[0]) && (beFinite(toks[1]) || isThirdPersonVerb(toks[1]))
			}},
		},
	},
	{
		key:     "infinitive",
		aliases: []string{"infinitive", "不定式", "to do"},
		rules: []rule{
			{"too + adjective + to", 0.92, func(p *Prepared) bool {
				return seq(p, tooWord, 3, toWord)
			}},
			{"in order to / so as to", 0.90, func(p *Prepared) bool {
				return hasPhrase(p, "in order to", "so as to")
			}},
			{"verb + to + base verb", 0.88, func(p *Prepared) bool {
				return seq3(p, infinitiveVerbs, 2, toWord, 1, baseOrBlank)
			}},
			{"enough + to", 0.88, func(p *Prepared) bool {
				return seq(p, enoughWord, 3, toWord)
			}},
			{"it is + adjective + to", 0.86, func(p *Prepared) bool {
				return seq(p, itIsForms, 4, toWord) && hasPhrase(p, "it is", "it was", "it's")
			}},
		},
	},
	{
		key:     "modal_verbs",
		aliases: []string{"modal", "情态"},
		rules: []rule{
			{"modal of deduction + be/have", 0.90, func(p *Prepared) bool {
				return seq(p, deductionModals, 1, beHave)
			}},
			{"modal + base verb", 0.86, func(p *Prepared) bool {
				return seq(p, modalVerb, 2, baseOrBlank) || hasPhrase(p, "ought to", "had better", "have to", "has to")
			}},
		},
	},
	{
		key:     "there_be",
		aliases: []string{"there be", "there is", "there-be", "存在句"},
		rules: []rule{
			{"there + be-verb", 0.92, func(p *Prepared) bool {
				return seq(p, thereWord, 1, beFiniteNoAm) || hasWord(p, theresWord)
			}},
			{"there + will/has/used to + be", 0.90, func(p *Prepared) bool {
				return hasPhrase(p, "there will be", "there has been", "there have been", "there used to be", "there is going to be", "there must be")
			}},
		},
	},
	{
		key:     "prepositions_time",
		aliases: []string{"preposition", "介词"},
		rules: []rule{
			{"in/on/at + time expression", 0.87, hasTimeAfterPreposition},
			{"blank before a time expression", 0.85, func(p *Prepared) bool {
				return seq(p, blank, 2, func(w string) bool {
					_, ok := dayParts[w]
					if !ok {
						_, ok = months[w]
					}
					return ok || isYear(w)
				})
			}},
		},
	},
	{
		key:     "reported_speech",
		aliases: []string{"reported speech", "indirect speech", "direct speech", "间接引语"},
		rules: []rule{
			{"reporting verb + that/wh-word", 0.88, hasReportingFrame},
			{"told/asked + object + to", 0.86, func(p *Prepared) bool {
				return seq3(p, requestVerbs, 1, objectPronouns, 1, toWord)
			}},
		},
	},
	{
		key:     "emphatic_cleft",
		aliases: []string{"emphatic", "emphasis", "cleft", "强调"},
		rules: []rule{
			{"it is/was ... that/who", 0.88, hasCleft},
		},
	},
}

var familiesByKey = func() map[string]*ruleFamily {
	m := make(map[string]*ruleFamily, len(ruleFamilies))
	for _, f := range ruleFamilies {
		m[f.key] = f
	}
	return m
}()
