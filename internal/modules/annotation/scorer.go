package annotation

// SignalKind identifies which scorer produced a signal.
type SignalKind int

const (
	SignalKeyword SignalKind = iota
	SignalStructural
	SignalContext
	SignalExternal
)

func (k SignalKind) String() string {
	switch k {
	case SignalKeyword:
		return SourceKeyword
	case SignalStructural:
		return SourceStructural
	case SignalContext:
		return SourceContext
	case SignalExternal:
		return SourceExternal
	default:
		return "unknown"
	}
}

// Signal is one scorer's opinion about one knowledge point. Value is the
// scorer's own score; Parts carries the fields of ScoreBreakdown it owns.
type Signal struct {
	Kind    SignalKind
	Value   float64
	Matched []string
	Rule    string
	Parts   ScoreBreakdown
	Notes   []string
}

// Fired reports whether the signal counts as evidence on its own. Context
// signals never do.
func (s Signal) Fired() bool {
	switch s.Kind {
	case SignalKeyword:
		return len(s.Matched) > 0
	case SignalStructural:
		return s.Rule != ""
	default:
		return false
	}
}

// Scorer produces a signal for one knowledge point. Implementations must be
// pure and safe for concurrent use.
type Scorer interface {
	Kind() SignalKind
	Score(p *Prepared, q Question, e *Entry) Signal
}
