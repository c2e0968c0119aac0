package recognition

import (
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/moji-recognizer/pkg/ranker"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

// State is the stage a recognize request has reached
type State int

const (
	Idle State = iota
	CaptureComplete
	Normalized
	Classified
	Ranked
	Displayed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CaptureComplete:
		return "capture-complete"
	case Normalized:
		return "normalized"
	case Classified:
		return "classified"
	case Ranked:
		return "ranked"
	case Displayed:
		return "displayed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of one recognize request. A Failed outcome carries
// only its error, never partial results.
type Outcome struct {
	ID            string
	Family        types.Family
	Language      types.Language
	State         State
	Best          ranker.Ranked
	Top           []ranker.Ranked
	Probabilities []float64
	Err           error
	Started       time.Time
	Elapsed       time.Duration
}

func newOutcome(family types.Family, lang types.Language) *Outcome {
	return &Outcome{
		ID:       uuid.NewString(),
		Family:   family,
		Language: lang,
		State:    Idle,
		Started:  time.Now(),
	}
}

// advance moves the request to the next stage. Failed is terminal.
func (o *Outcome) advance(s State) {
	if o.State == Failed {
		return
	}
	o.State = s
}

func (o *Outcome) fail(err error) *Outcome {
	o.State = Failed
	o.Err = err
	o.Best = ranker.Ranked{}
	o.Top = nil
	o.Probabilities = nil
	o.Elapsed = time.Since(o.Started)
	return o
}

// OK reports whether the request produced a ranking
func (o *Outcome) OK() bool {
	return o.State == Ranked || o.State == Displayed
}

// MarkDisplayed records that the result reached the user. Only ranked
// outcomes can be displayed; the call is a no-op otherwise.
func (o *Outcome) MarkDisplayed() {
	if o.State == Ranked {
		o.State = Displayed
	}
}
