package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/menta2k/moji-recognizer/pkg/recognition"
)

// printer shows outcomes on a terminal. Background recognitions print
// while the shell waits for input, so writes are serialized.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) Show(o *recognition.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, formatOutcome(o))
}

// Reset has nothing to erase on a scrolling terminal
func (p *printer) Reset() {}

func formatOutcome(o *recognition.Outcome) string {
	if o.Err != nil {
		return fmt.Sprintf("[%s] no result: %v", o.Family, o.Err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %d%%", o.Family, o.Best.Label, o.Best.Percent())
	for i, r := range o.Top {
		fmt.Fprintf(&b, "\n  %d. %-8s %3d%%", i+1, r.Label, r.Percent())
	}
	return b.String()
}

type candidate struct {
	Label       string  `json:"label"`
	Index       int     `json:"index"`
	Probability float64 `json:"probability"`
}

type report struct {
	ID         string      `json:"id"`
	File       string      `json:"file"`
	Family     string      `json:"family"`
	Language   string      `json:"language"`
	State      string      `json:"state"`
	Error      string      `json:"error,omitempty"`
	Candidates []candidate `json:"candidates,omitempty"`
	ElapsedMS  int64       `json:"elapsed_ms"`
}

func newReport(file string, o *recognition.Outcome) report {
	r := report{
		ID:        o.ID,
		File:      file,
		Family:    string(o.Family),
		Language:  string(o.Language),
		State:     o.State.String(),
		ElapsedMS: o.Elapsed.Milliseconds(),
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	for _, c := range o.Top {
		r.Candidates = append(r.Candidates, candidate{Label: c.Label, Index: c.Index, Probability: c.Probability})
	}
	return r
}
