package stream

import (
	"fmt"
	"time"
)

// ProgressLogger rate-limits progress comment emission to roughly
// targetHz by tracking how often Tick is actually called and adjusting a
// decimation factor: every `decimate`-th Tick call emits, and the factor is
// doubled or halved to chase the target rate (C6 "A logging comment
// mechanism rate-limits progress messages to ~10 Hz via a dynamically
// adjusted decimation factor").
type ProgressLogger struct {
	w        *Writer
	targetHz float64

	decimate int
	calls    int
	last     time.Time
	fmtFunc  func(done, total int64) string
}

// NewProgressLogger builds a logger that writes through w at roughly
// targetHz, formatting each emitted comment with fmtFunc (or a default
// "n of m" message if nil).
func NewProgressLogger(w *Writer, targetHz float64, fmtFunc func(done, total int64) string) *ProgressLogger {
	if fmtFunc == nil {
		fmtFunc = func(done, total int64) string {
			return fmt.Sprintf(`<comment type="progress" value="%d/%d"/>`, done, total)
		}
	}

	return &ProgressLogger{w: w, targetHz: targetHz, decimate: 1, fmtFunc: fmtFunc}
}

// Tick reports (done, total) progress. Every `decimate`-th call since the
// last emission writes a comment and retunes decimate against the observed
// call interval.
func (p *ProgressLogger) Tick(done, total int64) error {
	p.calls++
	if p.calls < p.decimate {
		return nil
	}
	p.calls = 0

	now := time.Now()
	if !p.last.IsZero() && p.targetHz > 0 {
		elapsed := now.Sub(p.last).Seconds()
		targetInterval := 1.0 / p.targetHz
		switch {
		case elapsed < targetInterval/2 && p.decimate < 1<<20:
			p.decimate *= 2
		case elapsed > targetInterval*2 && p.decimate > 1:
			p.decimate /= 2
		}
	}
	p.last = now

	return p.w.WriteComment([]byte(p.fmtFunc(done, total)))
}
