package testutil

import (
	"context"
	"sync"

	"consent-go/internal/consent"
)

// RecordingReporter keeps every report it receives. Err, when set, is
// returned from every call after recording.
type RecordingReporter struct {
	mu      sync.Mutex
	reports []consent.Report
	Err     error
}

var _ consent.Reporter = (*RecordingReporter)(nil)

func (r *RecordingReporter) Report(_ context.Context, rep consent.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return r.Err
}

// Reports returns a copy of the received reports.
func (r *RecordingReporter) Reports() []consent.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]consent.Report(nil), r.reports...)
}

// RecordingQueue is a consent.SignalQueue that keeps pushed commands.
type RecordingQueue struct {
	Commands []consent.TagCommand
}

var _ consent.SignalQueue = (*RecordingQueue)(nil)

func (q *RecordingQueue) Push(cmd consent.TagCommand) {
	q.Commands = append(q.Commands, cmd)
}

// Last returns the most recent command, or false if none was pushed.
func (q *RecordingQueue) Last() (consent.TagCommand, bool) {
	if len(q.Commands) == 0 {
		return consent.TagCommand{}, false
	}
	return q.Commands[len(q.Commands)-1], true
}
