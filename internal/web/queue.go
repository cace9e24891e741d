package web

import (
	"sync"

	"consent-go/internal/consent"
)

// signalRecorder collects tag commands so they can be returned to the page,
// which replays them onto its own tag-manager queue.
type signalRecorder struct {
	mu       sync.Mutex
	commands []consent.TagCommand
}

var _ consent.SignalQueue = (*signalRecorder)(nil)

func (q *signalRecorder) Push(cmd consent.TagCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.commands = append(q.commands, cmd)
}

func (q *signalRecorder) Commands() []consent.TagCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]consent.TagCommand{}, q.commands...)
}
