// Package progress carries fire-and-forget crawl and analysis progress
// events. Correctness never depends on a sink being present.
package progress

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Event is one progress update.
type Event struct {
	PagesCrawled    int
	TotalDiscovered int
	Message         string
}

// Sink receives progress events.
type Sink interface {
	Emit(Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// Emit sends an event to sink if one is set. Safe on a nil sink.
func Emit(sink Sink, e Event) {
	if sink == nil {
		return
	}
	sink.Emit(e)
}

// SpinnerSink renders progress on a terminal spinner.
type SpinnerSink struct {
	mu sync.Mutex
	sp *spinner.Spinner
}

// NewSpinnerSink starts a spinner and returns a sink that updates it.
func NewSpinnerSink() *SpinnerSink {
	sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	sp.Start()
	return &SpinnerSink{sp: sp}
}

func (s *SpinnerSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp.Suffix = fmt.Sprintf(" [%d/%d] %s", e.PagesCrawled, e.TotalDiscovered, shorten(e.Message))
}

// Stop halts the spinner. Call once the run is finished.
func (s *SpinnerSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp.Stop()
}

// shorten trims long URLs in messages so the spinner line stays readable.
func shorten(msg string) string {
	const maxLen = 60
	if len(msg) <= maxLen {
		return msg
	}
	if u, err := url.Parse(msg); err == nil && u.Host != "" {
		path := u.Path
		if len(path) > maxLen-len(u.Host)-3 {
			path = "..." + path[len(path)-(maxLen-len(u.Host)-3):]
		}
		return u.Host + path
	}
	return msg[:maxLen-3] + "..."
}
