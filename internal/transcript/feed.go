package transcript

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Sink receives every published entry.
type Sink interface {
	Publish(e Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Publish(e Entry) { f(e) }

// Feed fans transcript entries out to its sinks. Publishing is serialized
// so every sink observes the same order.
// Sinks run under the feed lock and must not block on I/O.
type Feed struct {
	mu    sync.Mutex
	sinks []Sink
	now   func() time.Time
}

func NewFeed(sinks ...Sink) *Feed {
	return &Feed{sinks: sinks, now: time.Now}
}

func (f *Feed) Attach(s Sink) {
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

func (f *Feed) Post(speaker Speaker, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e := Entry{Time: f.now(), Speaker: speaker, Text: text}
	for _, s := range f.sinks {
		s.Publish(e)
	}
}

func (f *Feed) User(text string)      { f.Post(SpeakerUser, text) }
func (f *Feed) Assistant(text string) { f.Post(SpeakerAssistant, text) }
func (f *Feed) System(text string)    { f.Post(SpeakerSystem, text) }

// Console renders entries the way the transcript window does:
// "[HH:MM:SS] Speaker: text" followed by a blank line.
type Console struct {
	W io.Writer
}

func (c Console) Publish(e Entry) {
	fmt.Fprintf(c.W, "[%s] %s: %s\n\n", e.Time.Format("15:04:05"), e.Speaker, e.Text)
}
