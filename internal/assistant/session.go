package assistant

import (
	"sync"

	"devpro/internal/transcript"
)

// historyLimit bounds the in-memory conversation buffer. The durable
// record is the transcript file.
const historyLimit = 200

// Session is the per-assistant mutable context: the remembered user name
// and a buffer of recent transcript entries.
//
// The mutex only keeps individual reads and writes consistent. Overlapping
// dispatch tasks are not ordered against each other, so when two "my name
// is" turns race the last writer wins.
type Session struct {
	mu      sync.RWMutex
	name    string
	history []transcript.Entry
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName overwrites the remembered name. Nothing else ever changes it.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Publish appends e to the history buffer, dropping the oldest entry once
// the buffer is full.
func (s *Session) Publish(e transcript.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) >= historyLimit {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, e)
}

// History returns a copy of the buffered entries in arrival order.
func (s *Session) History() []transcript.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]transcript.Entry(nil), s.history...)
}
