package transcript

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const logTimeLayout = "2006-01-02 15:04:05"

// Log is the append-only conversation history file. Each turn becomes two
// lines sharing one timestamp. The file is never rotated or truncated, so
// it grows for as long as the assistant is used.
type Log struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}
	return &Log{f: f, now: time.Now}, nil
}

func (l *Log) Append(user, assistant string) error {
	ts := l.now().Format(logTimeLayout)
	record := fmt.Sprintf("[%s] User: %s\n[%s] Assistant: %s\n", ts, user, ts, assistant)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.WriteString(record); err != nil {
		return fmt.Errorf("append conversation log: %w", err)
	}
	return nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
