package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLog_AppendsTwoLineRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation_history.txt")

	if err := os.WriteFile(path, []byte("earlier\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := OpenLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l.now = func() time.Time { return time.Date(2026, 10, 14, 9, 5, 7, 0, time.Local) }

	if err := l.Append("what time is it", "The time is 09:05 AM"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Append("hola", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := "earlier\n" +
		"[2026-10-14 09:05:07] User: what time is it\n" +
		"[2026-10-14 09:05:07] Assistant: The time is 09:05 AM\n" +
		"[2026-10-14 09:05:07] User: hola\n" +
		"[2026-10-14 09:05:07] Assistant: hello\n"
	if string(got) != want {
		t.Fatalf("file contents:\n%s\nwant:\n%s", got, want)
	}
}

func TestOpenLog_BadPath(t *testing.T) {
	if _, err := OpenLog(filepath.Join(t.TempDir(), "missing", "log.txt")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
