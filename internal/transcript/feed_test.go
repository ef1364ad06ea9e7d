package transcript

import (
	"bytes"
	"testing"
	"time"
)

func TestFeed_FansOutInOrder(t *testing.T) {
	var got []Entry
	var buf bytes.Buffer

	f := NewFeed(SinkFunc(func(e Entry) { got = append(got, e) }))
	f.Attach(Console{W: &buf})
	f.now = func() time.Time { return time.Date(2026, 1, 2, 13, 14, 15, 0, time.UTC) }

	f.User("hello")
	f.Assistant("hey, what's up?")
	f.System("Processing...")

	if len(got) != 3 {
		t.Fatalf("entries = %d", len(got))
	}
	if got[0].Speaker != SpeakerUser || got[1].Speaker != SpeakerAssistant || got[2].Speaker != SpeakerSystem {
		t.Fatalf("unexpected speakers %+v", got)
	}

	want := "[13:14:15] You: hello\n\n" +
		"[13:14:15] DevPro: hey, what's up?\n\n" +
		"[13:14:15] System: Processing...\n\n"
	if buf.String() != want {
		t.Fatalf("console output:\n%q\nwant:\n%q", buf.String(), want)
	}
}
