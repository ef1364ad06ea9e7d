package bus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"devpro/internal/transcript"
)

// hub accepts one connection, sends it the given frames and forwards
// whatever the client writes to got.
func hub(t *testing.T, frames []string, got chan<- Message) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, f := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m Message
			json.Unmarshal(data, &m)
			got <- m
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestPublishSendsTranscriptEntries(t *testing.T) {
	got := make(chan Message, 1)
	srv := hub(t, nil, got)
	defer srv.Close()

	b, err := Dial(wsURL(srv), "devpro")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	b.Publish(transcript.Entry{
		Time:    time.Date(2026, 1, 1, 8, 30, 0, 0, time.UTC),
		Speaker: transcript.SpeakerAssistant,
		Text:    "hello",
	})

	select {
	case m := <-got:
		if m.Kind != KindTranscript || m.Speaker != "DevPro" || m.Content != "hello" || m.Time != "08:30:00" {
			t.Fatalf("hub got %+v", m)
		}
		if m.ID == "" || m.From != "devpro" {
			t.Fatalf("missing envelope fields: %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("nothing published")
	}
}

func TestUtterancesSkipsNoise(t *testing.T) {
	frames := []string{
		`{"kind":"utterance","content":"what time is it"}`,
		`not json`,
		`{"kind":"transcript","content":"ignored"}`,
		`{"kind":"utterance","content":"goodbye"}`,
	}
	srv := hub(t, frames, make(chan Message, 4))
	defer srv.Close()

	b, err := Dial(wsURL(srv), "devpro")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	texts := make(chan string, 4)
	go b.Utterances(func(text string) { texts <- text })

	for _, want := range []string{"what time is it", "goodbye"} {
		select {
		case got := <-texts:
			if got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	b.Close()
}

func TestPublishKeepsOrder(t *testing.T) {
	got := make(chan Message, 16)
	srv := hub(t, nil, got)
	defer srv.Close()

	b, err := Dial(wsURL(srv), "devpro")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		b.Publish(transcript.Entry{Time: time.Now(), Speaker: transcript.SpeakerUser, Text: text})
	}

	for _, want := range texts {
		select {
		case m := <-got:
			if m.Content != want {
				t.Fatalf("got %q, want %q", m.Content, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestPublishDoesNotWaitForHub(t *testing.T) {
	// No writer drains the queue, as with a hub that stopped reading.
	b := newBus(nil, "devpro", 1)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for range 10 {
			b.Publish(transcript.Entry{Time: time.Now(), Speaker: transcript.SpeakerAssistant, Text: "hello"})
		}
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a stalled hub")
	}
	if len(b.queue) != 1 {
		t.Fatalf("queue holds %d entries, want 1", len(b.queue))
	}
}
