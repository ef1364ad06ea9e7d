// Package bus connects the assistant to a websocket hub: transcript
// entries are pushed out for remote transcript windows, and typed
// utterances come back in.
package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"devpro/internal/transcript"
)

const (
	KindTranscript = "transcript"
	KindUtterance  = "utterance"
)

var ErrBadMessage = errors.New("malformed bus message")

type Message struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Kind    string `json:"kind"`
	Speaker string `json:"speaker,omitempty"`
	Content string `json:"content"`
	Time    string `json:"time,omitempty"`
}

// publishQueue is how many transcript entries may wait for a slow hub
// before new ones are dropped.
const publishQueue = 256

type Bus struct {
	conn *websocket.Conn
	name string

	// gorilla allows one concurrent writer
	wmu sync.Mutex

	queue     chan *Message
	quit      chan struct{}
	written   chan struct{}
	closeOnce sync.Once
}

func newBus(conn *websocket.Conn, name string, queue int) *Bus {
	return &Bus{
		conn:    conn,
		name:    name,
		queue:   make(chan *Message, queue),
		quit:    make(chan struct{}),
		written: make(chan struct{}),
	}
}

func Dial(wsURL, name string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	log.Info("Connected to bus", "url", wsURL)
	b := newBus(conn, name, publishQueue)
	go b.writeLoop()
	return b, nil
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.From == "" {
		m.From = b.name
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Publish queues a transcript entry for the hub and returns at once. When
// the hub falls too far behind the entry is dropped.
func (b *Bus) Publish(e transcript.Entry) {
	m := &Message{
		Kind:    KindTranscript,
		Speaker: string(e.Speaker),
		Content: e.Text,
		Time:    e.Time.Format("15:04:05"),
	}

	select {
	case <-b.quit:
	case b.queue <- m:
	default:
		log.Warn("Bus backlog full, dropping transcript entry", "text", e.Text)
	}
}

func (b *Bus) writeLoop() {
	defer close(b.written)
	for {
		select {
		case <-b.quit:
			return
		case m := <-b.queue:
			if err := b.Write(m); err != nil {
				log.Warn("Failed to publish transcript entry", "err", err)
			}
		}
	}
}

// Utterances reads until the connection drops and calls fn with the text
// of every utterance message.
func (b *Bus) Utterances(fn func(text string)) error {
	for {
		m, err := b.Read()
		if errors.Is(err, ErrBadMessage) {
			log.Warn("Skipping bad bus message", "err", err)
			continue
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		if err != nil {
			return err
		}
		if m.Kind == KindUtterance && m.Content != "" {
			fn(m.Content)
		}
	}
}

func (b *Bus) Close() error {
	b.closeOnce.Do(func() { close(b.quit) })
	<-b.written

	b.wmu.Lock()
	b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.wmu.Unlock()
	return b.conn.Close()
}
