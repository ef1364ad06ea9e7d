package assistant

import (
	"context"
	"errors"
	log "log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// PlaceholderResponse is what the reference assistant wrote to the
// conversation log instead of the real reply.
const PlaceholderResponse = "Assistant response logged."

var ErrNoQuotes = errors.New("no quote source configured")

// Speaker renders a response audibly. Implementations must not fail.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Browser opens a URL in the user's default browser.
type Browser interface {
	Open(url string) error
}

// QuoteSource fetches the current market price for a ticker symbol.
type QuoteSource interface {
	Price(ctx context.Context, symbol string) (price float64, currency string, err error)
}

// WeatherReporter looks up the weather for a city and speaks the report
// itself through say.
type WeatherReporter interface {
	Report(ctx context.Context, city string, say func(string)) error
}

// ConversationLog is the durable per-turn record.
type ConversationLog interface {
	Append(user, assistant string) error
}

// Deps are the collaborators the handlers call out to. Nil collaborators
// make the corresponding handlers answer with the apology.
type Deps struct {
	Speaker Speaker
	Browser Browser
	Quotes  QuoteSource
	Weather WeatherReporter
	Log     ConversationLog

	// LogPlaceholder writes PlaceholderResponse to the log instead of the
	// responses actually spoken.
	LogPlaceholder bool

	Now  func() time.Time
	Rand func(n int) int
}

// Turn is the per-utterance scratch state handed to every action.
type Turn struct {
	Raw       string // input as received, case preserved
	Text      string // normalized utterance used for matching
	Responses []string
}

// Outcome describes what one dispatch did.
type Outcome struct {
	Fired     []Intent
	Responses []string
	Exit      bool
}

type Assistant struct {
	deps     Deps
	session  *Session
	handlers []Handler

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

func New(deps Deps, session *Session) *Assistant {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.IntN
	}
	if session == nil {
		session = NewSession()
	}

	return &Assistant{
		deps:     deps,
		session:  session,
		handlers: DefaultHandlers(),
		done:     make(chan struct{}),
	}
}

func (a *Assistant) Session() *Session { return a.session }

// Done is closed once an exit intent has fired.
func (a *Assistant) Done() <-chan struct{} { return a.done }

func (a *Assistant) shutdown() {
	a.doneOnce.Do(func() { close(a.done) })
}

// Dispatch evaluates every handler guard against one utterance in priority
// order and runs each action whose guard holds. An exit intent stops the
// turn right after its farewell: later handlers are skipped and nothing is
// logged.
func (a *Assistant) Dispatch(ctx context.Context, raw string) Outcome {
	var out Outcome

	select {
	case <-a.done:
		log.Debug("Dropping utterance after shutdown", "text", raw)
		return out
	default:
	}

	t := &Turn{Raw: strings.TrimSpace(raw), Text: Normalize(raw)}

	for _, h := range a.handlers {
		if !h.Guard(t.Text) {
			continue
		}

		log.Debug("Intent matched", "intent", h.Intent)
		out.Fired = append(out.Fired, h.Intent)
		h.Act(ctx, a, t)

		if h.Halts {
			out.Responses = t.Responses
			out.Exit = true
			a.shutdown()
			return out
		}
	}

	out.Responses = t.Responses
	a.record(t)

	return out
}

func (a *Assistant) record(t *Turn) {
	if a.deps.Log == nil {
		return
	}

	reply := PlaceholderResponse
	if !a.deps.LogPlaceholder && len(t.Responses) > 0 {
		reply = strings.Join(t.Responses, " ")
	}

	if err := a.deps.Log.Append(t.Text, reply); err != nil {
		log.Warn("Failed to append conversation log", "err", err)
	}
}

// Say speaks msg and records it as part of the turn's response.
func (a *Assistant) Say(ctx context.Context, t *Turn, msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}

	t.Responses = append(t.Responses, msg)
	if a.deps.Speaker != nil {
		a.deps.Speaker.Speak(ctx, msg)
	}
}
