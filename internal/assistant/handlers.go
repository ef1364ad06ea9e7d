package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"strconv"
	"strings"
)

type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentNameQuery   Intent = "name_query"
	IntentNameSet     Intent = "name_set"
	IntentStatus      Intent = "status"
	IntentTime        Intent = "time"
	IntentWebSearch   Intent = "web_search"
	IntentVideoSearch Intent = "video_search"
	IntentStockPrice  Intent = "stock_price"
	IntentWeather     Intent = "weather"
	IntentExit        Intent = "exit"
)

const (
	Identity = "my name is Devprogramming"
	Apology  = "oops, something went wrong"
	Farewell = "going offline"

	webSearchURL   = "https://google.com/search?q="
	videoSearchURL = "https://www.youtube.com/results?search_query="
)

var ErrUnknownSymbol = errors.New("unknown stock symbol")

// Handler pairs a guard with the action of one intent.
type Handler struct {
	Intent   Intent
	Triggers []string
	// Unless vetoes the guard when any of these phrases is present.
	Unless []string
	// Halts marks the exit intent: nothing runs after it in the turn.
	Halts bool
	Act   func(ctx context.Context, a *Assistant, t *Turn)
}

// Guard reports whether the handler fires for the normalized text.
func (h Handler) Guard(text string) bool {
	return Matches(h.Triggers, text) && !Matches(h.Unless, text)
}

// DefaultHandlers returns the intents in the order they are evaluated.
// Web search and video search exclude each other through "youtube".
func DefaultHandlers() []Handler {
	return []Handler{
		{
			Intent:   IntentGreeting,
			Triggers: []string{"hey", "hi", "hello", "bonjour", "hola"},
			Act:      greet,
		},
		{
			Intent:   IntentNameQuery,
			Triggers: []string{"what is your name", "what's your name", "tell me your name"},
			Act:      tellName,
		},
		{
			Intent:   IntentNameSet,
			Triggers: []string{"my name is"},
			Act:      rememberName,
		},
		{
			Intent:   IntentStatus,
			Triggers: []string{"how are you", "how are you doing"},
			Act:      status,
		},
		{
			Intent:   IntentTime,
			Triggers: []string{"what's the time", "tell me the time", "what time is it"},
			Act:      tellTime,
		},
		{
			Intent:   IntentWebSearch,
			Triggers: []string{"search for"},
			Unless:   []string{"youtube"},
			Act:      webSearch,
		},
		{
			Intent:   IntentVideoSearch,
			Triggers: []string{"youtube"},
			Act:      videoSearch,
		},
		{
			Intent:   IntentStockPrice,
			Triggers: []string{"price of"},
			Act:      stockPrice,
		},
		{
			Intent:   IntentWeather,
			Triggers: []string{"weather in"},
			Act:      weatherIn,
		},
		{
			Intent:   IntentExit,
			Triggers: []string{"exit", "quit", "goodbye"},
			Halts:    true,
			Act:      goodbye,
		},
	}
}

func greet(ctx context.Context, a *Assistant, t *Turn) {
	name := a.session.Name()
	greetings := []string{
		"hey, how can I help you to test this assistant application " + name,
		"hey, what's up? " + name,
		"I'm listening " + name,
		"how can I help you? " + name,
		"hello " + name,
	}
	a.Say(ctx, t, greetings[a.deps.Rand(len(greetings))])
}

func tellName(ctx context.Context, a *Assistant, t *Turn) {
	if a.session.Name() != "" {
		a.Say(ctx, t, Identity)
		return
	}
	a.Say(ctx, t, Identity+". what's your name?")
}

func rememberName(ctx context.Context, a *Assistant, t *Turn) {
	name := nameFrom(t.Raw)
	a.Say(ctx, t, "okay, i will remember that "+name)
	a.session.SetName(name)
}

// nameFrom takes whatever follows the last standalone "is", keeping the
// caller's capitalization.
func nameFrom(raw string) string {
	fields := strings.Fields(raw)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.EqualFold(fields[i], "is") {
			return strings.Join(fields[i+1:], " ")
		}
	}
	return strings.TrimSpace(afterLast(strings.ToLower(raw), "is"))
}

func status(ctx context.Context, a *Assistant, t *Turn) {
	a.Say(ctx, t, "I'm very well, thanks for asking "+a.session.Name())
}

func tellTime(ctx context.Context, a *Assistant, t *Turn) {
	a.Say(ctx, t, "The time is "+a.deps.Now().Format("03:04 PM"))
}

// searchTerm splits on the last "for" anywhere in the text, so
// "search for cats for dogs" yields "dogs".
func searchTerm(text string) string {
	return strings.TrimSpace(afterLast(text, "for"))
}

func webSearch(ctx context.Context, a *Assistant, t *Turn) {
	term := searchTerm(t.Text)
	if !a.open(webSearchURL + url.QueryEscape(term)) {
		a.Say(ctx, t, Apology)
		return
	}
	a.Say(ctx, t, fmt.Sprintf("Here is what I found for %s on google", term))
}

func videoSearch(ctx context.Context, a *Assistant, t *Turn) {
	term := searchTerm(t.Text)
	if !a.open(videoSearchURL + url.QueryEscape(term)) {
		a.Say(ctx, t, Apology)
		return
	}
	a.Say(ctx, t, fmt.Sprintf("Here is what I found for %s on youtube", term))
}

func (a *Assistant) open(u string) bool {
	if a.deps.Browser == nil {
		log.Warn("No browser configured", "url", u)
		return false
	}
	if err := a.deps.Browser.Open(u); err != nil {
		log.Warn("Failed to open browser", "url", u, "err", err)
		return false
	}
	return true
}

func stockPrice(ctx context.Context, a *Assistant, t *Turn) {
	company := strings.ToLower(strings.TrimSpace(afterLast(t.Text, " of ")))

	price, currency, err := a.quote(ctx, company)
	if err != nil {
		log.Warn("Stock lookup failed", "company", company, "kind", quoteErrorKind(err), "err", err)
		a.Say(ctx, t, Apology)
		return
	}

	a.Say(ctx, t, fmt.Sprintf("price of %s is %s %s %s",
		company, strconv.FormatFloat(price, 'f', -1, 64), currency, a.session.Name()))
}

func (a *Assistant) quote(ctx context.Context, company string) (float64, string, error) {
	symbol, ok := LookupSymbol(company)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownSymbol, company)
	}
	if a.deps.Quotes == nil {
		return 0, "", ErrNoQuotes
	}
	price, currency, err := a.deps.Quotes.Price(ctx, symbol)
	if err != nil {
		return 0, "", fmt.Errorf("quote %s: %w", symbol, err)
	}
	return price, currency, nil
}

func quoteErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrNoQuotes):
		return "unconfigured"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "provider"
	}
}

// weatherIn hands the city after the trigger to the weather reporter,
// which voices the report on its own.
func weatherIn(ctx context.Context, a *Assistant, t *Turn) {
	city := strings.TrimSpace(afterLast(t.Text, "weather in"))

	if a.deps.Weather == nil {
		a.Say(ctx, t, Apology)
		return
	}

	err := a.deps.Weather.Report(ctx, city, func(msg string) { a.Say(ctx, t, msg) })
	if err != nil {
		log.Warn("Weather lookup failed", "city", city, "err", err)
		a.Say(ctx, t, Apology)
	}
}

func goodbye(ctx context.Context, a *Assistant, t *Turn) {
	a.Say(ctx, t, Farewell)
}
