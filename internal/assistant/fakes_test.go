package assistant

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeSpeaker struct {
	mu    sync.Mutex
	spoke []string
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) {
	f.mu.Lock()
	f.spoke = append(f.spoke, text)
	f.mu.Unlock()
}

func (f *fakeSpeaker) said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoke...)
}

type fakeBrowser struct {
	urls []string
	err  error
}

func (f *fakeBrowser) Open(u string) error {
	if f.err != nil {
		return f.err
	}
	f.urls = append(f.urls, u)
	return nil
}

type fakeQuotes struct {
	price    float64
	currency string
	err      error
	asked    []string
}

func (f *fakeQuotes) Price(ctx context.Context, symbol string) (float64, string, error) {
	f.asked = append(f.asked, symbol)
	if f.err != nil {
		return 0, "", f.err
	}
	return f.price, f.currency, nil
}

type fakeWeather struct {
	cities []string
	err    error
}

func (f *fakeWeather) Report(ctx context.Context, city string, say func(string)) error {
	f.cities = append(f.cities, city)
	if f.err != nil {
		return f.err
	}
	say("it is sunny in " + city)
	return nil
}

type logLine struct{ user, assistant string }

type fakeLog struct {
	mu    sync.Mutex
	lines []logLine
	err   error
}

func (f *fakeLog) Append(user, assistant string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.lines = append(f.lines, logLine{user, assistant})
	return nil
}

func (f *fakeLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

var errOffline = errors.New("network is down")

type rig struct {
	a       *Assistant
	speaker *fakeSpeaker
	browser *fakeBrowser
	quotes  *fakeQuotes
	weather *fakeWeather
	log     *fakeLog
}

func newRig() *rig {
	r := &rig{
		speaker: &fakeSpeaker{},
		browser: &fakeBrowser{},
		quotes:  &fakeQuotes{price: 189.5, currency: "USD"},
		weather: &fakeWeather{},
		log:     &fakeLog{},
	}
	r.a = New(Deps{
		Speaker: r.speaker,
		Browser: r.browser,
		Quotes:  r.quotes,
		Weather: r.weather,
		Log:     r.log,
		Now: func() time.Time {
			return time.Date(2026, 10, 14, 15, 4, 0, 0, time.UTC)
		},
		Rand: func(n int) int { return n - 1 },
	}, nil)
	return r
}
