// Package weather looks up current conditions on wttr.in and reads them
// out.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://wttr.in"

var ErrUnknownCity = errors.New("unknown city")

type Conditions struct {
	Place       string
	TempC       string
	FeelsLikeC  string
	Humidity    string
	Description string
}

type Reporter struct {
	http    *http.Client
	baseURL string
}

func NewReporter(hc *http.Client, baseURL string) *Reporter {
	if hc == nil {
		hc = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Reporter{http: hc, baseURL: baseURL}
}

func (r *Reporter) Current(ctx context.Context, city string) (Conditions, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Conditions{}, fmt.Errorf("%w: empty name", ErrUnknownCity)
	}

	u := fmt.Sprintf("%s/%s?format=j1", r.baseURL, url.PathEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Conditions{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Conditions{}, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}
	if resp.StatusCode != http.StatusOK {
		return Conditions{}, fmt.Errorf("fetch weather: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Conditions{}, fmt.Errorf("read weather: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Conditions{}, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}

	cur := gjson.GetBytes(body, "current_condition.0")
	if !cur.Exists() {
		return Conditions{}, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}

	return Conditions{
		Place:       city,
		TempC:       cur.Get("temp_C").String(),
		FeelsLikeC:  cur.Get("FeelsLikeC").String(),
		Humidity:    cur.Get("humidity").String(),
		Description: strings.ToLower(strings.TrimSpace(cur.Get("weatherDesc.0.value").String())),
	}, nil
}

// Report looks the city up and speaks the result through say.
func (r *Reporter) Report(ctx context.Context, city string, say func(string)) error {
	c, err := r.Current(ctx, city)
	if err != nil {
		return err
	}

	say(fmt.Sprintf("The weather in %s is %s with a temperature of %s degrees celsius", c.Place, c.Description, c.TempC))
	if c.FeelsLikeC != "" && c.FeelsLikeC != c.TempC {
		say(fmt.Sprintf("It feels like %s degrees, humidity is %s percent", c.FeelsLikeC, c.Humidity))
	}
	return nil
}
