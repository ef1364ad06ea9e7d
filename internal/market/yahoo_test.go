package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/BTC-USD" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"USD","symbol":"BTC-USD","regularMarketPrice":64123.5}}],"error":null}}`))
	}))
	defer srv.Close()

	price, currency, err := NewClient(srv.Client(), srv.URL).Price(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price != 64123.5 || currency != "USD" {
		t.Fatalf("got %v %s", price, currency)
	}
}

func TestPrice_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"not found": {http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		"no price":  {http.StatusOK, `{"chart":{"result":[{"meta":{"currency":"USD"}}],"error":null}}`},
		"outage":    {http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			_, _, err := NewClient(srv.Client(), srv.URL).Price(context.Background(), "FB")
			if err == nil {
				t.Fatalf("expected error")
			}
			if name == "no price" && !errors.Is(err, ErrNoPrice) {
				t.Fatalf("expected ErrNoPrice, got %v", err)
			}
		})
	}
}

func TestPrice_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	if _, _, err := NewClient(nil, srv.URL).Price(context.Background(), "AAPL"); err == nil {
		t.Fatalf("expected network error")
	}
}
