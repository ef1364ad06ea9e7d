package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := NewHTTPClient("", 5*time.Second)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if c.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", c.Timeout)
	}

	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
}

func TestNewHTTPClient_Socks(t *testing.T) {
	c, err := NewHTTPClient("127.0.0.1:1080", time.Second)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if c.Transport.(*http.Transport).DialContext == nil {
		t.Fatalf("expected proxy dialer")
	}
}
