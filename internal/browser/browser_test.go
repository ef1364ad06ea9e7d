package browser

import (
	"bytes"
	"testing"
)

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	if err := (Print{W: &buf}).Open("https://google.com/search?q=pizza"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Open: https://google.com/search?q=pizza\n" {
		t.Fatalf("got %q", buf.String())
	}
}
