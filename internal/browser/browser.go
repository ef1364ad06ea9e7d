// Package browser opens search results in the desktop's default browser.
package browser

import (
	"fmt"
	"io"
	log "log/slog"

	webbrowser "github.com/pkg/browser"
)

type Opener struct{}

func New() Opener {
	// xdg-open and friends chatter on stdout, which is the transcript.
	webbrowser.Stdout = io.Discard
	webbrowser.Stderr = io.Discard
	return Opener{}
}

func (Opener) Open(url string) error {
	log.Debug("Opening browser", "url", url)
	if err := webbrowser.OpenURL(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// Print stands in for a browser on headless machines: the URL is written
// to w instead of opened.
type Print struct {
	W io.Writer
}

func (p Print) Open(url string) error {
	_, err := fmt.Fprintf(p.W, "Open: %s\n", url)
	return err
}
