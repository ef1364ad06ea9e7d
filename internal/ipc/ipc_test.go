package ipc

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSendReachesHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devpro.sock")

	got := make(chan ControlMessage, 1)
	srv, err := Listen(path, func(msg ControlMessage) error {
		got <- msg
		if msg.Cmd == "bogus" {
			return errors.New("unknown command")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer srv.Close()

	if err := Send(path, ControlMessage{Cmd: CmdSay, Arg: "what time is it"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg := <-got; msg.Cmd != CmdSay || msg.Arg != "what time is it" {
		t.Fatalf("handler got %+v", msg)
	}

	err = Send(path, ControlMessage{Cmd: "bogus"})
	if err == nil || err.Error() != "unknown command" {
		t.Fatalf("expected handler error to come back, got %v", err)
	}
	<-got
}

func TestSendWithoutServer(t *testing.T) {
	if err := Send(filepath.Join(t.TempDir(), "none.sock"), ControlMessage{Cmd: CmdListen}); err == nil {
		t.Fatalf("expected dial error")
	}
}
