package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/spf13/pflag"

	"devpro/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath(), "Control socket path")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: devpro-ctl [-s socket] listen | say <text> | file <path>")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: args[0], Arg: strings.Join(args[1:], " ")}
	if msg.Cmd == ipc.CmdFile && msg.Arg != "" {
		// the assistant may run in another working directory
		if abs, err := filepath.Abs(msg.Arg); err == nil {
			msg.Arg = abs
		}
	}

	if err := ipc.Send(*socket, msg); err != nil {
		fmt.Println("devpro not running or refused:", err)
		os.Exit(1)
	}
}
