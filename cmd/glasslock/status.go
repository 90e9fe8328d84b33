package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/glasslock/internal/ipc"
	"github.com/1broseidon/glasslock/internal/runtimepath"
	"github.com/1broseidon/glasslock/internal/tui"
)

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	display := fs.String("display", os.Getenv("DISPLAY"), "X display of the lock")
	watch := fs.Bool("watch", false, "Keep refreshing until 'q' is pressed")
	interval := fs.Duration("interval", 0, "Refresh interval for --watch (default 1s)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasslock status [--display :N] [--watch [--interval D]]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the running lock's status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	socketPath, err := runtimepath.SocketPath(*display)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	client := ipc.NewClient(socketPath)

	if *watch {
		if err := tui.Watch(client.GetStatus, *interval); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(tui.FormatStatus(status))
	return 0
}
