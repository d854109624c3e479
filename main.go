// stdio-socket runs a command and multiplexes its terminal over a Unix
// domain socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"stdiosock/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), cmd.ShutdownSignals...)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "stdio-socket: %v\n", err)
		os.Exit(1)
	}
}
