package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/dronewatch/internal/droneapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dronewatch: %s\n", describe(err))
		return 1
	}
	return 0
}

// describe prefers the short API message and keeps the full chain for
// anything else.
func describe(err error) string {
	msg := droneapi.UserMessage(err)
	if msg == err.Error() {
		return msg
	}
	return msg + " (" + err.Error() + ")"
}
