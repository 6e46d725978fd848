package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	err := execute(ctx, cmd, os.Args[1:])
	stop()
	if err != nil {
		var usage *usageError
		switch {
		case errors.As(err, &usage):
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(os.Stderr, usage.cmd.UsageString())
		case !errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
