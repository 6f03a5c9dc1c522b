// headsetctl moves Android headsets from USB to network debugging and
// drives them over ADB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"headsetctl/cmd"
	herrors "headsetctl/internal/errors"
)

// Exit codes.
const (
	exitFailure     = 1
	exitConfig      = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx, os.Args[1:])
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "headsetctl: %v\n", err)

	var ce *herrors.ConfigError
	switch {
	case errors.As(err, &ce):
		return exitConfig
	case ctx.Err() != nil:
		return exitInterrupted
	default:
		return exitFailure
	}
}
