// Package core is the orchestration layer.  It turns a Config into one
// complete operational mode per CLI command and runs it.
//
// Architecture layers (bottom → top):
//
//	transport  →  adb / broker / netcheck  →  connectivity  →  core  →  cmd (CLI)
//
// Build is the single dispatch point from a command name to a Mode.
package core

import (
	"context"
	"io"
	"os"
)

// Mode is one CLI command with its full lifecycle: it opens whatever it
// needs, does its work and releases everything before Run returns.
type Mode interface {
	Run(ctx context.Context) error
}

// output is embedded by modes that print results.  Stdout defaults to
// os.Stdout when nil; tests override it.
type output struct {
	Stdout io.Writer
}

func (o output) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}
