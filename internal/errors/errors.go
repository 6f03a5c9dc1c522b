// Package errors provides domain-specific error types for headsetctl.
//
// These types carry structured context (operation, broker address,
// service name, offending input) that helps callers decide how to
// handle failures: a BrokerError may be recovered by launching the ADB
// server, everything else is surfaced to the user.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrNotInANetwork means the device has no usable route line and
	// therefore no LAN address.
	ErrNotInANetwork = errors.New("device is not in a network")
	// ErrNotInSameNetwork means the device address is not on the same
	// subnet as any local interface.
	ErrNotInSameNetwork = errors.New("device is not in the same network as this machine")
	ErrNoADBBinary      = errors.New("adb binary not found")
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrTimeout          = errors.New("operation timed out")
	ErrBusy             = errors.New("a network switch is already running for this device")
	ErrUnknownPhase     = errors.New("unknown phase")
)

// ── Structured error types ───────────────────────────────────────────

// BrokerError is a connection-level failure talking to the ADB server.
type BrokerError struct {
	Op   string // "dial", "write", "read"
	Addr string // broker address
	Err  error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("adb server %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// ProtocolError is a request the ADB server answered with FAIL, or a
// connect whose status text reports failure.
type ProtocolError struct {
	Service string // host service, e.g. "host:connect:10.0.0.5:5555"
	Message string // text reported by the server
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("adb %s: %s", e.Service, e.Message)
}

// ParseError is device output that could not be interpreted.
type ParseError struct {
	Source string // command that produced the output
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output %q: %v", e.Source, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// WrapBroker creates a BrokerError.
func WrapBroker(op, addr string, err error) *BrokerError {
	return &BrokerError{Op: op, Addr: addr, Err: err}
}

// Protocol creates a ProtocolError.
func Protocol(service, message string) *ProtocolError {
	return &ProtocolError{Service: service, Message: message}
}

// Parse creates a ParseError.
func Parse(source, input string, err error) *ParseError {
	return &ParseError{Source: source, Input: input, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsBrokerUnavailable reports whether err is the I/O class of failure
// that launching the ADB server can fix: a BrokerError raised while
// dialing, or a refused/reset connection anywhere in the chain.  A
// cancelled or expired context is the caller giving up and never
// counts, even when it interrupted a dial.
func IsBrokerUnavailable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var be *BrokerError
	if errors.As(err, &be) && be.Op == "dial" {
		return true
	}
	return isRefused(err)
}

// IsProtocol reports whether err is a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// isRefused inspects standard library error types.
func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		var sysErr *os.SyscallError
		return errors.As(opErr.Err, &sysErr)
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use headsetctl/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
