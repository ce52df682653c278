// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCommand is returned by ParseLine when a line contains no
	// command verb at all.
	ErrEmptyCommand = errors.New("empty command")

	// ErrMalformed is returned by ParseLine for structurally invalid
	// input, such as a tag block with no closing space or a prefix with
	// no command following it.
	ErrMalformed = errors.New("malformed line")

	// ErrLineTerminator is returned when encoding a message whose fields
	// embed CR, LF or NUL, which would allow protocol injection.
	ErrLineTerminator = errors.New("line terminator inside message field")

	// ErrQueueFull is returned by Enqueue when the outbound queue is at
	// capacity. The caller decides whether to retry or drop.
	ErrQueueFull = errors.New("outbound queue full")

	// ErrNotConnected is returned for writes against a closed transport.
	ErrNotConnected = errors.New("not connected")
)

// TransportError wraps a socket-level failure. The run loop responds with
// backoff and reconnection.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RegistrationError means the server rejected our credentials. It is
// terminal for the run loop: retrying the same token in a tight loop only
// gets the client banned, so the operator is told instead.
type RegistrationError struct {
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration rejected: %s", e.Reason)
}

// UnknownPluginError means the configured activation list names a plugin
// the registry has never heard of. Raised at startup, before any dial.
type UnknownPluginError struct {
	Name string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("unknown plugin %q in configuration", e.Name)
}

// PluginError wraps a fault from one plugin handler. It never escapes the
// dispatch boundary; the dispatcher logs it and moves on.
type PluginError struct {
	Plugin  string
	Command string
	Err     error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s failed on %s: %v", e.Plugin, e.Command, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }
