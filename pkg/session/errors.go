// SPDX-License-Identifier: GPL-3.0-only
package session

import (
	"errors"
	"fmt"

	"github.com/herokl/k8s-log-viewer/pkg/log/reader"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

var (
	// ErrNoTarget is returned by Refresh before a target is selected.
	ErrNoTarget = errors.New("no target selected")
	// ErrSinceInFuture rejects a since date after today.
	ErrSinceInFuture = ty.ErrInFuture
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
	// ErrStaleComputation marks a background result superseded by a newer
	// fetch or search. It never leaves the session.
	ErrStaleComputation = errors.New("stale computation discarded")
)

// ConfigurationError reports a missing or invalid environment value needed
// to build the fetch command.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProcessStartError reports that the log source process could not start.
type ProcessStartError struct {
	Command string
	Err     error
}

func (e *ProcessStartError) Error() string {
	return fmt.Sprintf("starting log source %q: %v", e.Command, e.Err)
}

func (e *ProcessStartError) Unwrap() error { return e.Err }

// StreamReadError reports a failure while reading the log source output.
type StreamReadError = reader.StreamReadError
