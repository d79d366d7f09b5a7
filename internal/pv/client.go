// Package pv defines the PV-client adapter (component C5): the narrow
// interface the runtime consumes to talk to a process-variable
// transport (Channel Access, PVAccess, or — for tests — an in-process
// loopback).
//
// Grounded on the teacher's internal/interfaces.Backend /
// internal/uring.Ring pattern of a small, consumer-defined interface
// that the concrete transport implements, rather than a transport
// exposing its full native API to the runtime.
package pv

import (
	"time"

	"github.com/behrlich/go-seq/internal/vartype"
)

// Handle identifies one created PV binding. Transports are free to use
// any comparable value; the loopback transport uses an incrementing int.
type Handle any

// SubID identifies one active monitor subscription.
type SubID any

// Severity mirrors the three-level severity carried by every PV
// value/status update (spec §6 "TIME_* variants carrying
// (status, severity, timestamp, value[])").
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityInvalid
)

// Status is the metadata accompanying a value: a transport status
// string, severity, and timestamp.
type Status struct {
	Message   string
	Severity  Severity
	Timestamp time.Time
}

// ConnectFunc is invoked on every connection-state transition for a
// handle. The runtime's channel layer is responsible for the
// idempotence documented in spec §9 (ignore a repeated
// connected/disconnected without an intervening opposite transition);
// the adapter itself does not need to suppress duplicates.
type ConnectFunc func(h Handle, connected bool)

// GetCallback delivers the result of a VarGetCallback-style request.
type GetCallback func(h Handle, st Status, value []byte)

// PutCallback delivers the result of a VarPutCallback-style request.
type PutCallback func(h Handle, st Status)

// MonitorCallback delivers one monitor sample.
type MonitorCallback func(h Handle, st Status, value []byte)

// Client is the consumed interface a PV transport must implement.
// Method names intentionally mirror the reference runtime's
// SysCreate/VarCreate/VarGetCallback/... surface (spec §6) so the
// mapping from spec to code is direct, even though the Go shape is a
// single interface rather than a free-function C API.
type Client interface {
	// Attach completes any transport-specific startup (e.g. registering
	// with a context library); SysAttach in the reference runtime.
	Attach() error

	// Flush pushes any buffered, not-yet-transmitted requests.
	Flush()

	// CreateVar binds name to a new handle. onConnect is called on every
	// connect/disconnect transition, including the initial connect.
	CreateVar(name string, onConnect ConnectFunc) (Handle, error)

	// DestroyVar unbinds a handle created by CreateVar.
	DestroyVar(h Handle) error

	// GetCallback issues an asynchronous get; cb fires exactly once,
	// from a transport-owned goroutine, with the fetched value.
	GetCallback(h Handle, tag vartype.Tag, count int, cb GetCallback) error

	// PutCallback issues an asynchronous put; cb fires exactly once
	// after the transport confirms (or fails) the write.
	PutCallback(h Handle, tag vartype.Tag, count int, value []byte, cb PutCallback) error

	// PutNoBlock issues a fire-and-forget put with no completion
	// notification (DEFAULT put mode, spec §4.3).
	PutNoBlock(h Handle, tag vartype.Tag, count int, value []byte) error

	// MonitorOn arms a standing subscription; cb fires on every sample,
	// including one immediately after arming if a value is already cached.
	MonitorOn(h Handle, tag vartype.Tag, count int, cb MonitorCallback) (SubID, error)

	// MonitorOff disarms a subscription created by MonitorOn.
	MonitorOff(h Handle, sub SubID) error
}
