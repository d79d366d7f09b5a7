// Package errcode defines the shared error-category taxonomy (spec
// §7): Configuration, Unassigned, Disconnected, Timeout, Transport,
// Resource. It exists as its own package, separate from the root
// seq.ErrorCode it backs, so that internal packages (internal/channel)
// can construct correctly-classified errors without importing the
// root package — which already imports internal/channel, and would
// cycle.
package errcode

// Code is a high-level error category.
type Code string

const (
	Configuration Code = "configuration error"
	Unassigned    Code = "channel not assigned"
	Disconnected  Code = "channel disconnected"
	Timeout       Code = "timeout"
	Transport     Code = "transport error"
	Resource      Code = "resource exhausted"
)
