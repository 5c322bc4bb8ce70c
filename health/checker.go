package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Status orders check outcomes from best to worst. Combining several
// results takes the maximum.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded still serves: some providers are out, the rest of the
	// fallback chain is not.
	StatusDegraded
	StatusUnhealthy
)

var statusText = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusText) {
		return "unknown"
	}
	return statusText[s]
}

// MarshalText encodes s by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusText {
		if string(b) == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("health: unknown status %q", b)
}

// Result is what a Checker reports. Duration and Timestamp are stamped by
// the Aggregator.
type Result struct {
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Duration  time.Duration  `json:"-"`
	Timestamp time.Time      `json:"timestamp,omitzero"`
	Error     error          `json:"-"`
}

// MarshalJSON writes Duration as text and Error as its message.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		Duration string `json:"duration,omitempty"`
		Error    string `json:"error,omitempty"`
	}{plain: plain(r)}
	if r.Duration > 0 {
		out.Duration = r.Duration.String()
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

func Healthy(message string) Result { return Result{Status: StatusHealthy, Message: message} }

func Degraded(message string) Result { return Result{Status: StatusDegraded, Message: message} }

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails returns r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is one named probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckFunc is the body of a probe.
type CheckFunc func(ctx context.Context) Result

// Named turns fn into a Checker reporting under name.
func Named(name string, fn CheckFunc) Checker { return namedCheck{name: name, fn: fn} }

type namedCheck struct {
	name string
	fn   CheckFunc
}

func (c namedCheck) Name() string                     { return c.name }
func (c namedCheck) Check(ctx context.Context) Result { return c.fn(ctx) }
