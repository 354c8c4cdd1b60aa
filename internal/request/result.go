package request

import (
	"fmt"
	"maps"
	"time"
)

// Result is the outcome of executing a draft: either a *Response or a *Failure.
// A nil Result means the tab has no result yet.
type Result interface {
	isResult()
	// Summary is a one-line description suitable for a status bar.
	Summary() string
}

// Response is a snapshot of a completed HTTP exchange.
type Response struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	SizeBytes  int64             `json:"size_bytes"`
	ReceivedAt time.Time         `json:"received_at"`
}

func (*Response) isResult() {}

// Summary implements Result.
func (r *Response) Summary() string {
	status := r.Status
	if status == "" {
		status = fmt.Sprintf("%d", r.StatusCode)
	}
	return fmt.Sprintf("%s · %s · %s", status, FormatDuration(r.DurationMs), FormatSize(r.SizeBytes))
}

// FailureKind classifies why an execution produced no response.
type FailureKind string

const (
	FailureTimeout  FailureKind = "timeout"
	FailureNetwork  FailureKind = "network"
	FailureInvalid  FailureKind = "invalid_request"
	FailureCanceled FailureKind = "canceled"
)

// Failure describes an execution that did not produce a response.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func (*Failure) isResult() {}

// Summary implements Result.
func (f *Failure) Summary() string {
	if f.Kind == "" {
		return "error: " + f.Message
	}
	return fmt.Sprintf("%s error: %s", f.Kind, f.Message)
}

// CloneResult returns a copy of r that shares no mutable state with it.
func CloneResult(r Result) Result {
	switch v := r.(type) {
	case *Response:
		if v == nil {
			return nil
		}
		cp := *v
		cp.Headers = maps.Clone(v.Headers)
		return &cp
	case *Failure:
		if v == nil {
			return nil
		}
		cp := *v
		return &cp
	}
	return nil
}
