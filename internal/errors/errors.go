package errors

import (
	"errors"
	"fmt"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TransportKind classifies a failed remote call.
type TransportKind string

const (
	KindNetworkFailure TransportKind = "network_failure"
	KindRemoteError    TransportKind = "remote_error"
	KindDecodeFailure  TransportKind = "decode_failure"
)

// TransportError is returned by every remote call that did not produce a decoded result.
type TransportError struct {
	Kind       TransportKind
	Method     string
	Code       int
	Detail     string
	RetryAfter time.Duration
	cause      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}

	if e.Code != 0 {
		return fmt.Sprintf("telegram %s: %s (%d): %s", e.Method, e.Kind, e.Code, e.Detail)
	}

	return fmt.Sprintf("telegram %s: %s: %s", e.Method, e.Kind, e.Detail)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// Severity maps the failure kind onto the reporting severity scale.
func (e *TransportError) Severity() Severity {
	switch {
	case e == nil:
		return SeverityLow
	case e.Kind == KindDecodeFailure:
		return SeverityHigh
	case e.Kind == KindRemoteError && e.Code >= 400 && e.Code < 500 && e.Code != 429:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func NewNetworkError(method string, cause error) *TransportError {
	detail := "request failed"
	if cause != nil {
		detail = cause.Error()
	}

	return &TransportError{
		Kind:   KindNetworkFailure,
		Method: method,
		Detail: detail,
		cause:  cause,
	}
}

func NewRemoteError(method string, code int, description string, retryAfter time.Duration) *TransportError {
	if description == "" {
		description = "request was not successful"
	}

	return &TransportError{
		Kind:       KindRemoteError,
		Method:     method,
		Code:       code,
		Detail:     description,
		RetryAfter: retryAfter,
	}
}

func NewDecodeError(method string, cause error) *TransportError {
	detail := "malformed response body"
	if cause != nil {
		detail = cause.Error()
	}

	return &TransportError{
		Kind:   KindDecodeFailure,
		Method: method,
		Detail: detail,
		cause:  cause,
	}
}

// Stage names the pipeline step in which an update failed.
type Stage string

const (
	StageMiddleware Stage = "middleware"
	StageFilter     Stage = "filter"
	StageClassify   Stage = "classify"
	StageHandler    Stage = "handler"
)

// PipelineError wraps any failure raised while a single update was processed.
type PipelineError struct {
	Stage    Stage
	UpdateID int
	Panic    bool
	cause    error
}

func NewPipelineError(stage Stage, updateID int, cause error) *PipelineError {
	return &PipelineError{
		Stage:    stage,
		UpdateID: updateID,
		cause:    cause,
	}
}

// NewPanicError converts a recovered panic value into a PipelineError.
func NewPanicError(stage Stage, updateID int, recovered any) *PipelineError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", recovered)
	}

	return &PipelineError{
		Stage:    stage,
		UpdateID: updateID,
		Panic:    true,
		cause:    cause,
	}
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("update %d failed at %s: %v", e.UpdateID, e.Stage, e.cause)
}

func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *PipelineError) Severity() Severity {
	if e != nil && e.Panic {
		return SeverityCritical
	}

	return SeverityHigh
}

// IsRetryable reports whether repeating the failed remote call may succeed.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || transportErr == nil {
		return false
	}

	switch transportErr.Kind {
	case KindNetworkFailure:
		return true
	case KindRemoteError:
		return transportErr.Code == 429 || transportErr.Code >= 500
	default:
		return false
	}
}

// SeverityOf returns the severity of err, defaulting to high for unclassified errors.
func SeverityOf(err error) Severity {
	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) && pipelineErr != nil {
		return pipelineErr.Severity()
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr != nil {
		return transportErr.Severity()
	}

	return SeverityHigh
}
