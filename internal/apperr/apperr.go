// Package apperr defines the error taxonomy crossing the analytics core's
// outer boundary: {kind, symbol?, window?, underlying?, retryable}.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error per the core's error handling design.
type Kind string

const (
	// InvalidInput: malformed symbol, reversed date range, unsorted bars.
	// Fail fast at the API boundary; never persisted.
	InvalidInput Kind = "InvalidInput"
	// NotFound: upstream reports no such symbol / no data.
	// Logged; the sync record counts it and continues.
	NotFound Kind = "NotFound"
	// Transient: network, timeout, rate limit. Retried with exponential
	// backoff; escalates to PARTIAL if retries are exhausted.
	Transient Kind = "Transient"
	// ProviderInvalid: upstream returned an unparseable payload.
	ProviderInvalid Kind = "ProviderInvalid"
	// IntegrityConflict: concurrent writer violated a uniqueness key.
	// Retried once; if it still conflicts the item failed.
	IntegrityConflict Kind = "IntegrityConflict"
	// StrategyReject: backtest intent rejected for insufficient cash.
	// Logged in the trade log, not an error.
	StrategyReject Kind = "StrategyReject"
	// InternalAssert: invariant breach (e.g. low > high). Hard fail.
	InternalAssert Kind = "InternalAssert"
)

// Retryable reports whether errors of this kind are, by policy, worth a
// retry at the call site (the policy itself — attempt counts, backoff —
// lives with the caller, not here).
func (k Kind) Retryable() bool {
	switch k {
	case Transient, IntegrityConflict:
		return true
	}
	return false
}

// Error is the structured error type crossing the core's boundary.
type Error struct {
	Kind       Kind
	Symbol     string // optional, e.g. "HK.00700"
	Window     string // optional, e.g. "2024-01-01..2024-02-01"
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Symbol != "" {
		msg += " symbol=" + e.Symbol
	}
	if e.Window != "" {
		msg += " window=" + e.Window
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

// Is supports errors.Is(err, &apperr.Error{Kind: apperr.Transient}) style
// matching: a target *Error with only Kind set matches any *Error of that Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an *Error of the given kind with a formatted message as the
// underlying error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Underlying: fmt.Errorf("%s", msg), Retryable: kind.Retryable()}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a Kind, optionally tagging symbol/window.
func Wrap(kind Kind, symbol, window string, underlying error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Window: window, Underlying: underlying, Retryable: kind.Retryable()}
}

// WithSymbol returns a copy of e tagged with the given symbol.
func (e *Error) WithSymbol(symbol string) *Error {
	cp := *e
	cp.Symbol = symbol
	return &cp
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
