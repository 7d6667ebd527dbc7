// Package errs defines the closed error classification used by the fetch
// engine. Every error crossing the exchange adapter boundary is tagged with
// one of the classes below; backoff behaviour is a pure function of the tag.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Class identifies one error category at the adapter boundary.
type Class string

const (
	// ClassNetwork covers connection resets, DNS failures and the like.
	ClassNetwork Class = "network"
	// ClassRateLimit covers exchange request-weight rejections.
	ClassRateLimit Class = "rate_limit"
	// ClassMaintenance covers exchange downtime windows.
	ClassMaintenance Class = "maintenance"
	// ClassTransient covers recoverable exchange errors: bad nonce,
	// request timeout and generic exchange-side failures.
	ClassTransient Class = "transient"
	// ClassAuth covers credential rejections.
	ClassAuth Class = "auth"
	// ClassUnknown is everything else; treated as fatal by the fetch loop.
	ClassUnknown Class = "unknown"
)

// Error tags a cause with a Class. It is the only error type the fetch
// engine inspects.
type Error struct {
	Class Class
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Cause)
}

// Unwrap returns the original cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New wraps cause with the given class.
func New(class Class, op string, cause error) *Error {
	return &Error{Class: class, Op: op, Cause: cause}
}

// ClassOf returns the class of err, or ClassUnknown for untagged errors.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassUnknown
}

// Is reports whether err carries the given class.
func Is(err error, class Class) bool {
	return ClassOf(err) == class
}

// Backoff describes how a fetch loop reacts to one error class.
type Backoff struct {
	Sleep     time.Duration
	Terminate bool
}

// backoffTable maps each recoverable class to its pause. Unknown and Auth
// are absent on purpose: both terminate the loop.
var backoffTable = map[Class]Backoff{
	ClassMaintenance: {Sleep: 10 * time.Minute},
	ClassRateLimit:   {Sleep: 5 * time.Minute},
	ClassTransient:   {Sleep: time.Minute},
	ClassNetwork:     {Sleep: time.Minute},
}

// Policy returns the backoff decision for one error class.
func Policy(class Class) Backoff {
	if b, ok := backoffTable[class]; ok {
		return b
	}
	return Backoff{Terminate: true}
}
