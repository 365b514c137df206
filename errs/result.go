package errs

import "fmt"

// Result is the uniform success/failure carrier used by every fallible
// deskstream operation. A Result[T] holds exactly one of an ok value of
// type T or an (ErrorKind, message) pair; it is never partially valid.
//
// The zero value of Result[T] is an error result with KindNone, which is
// deliberately not a useful state; always construct results through Ok
// or Err.
type Result[T any] struct {
	value T
	ok    bool
	kind  ErrorKind
	msg   string
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err builds a failure result with the given kind and message.
func Err[T any](kind ErrorKind, message string) Result[T] {
	return Result[T]{ok: false, kind: kind, msg: message}
}

// Errf builds a failure result with a formatted message.
func Errf[T any](kind ErrorKind, format string, args ...any) Result[T] {
	return Err[T](kind, fmt.Sprintf(format, args...))
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Code returns the error kind, or KindNone when the result is ok.
func (r Result[T]) Code() ErrorKind {
	if r.ok {
		return KindNone
	}
	return r.kind
}

// Message returns the human-readable error message, or "" when ok.
func (r Result[T]) Message() string {
	if r.ok {
		return ""
	}
	return r.msg
}

// FullMessage renders "<KindName>: <message>" for logging, or "" when ok.
func (r Result[T]) FullMessage() string {
	if r.ok {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.kind, r.msg)
}

// Value returns the ok value. It panics if the result is an error; callers
// must check IsOk (or use ValueOr/TakeValue) before calling Value.
func (r Result[T]) Value() T {
	if !r.ok {
		panic("errs: Value() called on error result: " + r.FullMessage())
	}
	return r.value
}

// ValueOr returns the ok value, or def when the result is an error.
func (r Result[T]) ValueOr(def T) T {
	if !r.ok {
		return def
	}
	return r.value
}

// TakeValue transfers ownership of the ok value out of the result,
// reporting whether one was present. Used when T is a type the caller
// should stop sharing with whatever produced the Result (e.g. a buffer).
func (r Result[T]) TakeValue() (T, bool) {
	return r.value, r.ok
}

// AsError converts a failed Result into a plain Go error (nil when ok), for
// boundaries that must satisfy the stdlib `error` interface. Prefer staying
// in Result[T] through a call chain; only convert at such a boundary.
func (r Result[T]) AsError() error {
	if r.ok {
		return nil
	}
	return &resultError{kind: r.kind, msg: r.msg}
}

type resultError struct {
	kind ErrorKind
	msg  string
}

func (e *resultError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Kind extracts the ErrorKind from an error produced by Result.AsError, if
// any. Returns (KindUnknown, false) for errors not produced that way.
func Kind(err error) (ErrorKind, bool) {
	if err == nil {
		return KindNone, true
	}
	re, ok := err.(*resultError)
	if !ok {
		return KindUnknown, false
	}
	return re.kind, true
}

// MapResult transforms an ok value with f, leaving error results untouched.
// Defined as a free function (rather than a method) because Go methods
// cannot introduce additional type parameters.
func MapResult[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.IsErr() {
		return Err[U](r.kind, r.msg)
	}
	return Ok(f(r.value))
}

// MapErr transforms the error kind/message of a failed result, leaving ok
// results untouched.
func MapErr[T any](r Result[T], f func(ErrorKind, string) (ErrorKind, string)) Result[T] {
	if r.IsOk() {
		return r
	}
	kind, msg := f(r.kind, r.msg)
	return Err[T](kind, msg)
}

// AndThen pipes the ok value of r into a continuation that returns another
// Result, short-circuiting on error. This is the monadic bind for Result.
func AndThen[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.IsErr() {
		return Err[U](r.kind, r.msg)
	}
	return f(r.value)
}

// OrElse recovers from an error result by invoking f with the failing
// kind/message; ok results pass through unchanged.
func (r Result[T]) OrElse(f func(ErrorKind, string) Result[T]) Result[T] {
	if r.IsOk() {
		return r
	}
	return f(r.kind, r.msg)
}

// Void is the Result specialization for operations with no payload. As an
// alias of Result[struct{}] it keeps every method; its value accessors
// only ever yield the empty struct.
type Void = Result[struct{}]

// OkVoid is the successful Void result.
func OkVoid() Void { return Ok(struct{}{}) }

// ErrVoid builds a failed Void result.
func ErrVoid(kind ErrorKind, message string) Void { return Err[struct{}](kind, message) }
