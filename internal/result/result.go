// Package result defines the uniform success/failure envelope returned
// by every arena service call. Expected failures (transport errors,
// non-2xx responses, undecodable bodies, backend-reported errors) are
// carried as the failure variant instead of crossing the service
// boundary as Go errors.
package result

import "fmt"

// Result is the envelope for a single service call outcome. Exactly one
// of the two variants holds: Success true with Data, or Success false
// with a non-empty Error string.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok returns a success envelope carrying data.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail returns a failure envelope with the given message.
func Fail[T any](msg string) Result[T] {
	return Result[T]{Success: false, Error: msg}
}

// Failf returns a failure envelope with a formatted message.
func Failf[T any](format string, args ...any) Result[T] {
	return Result[T]{Success: false, Error: fmt.Sprintf(format, args...)}
}
