// Package errors defines the structured error type shared by the engine,
// the supervisor and the HTTP API. Every AppError carries a machine-readable
// code, a retry hint and the HTTP status the API answers with.
package errors
