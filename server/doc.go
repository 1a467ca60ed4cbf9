// Package server provides the Gin HTTP server of dagflow with lifecycle
// management, probe endpoints and a standard middleware stack.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with latency
//   - Auth: bearer token authentication
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /healthz, /livez, /readyz,
// /version and /metrics.
package server
