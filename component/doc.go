// Package component defines the lifecycle contract of dagflow's
// infrastructure: the store backends, the message bus, signal consumers,
// the event hub, the scheduler and the HTTP server.
//
// A Registry starts components in registration order and stops them in
// reverse, so dependencies are registered first.
package component
