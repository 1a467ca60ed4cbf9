// Package daemon assembles the dagflow service from its configuration:
// run store, engine, supervisor, notifiers, inbound signal transports,
// scheduler and HTTP API, all registered as bootstrap components.
package daemon
