// Package terminal drives the remote ticketing terminal over one
// authenticated session.
//
// The terminal offers no idempotency key and no transactional API; its
// bet inquiry is the only authoritative record of what it has charged.
// The client therefore never resends a charge-bearing request (submit,
// deposit) and classifies every submission into the tri-state outcome the
// rest of the engine works with.
package terminal
