// Package highspeed resolves legal size and frame-rate combinations for
// constrained high-speed capture sessions.
//
// High-speed hardware trades flexibility for rate: a session accepts one or
// two output surfaces, every surface must use the identical size, and with
// two surfaces only fixed frame rates (lower == upper) are allowed. Resolver
// answers the negotiation questions an orchestrator asks before building
// such a session: is high-speed available, which sizes can all use cases
// share, and which frame-rate ranges are legal for a given surface set.
//
// A Resolver is read-only after construction and safe for concurrent use;
// capability lookups are derived lazily once and cached.
package highspeed
