// Package rpc maintains the closed catalog of control methods and
// dispatches decoded requests into the browser facade.
//
// Every method carries an explicit, ordered parameter descriptor used
// to validate and coerce the loosely-typed JSON params before the
// strongly-typed handler runs. Dispatch failures are data-level faults
// carrying a protocol error code; they never propagate as panics into
// the session handling a connection.
package rpc
