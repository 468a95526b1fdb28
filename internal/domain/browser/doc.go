// Package browser owns all window state for the application.
//
// The rendering engine itself is external; what lives here is the
// single-threaded facade every control call must be marshalled into.
// A Manager runs one goroutine that processes queued commands in order,
// so window state needs no locks and callers from any number of
// concurrent IPC sessions observe consistent snapshots. Calls block
// for the round-trip; the manager goroutine never blocks on callers.
package browser
