// Package server implements the TCP control socket: terminator-framed
// JSON-RPC requests in, correlated responses and broadcast pushes out.
//
// Each accepted connection is a session. A session handles its requests
// sequentially in arrival order; different sessions are independent.
// Responses are always flushed before a requested close takes effect,
// so close_socket and exit calls still get their answer.
package server
