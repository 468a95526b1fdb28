// Package debug serves the optional read-only HTTP inspection surface:
// health, Prometheus metrics, live window and download state, and a
// websocket tap mirroring the control socket's push events. It is meant
// for local tooling and is disabled unless an address is configured.
package debug
