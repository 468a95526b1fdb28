// Package monitoring exposes Prometheus metrics for the control socket
// and the browser facade. The metrics are served by the optional debug
// HTTP surface; the IPC protocol itself carries none of them.
package monitoring
