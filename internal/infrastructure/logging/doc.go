// Package logging provides structured logging using uber/zap.
//
// Two modes are offered: JSON output for machine parsing (production)
// and colored console output for development. All log output goes to
// stderr: stdout is reserved for the IPC socket startup announcement,
// which a launching process reads to discover the socket address.
package logging
