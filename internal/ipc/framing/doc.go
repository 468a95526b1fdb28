// Package framing splits a connection's inbound byte stream into
// discrete protocol messages.
//
// Messages are delimited by a double CRLF terminator. Partial input is
// buffered until the terminator arrives; bytes still buffered when the
// connection closes are discarded. A configurable cap bounds the buffer
// so a peer that never sends a terminator cannot grow memory without
// limit.
package framing
