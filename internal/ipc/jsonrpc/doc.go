// Package jsonrpc implements the JSON-RPC-2.0-flavoured codec used on
// the control socket.
//
// Inbound framed messages decode into one or more request entries, each
// independently validated. Outbound traffic is modelled as a tagged
// variant: a correlated response (echoing the request id verbatim) or
// an unsolicited push carrying the reserved sentinel id. The tag makes
// it impossible for a real response to be constructed with the push id.
package jsonrpc
