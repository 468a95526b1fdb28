package jsonrpc

import "encoding/json"

// Version is the only accepted value of the optional "jsonrpc" member.
const Version = "2.0"

// PushID is the reserved correlation id that marks unsolicited pushes.
// Clients distinguish pushes from responses solely by this sentinel.
const PushID = "--push-msg"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a single validated request entry.
//
// ID is the raw JSON of the "id" member so responses can echo it
// byte-for-byte; nil means the member was absent and the request is a
// notification. Params is the raw "params" member, nil when absent.
type Request struct {
	ID     json.RawMessage
	Method string
	Params json.RawMessage
}

// Notification reports whether the request expects no response.
func (r *Request) Notification() bool {
	return r.ID == nil
}

// Error is the wire error object carried by failed responses.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
