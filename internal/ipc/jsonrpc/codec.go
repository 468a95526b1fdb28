package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// requestFields are the only members a request object may carry.
var requestFields = map[string]bool{
	"jsonrpc": true,
	"method":  true,
	"params":  true,
	"id":      true,
}

// Entry is one decoded element of an inbound message: either a valid
// request or the error response already prepared for it.
type Entry struct {
	Request *Request
	Err     *Outbound
}

// Decode parses a framed message into its request entries.
//
// A syntactically invalid document yields a single parse-error response
// (id null) and no entries. Batches decode entry by entry; each invalid
// entry becomes an Err entry so valid siblings still dispatch.
func Decode(msg []byte) (entries []Entry, batch bool, parseErr *Outbound) {
	var root json.RawMessage
	if err := json.Unmarshal(msg, &root); err != nil {
		return nil, false, NewError(nil, CodeParseError, fmt.Sprintf("Parse error: %v", err))
	}

	if jsonKind(root) == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(root, &items); err != nil {
			return nil, false, NewError(nil, CodeParseError, fmt.Sprintf("Parse error: %v", err))
		}
		entries = make([]Entry, 0, len(items))
		for _, item := range items {
			entries = append(entries, decodeEntry(item))
		}
		return entries, true, nil
	}

	return []Entry{decodeEntry(root)}, false, nil
}

func decodeEntry(raw json.RawMessage) Entry {
	if jsonKind(raw) != '{' {
		return Entry{Err: NewError(nil, CodeInvalidRequest, "Invalid request: not an object")}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Entry{Err: NewError(nil, CodeInvalidRequest, fmt.Sprintf("Invalid request: %v", err))}
	}

	// Validate the id first so shape errors can still echo it.
	id, idOK := fields["id"]
	if idOK && jsonKind(id) != '"' && !isNumber(id) {
		return Entry{Err: NewError(nil, CodeInvalidRequest, "Invalid request: 'id' must be a string or number")}
	}

	for key := range fields {
		if !requestFields[key] {
			return Entry{Err: NewError(id, CodeInvalidRequest, fmt.Sprintf("Invalid request: unknown key %q", key))}
		}
	}

	if version, ok := fields["jsonrpc"]; ok {
		var v string
		if err := json.Unmarshal(version, &v); err != nil || v != Version {
			return Entry{Err: NewError(id, CodeInvalidRequest, "Invalid request: 'jsonrpc' must be exactly '2.0'")}
		}
	}

	methodRaw, ok := fields["method"]
	if !ok {
		return Entry{Err: NewError(id, CodeInvalidRequest, "Invalid request: 'method' key missing")}
	}
	var method string
	if err := json.Unmarshal(methodRaw, &method); err != nil {
		return Entry{Err: NewError(id, CodeInvalidRequest, "Invalid request: 'method' must be a string")}
	}

	params, hasParams := fields["params"]
	if hasParams {
		if k := jsonKind(params); k != '[' && k != '{' {
			return Entry{Err: NewError(id, CodeInvalidRequest, "Invalid request: 'params' must be absent, array or object")}
		}
	}

	return Entry{Request: &Request{ID: id, Method: method, Params: params}}
}

// Outbound is the tagged outbound variant: a response correlated to a
// request id, or a push carrying the reserved sentinel id. Construct it
// only through NewResponse, NewError and NewPush.
type Outbound struct {
	push   bool
	id     json.RawMessage
	result any
	err    *Error
}

// NewResponse builds a success response echoing the given raw id.
func NewResponse(id json.RawMessage, result any) *Outbound {
	return &Outbound{id: id, result: result}
}

// NewError builds an error response. A nil id encodes as null, which is
// the required shape for parse errors.
func NewError(id json.RawMessage, code int, message string) *Outbound {
	return &Outbound{id: id, err: &Error{Code: code, Message: message}}
}

// NewPush wraps a facade event payload as an unsolicited push.
func NewPush(payload any) *Outbound {
	return &Outbound{push: true, result: payload}
}

// IsPush reports whether the variant is an unsolicited push.
func (o *Outbound) IsPush() bool {
	return o.push
}

// Encode serialises the variant to its wire JSON, without terminator.
// Internal line breaks never occur: encoding/json emits none.
func (o *Outbound) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	switch {
	case o.push:
		buf.WriteByte('"')
		buf.WriteString(PushID)
		buf.WriteByte('"')
	case o.id == nil:
		buf.WriteString("null")
	default:
		buf.Write(o.id)
	}
	if o.err != nil {
		buf.WriteString(`,"error":`)
		enc, err := json.Marshal(o.err)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	} else {
		buf.WriteString(`,"result":`)
		enc, err := json.Marshal(o.result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeBatch joins already-encoded responses into a batch array.
// Callers must pass at least one element; an all-notification batch
// produces no output at all and never reaches this point.
func EncodeBatch(encoded [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range encoded {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// jsonKind returns the first significant byte of a raw JSON value.
func jsonKind(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

func isNumber(raw json.RawMessage) bool {
	// Unmarshalling into json.Number treats null as a no-op, so gate on
	// the leading byte first.
	k := jsonKind(raw)
	if k != '-' && (k < '0' || k > '9') {
		return false
	}
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}
