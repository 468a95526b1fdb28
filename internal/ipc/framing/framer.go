package framing

import (
	"bytes"
	"errors"
	"fmt"
)

// Terminator delimits messages on the wire. Every outbound response and
// push is suffixed with it as well, so the same framer works on both
// ends of the connection.
const Terminator = "\r\n\r\n"

// DefaultMaxBuffered is the fallback buffer cap when none is configured.
const DefaultMaxBuffered = 4 << 20 // 4 MiB

// ErrBufferLimit reports that a peer exceeded the buffer cap without
// ever completing a message. The connection is expected to be closed.
var ErrBufferLimit = errors.New("framing: buffered message exceeds limit")

var terminator = []byte(Terminator)

// Framer accumulates raw socket reads and yields complete messages.
// It is not safe for concurrent use; each connection owns one Framer.
type Framer struct {
	buf     []byte
	max     int
	scanned int
}

// New creates a Framer with the given buffer cap. A non-positive cap
// falls back to DefaultMaxBuffered.
func New(maxBuffered int) *Framer {
	if maxBuffered <= 0 {
		maxBuffered = DefaultMaxBuffered
	}
	return &Framer{max: maxBuffered}
}

// Append adds bytes read from the socket. It returns ErrBufferLimit if
// the unterminated tail grows beyond the configured cap.
func (f *Framer) Append(p []byte) error {
	if len(f.buf)+len(p) > f.max {
		return fmt.Errorf("%w: %d buffered, cap %d", ErrBufferLimit, len(f.buf)+len(p), f.max)
	}
	f.buf = append(f.buf, p...)
	return nil
}

// Next pops the next complete message, without its terminator. The
// second return is false when no complete message is buffered yet.
//
// The terminator may straddle two reads, so scanning resumes a few
// bytes before the previously scanned offset.
func (f *Framer) Next() ([]byte, bool) {
	start := f.scanned - (len(terminator) - 1)
	if start < 0 {
		start = 0
	}
	i := bytes.Index(f.buf[start:], terminator)
	if i < 0 {
		f.scanned = len(f.buf)
		return nil, false
	}
	end := start + i
	msg := make([]byte, end)
	copy(msg, f.buf[:end])
	f.buf = f.buf[end+len(terminator):]
	f.scanned = 0
	return msg, true
}

// Buffered reports how many unterminated bytes are currently held.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// AppendTerminator suffixes an encoded message with the wire
// terminator, returning the same slice when capacity allows.
func AppendTerminator(msg []byte) []byte {
	return append(msg, terminator...)
}
