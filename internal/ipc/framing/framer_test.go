package framing

import (
	"bytes"
	"errors"
	"testing"
)

func collect(f *Framer) [][]byte {
	var msgs [][]byte
	for {
		msg, ok := f.Next()
		if !ok {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

func TestSingleMessage(t *testing.T) {
	f := New(0)
	if err := f.Append([]byte("{\"method\":\"get_windows\"}\r\n\r\n")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	msgs := collect(f)
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if string(msgs[0]) != "{\"method\":\"get_windows\"}" {
		t.Errorf("Unexpected message: %q", msgs[0])
	}
	if f.Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", f.Buffered())
	}
}

func TestMultipleMessagesOneRead(t *testing.T) {
	f := New(0)
	f.Append([]byte("one\r\n\r\ntwo\r\n\r\nthree"))

	msgs := collect(f)
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if string(msgs[0]) != "one" || string(msgs[1]) != "two" {
		t.Errorf("Unexpected messages: %q %q", msgs[0], msgs[1])
	}
	if f.Buffered() != len("three") {
		t.Errorf("Expected %d buffered bytes, got %d", len("three"), f.Buffered())
	}
}

func TestPartialThenComplete(t *testing.T) {
	f := New(0)
	f.Append([]byte(`{"method":"exi`))
	if _, ok := f.Next(); ok {
		t.Fatal("Partial input must not yield a message")
	}

	f.Append([]byte("t\"}\r\n\r\n"))
	msgs := collect(f)
	if len(msgs) != 1 || string(msgs[0]) != `{"method":"exit"}` {
		t.Fatalf("Unexpected messages: %v", msgs)
	}
}

func TestTerminatorSplitAcrossReads(t *testing.T) {
	f := New(0)
	f.Append([]byte("ping\r\n"))
	if _, ok := f.Next(); ok {
		t.Fatal("Half a terminator must not complete a message")
	}
	f.Append([]byte("\r\n"))
	msg, ok := f.Next()
	if !ok || string(msg) != "ping" {
		t.Fatalf("Expected %q, got %q (ok=%v)", "ping", msg, ok)
	}
}

func TestEmptyMessage(t *testing.T) {
	f := New(0)
	f.Append([]byte("\r\n\r\n"))
	msg, ok := f.Next()
	if !ok {
		t.Fatal("Expected an (empty) message")
	}
	if len(msg) != 0 {
		t.Errorf("Expected empty message, got %q", msg)
	}
}

func TestBufferLimit(t *testing.T) {
	f := New(16)
	err := f.Append(bytes.Repeat([]byte("x"), 32))
	if !errors.Is(err, ErrBufferLimit) {
		t.Fatalf("Expected ErrBufferLimit, got %v", err)
	}
}

func TestLimitAppliesToUnterminatedTailOnly(t *testing.T) {
	f := New(32)
	for i := 0; i < 10; i++ {
		if err := f.Append([]byte("0123456789\r\n\r\n")); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		if _, ok := f.Next(); !ok {
			t.Fatalf("Expected message %d", i)
		}
	}
}

func TestAppendTerminatorRoundTrip(t *testing.T) {
	wire := AppendTerminator([]byte(`{"id":1,"result":true}`))
	f := New(0)
	f.Append(wire)
	msgs := collect(f)
	if len(msgs) != 1 || string(msgs[0]) != `{"id":1,"result":true}` {
		t.Fatalf("Round trip failed: %v", msgs)
	}
}
