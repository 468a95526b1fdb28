// Package id provides centralized ID generation.
//
// Sessions and downloads use prefixed ULIDs: lexicographically sortable
// for timeline queries and readable in logs. Window identifiers are NOT
// generated here — they are UUIDv4 strings, because the control
// protocol exposes them to external clients as opaque UUIDs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies one accepted control socket connection.
type SessionID string

// DownloadID identifies one download request.
type DownloadID string

const (
	SessionPrefix  = "sess"
	DownloadPrefix = "dl"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewDownloadID generates a new download ID.
func NewDownloadID() DownloadID {
	return DownloadID(Default().GenerateWithPrefix(DownloadPrefix))
}

func (id SessionID) String() string  { return string(id) }
func (id DownloadID) String() string { return string(id) }
