// Package idpkg generates prefixed external identifiers.
package idpkg

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes of the external identifiers handed out to clients.
const (
	AccountPrefix = "USR"
	EntryPrefix   = "TRX"
)

var (
	entropy   = ulid.Monotonic(rand.Reader, 0)
	entropyMu sync.Mutex
)

// New returns prefix followed by a monotonic ULID.
func New(prefix string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return prefix + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
