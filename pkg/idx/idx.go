// Package idx generates the ULID identifiers used for every persisted row.
package idx

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a canonical 26 character ULID string.
type ID string

const Zero ID = ""

var ErrInvalid = errors.New("idx: invalid id")

// Generator hands out monotonic IDs. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewGenerator builds a generator reading entropy from r. A nil clock uses
// time.Now.
func NewGenerator(r io.Reader, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now, entropy: ulid.Monotonic(r, 0)}
}

// Next returns a fresh ID stamped with the generator clock.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(g.now().UTC()), g.entropy).String())
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

// New returns an ID from the process wide generator.
func New() ID {
	defaultOnce.Do(func() { defaultGen = NewGenerator(rand.Reader, nil) })
	return defaultGen.Next()
}

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return Zero, ErrInvalid
	}
	return ID(u.String()), nil
}

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == Zero }

// Time is the creation time embedded in the ID, or the zero time when the ID
// does not parse.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
