// Package idgen produces the opaque identifiers assigned to pages.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing time-ordered RFC 9562 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequence returns a deterministic Generator yielding prefix-1, prefix-2, ...
// It is meant for fixtures and tests.
func Sequence(prefix string) Generator {
	var next atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(next.Add(1), 10)
	}
}

// Default is the generator used when none is configured.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a UUID string and returns its canonical form.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", eris.Wrapf(err, "invalid id: %s", s)
	}
	return u.String(), nil
}
