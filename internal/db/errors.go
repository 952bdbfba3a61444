package db

import (
	"errors"

	"github.com/kailas-cloud/vidrank/internal/domain"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrIndexExists = errors.New("db: index already exists")
)

// Op names the store command that failed.
const (
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHDel        = "HDEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"
	OpLRange      = "LRANGE"
	OpSMembers    = "SMEMBERS"
)

// Error wraps a store failure with the command name. Unavailable marks failures
// that never reached the server (dial, timeout, closed client); those also match
// domain.ErrUpstreamUnavailable so callers can fall back.
type Error struct {
	Op          string
	Err         error
	Unavailable bool
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Is reports domain.ErrUpstreamUnavailable for transport failures.
func (e *Error) Is(target error) bool {
	return e.Unavailable && target == domain.ErrUpstreamUnavailable
}
