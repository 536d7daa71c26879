package rpc

import (
	"errors"
	"fmt"

	"github.com/gobancho/server/internal/auth"
	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/geo"
)

// Status is the wire-level outcome tag carried by every RPC response.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidArgument
	StatusNotFound
	StatusUnauthenticated
	StatusInternal
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidArgument:
		return "invalid_argument"
	case StatusNotFound:
		return "not_found"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusInternal:
		return "internal"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// StatusOf maps a local error onto the wire status tag.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, bancho.ErrInvalidArgument),
		errors.Is(err, bancho.ErrFailedToProcessAll):
		return StatusInvalidArgument
	case errors.Is(err, bancho.ErrSessionNotExists),
		errors.Is(err, geo.ErrNotFound):
		return StatusNotFound
	case errors.Is(err, bancho.ErrInvalidToken),
		errors.Is(err, bancho.ErrLoginInvalidCredentials),
		errors.Is(err, bancho.ErrLoginUserBanned),
		errors.Is(err, bancho.ErrLoginRefused),
		errors.Is(err, auth.ErrPasswordMismatch):
		return StatusUnauthenticated
	case errors.Is(err, bancho.ErrUnavailable):
		return StatusUnavailable
	default:
		return StatusInternal
	}
}

// ErrorOf maps a remote status back onto the local error taxonomy, so
// callers handle remote failures exactly like local ones.
func ErrorOf(s Status, msg string) error {
	var base error
	switch s {
	case StatusOK:
		return nil
	case StatusInvalidArgument:
		base = bancho.ErrInvalidArgument
	case StatusNotFound:
		base = bancho.ErrSessionNotExists
	case StatusUnauthenticated:
		base = bancho.ErrInvalidToken
	case StatusUnavailable:
		base = bancho.ErrUnavailable
	default:
		base = bancho.ErrInternal
	}
	if msg == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}
