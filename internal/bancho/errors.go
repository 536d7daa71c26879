package bancho

import (
	"errors"
	"fmt"

	"github.com/gobancho/server/internal/packet"
)

// Core error taxonomy. RPC maps these onto transport status codes; the
// dispatcher and login pipeline return them directly.
var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrSessionNotExists        = errors.New("session not exists")
	ErrInvalidToken            = errors.New("invalid token")
	ErrLoginInvalidCredentials = errors.New("login: invalid credentials")
	ErrLoginUserBanned         = errors.New("login: user banned")
	ErrLoginRefused            = errors.New("login: refused")
	ErrFailedToProcessAll      = errors.New("failed to process all packets")
	ErrBlocked                 = errors.New("message blocked")
	ErrUnavailable             = errors.New("unavailable")
	ErrInternal                = errors.New("internal error")
)

// UnhandledPacketError reports an inbound kind with no registered handler.
type UnhandledPacketError struct {
	Kind packet.Kind
}

func (e *UnhandledPacketError) Error() string {
	return fmt.Sprintf("unhandled packet %s", packet.ClientKindName(e.Kind))
}

// InvalidPayloadError reports an inbound payload that failed to decode.
type InvalidPayloadError struct {
	Kind packet.Kind
	Err  error
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload for %s: %v", packet.ClientKindName(e.Kind), e.Err)
}

func (e *InvalidPayloadError) Unwrap() error { return e.Err }
