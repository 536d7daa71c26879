package handler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// HandlerFunc processes one inbound packet for a live session and returns
// the packets to append to the HTTP response, if any.
type HandlerFunc func(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error)

// Registry maps inbound packet kinds to handlers.
type Registry struct {
	handlers map[packet.Kind]HandlerFunc
	deps     *Deps
	log      *zap.Logger
}

func NewRegistry(deps *Deps) *Registry {
	return &Registry{
		handlers: make(map[packet.Kind]HandlerFunc),
		deps:     deps,
		log:      deps.Log,
	}
}

// Register maps a kind to a handler.
func (reg *Registry) Register(kind packet.Kind, fn HandlerFunc) {
	reg.handlers[kind] = fn
}

// Dispatch runs the handler for one packet. Unknown kinds return
// UnhandledPacketError; payload decode failures return InvalidPayloadError.
func (reg *Registry) Dispatch(s *session.Session, kind packet.Kind, payload []byte) ([]byte, error) {
	fn, ok := reg.handlers[kind]
	if !ok {
		return nil, &bancho.UnhandledPacketError{Kind: kind}
	}

	r := packet.NewReader(payload)
	out, err := reg.safeCall(fn, s, r, kind)
	if rerr := r.Err(); rerr != nil {
		return out, &bancho.InvalidPayloadError{Kind: kind, Err: rerr}
	}
	// Handlers may pair an error with client feedback, e.g. a channel
	// kick for a refused join.
	return out, err
}

// safeCall executes a handler with panic recovery so a single bad packet
// cannot take the poll down.
func (reg *Registry) safeCall(fn HandlerFunc, s *session.Session, r *packet.Reader, kind packet.Kind) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("kind", packet.ClientKindName(kind)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", packet.ClientKindName(kind), rec)
		}
	}()
	return fn(s, r, reg.deps)
}

// DispatchBatch processes every frame of one poll body sequentially.
// Per-packet failures are counted and logged but do not abort the batch;
// a non-empty batch where everything failed returns ErrFailedToProcessAll.
// Outputs of successful handlers are concatenated in order.
func (reg *Registry) DispatchBatch(s *session.Session, body []byte) ([]byte, error) {
	fr := packet.NewFrameReader(body)
	var out []byte
	total, failed := 0, 0

	for {
		frame, err := fr.Next()
		if err != nil {
			// A short trailing fragment invalidates only itself.
			reg.log.Warn("truncated frame in poll body", zap.Int32("user", s.UserID))
			total++
			failed++
			break
		}
		if frame == nil {
			break
		}
		total++

		res, err := reg.Dispatch(s, frame.Kind, frame.Payload)
		outcome := "ok"
		if err != nil {
			failed++
			outcome = "error"
			reg.log.Debug("packet failed",
				zap.String("kind", packet.ClientKindName(frame.Kind)),
				zap.Int32("user", s.UserID),
				zap.Error(err),
			)
		}
		if m := reg.deps.State.Metrics; m != nil {
			m.PacketsTotal.WithLabelValues(packet.ClientKindName(frame.Kind), outcome).Inc()
		}
		out = append(out, res...)
	}

	if total > 0 && failed == total {
		return out, bancho.ErrFailedToProcessAll
	}
	return out, nil
}
