package rpc

import (
	"context"
	"fmt"

	"github.com/gobancho/server/internal/auth"
	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/geo"
	"github.com/gobancho/server/internal/session"
)

func decode[T any](body []byte) (*T, error) {
	var v T
	if len(body) > 0 {
		if err := codec.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", bancho.ErrInvalidArgument, err)
		}
	}
	return &v, nil
}

func encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return codec.Marshal(v)
}

// RegisterBancho exposes a BanchoService on the server.
func RegisterBancho(srv *Server, svc BanchoService) {
	srv.Handle("bancho.Login", func(ctx context.Context, md map[string]string, body []byte) ([]byte, error) {
		args, err := decode[LoginArgs](body)
		if err != nil {
			return nil, err
		}
		out, err := svc.Login(ctx, md[MetadataRealIP], args)
		if err != nil {
			return nil, err
		}
		return encode(out)
	})
	srv.Handle("bancho.ProcessPacket", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[ProcessPacketArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.ProcessPacket(ctx, args)
	})
	srv.Handle("bancho.BatchProcessPackets", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[BatchProcessArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.BatchProcessPackets(ctx, args)
	})
	srv.Handle("bancho.CreateUserSession", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[CreateSessionArgs](body)
		if err != nil {
			return nil, err
		}
		out, err := svc.CreateUserSession(ctx, args)
		if err != nil {
			return nil, err
		}
		return encode(out)
	})
	srv.Handle("bancho.DeleteUserSession", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		q, err := decode[session.Query](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.DeleteUserSession(ctx, *q)
	})
	srv.Handle("bancho.GetUserSession", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		q, err := decode[session.Query](body)
		if err != nil {
			return nil, err
		}
		out, err := svc.GetUserSession(ctx, *q)
		if err != nil {
			return nil, err
		}
		return encode(out)
	})
	srv.Handle("bancho.EnqueueBanchoPackets", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[EnqueueArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.EnqueueBanchoPackets(ctx, args)
	})
	srv.Handle("bancho.BroadcastBanchoPackets", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[BroadcastArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.BroadcastBanchoPackets(ctx, args)
	})
	srv.Handle("bancho.DequeueBanchoPackets", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		q, err := decode[session.Query](body)
		if err != nil {
			return nil, err
		}
		data, err := svc.DequeueBanchoPackets(ctx, *q)
		if err != nil {
			return nil, err
		}
		return encode(&DequeueReply{Data: data})
	})
	srv.Handle("bancho.BatchSendPresences", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[BatchPresencesArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.BatchSendPresences(ctx, args)
	})
	srv.Handle("bancho.SendAllPresences", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		q, err := decode[session.Query](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.SendAllPresences(ctx, *q)
	})
	srv.Handle("bancho.UpdateUserBanchoStatus", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[StatusUpdateArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.UpdateUserBanchoStatus(ctx, args)
	})
	srv.Handle("bancho.UpdatePresenceFilter", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[PresenceFilterArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.UpdatePresenceFilter(ctx, args)
	})
	srv.Handle("bancho.CheckUserToken", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[TokenArgs](body)
		if err != nil {
			return nil, err
		}
		out, err := svc.CheckUserToken(ctx, args.Token)
		if err != nil {
			return nil, err
		}
		return encode(out)
	})
}

// RegisterGeo exposes a geo.Service on the server.
func RegisterGeo(srv *Server, svc geo.Service) {
	srv.Handle("geo.Lookup", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[GeoLookupArgs](body)
		if err != nil {
			return nil, err
		}
		rec, err := svc.Lookup(ctx, args.IP)
		if err != nil {
			return nil, err
		}
		return encode(rec)
	})
}

// RegisterPasswords exposes an auth.PasswordVerifier on the server.
func RegisterPasswords(srv *Server, svc auth.PasswordVerifier) {
	srv.Handle("password.Verify", func(ctx context.Context, _ map[string]string, body []byte) ([]byte, error) {
		args, err := decode[PasswordVerifyArgs](body)
		if err != nil {
			return nil, err
		}
		return nil, svc.Verify(ctx, args.Hash, args.Password)
	})
}
