package rpc

import (
	"context"
	"errors"

	"github.com/gobancho/server/internal/auth"
	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/geo"
	"github.com/gobancho/server/internal/session"
)

// RemoteBancho forwards BanchoService calls over the frame transport.
type RemoteBancho struct {
	c *Client
}

var _ BanchoService = (*RemoteBancho)(nil)

func NewRemoteBancho(c *Client) *RemoteBancho {
	return &RemoteBancho{c: c}
}

func (r *RemoteBancho) Login(ctx context.Context, clientIP string, args *LoginArgs) (*LoginSuccess, error) {
	md := map[string]string{MetadataRealIP: clientIP}
	var out LoginSuccess
	if err := r.c.Call(ctx, "bancho.Login", md, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteBancho) ProcessPacket(ctx context.Context, args *ProcessPacketArgs) error {
	return r.c.Call(ctx, "bancho.ProcessPacket", nil, args, nil)
}

func (r *RemoteBancho) BatchProcessPackets(ctx context.Context, args *BatchProcessArgs) error {
	return r.c.Call(ctx, "bancho.BatchProcessPackets", nil, args, nil)
}

func (r *RemoteBancho) CreateUserSession(ctx context.Context, args *CreateSessionArgs) (*CreateSessionReply, error) {
	var out CreateSessionReply
	if err := r.c.Call(ctx, "bancho.CreateUserSession", nil, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteBancho) DeleteUserSession(ctx context.Context, q session.Query) error {
	return r.c.Call(ctx, "bancho.DeleteUserSession", nil, q, nil)
}

func (r *RemoteBancho) GetUserSession(ctx context.Context, q session.Query) (*SessionView, error) {
	var out SessionView
	if err := r.c.Call(ctx, "bancho.GetUserSession", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteBancho) EnqueueBanchoPackets(ctx context.Context, args *EnqueueArgs) error {
	return r.c.Call(ctx, "bancho.EnqueueBanchoPackets", nil, args, nil)
}

func (r *RemoteBancho) BroadcastBanchoPackets(ctx context.Context, args *BroadcastArgs) error {
	return r.c.Call(ctx, "bancho.BroadcastBanchoPackets", nil, args, nil)
}

func (r *RemoteBancho) DequeueBanchoPackets(ctx context.Context, q session.Query) ([]byte, error) {
	var out DequeueReply
	if err := r.c.Call(ctx, "bancho.DequeueBanchoPackets", nil, q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (r *RemoteBancho) BatchSendPresences(ctx context.Context, args *BatchPresencesArgs) error {
	return r.c.Call(ctx, "bancho.BatchSendPresences", nil, args, nil)
}

func (r *RemoteBancho) SendAllPresences(ctx context.Context, to session.Query) error {
	return r.c.Call(ctx, "bancho.SendAllPresences", nil, to, nil)
}

func (r *RemoteBancho) UpdateUserBanchoStatus(ctx context.Context, args *StatusUpdateArgs) error {
	return r.c.Call(ctx, "bancho.UpdateUserBanchoStatus", nil, args, nil)
}

func (r *RemoteBancho) UpdatePresenceFilter(ctx context.Context, args *PresenceFilterArgs) error {
	return r.c.Call(ctx, "bancho.UpdatePresenceFilter", nil, args, nil)
}

func (r *RemoteBancho) CheckUserToken(ctx context.Context, token string) (*SessionView, error) {
	var out SessionView
	if err := r.c.Call(ctx, "bancho.CheckUserToken", nil, TokenArgs{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoteGeo is a geo.Service backed by the frame transport.
type RemoteGeo struct {
	c *Client
}

var _ geo.Service = (*RemoteGeo)(nil)

func NewRemoteGeo(c *Client) *RemoteGeo { return &RemoteGeo{c: c} }

func (r *RemoteGeo) Lookup(ctx context.Context, ip string) (*geo.Record, error) {
	var out geo.Record
	if err := r.c.Call(ctx, "geo.Lookup", nil, GeoLookupArgs{IP: ip}, &out); err != nil {
		if errors.Is(err, bancho.ErrSessionNotExists) {
			return nil, geo.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// RemotePasswords verifies password hashes over the frame transport. It
// satisfies auth.PasswordVerifier.
type RemotePasswords struct {
	c *Client
}

func NewRemotePasswords(c *Client) *RemotePasswords { return &RemotePasswords{c: c} }

func (r *RemotePasswords) Verify(ctx context.Context, hash, password string) error {
	err := r.c.Call(ctx, "password.Verify", nil, PasswordVerifyArgs{Hash: hash, Password: password}, nil)
	// The unauthenticated status on this method means exactly one thing:
	// the hash did not match. Callers branch on the sentinel.
	if errors.Is(err, bancho.ErrInvalidToken) {
		return auth.ErrPasswordMismatch
	}
	return err
}
