package rpc

import (
	"context"
	"fmt"

	"github.com/gobancho/server/internal/auth"
	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/handler"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// BanchoService is the typed contract over the session core. The local
// implementation calls straight into the state; the remote one forwards
// every method over the frame transport.
type BanchoService interface {
	Login(ctx context.Context, clientIP string, args *LoginArgs) (*LoginSuccess, error)
	ProcessPacket(ctx context.Context, args *ProcessPacketArgs) error
	BatchProcessPackets(ctx context.Context, args *BatchProcessArgs) error
	CreateUserSession(ctx context.Context, args *CreateSessionArgs) (*CreateSessionReply, error)
	DeleteUserSession(ctx context.Context, q session.Query) error
	GetUserSession(ctx context.Context, q session.Query) (*SessionView, error)
	EnqueueBanchoPackets(ctx context.Context, args *EnqueueArgs) error
	BroadcastBanchoPackets(ctx context.Context, args *BroadcastArgs) error
	DequeueBanchoPackets(ctx context.Context, q session.Query) ([]byte, error)
	BatchSendPresences(ctx context.Context, args *BatchPresencesArgs) error
	SendAllPresences(ctx context.Context, to session.Query) error
	UpdateUserBanchoStatus(ctx context.Context, args *StatusUpdateArgs) error
	UpdatePresenceFilter(ctx context.Context, args *PresenceFilterArgs) error
	CheckUserToken(ctx context.Context, token string) (*SessionView, error)
}

// LocalBancho is the in-process implementation of BanchoService.
type LocalBancho struct {
	State    *bancho.State
	Logins   *auth.Service
	Registry *handler.Registry
}

var _ BanchoService = (*LocalBancho)(nil)

func NewLocalBancho(state *bancho.State, logins *auth.Service, reg *handler.Registry) *LocalBancho {
	return &LocalBancho{State: state, Logins: logins, Registry: reg}
}

func (l *LocalBancho) Login(ctx context.Context, clientIP string, args *LoginArgs) (*LoginSuccess, error) {
	req := &auth.LoginRequest{
		Username:     args.Username,
		PasswordHash: args.PasswordMD5,
		OsuVersion:   args.ClientVersion,
		UTCOffset:    args.UTCOffset,
		DisplayCity:  args.DisplayCity,
		OnlyFriendPM: args.OnlyFriendDMs,
	}
	res, err := l.Logins.Login(ctx, clientIP, req)
	if err != nil {
		return nil, err
	}
	id, sig, ok := auth.SplitToken(res.Token)
	if !ok {
		return nil, fmt.Errorf("%w: malformed token after login", bancho.ErrInternal)
	}
	return &LoginSuccess{
		SessionID: id.String(),
		Signature: sig,
		UserID:    res.UserID,
		Packets:   res.Packets,
	}, nil
}

func (l *LocalBancho) sessionFor(userID int32) (*session.Session, error) {
	s := l.State.Store.Get(session.QueryByUserID(userID))
	if s == nil {
		return nil, fmt.Errorf("%w: user %d", bancho.ErrSessionNotExists, userID)
	}
	return s, nil
}

func (l *LocalBancho) ProcessPacket(ctx context.Context, args *ProcessPacketArgs) error {
	s, err := l.sessionFor(args.UserID)
	if err != nil {
		return err
	}
	s.Touch()
	out, err := l.Registry.Dispatch(s, packet.Kind(args.Kind), args.Payload)
	if len(out) > 0 {
		s.Queue.Push(out)
	}
	return err
}

func (l *LocalBancho) BatchProcessPackets(ctx context.Context, args *BatchProcessArgs) error {
	s, err := l.sessionFor(args.UserID)
	if err != nil {
		return err
	}
	s.Touch()
	out, err := l.Registry.DispatchBatch(s, args.Packets)
	if len(out) > 0 {
		s.Queue.Push(out)
	}
	return err
}

func (l *LocalBancho) CreateUserSession(ctx context.Context, args *CreateSessionArgs) (*CreateSessionReply, error) {
	if args.UserID <= 0 || args.Username == "" {
		return nil, fmt.Errorf("%w: user id and username required", bancho.ErrInvalidArgument)
	}

	s := session.New(args.UserID, args.Username, args.UsernameUnicode, l.State.Cfg.Session.QueueSize)
	s.Privileges.Store(args.Privileges)
	s.UTCOffset = args.UTCOffset
	s.DisplayCity = args.DisplayCity
	s.IP = args.IP
	s.SetPresenceFilter(session.FilterAll)
	s.SetBusCursor(l.State.Notify.Latest())

	if displaced := l.State.Store.Create(s); displaced != nil {
		displaced.Queue.Push(packet.Notification("You have logged in from elsewhere."))
		l.State.Logout(displaced)
	}
	l.State.Presence.BroadcastPresence(s)
	l.State.Presence.BroadcastStats(s)

	return &CreateSessionReply{
		SessionID: s.ID.String(),
		Signature: l.Logins.Signer.Sign(s.ID, s.UserID),
	}, nil
}

func (l *LocalBancho) DeleteUserSession(ctx context.Context, q session.Query) error {
	s := l.State.Store.Get(q)
	if s == nil {
		return bancho.ErrSessionNotExists
	}
	l.State.Logout(s)
	return nil
}

func (l *LocalBancho) GetUserSession(ctx context.Context, q session.Query) (*SessionView, error) {
	s := l.State.Store.Get(q)
	if s == nil {
		return nil, bancho.ErrSessionNotExists
	}
	return viewOf(s), nil
}

func (l *LocalBancho) EnqueueBanchoPackets(ctx context.Context, args *EnqueueArgs) error {
	return l.State.EnqueueTo(args.Target, args.Packets...)
}

func (l *LocalBancho) BroadcastBanchoPackets(ctx context.Context, args *BroadcastArgs) error {
	for _, p := range args.Packets {
		l.State.BroadcastAll(p)
	}
	return nil
}

func (l *LocalBancho) DequeueBanchoPackets(ctx context.Context, q session.Query) ([]byte, error) {
	s := l.State.Store.Get(q)
	if s == nil {
		return nil, bancho.ErrSessionNotExists
	}
	return l.State.DrainFor(s), nil
}

func (l *LocalBancho) BatchSendPresences(ctx context.Context, args *BatchPresencesArgs) error {
	to := l.State.Store.Get(args.To)
	if to == nil {
		return bancho.ErrSessionNotExists
	}
	senders := make([]*session.Session, 0, len(args.Queries))
	for _, q := range args.Queries {
		if s := l.State.Store.Get(q); s != nil {
			senders = append(senders, s)
		}
	}
	l.State.Presence.BatchSendPresences(senders, to)
	return nil
}

func (l *LocalBancho) SendAllPresences(ctx context.Context, to session.Query) error {
	s := l.State.Store.Get(to)
	if s == nil {
		return bancho.ErrSessionNotExists
	}
	l.State.Presence.SendAllPresences(s)
	return nil
}

func (l *LocalBancho) UpdateUserBanchoStatus(ctx context.Context, args *StatusUpdateArgs) error {
	s := l.State.Store.Get(args.Query)
	if s == nil {
		return bancho.ErrSessionNotExists
	}
	s.SetStatus(&session.Status{
		Action:     args.Action,
		InfoText:   args.InfoText,
		BeatmapMD5: args.BeatmapMD5,
		Mods:       args.Mods,
		Mode:       args.Mode,
		BeatmapID:  args.BeatmapID,
	})
	l.State.Presence.BroadcastStats(s)
	return nil
}

func (l *LocalBancho) UpdatePresenceFilter(ctx context.Context, args *PresenceFilterArgs) error {
	s := l.State.Store.Get(args.Query)
	if s == nil {
		return bancho.ErrSessionNotExists
	}
	f := session.PresenceFilter(args.Filter)
	switch f {
	case session.FilterNone, session.FilterAll, session.FilterFriends:
		s.SetPresenceFilter(f)
		return nil
	default:
		return fmt.Errorf("%w: presence filter %d", bancho.ErrInvalidArgument, args.Filter)
	}
}

func (l *LocalBancho) CheckUserToken(ctx context.Context, token string) (*SessionView, error) {
	s, err := l.Logins.CheckToken(token)
	if err != nil {
		return nil, err
	}
	return viewOf(s), nil
}
