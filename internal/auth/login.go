package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/geo"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/persist"
	"github.com/gobancho/server/internal/presence"
	"github.com/gobancho/server/internal/session"
)

// LoginRequest is the parsed bancho login body.
type LoginRequest struct {
	Username     string
	PasswordHash string
	OsuVersion   string
	UTCOffset    int8
	DisplayCity  bool
	ClientHashes ClientHashes
	OnlyFriendPM bool
}

// ClientHashes is the ':'-separated hardware identity bundle.
type ClientHashes struct {
	OsuPathMD5  string
	Adapters    string
	AdaptersMD5 string
	UninstallID string
	DiskMD5     string
}

// ParseLoginBody parses the newline-separated login request:
//
//	<username>\n<password_hash>\n<version>|<utc>|<city>|<hashes>|<friend_pm>\n
func ParseLoginBody(body []byte) (*LoginRequest, error) {
	lines := strings.SplitN(strings.TrimSuffix(string(body), "\n"), "\n", 3)
	if len(lines) != 3 {
		return nil, fmt.Errorf("%w: login body needs 3 lines", bancho.ErrInvalidArgument)
	}
	req := &LoginRequest{
		Username:     strings.TrimSpace(lines[0]),
		PasswordHash: lines[1],
	}
	if req.Username == "" || req.PasswordHash == "" {
		return nil, fmt.Errorf("%w: empty username or password", bancho.ErrInvalidArgument)
	}

	parts := strings.Split(lines[2], "|")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: client line needs 5 fields", bancho.ErrInvalidArgument)
	}
	req.OsuVersion = parts[0]
	utc, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: utc offset %q", bancho.ErrInvalidArgument, parts[1])
	}
	req.UTCOffset = int8(utc)
	req.DisplayCity = parts[2] == "1"
	req.OnlyFriendPM = parts[4] == "1"

	hashes := strings.Split(parts[3], ":")
	// Clients append a trailing ':'.
	if len(hashes) > 0 && hashes[len(hashes)-1] == "" {
		hashes = hashes[:len(hashes)-1]
	}
	if len(hashes) != 5 {
		return nil, fmt.Errorf("%w: client hashes need 5 fields", bancho.ErrInvalidArgument)
	}
	req.ClientHashes = ClientHashes{
		OsuPathMD5:  hashes[0],
		Adapters:    hashes[1],
		AdaptersMD5: hashes[2],
		UninstallID: hashes[3],
		DiskMD5:     hashes[4],
	}
	return req, nil
}

// UserSource is the account lookup surface the login pipeline needs.
// *persist.UserRepo implements it; tests plug in fakes.
type UserSource interface {
	FetchByUsername(ctx context.Context, safeName string) (*persist.UserRow, error)
	StatsFor(ctx context.Context, userID int32, mode uint8) (*persist.StatsRow, error)
	Friends(ctx context.Context, userID int32) ([]int32, error)
	UpdateLatestActivity(ctx context.Context, userID int32) error
}

// Service runs the login pipeline and token checks.
type Service struct {
	State     *bancho.State
	Users     UserSource
	Passwords PasswordVerifier
	Geo       geo.Service
	Signer    *TokenSigner
	Retry     *RetryCache
	Log       *zap.Logger
}

func NewService(state *bancho.State, users UserSource, pw PasswordVerifier, g geo.Service, log *zap.Logger) *Service {
	return &Service{
		State:     state,
		Users:     users,
		Passwords: pw,
		Geo:       g,
		Signer:    NewTokenSigner(state.Cfg.Login.TokenSecret),
		Retry:     NewRetryCache(time.Duration(state.Cfg.Login.RetryExpireSeconds) * time.Second),
		Log:       log.Named("login"),
	}
}

// Result is the outcome of a login attempt. On failure, Packets carries
// the tagged login-reply bundle and Token is empty.
type Result struct {
	Token   string
	UserID  int32
	Packets []byte
}

func failure(code int32, note string) *Result {
	pkts := packet.LoginReply(code)
	if note != "" {
		pkts = packet.Concat(pkts, packet.Notification(note))
	}
	return &Result{Packets: pkts}
}

func (sv *Service) countLogin(outcome string) {
	if sv.State.Metrics != nil {
		sv.State.Metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

// Login runs the full pipeline of credential check, displacement, session
// creation and initial packet bundle. Failures return a Result with the
// reply packets plus a taxonomy error; no session is created.
func (sv *Service) Login(ctx context.Context, ip string, req *LoginRequest) (*Result, error) {
	cfg := sv.State.Cfg

	if !cfg.Login.Enabled || sv.ipBlocked(ip) {
		sv.countLogin("refused")
		return failure(packet.LoginServerError, "Login is currently disabled."),
			bancho.ErrLoginRefused
	}
	if cfg.Login.OnlineUsersLimit && sv.State.Store.Len() >= cfg.Login.OnlineUsersMax {
		sv.countLogin("refused")
		return failure(packet.LoginServerError, "The server is full, please try again later."),
			bancho.ErrLoginRefused
	}
	if sv.Retry.Count(ip) >= cfg.Login.RetryMax {
		sv.countLogin("refused")
		cooldown := int(sv.Retry.Cooldown(ip).Seconds())
		note := fmt.Sprintf("Too many failed attempts. Retry in %d seconds.", cooldown)
		return failure(packet.LoginServerError, note), bancho.ErrLoginRefused
	}

	user, err := sv.Users.FetchByUsername(ctx, session.SafeName(req.Username))
	if err != nil {
		sv.Log.Error("user lookup failed", zap.Error(err))
		sv.countLogin("failed")
		return failure(packet.LoginServerError, ""), bancho.ErrInternal
	}
	if user == nil {
		sv.countLogin("failed")
		left := cfg.Login.RetryMax - sv.Retry.Fail(ip)
		note := fmt.Sprintf("Invalid credentials. %d attempts remaining.", max(left, 0))
		return failure(packet.LoginInvalidCredentials, note), bancho.ErrLoginInvalidCredentials
	}
	if err := sv.Passwords.Verify(ctx, user.PasswordHash, req.PasswordHash); err != nil {
		sv.countLogin("failed")
		if !errors.Is(err, ErrPasswordMismatch) {
			sv.Log.Error("password service failed", zap.Error(err))
			return failure(packet.LoginServerError, ""), bancho.ErrInternal
		}
		left := cfg.Login.RetryMax - sv.Retry.Fail(ip)
		note := fmt.Sprintf("Invalid credentials. %d attempts remaining.", max(left, 0))
		return failure(packet.LoginInvalidCredentials, note), bancho.ErrLoginInvalidCredentials
	}
	if user.Privileges&session.PrivNormal == 0 {
		sv.countLogin("failed")
		return failure(packet.LoginUserBanned, "Your account is banned."),
			bancho.ErrLoginUserBanned
	}

	// Geo lookup is best effort; a miss leaves the record nil.
	var geoRec *geo.Record
	if sv.Geo != nil {
		if rec, err := sv.Geo.Lookup(ctx, ip); err == nil {
			geoRec = rec
		} else if !errors.Is(err, geo.ErrNotFound) {
			sv.Log.Warn("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		}
	}

	s := session.New(user.ID, user.Name, user.NameUnicode, cfg.Session.QueueSize)
	s.Privileges.Store(user.Privileges)
	s.ClientVersion = req.OsuVersion
	s.UTCOffset = req.UTCOffset
	s.DisplayCity = req.DisplayCity
	s.IP = ip
	s.OnlyFriendDMs.Store(req.OnlyFriendPM)
	s.SetGeo(geoRec)
	s.SetPresenceFilter(session.FilterAll)
	if geoRec == nil && user.Country != "" {
		s.SetGeo(&geo.Record{CountryISO: user.Country, CountryCode: geo.CountryCodeOf(user.Country)})
	}

	if stats, err := sv.Users.StatsFor(ctx, user.ID, 0); err == nil && stats != nil {
		s.RankedScore.Store(stats.RankedScore)
		s.TotalScore.Store(stats.TotalScore)
		s.Playcount.Store(stats.Playcount)
		s.SetAccuracy(stats.Accuracy)
		s.GlobalRank.Store(stats.GlobalRank)
		s.PP.Store(int32(stats.PP))
	}
	friends, err := sv.Users.Friends(ctx, user.ID)
	if err != nil {
		sv.Log.Warn("friends fetch failed", zap.Int32("user", user.ID), zap.Error(err))
	}
	s.SetFriends(friends)

	// Single login: the store displaces the old session; its logout is
	// broadcast before the new presence goes out.
	if displaced := sv.State.Store.Create(s); displaced != nil {
		displaced.Queue.Push(packet.Notification("You have logged in from another location."))
		sv.State.Logout(displaced)
	}

	// New sessions only see bus traffic published after this point. Set
	// after displacement so the fresh client never drains its own logout.
	s.SetBusCursor(sv.State.Notify.Latest())

	sv.enqueueLoginBundle(s, friends)

	// Announce the newcomer to everyone whose filter accepts them.
	sv.State.Presence.BroadcastPresence(s)
	sv.State.Presence.BroadcastStats(s)

	if err := sv.Users.UpdateLatestActivity(ctx, user.ID); err != nil {
		sv.Log.Warn("activity update failed", zap.Int32("user", user.ID), zap.Error(err))
	}
	if sv.State.Metrics != nil {
		sv.State.Metrics.OnlineUsers.Set(float64(sv.State.Store.Len()))
	}
	sv.countLogin("success")
	sv.Log.Info("user logged in",
		zap.Int32("user", user.ID),
		zap.String("username", user.Name),
		zap.String("ip", ip),
		zap.String("version", req.OsuVersion),
	)

	// The login response itself carries the initial bundle.
	return &Result{
		Token:   sv.Signer.Format(s.ID, s.UserID),
		UserID:  s.UserID,
		Packets: sv.State.DrainFor(s),
	}, nil
}

// enqueueLoginBundle pushes the initial packet sequence onto the fresh
// session's queue, in the order the client expects.
func (sv *Service) enqueueLoginBundle(s *session.Session, friends []int32) {
	cfg := sv.State.Cfg
	q := s.Queue

	q.Push(packet.ProtoVersion(packet.ProtocolVersion))
	q.Push(packet.LoginReply(s.UserID))
	q.Push(packet.BanchoPrivileges(s.Privileges.Load() & 0xff))
	q.Push(packet.SilenceEnd(0))
	q.Push(packet.FriendsList(friends))
	q.Push(packet.Notification(fmt.Sprintf("Welcome to %s!", cfg.Server.Name)))
	if cfg.Server.MenuIcon != "" {
		q.Push(packet.MainMenuIcon(cfg.Server.MenuIcon))
	}

	priv := s.Privileges.Load()
	for _, c := range sv.State.Channels.Snapshot() {
		if !c.CanRead(priv) {
			continue
		}
		if c.AutoJoin {
			q.Push(packet.ChanAutoJoin(c.Info()))
			if c.Join(s) {
				q.Push(packet.ChanJoinSuccess(c.Name))
			}
		} else {
			q.Push(packet.ChanInfo(c.Info()))
		}
	}
	q.Push(packet.ChanInfoEnd())

	// The session always gets its own presence and stats, then everyone
	// else subject to its filter.
	q.Push(packet.Presence(s.PresencePacket()))
	q.Push(packet.Stats(s.StatsPacket()))
	sv.State.Presence.SendAllPresences(s)
	for _, other := range sv.State.Store.Snapshot() {
		if other.UserID == s.UserID || !presence.Accepts(s, other) {
			continue
		}
		q.Push(packet.Stats(other.StatsPacket()))
	}
}

// CheckToken verifies a bearer token and returns the live session.
func (sv *Service) CheckToken(token string) (*session.Session, error) {
	id, sig, ok := SplitToken(token)
	if !ok {
		return nil, bancho.ErrInvalidToken
	}
	s := sv.State.Store.Get(session.QueryByID(id))
	if s == nil {
		return nil, bancho.ErrInvalidToken
	}
	if !sv.Signer.Matches(s.ID, s.UserID, sig) {
		return nil, bancho.ErrInvalidToken
	}
	return s, nil
}

func (sv *Service) ipBlocked(ip string) bool {
	for _, blocked := range sv.State.Cfg.Login.DisallowedIPs {
		if ip == blocked {
			return true
		}
	}
	return false
}
