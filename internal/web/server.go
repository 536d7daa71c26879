package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gobancho/server/internal/auth"
	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/handler"
	"github.com/gobancho/server/internal/packet"
)

const (
	headerOsuToken    = "osu-token"
	headerChoToken    = "cho-token"
	headerChoProtocol = "cho-protocol"

	tokenLoginFailed  = "login_failed"
	tokenLoginRefused = "login_refused"

	contentType = "application/octet-stream"
)

// Server is the Echo application serving the bancho poll endpoint.
type Server struct {
	echo     *echo.Echo
	state    *bancho.State
	logins   *auth.Service
	registry *handler.Registry
	log      *zap.Logger
	started  time.Time
}

// New constructs the Echo app with the poll, status and metrics routes.
func New(state *bancho.State, logins *auth.Service, registry *handler.Registry, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		state:    state,
		logins:   logins,
		registry: registry,
		log:      log.Named("web"),
		started:  time.Now(),
	}
	s.registerRoutes()
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleIndex)
	s.echo.POST("/", s.handleBancho)
	if s.state.Cfg.Metrics.Enabled {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

func (s *Server) handleIndex(c echo.Context) error {
	page := fmt.Sprintf(
		"<html><head><title>%s</title></head><body><h1>%s</h1><p>online: %d</p><p>uptime: %s</p></body></html>",
		s.state.Cfg.Server.Name,
		s.state.Cfg.Server.Name,
		s.state.Store.Len(),
		time.Since(s.started).Round(time.Second),
	)
	return c.HTML(http.StatusOK, page)
}

// handleBancho is the single poll endpoint. A request without an osu-token
// header is a login; everything else is a packet batch for the session the
// token resolves to.
func (s *Server) handleBancho(c echo.Context) error {
	start := time.Now()
	defer func() {
		if m := s.state.Metrics; m != nil {
			m.PollDuration.Observe(time.Since(start).Seconds())
		}
	}()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.Blob(http.StatusOK, contentType, packet.Notification("malformed request"))
	}

	token := c.Request().Header.Get(headerOsuToken)
	if token == "" {
		return s.handleLogin(c, body)
	}

	sess, err := s.logins.CheckToken(token)
	if err != nil {
		// Stale or displaced token: tell the client to log in again.
		return c.Blob(http.StatusOK, contentType, packet.LoginReply(packet.LoginInvalidCredentials))
	}
	sess.Touch()

	out, err := s.registry.DispatchBatch(sess, body)
	if err != nil {
		s.log.Warn("poll batch failed",
			zap.Int32("user", sess.UserID),
			zap.Error(err),
		)
	}
	out = append(out, s.state.DrainFor(sess)...)
	return c.Blob(http.StatusOK, contentType, out)
}

func (s *Server) handleLogin(c echo.Context, body []byte) error {
	hdr := c.Response().Header()
	hdr.Set(headerChoProtocol, strconv.Itoa(packet.ProtocolVersion))

	req, err := auth.ParseLoginBody(body)
	if err != nil {
		s.log.Debug("unparsable login body", zap.String("ip", c.RealIP()), zap.Error(err))
		hdr.Set(headerChoToken, tokenLoginFailed)
		return c.Blob(http.StatusOK, contentType, packet.LoginReply(packet.LoginInvalidCredentials))
	}

	res, err := s.logins.Login(c.Request().Context(), c.RealIP(), req)
	if err != nil {
		if errors.Is(err, bancho.ErrLoginRefused) {
			hdr.Set(headerChoToken, tokenLoginRefused)
		} else {
			hdr.Set(headerChoToken, tokenLoginFailed)
		}
		return c.Blob(http.StatusOK, contentType, res.Packets)
	}

	hdr.Set(headerChoToken, res.Token)
	return c.Blob(http.StatusOK, contentType, res.Packets)
}
