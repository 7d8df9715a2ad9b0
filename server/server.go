package server

import (
	stderrors "errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nczempin/kurai-httpd/errors"
	"github.com/nczempin/kurai-httpd/protocol"
	"github.com/nczempin/kurai-httpd/transport"
)

// ErrServerClosed is returned by Serve after Close
var ErrServerClosed = stderrors.New("server closed")

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Server runs until its listener goes away
type Server interface {
	Serve() error
}

// State is the accept loop state
type State int32

const (
	StateListening State = iota
	StateServing
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateServing:
		return "serving"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Loop accepts one connection at a time and performs exactly one
// request/response exchange on it before closing it.
type Loop struct {
	listener transport.Listener
	cfg      Config
	log      zerolog.Logger
	state    atomic.Int32
	closed   atomic.Bool
}

var _ Server = (*Loop)(nil)

// Listen sets up the listening socket described by cfg
func Listen(cfg Config) (*Loop, error) {
	engine, err := transport.NewEngine(cfg.Engine)
	if err != nil {
		kind := errors.TransportErrorIoUringInit
		var httpErr *errors.HttpError
		if stderrors.As(err, &httpErr) {
			if httpErr.Type != errors.ErrorTransport {
				return nil, err
			}
			kind = httpErr.TransportErr
		}
		return nil, errors.NewSetupError(
			kind,
			fmt.Sprintf("failed to create %s engine", cfg.Engine),
			err,
		)
	}

	listener, err := transport.Listen(cfg.listenConfig(), engine)
	if err != nil {
		engine.Close()
		return nil, err
	}

	return NewLoop(listener, cfg), nil
}

// NewLoop creates a loop over an existing listener
func NewLoop(listener transport.Listener, cfg Config) *Loop {
	if cfg.Handler == nil {
		cfg.Handler = DefaultHandler()
	}
	return &Loop{
		listener: listener,
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "server").Logger(),
	}
}

// Serve accepts and serves connections sequentially. It only returns once
// the listener has been closed.
func (s *Loop) Serve() error {
	s.log.Info().
		Stringer("addr", s.listener.Addr()).
		Stringer("engine", s.cfg.Engine).
		Stringer("read_mode", s.cfg.ReadMode).
		Msg("listening")

	var delay time.Duration
	for {
		s.log.Debug().Msg("waiting for connection")

		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || stderrors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			// Back off so a persistent failure such as EMFILE does not spin
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.serveConn(conn)
	}
}

// serveConn owns conn and closes it on every path
func (s *Loop) serveConn(conn transport.Conn) {
	s.state.Store(int32(StateServing))
	defer s.state.Store(int32(StateListening))
	defer conn.Close()

	log := s.log.With().Stringer("peer", conn.RemoteAddr()).Logger()

	raw, err := protocol.ReadRequest(conn, s.cfg.readOptions())
	if err != nil {
		log.Warn().Err(err).Msg("receive failed")
		return
	}

	req, err := protocol.ParseRequest(raw)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(raw)).Msg("parse failed")
		return
	}
	defer req.Release()

	log.Info().
		Str("method", req.Method).
		Str("uri", req.URI).
		Str("version", req.Version).
		Int("headers", req.HeaderCount()).
		Int("body_bytes", len(req.Body)).
		Msg("request received")

	res := protocol.NewHttpResponse()
	defer res.Release()

	s.cfg.Handler.Handle(req, res)

	n, err := protocol.SendResponse(conn, res)
	if err != nil {
		log.Warn().Err(err).Int("sent", n).Msg("send failed")
		return
	}

	log.Debug().Int("status", res.StatusCode).Int("bytes", n).Msg("response sent")
}

// State reports whether the loop is waiting for or serving a connection
func (s *Loop) State() State {
	return State(s.state.Load())
}

// Addr returns the listening address
func (s *Loop) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting; a running Serve returns ErrServerClosed
func (s *Loop) Close() error {
	s.closed.Store(true)
	return s.listener.Close()
}
