// Package server wires the overlay runtime: the websocket hub, the hit-test
// router, per-client sessions, the optional external selection source, and
// the HTTP surface around them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/auth"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/hittest"
	"github.com/danmuck/overlayctl/internal/overlay"
	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/selectionsource"
	"github.com/danmuck/overlayctl/internal/sessions"
	"github.com/danmuck/overlayctl/internal/transport"
	"github.com/danmuck/overlayctl/internal/world"
)

var (
	ErrInvalidListenAddr = errors.New("server: invalid listen address")
	ErrNoWorlds          = errors.New("server: no worlds configured")
)

// RedisConfig points at the external selection store. Disabled leaves the
// mirror visualization off.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Channel   string
}

// ServiceConfig configures the overlay daemon.
type ServiceConfig struct {
	ServiceID     string
	ListenAddr    string
	CORSOrigins   []string
	Worlds        []string
	CatalogPath   string
	Interpolation uint32
	DebugMarks    bool
	AuthTokens    []string
	Session       session.Config
	Redis         RedisConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ServiceID:     "overlayd",
		ListenAddr:    ":7480",
		Worlds:        []string{"overworld", "nether", "the_end"},
		Interpolation: overlay.DefaultInterpolation,
		Session:       session.DefaultConfig(),
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "overlay:",
			Channel:   "overlay:selection",
		},
	}
}

// Service is one running overlay daemon.
type Service struct {
	cfg      ServiceConfig
	worlds   *world.Resolver
	auth     auth.Validator
	catalog  *appearance.Catalog
	hub      *transport.Hub
	router   *hittest.Router
	sessions *sessions.Manager
	rdb      *redis.Client
	watcher  *selectionsource.Watcher
	http     *gin.Engine
	started  time.Time
}

// NewService builds every component but starts nothing.
func NewService(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, ErrInvalidListenAddr
	}
	if len(cfg.Worlds) == 0 {
		return nil, ErrNoWorlds
	}
	cfg.Session = cfg.Session.WithDefaults()

	catalog := appearance.DefaultCatalog()
	if cfg.CatalogPath != "" {
		loaded, err := appearance.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	s := &Service{
		cfg:     cfg,
		worlds:  world.NewResolver(cfg.Worlds...),
		auth:    auth.FromTokens(cfg.AuthTokens),
		catalog: catalog,
		router:  hittest.NewRouter(),
		started: time.Now(),
	}
	s.hub = transport.NewHub(cfg.Session, s)

	var source selectionsource.Source
	if cfg.Redis.Enabled {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		source = selectionsource.NewRedisSource(s.rdb, cfg.Redis.KeyPrefix)
	}

	env := display.Env{
		Dispatcher: dispatch.New(s.hub),
		Router:     s.router,
		Catalog:    catalog,
	}
	s.sessions = sessions.NewManager(env, source, sessions.Config{
		Interpolation: cfg.Interpolation,
		DebugMarks:    cfg.DebugMarks,
	})
	if s.rdb != nil {
		s.watcher = selectionsource.NewWatcher(s.rdb, cfg.Redis.Channel, s.sessions)
	}
	s.http = newEngine(cfg.ServiceID, cfg.CORSOrigins)
	s.registerRoutes()
	return s, nil
}

func (s *Service) Sessions() *sessions.Manager {
	return s.sessions
}

func (s *Service) Hub() *transport.Hub {
	return s.hub
}

func (s *Service) HTTPRouter() *gin.Engine {
	return s.http
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve listens until ctx is done, then drains clients and closes the store.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.cfg.Session.ValidateServerTransport(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.http,
		ReadHeaderTimeout: s.cfg.Session.HandshakeTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.Session.TLS.Enabled {
			err = srv.ListenAndServeTLS(s.cfg.Session.TLS.CertFile, s.cfg.Session.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if s.watcher != nil {
		go func() {
			if err := s.watcher.Run(watchCtx); err != nil {
				log.Error().Err(err).Msg("server.Service selection watcher stopped")
			}
		}()
	}

	log.Info().
		Str("service", s.cfg.ServiceID).
		Str("addr", s.cfg.ListenAddr).
		Bool("tls", s.cfg.Session.TLS.Enabled).
		Bool("redis", s.rdb != nil).
		Strs("worlds", s.worlds.Names()).
		Msg("server.Service listening")

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}
	s.Close()
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Close drops every client and session and releases the store.
func (s *Service) Close() {
	s.hub.Close()
	s.sessions.CloseAll()
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("server.Service redis close")
		}
	}
	log.Info().Str("service", s.cfg.ServiceID).Msg("server.Service stopped")
}
