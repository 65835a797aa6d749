// Package server wires the discovery runtime: the HTTP API, the gRPC health
// endpoint and the preload store lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	platformgrpc "github.com/louisbranch/topicfeed/internal/platform/grpc"
	"github.com/louisbranch/topicfeed/internal/platform/timeouts"
	"github.com/louisbranch/topicfeed/internal/services/discovery/api/httpapi"
	"github.com/louisbranch/topicfeed/internal/services/discovery/categories"
	"github.com/louisbranch/topicfeed/internal/services/discovery/session"
	"github.com/louisbranch/topicfeed/internal/services/discovery/sitestate"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage/memory"
	preloadredis "github.com/louisbranch/topicfeed/internal/services/discovery/storage/redis"
	preloadsqlite "github.com/louisbranch/topicfeed/internal/services/discovery/storage/sqlite"
	"github.com/louisbranch/topicfeed/internal/services/discovery/tracking"
	"github.com/louisbranch/topicfeed/internal/services/discovery/upstream"
)

// Preload backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

const healthServiceName = "topicfeed.discovery"

// Config configures one discovery server.
type Config struct {
	HTTPAddr          string
	HealthAddr        string
	UpstreamURL       string
	PreloadBackend    string
	PreloadDBPath     string
	RedisURL          string
	PreloadTTL        time.Duration
	SiteSettingsPath  string
	SessionKey        string
	SessionIdleTTL    time.Duration
	SessionSweep      time.Duration
	SecureCookies     bool
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the discovery HTTP API and gRPC health endpoint.
type Server struct {
	httpListener    net.Listener
	httpServer      *http.Server
	healthListener  net.Listener
	grpcServer      *grpc.Server
	health          *health.Server
	preload         storage.PreloadStore
	sessions        *session.Store
	sessionSweep    time.Duration
	shutdownTimeout time.Duration
}

// New opens listeners and storage and wires the discovery handler.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}
	if cfg.SessionSweep <= 0 {
		cfg.SessionSweep = timeouts.SessionSweep
	}

	settings, err := sitestate.LoadSettings(cfg.SiteSettingsPath)
	if err != nil {
		return nil, err
	}
	codec, err := session.NewCodec(cfg.SessionKey, session.DefaultTTL)
	if err != nil {
		return nil, err
	}
	fetcher, err := upstream.NewClient(cfg.UpstreamURL, nil)
	if err != nil {
		return nil, err
	}

	preload, err := openPreloadStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	site := sitestate.New(settings)
	state := tracking.NewState()
	sessions := session.NewStore(
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithRelease(func(sessionID string) {
			state.Untrack(categories.SessionChannel(sessionID))
		}),
	)
	route, err := categories.NewRoute(categories.Deps{
		Store:     preload,
		Fetcher:   fetcher,
		TopTags:   site,
		Tracker:   state,
		Snapshots: sessions,
	})
	if err != nil {
		_ = preload.Close()
		return nil, err
	}
	handler, err := httpapi.NewHandler(httpapi.Deps{
		Route:         route,
		Sessions:      sessions,
		Codec:         codec,
		Site:          site,
		Tracking:      state,
		Preload:       preload,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		_ = preload.Close()
		return nil, err
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = preload.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	healthListener, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		_ = httpListener.Close()
		_ = preload.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HealthAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := platformgrpc.RegisterHealth(grpcServer, healthServiceName)

	return &Server{
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		healthListener:  healthListener,
		grpcServer:      grpcServer,
		health:          healthServer,
		preload:         preload,
		sessions:        sessions,
		sessionSweep:    cfg.SessionSweep,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// HealthAddr returns the gRPC health listener address.
func (s *Server) HealthAddr() string {
	if s == nil || s.healthListener == nil {
		return ""
	}
	return s.healthListener.Addr().String()
}

// Run creates and serves a discovery server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the HTTP and gRPC servers until ctx is canceled or either fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("discovery server listening at %v (health %v)", s.httpListener.Addr(), s.healthListener.Addr())
	httpErr := make(chan error, 1)
	grpcErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()
	go func() {
		grpcErr <- s.grpcServer.Serve(s.healthListener)
	}()
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepSessions(sweepCtx)

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve http: %w", err)
		}
	case err := <-grpcErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr = fmt.Errorf("serve gRPC: %w", err)
		}
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown http server: %w", err)
	}
	s.grpcServer.GracefulStop()
	return serveErr
}

// sweepSessions ends idle sessions until ctx is canceled.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(s.sessionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ended := s.sessions.Sweep(); ended > 0 {
				log.Printf("discovery: ended %d idle sessions", ended)
			}
		}
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.healthListener != nil {
		_ = s.healthListener.Close()
	}
	if s.preload != nil {
		if err := s.preload.Close(); err != nil {
			log.Printf("close preload store: %v", err)
		}
		s.preload = nil
	}
}

func openPreloadStore(ctx context.Context, cfg Config) (storage.PreloadStore, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.PreloadBackend)); backend {
	case "", BackendMemory:
		return memory.New(), nil
	case BackendSQLite:
		path := strings.TrimSpace(cfg.PreloadDBPath)
		if path == "" {
			path = filepath.Join("data", "discovery-preload.db")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := preloadsqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open preload sqlite store: %w", err)
		}
		return store, nil
	case BackendRedis:
		store, err := preloadredis.Open(ctx, cfg.RedisURL, cfg.PreloadTTL)
		if err != nil {
			return nil, fmt.Errorf("open preload redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown preload backend %q", backend)
	}
}
