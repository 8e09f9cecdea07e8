// Package loopback serves the local HTTP endpoint that injected pages post
// their results to, plus a JSON command API over the same browser.
//
// Routes:
//
//	POST /browser-result     envelope from the bridge (any origin, rate limited)
//	GET  /health
//	GET  /browser/state
//	GET  /browser/events     server-sent browser events
//	POST /browser/{open,navigate,extract,links,interactive,click,fill,
//	               bounds,visible,close,lock,unlock}
//	GET  /tools              visible agent tools
//	POST /tools/call         run an XML tool call
//
// Command routes only accept application/json so that a hosted page cannot
// reach them without a CORS preflight.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/entrhq/lookout/pkg/agent/tools"
	"github.com/entrhq/lookout/pkg/browser"
	"github.com/entrhq/lookout/pkg/browser/bridge"
	"github.com/entrhq/lookout/pkg/logging"
)

// AgentHeader identifies the calling agent for lock checks.
const AgentHeader = "X-Lookout-Agent"

const shutdownTimeout = 5 * time.Second

// Config controls the listener.
type Config struct {
	// Host defaults to 127.0.0.1. The bridge always posts to 127.0.0.1.
	Host string
	// Port 0 picks a free port.
	Port int

	RateLimit    int
	RateBurst    int
	MaxBodyBytes int64
	AllowOrigins []string

	// ProjectPath is used by /browser/open when the request names none.
	ProjectPath string
}

// DefaultConfig returns loopback defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		RateLimit:    50,
		RateBurst:    100,
		MaxBodyBytes: 1 << 20,
	}
}

// Server is the loopback HTTP server.
type Server struct {
	cfg     Config
	browser *browser.Browser
	tools   *tools.Registry
	hub     *Hub
	logger  *logging.Logger
	router  *gin.Engine

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTools exposes an agent tool registry under /tools.
func WithTools(r *tools.Registry) Option {
	return func(s *Server) { s.tools = r }
}

// WithHub streams hub events under /browser/events.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// New creates a server for b. Zero fields in cfg take DefaultConfig values.
func New(b *browser.Browser, cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateBurst < cfg.RateLimit {
		cfg.RateBurst = max(def.RateBurst, cfg.RateLimit)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	s := &Server{cfg: cfg, browser: b, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLog(s.logger.Zap()), bodyLimit(s.cfg.MaxBodyBytes))

	router.GET("/health", s.handleHealth)

	result := router.Group(bridge.ResultPath, resultCORS(), rateLimit(s.cfg.RateLimit, s.cfg.RateBurst))
	result.POST("", s.handleResult)
	result.OPTIONS("", preflight)

	api := router.Group("/browser", commandCORS(s.cfg.AllowOrigins), requireJSON())
	api.GET("/state", s.handleState)
	api.GET("/events", s.handleEvents)
	api.POST("/open", s.handleOpen)
	api.POST("/navigate", s.handleNavigate)
	api.POST("/extract", s.handleExtract)
	api.POST("/links", s.handleLinks)
	api.POST("/interactive", s.handleInteractive)
	api.POST("/click", s.handleClick)
	api.POST("/fill", s.handleFill)
	api.POST("/bounds", s.handleBounds)
	api.POST("/visible", s.handleVisible)
	api.POST("/close", s.handleClose)
	api.POST("/lock", s.handleLock)
	api.POST("/unlock", s.handleUnlock)
	api.OPTIONS("/*path", preflight)

	if s.tools != nil {
		toolAPI := router.Group("/tools", commandCORS(s.cfg.AllowOrigins), requireJSON())
		toolAPI.GET("", s.handleListTools)
		toolAPI.POST("/call", s.handleToolCall)
		toolAPI.OPTIONS("/*path", preflight)
	}

	return router
}

// preflight answers OPTIONS for origins the CORS middleware did not handle.
func preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the listener and returns the port.
func (s *Server) Listen() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().(*net.TCPAddr).Port, nil
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Port returns the bound port, or 0 before Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Serve handles requests until ctx is done, then shuts down gracefully.
// Listen is called first if it has not been.
func (s *Server) Serve(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("loopback listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("loopback shutdown: %w", err)
	}
	s.logger.Infof("loopback stopped")
	return nil
}
