// Package status serves the daemon's HTTP endpoint: liveness, a JSON status
// report, the agenda for a day and, optionally, pprof.
package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
	"studyplan/internal/storage"
	rtsup "studyplan/internal/runtime/supervisor"
	logx "studyplan/pkg/logx"
)

const defaultAddr = "127.0.0.1:8086"

func init() { gin.SetMode(gin.ReleaseMode) }

type Config struct {
	Enabled       bool
	Addr          string
	Token         string
	AllowInsecure bool
	Pprof         bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Source provides the data behind the endpoints.
type Source interface {
	// Report returns a JSON-encodable status document.
	Report(ctx context.Context) any
	Today() calendar.Date
	Agenda(ctx context.Context, user string, day calendar.Date) ([]plan.Entry, error)
}

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config
	src Source

	srv      *http.Server
	addr     string
	sup      *rtsup.Supervisor
	stopDone chan struct{}
}

func New(cfg Config, src Source, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, src: src, log: log}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Addr returns the bound listen address while serving, "" otherwise.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Reconfigure applies cfg and starts, stops or restarts the server as
// needed. Safe to call on config reload.
func (s *Service) Reconfigure(ctx context.Context, cfg Config) {
	s.mu.Lock()
	prev := s.cfg
	running := s.sup != nil
	s.cfg = cfg
	s.mu.Unlock()

	switch {
	case !cfg.Enabled:
		if running {
			s.Stop(ctx)
		}
	case !running:
		s.Start(ctx)
	case prev != cfg:
		s.Stop(ctx)
		s.Start(ctx)
	}
}

// Start is idempotent. The server runs under a restart loop until Stop or
// ctx ends.
func (s *Service) Start(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.stopDone != nil {
			done := s.stopDone
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return
			}
		}
		if s.sup != nil || !s.cfg.Enabled {
			s.mu.Unlock()
			return
		}
		s.sup = rtsup.New(ctx,
			rtsup.WithLogger(s.log),
			// optional endpoint; never takes the daemon down
			rtsup.WithCancelOnError(false),
		)
		sup := s.sup
		s.mu.Unlock()

		sup.GoRestart("http.serve", s.serveOnce, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
		return
	}
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.sup == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	srv, sup := s.srv, s.sup
	s.mu.Unlock()

	go func() {
		defer close(done)
		if srv != nil {
			_ = srv.Shutdown(ctx)
			_ = srv.Close()
		}
		sup.Cancel()
		_ = sup.Wait(context.Background())

		s.mu.Lock()
		s.srv, s.sup, s.stopDone, s.addr = nil, nil, nil, ""
		s.mu.Unlock()
		s.log.Info("status endpoint stopped")
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sup.Cancel()
	}
}

// serveOnce returns nil when the server was stopped on purpose, which ends
// the restart loop.
func (s *Service) serveOnce(ctx context.Context) error {
	s.mu.Lock()
	cur := s.cfg
	s.mu.Unlock()

	addr := strings.TrimSpace(cur.Addr)
	if addr == "" {
		addr = defaultAddr
	}
	if !cur.AllowInsecure && cur.Token == "" && !isLoopbackAddr(addr) {
		s.log.Error("status endpoint refused to start: non-loopback addr requires token or allow_insecure",
			logx.String("addr", addr))
		return nil
	}
	if cur.AllowInsecure && cur.Token == "" && !isLoopbackAddr(addr) {
		s.log.Warn("status endpoint running without token on non-loopback addr (insecure)", logx.String("addr", addr))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("status listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(cur),
		ReadTimeout:  cur.ReadTimeout,
		WriteTimeout: cur.WriteTimeout,
		IdleTimeout:  cur.IdleTimeout,
	}
	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("status endpoint started",
		logx.String("addr", ln.Addr().String()),
		logx.Bool("token_set", cur.Token != ""),
		logx.Bool("pprof", cur.Pprof),
	)
	err = srv.Serve(ln)

	s.mu.Lock()
	stopping := s.stopDone != nil
	if s.srv == srv {
		s.srv, s.addr = nil, ""
	}
	s.mu.Unlock()

	if stopping || ctx.Err() != nil {
		return nil
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("status server exited unexpectedly")
	}
	return err
}

// Handler builds the router for cfg.
func (s *Service) Handler(cfg Config) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/")
	api.Use(tokenAuth(cfg.Token))
	api.GET("/status", s.handleStatus)
	api.GET("/agenda", s.handleAgenda)

	if cfg.Pprof {
		dbg := api.Group("/debug/pprof")
		dbg.GET("/", gin.WrapF(hpprof.Index))
		dbg.GET("/cmdline", gin.WrapF(hpprof.Cmdline))
		dbg.GET("/profile", gin.WrapF(hpprof.Profile))
		dbg.GET("/symbol", gin.WrapF(hpprof.Symbol))
		dbg.GET("/trace", gin.WrapF(hpprof.Trace))
		dbg.GET("/:name", func(c *gin.Context) { hpprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request) })
	}
	return r
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.src.Report(c.Request.Context()))
}

type agendaResponse struct {
	Date    string       `json:"date"`
	Rest    bool         `json:"rest"`
	Minutes int          `json:"minutes"`
	Entries []plan.Entry `json:"entries"`
}

func (s *Service) handleAgenda(c *gin.Context) {
	day := s.src.Today()
	if q := strings.TrimSpace(c.Query("date")); q != "" {
		d, err := calendar.ParseKey(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + err.Error()})
			return
		}
		day = d
	}
	entries, err := s.src.Agenda(c.Request.Context(), c.Query("user"), day)
	if errors.Is(err, storage.ErrBadKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user: " + err.Error()})
		return
	}
	if err != nil {
		s.log.Warn("agenda request failed", logx.String("date", day.Key()), logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := agendaResponse{Date: day.Key(), Rest: day.IsSunday(), Entries: entries}
	if resp.Entries == nil {
		resp.Entries = []plan.Entry{}
	}
	for _, e := range entries {
		resp.Minutes += e.TotalMinutes
	}
	c.JSON(http.StatusOK, resp)
}

// tokenAuth accepts "Authorization: Bearer <token>" or ?token=<token>.
// An empty token disables the check.
func tokenAuth(token string) gin.HandlerFunc {
	tok := strings.TrimSpace(token)
	return func(c *gin.Context) {
		if tok == "" {
			c.Next()
			return
		}
		got := c.Query("token")
		if got == "" {
			parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				got = strings.TrimSpace(parts[1])
			}
		}
		if got != tok {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
