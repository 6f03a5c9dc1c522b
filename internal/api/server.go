// Package api serves the local control surface used by the headset
// dashboard: JSON routes over the connectivity orchestrator and the
// phase client, a websocket stream of device changes, and /metrics.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"headsetctl/internal/adb"
	"headsetctl/internal/connectivity"
	"headsetctl/internal/metrics"
	"headsetctl/internal/retry"
	"headsetctl/util"
)

// Backend is the device surface the API drives.
// *connectivity.Orchestrator is the production implementation.
type Backend interface {
	ListDevices(ctx context.Context) ([]adb.Device, error)
	SwitchToNetwork(ctx context.Context, serial string, port int) (connectivity.Endpoint, error)
	DeviceIP(ctx context.Context, serial string) (netip.Addr, error)
	ConnectIP(ctx context.Context, ip netip.Addr, port int) (connectivity.Endpoint, error)
	Disconnect(ctx context.Context, ip netip.Addr, port int) error
	KillBroker(ctx context.Context) error

	LaunchApp(ctx context.Context, serial, pkg string) (string, error)
	StopApp(ctx context.Context, serial, pkg string) error
	IsRunning(ctx context.Context, serial, pkg string) (bool, error)
	IsScreenOn(ctx context.Context, serial string) (bool, error)
	BatteryLevel(ctx context.Context, serial string) (int, error)
	PowerOff(ctx context.Context, serial string) error
}

// Phases reads and sets the training app phase.
// *phase.Client is the production implementation.
type Phases interface {
	Get(ctx context.Context, ip netip.Addr) (string, error)
	Set(ctx context.Context, ip netip.Addr, phase string) error
}

// Config holds the server's tuneables.
type Config struct {
	Addr string
	// PushInterval is how often the device stream re-lists devices.
	PushInterval time.Duration
	// GracePeriod bounds the drain on shutdown.
	GracePeriod time.Duration
	// Breaker guards the stream's periodic listing so a dead ADB server
	// is not relaunched on every tick.  Nil gets retry defaults.
	Breaker *retry.Breaker
}

// Server is the HTTP/websocket control API.
type Server struct {
	cfg     Config
	backend Backend
	phases  Phases
	metrics *metrics.Collector
	logger  *util.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	inflight map[string]struct{}

	wsMu    sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    []adb.Device
	primed  bool
}

// NewServer creates a Server.  m and logger may be nil.
func NewServer(cfg Config, backend Backend, phases Phases, m *metrics.Collector, logger *util.Logger) *Server {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 500 * time.Millisecond
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 5 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = retry.NewBreaker(retry.BreakerConfig{})
	}
	s := &Server{
		cfg:      cfg,
		backend:  backend,
		phases:   phases,
		metrics:  m,
		logger:   logger,
		inflight: make(map[string]struct{}),
		clients:  make(map[*websocket.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/connect", s.handleSwitch).Methods(http.MethodPost)
	api.HandleFunc("/devices/{serial}/ip", s.handleDeviceIP).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/apps/{pkg}/launch", s.handleLaunch).Methods(http.MethodPost)
	api.HandleFunc("/devices/{serial}/apps/{pkg}/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/devices/{serial}/apps/{pkg}/running", s.handleRunning).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/battery", s.handleBattery).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/screen", s.handleScreen).Methods(http.MethodGet)
	api.HandleFunc("/devices/{serial}/poweroff", s.handlePowerOff).Methods(http.MethodPost)
	api.HandleFunc("/connect/{ip}", s.handleConnectIP).Methods(http.MethodPost)
	api.HandleFunc("/disconnect/{ip}", s.handleDisconnect).Methods(http.MethodPost)
	api.HandleFunc("/server/kill", s.handleKill).Methods(http.MethodPost)
	api.HandleFunc("/phase/{ip}", s.handleGetPhase).Methods(http.MethodGet)
	api.HandleFunc("/phase/{ip}", s.handleSetPhase).Methods(http.MethodPut)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.Handler())
	r.HandleFunc("/ws/devices", s.handleWebSocket)
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.pushDevices(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening on %s", ln.Addr())
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

	s.logger.Verbose("API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GracePeriod)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ── Middleware ───────────────────────────────────────────────────────

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.With("op", uuid.NewString()).Debug("%s %s %d %v",
			r.Method, r.URL.Path, rec.status, time.Since(start).Truncate(time.Microsecond))
	})
}

// ── Single flight ────────────────────────────────────────────────────

// acquire reserves serial for one network switch.
func (s *Server) acquire(serial string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[serial]; busy {
		return nil, false
	}
	s.inflight[serial] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, serial)
		s.mu.Unlock()
	}, true
}
