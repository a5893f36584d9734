package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

// HealthFunc reports whether the session is healthy; the detail is shown to
// the caller.
type HealthFunc func(ctx context.Context) (ok bool, detail string)

// NewRouter serves /metrics from reg and /healthz from health.
func NewRouter(reg prometheus.Gatherer, health HealthFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ok, detail := true, "ok"
		if health != nil {
			ok, detail = health(req.Context())
		}
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": ok, "detail": detail})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

// DebugServer is the optional local listener for metrics and health.
type DebugServer struct {
	addr   string
	srv    *http.Server
	logger logging.Logger
}

func NewDebugServer(addr string, h http.Handler, logger logging.Logger) *DebugServer {
	return &DebugServer{
		addr:   addr,
		srv:    &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.With("module", "debug_http"),
	}
}

// Run serves until ctx is done.
func (s *DebugServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *DebugServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting debug listener", "address", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
