package bridge

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

// StreamPath is the websocket path the telephony provider streams call
// audio to. The connect-instruction document points here.
const StreamPath = "/media-stream"

const statusMessage = "Twilio media stream bridge is running"

// Server is the telephony-facing half of the bridge: a liveness probe, the
// media-stream upgrade endpoint, and metrics exposition.
type Server struct {
	logger   shared.LoggerAdapter
	bridge   *Bridge
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func NewServer(logger shared.LoggerAdapter, b *Bridge, gatherer prometheus.Gatherer, addr string) (*Server, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if b == nil {
		return nil, shared.ErrNoConfig
	}
	s := &Server{
		logger: logger,
		bridge: b,
		upgrader: websocket.Upgrader{
			// The provider's media stream origin is not a browser.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc(StreamPath, s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message": "` + statusMessage + `"}`))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", err, zap.String("remote", r.RemoteAddr))
		return
	}
	s.logger.Info("telephony media stream connected", zap.String("remote", r.RemoteAddr))
	s.bridge.Handle(r.Context(), conn)
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("serving", zap.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
