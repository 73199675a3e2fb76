// Package transport implements the HTTP/3 server from spec §4.7 and §6:
// static assets, DASH segment/manifest serving with ABR sampling, raw
// trace-file serving, the ABR profile endpoint, and the WebTransport pose
// receiver from spec §4.8.
//
// Grounded on original_source/server/cmd/tigas-server/main.go for the
// exact endpoint/handler shapes and webtransport.Server/http3.Server
// wiring, and on the teacher's distribution.Server for the surrounding
// structure: a validated ServerConfig, a constructor returning an error
// instead of panicking, a Start(ctx) that installs a context.AfterFunc
// shutdown hook, and CORS/cross-origin-isolation middleware.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	webtransport "github.com/quic-go/webtransport-go"

	"github.com/tigas-project/tigas/abr"
	"github.com/tigas-project/tigas/certs"
	"github.com/tigas-project/tigas/errkind"
	"github.com/tigas-project/tigas/poselog"
)

// durationMinSeconds mirrors abr's discard threshold: a segment stat
// whose serve time was effectively instantaneous is not a useful
// bandwidth sample.
const durationMinSeconds = 0.0001

// ServerConfig holds the transport server's required collaborators and
// the filesystem roots it serves from.
type ServerConfig struct {
	Addr        string
	Cert        *certs.CertInfo
	StaticDir   string
	SegmentsDir string
	MovementDir string
	ABR         *abr.State
	Poses       *poselog.Store
	Log         *slog.Logger
}

// Server is the HTTP/3 + WebTransport transport server.
type Server struct {
	config ServerConfig
	log    *slog.Logger
	wtSrv  *webtransport.Server
}

// NewServer validates config and returns a Server, or an error if a
// required field is missing (spec §7: ConfigError, fatal at startup).
func NewServer(config ServerConfig) (*Server, error) {
	if config.Cert == nil {
		return nil, errkind.Config("transport: Cert is required")
	}
	if config.Addr == "" {
		return nil, errkind.Config("transport: Addr is required")
	}
	if config.ABR == nil {
		return nil, errkind.Config("transport: ABR state is required")
	}
	if config.Poses == nil {
		return nil, errkind.Config("transport: pose store is required")
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{config: config, log: log}, nil
}

func crossOriginIsolationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()

	if s.config.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}

	dashFS := http.StripPrefix("/dash/", http.FileServer(http.Dir(s.config.SegmentsDir)))
	mux.Handle("/dash/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		dashFS.ServeHTTP(w, r)
		s.sampleDashDelivery(r.URL.Path, start)
	}))

	mux.Handle("/movement_traces/", http.StripPrefix("/movement_traces/", http.FileServer(http.Dir(s.config.MovementDir))))

	mux.HandleFunc("/abr-profile", s.handleABRProfile)
	mux.HandleFunc("/wt", s.handleWebTransport)

	return mux
}

// sampleDashDelivery stats the just-served file and, if it is a .m4s
// segment with a positive size and a measured duration above the
// discard threshold, feeds (size, duration) into the ABR estimator
// (spec §4.7).
func (s *Server) sampleDashDelivery(urlPath string, start time.Time) {
	if !strings.HasSuffix(urlPath, ".m4s") {
		return
	}
	relPath := strings.TrimPrefix(urlPath, "/dash/")
	fullPath := s.config.SegmentsDir + "/" + relPath

	stat, err := os.Stat(fullPath)
	if err != nil || stat.Size() <= 0 {
		return
	}
	duration := time.Since(start)
	if duration.Seconds() <= durationMinSeconds {
		return
	}
	s.config.ABR.Observe(stat.Size(), duration)
}

func (s *Server) handleABRProfile(w http.ResponseWriter, _ *http.Request) {
	snap := s.config.ABR.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":        string(snap.Profile),
		"estimated_kbps": snap.EstimatedKbps,
		"updated_at":     snap.UpdatedAt.Format(time.RFC3339Nano),
	})
}

// handleWebTransport upgrades the request to a WebTransport session and
// spawns a per-session receive loop (spec §4.8): each datagram is
// appended to the pose store; the loop terminates on first receive
// error, closing the session with code 0.
func (s *Server) handleWebTransport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.wtSrv.Upgrade(w, r)
	if err != nil {
		s.log.Error("webtransport upgrade failed", "error", errkind.Transport("upgrade: %s", err))
		return
	}
	s.log.Info("webtransport session opened", "remote", r.RemoteAddr)

	go s.receivePoses(sess, r.RemoteAddr)
}

func (s *Server) receivePoses(sess *webtransport.Session, remote string) {
	defer sess.CloseWithError(0, "bye")
	ctx := context.Background()
	for {
		msg, err := sess.ReceiveDatagram(ctx)
		if err != nil {
			s.log.Debug("webtransport datagram receive ended", "remote", remote, "error", errkind.Datagram("receive: %s", err))
			return
		}
		s.config.Poses.Append(msg)
	}
}

// Start builds the HTTP/3 server and blocks until ctx is cancelled or a
// fatal error occurs, returning nil when shutdown was caused by ctx.
func (s *Server) Start(ctx context.Context) error {
	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{s.config.Cert.TLSCert},
	}

	handler := corsMiddleware(crossOriginIsolationMiddleware(s.mux()))

	s.wtSrv = &webtransport.Server{
		H3: http3.Server{
			Addr:      s.config.Addr,
			Handler:   handler,
			TLSConfig: tlsConfig,
			QUICConfig: &quic.Config{
				MaxIdleTimeout: 30 * time.Second,
			},
		},
		CheckOrigin: func(_ *http.Request) bool {
			return true
		},
	}

	s.log.Info("serving TIGAS over HTTP/3", "addr", s.config.Addr)

	stop := context.AfterFunc(ctx, func() { s.wtSrv.Close() })
	defer stop()

	err := s.wtSrv.ListenAndServe()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
