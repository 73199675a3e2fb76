// Command tigas-server serves the TIGAS web client, DASH segments and
// manifests, and a WebTransport pose-control channel over HTTP/3, per
// spec §4.7/§4.8/§6.
//
// Grounded on original_source/server/cmd/tigas-server/main.go for the flag
// surface and default paths, and on the teacher's cmd/prism/main.go for
// slog-based startup logging, signal-driven context cancellation, and an
// errgroup supervising the server goroutine.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tigas-project/tigas/abr"
	"github.com/tigas-project/tigas/certs"
	"github.com/tigas-project/tigas/poselog"
	"github.com/tigas-project/tigas/transport"
)

func main() {
	addr := flag.String("addr", ":4433", "HTTP/3 listen address")
	certFile := flag.String("cert", "", "TLS certificate path (required)")
	keyFile := flag.String("key", "", "TLS key path (required)")
	staticDir := flag.String("static", "../client", "static assets path")
	segmentsDir := flag.String("segments", "../artifacts/test_mode", "DASH segments path")
	movementDir := flag.String("movement", "../movement_traces", "movement traces path")
	controlLog := flag.String("control-log", "../artifacts/test_mode/control_messages.bin", "datagram log output path")
	flag.Parse()

	if *certFile == "" || *keyFile == "" {
		slog.Error("startup failed", "error", "--cert and --key are required")
		os.Exit(1)
	}

	if err := os.MkdirAll(*segmentsDir, 0o755); err != nil {
		slog.Error("unable to create segments dir", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(*controlLog), 0o755); err != nil {
		slog.Error("unable to create control log dir", "error", err)
		os.Exit(1)
	}

	cert, err := certs.LoadFromFiles(*certFile, *keyFile)
	if err != nil {
		slog.Error("unable to load TLS certificate", "error", err)
		os.Exit(1)
	}

	poses, err := poselog.NewStore(*controlLog)
	if err != nil {
		slog.Error("unable to open control log", "error", err)
		os.Exit(1)
	}
	defer poses.Close()

	srv, err := transport.NewServer(transport.ServerConfig{
		Addr:        *addr,
		Cert:        cert,
		StaticDir:   *staticDir,
		SegmentsDir: *segmentsDir,
		MovementDir: *movementDir,
		ABR:         abr.New(),
		Poses:       poses,
	})
	if err != nil {
		slog.Error("unable to construct transport server", "error", err)
		os.Exit(1)
	}

	slog.Info("tigas-server starting",
		"addr", *addr,
		"static", filepath.Clean(*staticDir),
		"segments", filepath.Clean(*segmentsDir),
		"fingerprint", cert.FingerprintBase64(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
