package main

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/latebit/tquery/internal/config"
	"github.com/latebit/tquery/internal/handler"
	"github.com/latebit/tquery/internal/render"
	"github.com/latebit/tquery/internal/service"
	"github.com/latebit/tquery/internal/transit"
)

func writeNetwork(t *testing.T, dir, red string) {
	t.Helper()
	files := map[string]string{
		transit.ManifestFile: "lines = [\"red.dat\"]\n",
		"red.dat":            red,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadNetworkEmbedded(t *testing.T) {
	network, err := loadNetwork("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(network.Stations()) == 0 {
		t.Error("embedded network has no stations")
	}
}

func TestLoadNetworkDir(t *testing.T) {
	dir := t.TempDir()
	writeNetwork(t, dir, "-red\nAlpha Station\nBeta Station\n")

	network, err := loadNetwork(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(network.Stations()); got != 2 {
		t.Errorf("stations: got %d, want 2", got)
	}

	if _, err := loadNetwork(t.TempDir()); err == nil {
		t.Error("expected error for a directory without a manifest")
	}
}

func TestLoadConfigRejectsZeroBurst(t *testing.T) {
	t.Setenv("TQUERY_RATE_BURST", "0")
	if _, err := loadConfig(overrides{}); err == nil {
		t.Fatal("expected error for a zero burst with rate limiting on")
	}

	t.Setenv("TQUERY_RATE_LIMIT", "0")
	if _, err := loadConfig(overrides{}); err != nil {
		t.Errorf("zero burst without rate limiting: %v", err)
	}
}

func TestLoadConfigRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("TQUERY_LOG_LEVEL", "chatty")
	if _, err := loadConfig(overrides{}); err == nil {
		t.Fatal("expected error for an unknown log level")
	}
}

func TestLoadConfigValidatesAfterFlags(t *testing.T) {
	t.Setenv("TQUERY_TLS_CERT", "cert.pem")
	if _, err := loadConfig(overrides{}); err == nil {
		t.Fatal("expected error when only the certificate is set")
	}

	cfg, err := loadConfig(overrides{tlsKey: "key.pem", port: 9001, dataDir: "/srv/net"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TLSKey != "key.pem" || cfg.Port != 9001 || cfg.DataDir != "/srv/net" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadTLS(t *testing.T) {
	cert, prod, err := loadTLS(&config.Config{})
	if err != nil {
		t.Fatalf("dev certificate: %v", err)
	}
	if prod || cert == nil {
		t.Errorf("dev mode: prod=%v cert=%v", prod, cert)
	}

	if _, _, err := loadTLS(&config.Config{TLSCert: "cert.pem"}); err == nil {
		t.Error("expected error when only the certificate is set")
	}
}

func TestReloaderReplacesNetwork(t *testing.T) {
	dir := t.TempDir()
	writeNetwork(t, dir, "-red\nAlpha Station\nBeta Station\n")

	network, err := loadNetwork(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(network, 4, nil)
	svc.Disable("Alpha")
	before := svc.Revision()

	writeNetwork(t, dir, "-red\nAlpha Station\nBeta Station\nGamma Station\n")
	r := &reloader{cfg: &config.Config{DataDir: dir}, service: svc}
	r.reload()

	if got := len(svc.Stations()); got != 3 {
		t.Errorf("stations after reload: got %d, want 3", got)
	}
	if svc.Revision() == before {
		t.Error("revision should change after reload")
	}
	if res := svc.Route("Alpha", "Gamma"); res.Kind != transit.StartDisabled {
		t.Errorf("disabled station should stay disabled across reload, got %v", res.Kind)
	}
}

func TestReloaderKeepsNetworkOnError(t *testing.T) {
	dir := t.TempDir()
	writeNetwork(t, dir, "-red\nAlpha Station\nBeta Station\n")
	network, err := loadNetwork(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(network, 4, nil)

	if err := os.Remove(filepath.Join(dir, transit.ManifestFile)); err != nil {
		t.Fatal(err)
	}
	r := &reloader{cfg: &config.Config{DataDir: dir}, service: svc}
	r.reload()

	if got := len(svc.Stations()); got != 2 {
		t.Errorf("stations: got %d, want 2", got)
	}
}

type countingConn struct {
	net.Conn
	closes atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// chanListener hands out the connections sent on conns.
type chanListener struct {
	conns chan net.Conn
	done  chan struct{}
}

func (l *chanListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *chanListener) Close() error {
	close(l.done)
	return nil
}

func (l *chanListener) Addr() net.Addr { return &net.TCPAddr{} }

func TestServeLinesClosesOnce(t *testing.T) {
	network, err := loadNetwork("")
	if err != nil {
		t.Fatal(err)
	}
	h := &handler.Handler{Service: service.New(network, 0, nil)}

	server, client := net.Pipe()
	conn := &countingConn{Conn: server}
	l := &chanListener{conns: make(chan net.Conn, 1), done: make(chan struct{})}
	l.conns <- conn

	errChan := make(chan error, 1)
	go serveLines(l, h, time.Second, slog.New(slog.DiscardHandler), errChan)

	prompt := make([]byte, len(render.Prompt))
	if _, err := io.ReadFull(client, prompt); err != nil {
		t.Fatalf("read prompt: %v", err)
	}
	client.Close()

	deadline := time.Now().Add(2 * time.Second)
	for conn.closes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	l.Close()
	time.Sleep(20 * time.Millisecond)

	if got := conn.closes.Load(); got != 1 {
		t.Errorf("conn closed %d times, want 1", got)
	}
	select {
	case err := <-errChan:
		t.Errorf("unexpected listener error: %v", err)
	default:
	}
}
