package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/latebit/tquery/data"
	"github.com/latebit/tquery/internal/auth"
	"github.com/latebit/tquery/internal/config"
	"github.com/latebit/tquery/internal/handler"
	"github.com/latebit/tquery/internal/httpapi"
	"github.com/latebit/tquery/internal/logging"
	"github.com/latebit/tquery/internal/ratelimit"
	"github.com/latebit/tquery/internal/service"
	tqtls "github.com/latebit/tquery/internal/tls"
	"github.com/latebit/tquery/internal/transit"
	"github.com/pkg/profile"
	"github.com/quic-go/quic-go"
)

func main() {
	envFile := flag.String("env", "", "load environment variables from this .env file first")
	dataDir := flag.String("data", "", "network data directory (overrides TQUERY_DATA_DIR, default: embedded network)")
	port := flag.Int("port", 0, "QUIC port to listen on (overrides TQUERY_PORT)")
	lineAddr := flag.String("line", "", "address of the interactive line listener (overrides TQUERY_LINE_ADDR)")
	httpAddr := flag.String("http", "", "address of the HTTP gateway (overrides TQUERY_HTTP_ADDR)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate PEM file (overrides TQUERY_TLS_CERT)")
	tlsKey := flag.String("tls-key", "", "path to TLS private key PEM file (overrides TQUERY_TLS_KEY)")
	tokensFile := flag.String("tokens", "", "operator tokens file (overrides TQUERY_TOKENS)")
	prof := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadDotEnv(*envFile); err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
	}

	cfg, err := loadConfig(overrides{
		dataDir:    *dataDir,
		port:       *port,
		lineAddr:   *lineAddr,
		httpAddr:   *httpAddr,
		tlsCert:    *tlsCert,
		tlsKey:     *tlsKey,
		tokensFile: *tokensFile,
	})
	if err != nil {
		log.Fatalf("[ERROR] config: %v", err)
	}

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("[ERROR] unknown profile %q (want cpu or mem)", *prof)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)

	network, err := loadNetwork(cfg.DataDir)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	svc := service.New(network, cfg.CacheSize, logger)

	var tokens *auth.TokenStore
	if cfg.TokensFile != "" {
		tokens, err = auth.LoadTokens(cfg.TokensFile)
		if err != nil {
			log.Fatalf("[ERROR] auth: %v", err)
		}
		log.Printf("[INFO] auth: %d tokens loaded from %s", tokens.Len(), cfg.TokensFile)
	} else {
		log.Printf("[WARN] auth: no tokens file, enable and disable are open to every client")
	}

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateBurst)
	defer limiter.Stop()

	cert, prodMode, err := loadTLS(cfg)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	h := &handler.Handler{Service: svc, Tokens: tokens, Limiter: limiter, Logger: logger}

	quicConfig := &quic.Config{
		MaxIncomingStreams:    int64(cfg.MaxStreams),
		MaxIncomingUniStreams: 0,
		MaxIdleTimeout:        cfg.IdleTimeout,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	listener, err := quic.ListenAddr(addr, cert.ServerConfig(), quicConfig)
	if err != nil {
		log.Fatalf("[ERROR] listen on %s: %v", addr, err)
	}
	defer listener.Close()

	log.Printf("[INFO] tquery-server listening on %s (stations: %d, idle_timeout: %v, request_timeout: %v)",
		addr, len(svc.Stations()), cfg.IdleTimeout, cfg.RequestTimeout)

	errChan := make(chan error, 3)
	go func() {
		for {
			conn, err := listener.Accept(context.Background())
			if err != nil {
				errChan <- err
				return
			}
			go handleConn(conn, h)
		}
	}()

	var lineListener net.Listener
	if cfg.LineAddr != "" {
		lineListener, err = net.Listen("tcp", cfg.LineAddr)
		if err != nil {
			log.Fatalf("[ERROR] listen on %s: %v", cfg.LineAddr, err)
		}
		defer lineListener.Close()
		log.Printf("[INFO] line protocol listening on %s", cfg.LineAddr)
		go serveLines(lineListener, h, cfg.IdleTimeout, logger, errChan)
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		api := &httpapi.API{Service: svc, Tokens: tokens, Limiter: limiter, Logger: logger}
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: cfg.RequestTimeout,
			WriteTimeout:      cfg.RequestTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		}
		log.Printf("[INFO] http gateway listening on %s", cfg.HTTPAddr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	startReloader(&reloader{
		cfg:      cfg,
		cert:     cert,
		prodMode: prodMode,
		tokens:   tokens,
		service:  svc,
	})

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] received signal %v, initiating graceful shutdown", sig)
	case err := <-errChan:
		log.Printf("[ERROR] listener error: %v", err)
	}

	listener.Close()
	if lineListener != nil {
		lineListener.Close()
	}
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("[WARN] http shutdown: %v", err)
		}
		cancel()
	}
	log.Printf("[INFO] tquery-server stopped")
}

func handleConn(conn *quic.Conn, h *handler.Handler) {
	for {
		stream, err := conn.AcceptStream(context.Background())
		if err != nil {
			return // connection closed
		}
		go h.HandleStream(stream, conn.RemoteAddr())
	}
}

func serveLines(l net.Listener, h *handler.Handler, idle time.Duration, logger *slog.Logger, errChan chan<- error) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				errChan <- err
			}
			return
		}
		go func() {
			if err := h.ServeLine(conn, idle); err != nil {
				logger.Info("line session ended", "remote", conn.RemoteAddr().String(), "err", err)
			}
		}()
	}
}

// overrides carries command-line flags; zero values leave the environment
// setting alone.
type overrides struct {
	dataDir    string
	port       int
	lineAddr   string
	httpAddr   string
	tlsCert    string
	tlsKey     string
	tokensFile string
}

// loadConfig reads the environment, applies flag overrides and validates
// the result.
func loadConfig(o overrides) (*config.Config, error) {
	cfg := config.Load()
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.lineAddr != "" {
		cfg.LineAddr = o.lineAddr
	}
	if o.httpAddr != "" {
		cfg.HTTPAddr = o.httpAddr
	}
	if o.tlsCert != "" {
		cfg.TLSCert = o.tlsCert
	}
	if o.tlsKey != "" {
		cfg.TLSKey = o.tlsKey
	}
	if o.tokensFile != "" {
		cfg.TokensFile = o.tokensFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadNetwork reads the network from dir, or the embedded network when dir
// is empty.
func loadNetwork(dir string) (*transit.Network, error) {
	var fsys fs.FS = data.FS
	if dir != "" {
		fsys = os.DirFS(dir)
		log.Printf("[INFO] network: loading from %s", dir)
	}
	network, err := transit.Load(fsys)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	return network, nil
}

// loadTLS returns the server certificate based on the configuration.
// If TLSCert and TLSKey are set, loads certificates from disk (production mode).
// If neither is set, generates a self-signed dev certificate.
func loadTLS(cfg *config.Config) (*tqtls.Certificate, bool, error) {
	haveCert := cfg.TLSCert != ""
	haveKey := cfg.TLSKey != ""

	switch {
	case haveCert && haveKey:
		log.Printf("[INFO] tls: loading certificate from %s", cfg.TLSCert)
		cert, err := tqtls.LoadCertificate(cfg.TLSCert, cfg.TLSKey)
		return cert, true, err
	case haveCert != haveKey:
		return nil, false, fmt.Errorf("both -tls-cert and -tls-key must be provided (got cert=%q, key=%q)", cfg.TLSCert, cfg.TLSKey)
	default:
		log.Printf("[INFO] tls: using self-signed dev certificate (set TQUERY_TLS_CERT and TQUERY_TLS_KEY for production)")
		cert, err := tqtls.GenerateDevCertificate()
		return cert, false, err
	}
}

// reloader re-reads the certificate, operator tokens and network data
// while the server keeps running.
type reloader struct {
	cfg      *config.Config
	cert     *tqtls.Certificate
	prodMode bool
	tokens   *auth.TokenStore
	service  *service.Service
}

func (r *reloader) reload() {
	if r.prodMode {
		if err := r.cert.Reload(); err != nil {
			log.Printf("[ERROR] tls: certificate reload failed: %v", err)
		} else {
			log.Printf("[INFO] tls: certificate reloaded from %s", r.cfg.TLSCert)
		}
	}
	if r.tokens != nil {
		if err := r.tokens.Reload(r.cfg.TokensFile); err != nil {
			log.Printf("[ERROR] auth: token reload failed: %v", err)
		} else {
			log.Printf("[INFO] auth: tokens reloaded from %s", r.cfg.TokensFile)
		}
	}
	if r.cfg.DataDir != "" {
		network, err := loadNetwork(r.cfg.DataDir)
		if err != nil {
			log.Printf("[ERROR] network reload failed: %v", err)
			return
		}
		r.service.Replace(network)
		log.Printf("[INFO] network: reloaded, revision %d", r.service.Revision())
	}
}
