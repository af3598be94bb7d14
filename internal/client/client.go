// Package client provides shared tquery client logic for the CLI, TUI and
// MCP front ends.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/latebit/tquery/internal/cache"
	tqtls "github.com/latebit/tquery/internal/tls"
	"github.com/latebit/tquery/protocol"
	"github.com/quic-go/quic-go"
)

// ErrBadScheme is returned by ParseURL for anything but tquery:// URLs.
var ErrBadScheme = errors.New("unsupported scheme (expected tquery://)")

// ParseURL parses a tquery:// URL and returns the host with the default
// port filled in. A bare host[:port] is accepted as well.
func ParseURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "tquery://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "tquery" {
		return "", fmt.Errorf("%w: %s", ErrBadScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}
	if u.Port() == "" {
		return fmt.Sprintf("%s:%d", u.Hostname(), protocol.DefaultPort), nil
	}
	return u.Host, nil
}

// Result holds a response and metadata about how it was served.
type Result struct {
	Response  protocol.Response
	FromCache bool
}

// Options configures client behavior.
type Options struct {
	// Cache, when set, keeps successful ROUTE and STATIONS answers and
	// serves them while the server cannot be reached.
	Cache          *cache.Cache
	Insecure       bool
	Format         string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.DialTimeout == 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.Format == "" {
		o.Format = protocol.FormatMarkdown
	}
}

// Client manages QUIC connections and performs tquery operations.
type Client struct {
	opts    Options
	tlsConf *tls.Config
	mu      sync.Mutex
	conns   map[string]*quic.Conn
}

// New creates a new client with the given options.
func New(opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		opts:    opts,
		tlsConf: tqtls.ClientConfig(opts.Insecure),
		conns:   make(map[string]*quic.Conn),
	}
}

// Close closes all pooled connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for host, conn := range c.conns {
		conn.CloseWithError(0, "")
		delete(c.conns, host)
	}
}

// Route asks host for the cheapest route between two station names.
func (c *Client) Route(host, from, to string) (Result, error) {
	req := protocol.NewRoute(from, to, c.opts.Format)
	return c.cachedRequest(host, req, cache.RouteKey(from, to))
}

// Stations lists the stations known to host.
func (c *Client) Stations(host string) (Result, error) {
	req := protocol.Request{
		Verb:     protocol.VerbStations,
		Path:     protocol.PathStations,
		Metadata: map[string]string{protocol.MetaFormat: c.opts.Format},
	}
	return c.cachedRequest(host, req, protocol.PathStations)
}

// Health checks that host is serving.
func (c *Client) Health(host string) (Result, error) {
	req := protocol.Request{Verb: protocol.VerbStations, Path: protocol.PathHealth}
	return c.do(host, req)
}

// Enable puts a station back into service. token may be empty when the
// server does not require one.
func (c *Client) Enable(host, station, token string) (Result, error) {
	return c.stationOp(host, protocol.VerbEnable, station, token)
}

// Disable takes a station out of service.
func (c *Client) Disable(host, station, token string) (Result, error) {
	return c.stationOp(host, protocol.VerbDisable, station, token)
}

func (c *Client) stationOp(host, verb, station, token string) (Result, error) {
	req := protocol.NewStationOp(verb, station, token)
	req.Metadata[protocol.MetaFormat] = c.opts.Format
	res, err := c.do(host, req)
	if err == nil && res.Response.Status == protocol.StatusOK && c.opts.Cache != nil {
		// Cached routes may run through the station that just changed.
		if err := c.opts.Cache.Clear(host); err != nil {
			log.Printf("[WARN] cache clear: %v", err)
		}
	}
	return res, err
}

func (c *Client) do(host string, req protocol.Request) (Result, error) {
	return c.doWithRetry(host, func(conn *quic.Conn) (Result, error) {
		return c.requestOnConn(conn, req)
	})
}

// cachedRequest stores ok answers and falls back to them when the server
// cannot be reached.
func (c *Client) cachedRequest(host string, req protocol.Request, key string) (Result, error) {
	result, err := c.do(host, req)
	if err != nil {
		if c.opts.Cache != nil {
			if cached, _ := c.opts.Cache.Get(host, req.Verb, key); cached != nil {
				return Result{Response: cached.Response, FromCache: true}, nil
			}
		}
		return Result{}, err
	}

	if c.opts.Cache != nil && result.Response.Status == protocol.StatusOK {
		if err := c.opts.Cache.Put(host, req.Verb, key, result.Response); err != nil {
			log.Printf("[WARN] cache write: %v", err)
		}
	}
	return result, nil
}

// requestOnConn opens a stream, sends a request, and reads the response.
func (c *Client) requestOnConn(conn *quic.Conn, req protocol.Request) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
	defer cancel()

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if _, err := req.WriteTo(stream); err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	stream.Close()

	resp, err := protocol.ParseResponse(stream)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	return Result{Response: resp}, nil
}

// doWithRetry retries transient failures up to 3 times with exponential backoff + jitter.
func (c *Client) doWithRetry(host string, fn func(conn *quic.Conn) (Result, error)) (Result, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := range maxRetries {
		conn, err := c.getConn(host)
		if err == nil {
			var result Result
			result, err = fn(conn)
			if err == nil {
				return result, nil
			}
		}

		lastErr = err
		if attempt < maxRetries-1 && isTransientError(err) {
			time.Sleep(backoff(attempt))
			c.removeConn(host)
			continue
		}
		return Result{}, err
	}

	return Result{}, lastErr
}

// backoff returns the delay before retry attempt+1: 100ms doubling per
// attempt, plus up to half of that again as jitter.
func backoff(attempt int) time.Duration {
	const base = 100 * time.Millisecond
	d := base << uint(attempt)
	return d + rand.N(d/2)
}

func (c *Client) getConn(host string) (*quic.Conn, error) {
	c.mu.Lock()
	conn, ok := c.conns[host]
	c.mu.Unlock()

	if ok {
		if conn.Context().Err() != nil {
			c.removeConn(host)
		} else {
			return conn, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	defer cancel()

	conn, err := quic.DialAddr(ctx, host, c.tlsConf, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", host, err)
	}

	c.mu.Lock()
	c.conns[host] = conn
	c.mu.Unlock()

	return conn, nil
}

func (c *Client) removeConn(host string) {
	c.mu.Lock()
	delete(c.conns, host)
	c.mu.Unlock()
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if isTimeoutError(err) || isTemporaryError(err) {
		return true
	}
	errStr := err.Error()
	switch {
	case errStr == "EOF":
		return true
	case strings.Contains(errStr, "no recent network activity"):
		return true
	case strings.Contains(errStr, "connection refused"):
		return true
	case strings.Contains(errStr, "connection reset"):
		return true
	}
	return false
}

func isTimeoutError(err error) bool {
	type timeoutError interface {
		Timeout() bool
	}
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}

func isTemporaryError(err error) bool {
	type temporaryError interface {
		Temporary() bool
	}
	var te temporaryError
	return errors.As(err, &te) && te.Temporary()
}
