// Package ratelimit provides per-client request rate limiting shared by the
// QUIC, line and HTTP front ends.
package ratelimit

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks per-IP request rates using a token bucket algorithm.
// A nil *Limiter allows every request.
type Limiter struct {
	rate  rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*entry

	stop chan struct{}
}

// New creates a Limiter that allows r requests per second with the given
// burst size. It returns nil when r is not positive, which disables
// limiting. A background goroutine evicts clients idle for five minutes;
// call Stop to release it.
func New(r float64, burst int) *Limiter {
	if r <= 0 {
		return nil
	}
	l := &Limiter{
		rate:    rate.Limit(r),
		burst:   burst,
		clients: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow reports whether a request from the given IP should be permitted.
func (l *Limiter) Allow(ip string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	e, ok := l.clients[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// AllowAddr is Allow keyed by the IP of addr.
func (l *Limiter) AllowAddr(addr net.Addr) bool {
	if l == nil {
		return true
	}
	return l.Allow(ExtractIP(addr))
}

// AllowHostPort is Allow keyed by the host part of a "host:port" string
// such as http.Request.RemoteAddr.
func (l *Limiter) AllowHostPort(hostport string) bool {
	if l == nil {
		return true
	}
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	return l.Allow(host)
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop terminates the background cleanup goroutine.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	close(l.stop)
}

const staleAfter = 5 * time.Minute

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// evict drops clients not seen within staleAfter of now.
func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.clients {
		if now.Sub(e.lastSeen) > staleAfter {
			delete(l.clients, ip)
		}
	}
}

// ExtractIP returns the IP portion of a net.Addr (strips the port). A nil
// addr yields "", so unknown peers share one bucket.
func ExtractIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
