// Package service shares one transit network between concurrent
// connections. Every call is serialized; route answers are cached until
// the next mutation.
package service

import (
	"io"
	"log/slog"
	"sync"

	"github.com/bluele/gcache"
	"github.com/latebit/tquery/internal/command"
	"github.com/latebit/tquery/internal/render"
	"github.com/latebit/tquery/internal/transit"
)

// Service guards a *transit.Network with a mutex.
type Service struct {
	mu     sync.Mutex
	net    *transit.Network
	routes gcache.Cache
	logger *slog.Logger
	// base carries revisions of replaced networks so Revision never goes
	// backwards.
	base uint64
}

// New wraps net. cacheSize bounds the number of cached route answers;
// zero or less disables the cache. A nil logger discards log output.
func New(net *transit.Network, cacheSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{net: net, logger: logger}
	if cacheSize > 0 {
		s.routes = gcache.New(cacheSize).LRU().Build()
	}
	return s
}

func routeKey(from, to string) string {
	return from + "\x00" + to
}

// Route answers a route query.
func (s *Service) Route(from, to string) transit.QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := routeKey(from, to)
	if s.routes != nil {
		if v, err := s.routes.Get(key); err == nil {
			if res, ok := v.(transit.QueryResult); ok {
				s.logger.Debug("route cache hit", "from", from, "to", to)
				return res
			}
		}
	}

	res := s.net.FindPath(from, to)
	s.logger.Debug("route", "from", from, "to", to, "result", res.Kind.String(), "steps", len(res.Steps))
	if s.routes != nil {
		s.routes.Set(key, res)
	}
	return res
}

// Enable puts a station back into service.
func (s *Service) Enable(name string) transit.OperationResult {
	res, _ := s.apply("enable", name, nil)
	return res
}

// Disable takes a station out of service.
func (s *Service) Disable(name string) transit.OperationResult {
	res, _ := s.apply("disable", name, nil)
	return res
}

// EnableAuthorized is Enable with authorize consulted for the station the
// name resolves to. A non-nil error from authorize leaves the network
// untouched and is returned as is.
func (s *Service) EnableAuthorized(name string, authorize func(station string) error) (transit.OperationResult, error) {
	return s.apply("enable", name, authorize)
}

// DisableAuthorized is the Disable counterpart of EnableAuthorized.
func (s *Service) DisableAuthorized(name string, authorize func(station string) error) (transit.OperationResult, error) {
	return s.apply("disable", name, authorize)
}

// apply resolves, authorizes and mutates under one lock so a concurrent
// Replace cannot retarget name between the check and the change.
func (s *Service) apply(op, name string, authorize func(station string) error) (transit.OperationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if authorize != nil {
		if d := s.net.Disambiguate(name); d.Found() {
			if err := authorize(d.Station); err != nil {
				return transit.OperationResult{}, err
			}
		}
	}

	var res transit.OperationResult
	if op == "disable" {
		res = s.net.DisableStation(name)
	} else {
		res = s.net.EnableStation(name)
	}
	s.mutated(op, name, res)
	return res, nil
}

// mutated must be called with mu held.
func (s *Service) mutated(op, name string, res transit.OperationResult) {
	if !res.Changed {
		s.logger.Debug(op, "station", name, "result", res.Kind.String())
		return
	}
	if s.routes != nil {
		s.routes.Purge()
	}
	s.logger.Info(op, "station", res.Station, "revision", s.base+s.net.Revision())
}

// Stations lists every station with its lines and state.
func (s *Service) Stations() []transit.StationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Stations()
}

// Lines returns the line names in load order.
func (s *Service) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Lines()
}

// Revision counts effective mutations and network replacements.
func (s *Service) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base + s.net.Revision()
}

// Replace swaps in a freshly loaded network. Stations disabled in the old
// network stay disabled when the new one still has them.
func (s *Service) Replace(net *transit.Network) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := net.DisableExact(s.net.Disabled())
	s.base += s.net.Revision() + 1
	s.net = net
	if s.routes != nil {
		s.routes.Purge()
	}
	s.logger.Info("network replaced", "lines", len(net.Lines()), "nodes", net.NodeCount(), "disabled", kept)
}

// Execute runs a parsed interactive command and writes its text reply.
func (s *Service) Execute(cmd command.Command, w io.Writer) error {
	switch cmd.Kind {
	case command.Route:
		return render.Route(w, s.Route(cmd.From, cmd.To), cmd.From, cmd.To)
	case command.Enable:
		return render.Enable(w, cmd.Station, s.Enable(cmd.Station))
	case command.Disable:
		return render.Disable(w, cmd.Station, s.Disable(cmd.Station))
	default:
		return render.Invalid(w)
	}
}
