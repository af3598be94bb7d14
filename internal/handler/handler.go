// Package handler serves tquery protocol requests against a shared transit
// network.
package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/latebit/tquery/internal/auth"
	"github.com/latebit/tquery/internal/ratelimit"
	"github.com/latebit/tquery/internal/render"
	"github.com/latebit/tquery/internal/service"
	"github.com/latebit/tquery/internal/transit"
	"github.com/latebit/tquery/protocol"
)

// Handler answers route queries and station operations.
type Handler struct {
	Service *service.Service
	// Tokens authorizes ENABLE and DISABLE. When nil, station operations
	// are open to every client.
	Tokens  *auth.TokenStore
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// Stream represents a bidirectional stream that can be read, written, and closed.
type Stream interface {
	io.ReadWriteCloser
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

// HandleStream reads a request from the stream and writes a response.
// remote identifies the client for rate limiting and may be nil.
func (h *Handler) HandleStream(stream Stream, remote net.Addr) {
	defer stream.Close()

	if remote != nil && !h.Limiter.AllowAddr(remote) {
		h.logger().Warn("rate limited", "remote", remote.String())
		h.writeError(stream, protocol.StatusRateLimited, "too many requests, slow down")
		return
	}

	req, err := protocol.ParseRequest(stream)
	if err != nil {
		h.logger().Warn("bad request", "err", err)
		h.writeError(stream, protocol.StatusBadRequest, "bad request")
		return
	}

	h.logger().Debug("request", "verb", req.Verb, "path", req.Path)

	switch req.Verb {
	case protocol.VerbRoute:
		h.handleRoute(stream, req)
	case protocol.VerbEnable, protocol.VerbDisable:
		h.handleStationOp(stream, req)
	case protocol.VerbStations:
		h.handleStations(stream, req)
	default:
		h.writeError(stream, protocol.StatusBadRequest, "unsupported verb: "+req.Verb)
	}
}

func (h *Handler) handleRoute(w io.Writer, req protocol.Request) {
	from, to := req.Metadata[protocol.MetaFrom], req.Metadata[protocol.MetaTo]
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		h.writeError(w, protocol.StatusBadRequest, "route needs from and to")
		return
	}

	res := h.Service.Route(from, to)
	meta := map[string]string{
		protocol.MetaResult:   res.Kind.String(),
		protocol.MetaRevision: strconv.FormatUint(h.Service.Revision(), 10),
	}
	switch res.Kind {
	case transit.QueryOK:
		meta[protocol.MetaSteps] = strconv.Itoa(len(res.Steps))
		meta[protocol.MetaCost] = strconv.Itoa(res.Cost)
	case transit.AmbiguousStart, transit.AmbiguousDestination:
		meta[protocol.MetaSuggestions] = protocol.JoinList(res.Suggestions)
	case transit.StartDisabled, transit.DestinationDisabled:
		meta[protocol.MetaStation] = res.Station
	}

	var body strings.Builder
	if req.Metadata[protocol.MetaFormat] == protocol.FormatText {
		render.Route(&body, res, from, to)
	} else {
		body.WriteString(render.RouteMarkdown(res, from, to))
	}

	resp := protocol.Response{Status: RouteStatus(res.Kind), Metadata: meta, Body: body.String()}
	resp.WriteTo(w)
}

func (h *Handler) handleStationOp(w io.Writer, req protocol.Request) {
	if req.Path != protocol.PathStations {
		h.writeError(w, protocol.StatusNotFound, req.Path+" not found")
		return
	}
	name := req.Metadata[protocol.MetaStation]
	if strings.TrimSpace(name) == "" {
		h.writeError(w, protocol.StatusBadRequest, "missing station")
		return
	}

	op := auth.OpEnable
	if req.Verb == protocol.VerbDisable {
		op = auth.OpDisable
	}

	var authorize func(station string) error
	if h.Tokens != nil {
		token := req.Metadata[protocol.MetaAuth]
		authorize = func(station string) error {
			if err := h.Tokens.Authorize(token, station, op); err != nil {
				h.logger().Warn("station operation refused", "op", op, "station", station, "err", err)
				return err
			}
			return nil
		}
	}

	var (
		res transit.OperationResult
		err error
	)
	verb := "enabled"
	if op == auth.OpDisable {
		res, err = h.Service.DisableAuthorized(name, authorize)
		verb = "disabled"
	} else {
		res, err = h.Service.EnableAuthorized(name, authorize)
	}
	if err != nil {
		h.writeError(w, AuthStatus(err), err.Error())
		return
	}

	meta := map[string]string{
		protocol.MetaResult:   res.Kind.String(),
		protocol.MetaRevision: strconv.FormatUint(h.Service.Revision(), 10),
	}
	if res.Station != "" {
		meta[protocol.MetaStation] = res.Station
	}
	if len(res.Suggestions) > 0 {
		meta[protocol.MetaSuggestions] = protocol.JoinList(res.Suggestions)
	}

	var body strings.Builder
	switch {
	case req.Metadata[protocol.MetaFormat] != protocol.FormatText:
		body.WriteString(render.OperationMarkdown(res, name, verb))
	case op == auth.OpDisable:
		render.Disable(&body, name, res)
	default:
		render.Enable(&body, name, res)
	}

	resp := protocol.Response{Status: OperationStatus(res.Kind), Metadata: meta, Body: body.String()}
	resp.WriteTo(w)
}

func (h *Handler) handleStations(w io.Writer, req protocol.Request) {
	meta := map[string]string{
		protocol.MetaRevision: strconv.FormatUint(h.Service.Revision(), 10),
	}
	switch req.Path {
	case protocol.PathHealth:
		resp := protocol.Response{
			Status:   protocol.StatusOK,
			Metadata: meta,
			Body:     "# OK\n\nServer is healthy.\n",
		}
		resp.WriteTo(w)
	case protocol.PathStations:
		stations := h.Service.Stations()
		var body strings.Builder
		if req.Metadata[protocol.MetaFormat] == protocol.FormatText {
			render.Stations(&body, stations)
		} else {
			body.WriteString(render.StationsMarkdown(stations))
		}
		resp := protocol.Response{Status: protocol.StatusOK, Metadata: meta, Body: body.String()}
		resp.WriteTo(w)
	default:
		h.writeError(w, protocol.StatusNotFound, req.Path+" not found")
	}
}

func (h *Handler) writeError(w io.Writer, status, message string) {
	resp := protocol.Response{
		Status:   status,
		Metadata: map[string]string{},
		Body:     fmt.Sprintf("\n# %s\n\n%s\n", statusTitle(status), message),
	}
	resp.WriteTo(w)
}

func statusTitle(s string) string {
	return strings.ToUpper(s[:1]) + strings.ReplaceAll(s[1:], "-", " ")
}

// RouteStatus maps a query outcome to a protocol status.
func RouteStatus(k transit.QueryKind) string {
	switch k {
	case transit.QueryOK:
		return protocol.StatusOK
	case transit.AmbiguousStart, transit.AmbiguousDestination:
		return protocol.StatusAmbiguous
	case transit.NoSuchStart, transit.NoSuchDestination:
		return protocol.StatusNotFound
	case transit.StartDisabled, transit.DestinationDisabled:
		return protocol.StatusDisabled
	case transit.NoPath:
		return protocol.StatusNoPath
	default:
		return protocol.StatusServerError
	}
}

// OperationStatus maps an enable or disable outcome to a protocol status.
func OperationStatus(k transit.OpKind) string {
	switch k {
	case transit.OpSuccessful:
		return protocol.StatusOK
	case transit.OpDisambiguate:
		return protocol.StatusAmbiguous
	case transit.OpNoSuchStation:
		return protocol.StatusNotFound
	default:
		return protocol.StatusServerError
	}
}

// AuthStatus maps an authorization error to a protocol status.
func AuthStatus(err error) string {
	if errors.Is(err, auth.ErrNotPermitted) {
		return protocol.StatusNotPermitted
	}
	return protocol.StatusUnauthorized
}
