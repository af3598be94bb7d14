// Package httpapi exposes the transit service over HTTP as JSON, with an
// HTML rendering of routes for browsers.
package httpapi

import (
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/latebit/tquery/internal/auth"
	"github.com/latebit/tquery/internal/handler"
	"github.com/latebit/tquery/internal/ratelimit"
	"github.com/latebit/tquery/internal/render"
	"github.com/latebit/tquery/internal/service"
	"github.com/latebit/tquery/internal/transit"
	"github.com/latebit/tquery/protocol"
)

// API serves the HTTP gateway. Tokens and Limiter are optional.
type API struct {
	Service *service.Service
	Tokens  *auth.TokenStore
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// Step is the JSON form of a rider instruction.
type Step struct {
	Kind    string `json:"kind"`
	Station string `json:"station,omitempty"`
	Line    string `json:"line,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// RouteResponse is the JSON body of GET /route.
type RouteResponse struct {
	Result      string   `json:"result"`
	Steps       []Step   `json:"steps,omitempty"`
	Cost        int      `json:"cost"`
	Suggestions []string `json:"suggestions,omitempty"`
	Station     string   `json:"station,omitempty"`
	Revision    uint64   `json:"revision"`
}

// OperationResponse is the JSON body of the enable and disable endpoints.
type OperationResponse struct {
	Result      string   `json:"result"`
	Station     string   `json:"station,omitempty"`
	Changed     bool     `json:"changed"`
	Suggestions []string `json:"suggestions,omitempty"`
	Revision    uint64   `json:"revision"`
}

// Station is one entry of GET /stations.
type Station struct {
	Name     string   `json:"name"`
	Lines    []string `json:"lines"`
	Disabled bool     `json:"disabled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router returns the gateway routes.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.rateLimit)
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the gateway routes to router.
func (a *API) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/route", a.Route).Methods(http.MethodGet)
	router.HandleFunc("/stations", a.Stations).Methods(http.MethodGet)
	router.HandleFunc("/lines", a.Lines).Methods(http.MethodGet)
	router.HandleFunc("/health", a.Health).Methods(http.MethodGet)
	// Station names may contain slashes, as in "JFK/UMass Station".
	router.HandleFunc("/stations/{name:.+}/disable", a.stationOp(auth.OpDisable)).Methods(http.MethodPost)
	router.HandleFunc("/stations/{name:.+}/enable", a.stationOp(auth.OpEnable)).Methods(http.MethodPost)
}

func (a *API) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *API) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Limiter.AllowHostPort(r.RemoteAddr) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests, slow down"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Route answers GET /route?from=&to=.
func (a *API) Route(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "route needs from and to"})
		return
	}

	res := a.Service.Route(from, to)
	status := httpStatus(handler.RouteStatus(res.Kind))

	if wantsHTML(r) {
		a.writeHTML(w, status, from+" to "+to, render.RouteMarkdown(res, from, to))
		return
	}

	resp := RouteResponse{
		Result:      res.Kind.String(),
		Cost:        res.Cost,
		Suggestions: res.Suggestions,
		Station:     res.Station,
		Revision:    a.Service.Revision(),
	}
	for _, s := range res.Steps {
		resp.Steps = append(resp.Steps, Step{Kind: s.Kind.String(), Station: s.Station, Line: s.Line, From: s.From, To: s.To})
	}
	writeJSON(w, status, resp)
}

// Stations answers GET /stations.
func (a *API) Stations(w http.ResponseWriter, r *http.Request) {
	infos := a.Service.Stations()
	if wantsHTML(r) {
		a.writeHTML(w, http.StatusOK, "Stations", render.StationsMarkdown(infos))
		return
	}
	stations := make([]Station, 0, len(infos))
	for _, s := range infos {
		stations = append(stations, Station{Name: s.Name, Lines: s.Lines, Disabled: s.Disabled})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stations": stations,
		"count":    len(stations),
		"revision": a.Service.Revision(),
	})
}

// Lines answers GET /lines.
func (a *API) Lines(w http.ResponseWriter, _ *http.Request) {
	lines := a.Service.Lines()
	writeJSON(w, http.StatusOK, map[string]any{
		"lines": lines,
		"count": len(lines),
	})
}

// Health answers GET /health.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   protocol.StatusOK,
		"revision": a.Service.Revision(),
	})
}

func (a *API) stationOp(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(mux.Vars(r)["name"])
		if name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing station"})
			return
		}

		var authorize func(station string) error
		if a.Tokens != nil {
			token := bearerToken(r)
			authorize = func(station string) error {
				if err := a.Tokens.Authorize(token, station, op); err != nil {
					a.logger().Warn("station operation refused", "op", op, "station", station, "remote", r.RemoteAddr, "err", err)
					return err
				}
				return nil
			}
		}

		var (
			res transit.OperationResult
			err error
		)
		if op == auth.OpDisable {
			res, err = a.Service.DisableAuthorized(name, authorize)
		} else {
			res, err = a.Service.EnableAuthorized(name, authorize)
		}
		if err != nil {
			writeJSON(w, authHTTPStatus(err), errorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, httpStatus(handler.OperationStatus(res.Kind)), OperationResponse{
			Result:      res.Kind.String(),
			Station:     res.Station,
			Changed:     res.Changed,
			Suggestions: res.Suggestions,
			Revision:    a.Service.Revision(),
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return f == "html"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// httpStatus maps a protocol status to an HTTP status code.
func httpStatus(s string) int {
	switch s {
	case protocol.StatusOK:
		return http.StatusOK
	case protocol.StatusAmbiguous:
		return http.StatusMultipleChoices
	case protocol.StatusNotFound:
		return http.StatusNotFound
	case protocol.StatusDisabled:
		return http.StatusConflict
	case protocol.StatusNoPath:
		return http.StatusUnprocessableEntity
	case protocol.StatusBadRequest:
		return http.StatusBadRequest
	case protocol.StatusUnauthorized:
		return http.StatusUnauthorized
	case protocol.StatusNotPermitted:
		return http.StatusForbidden
	case protocol.StatusRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func authHTTPStatus(err error) int {
	if errors.Is(err, auth.ErrNotPermitted) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *API) writeHTML(w http.ResponseWriter, status int, title, markdown string) {
	body, err := render.HTML(markdown)
	if err != nil {
		a.logger().Error("render html", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>" +
		html.EscapeString(title) + "</title></head><body>\n" + body + "</body></html>\n"))
}
