// Command tquery-mcp is an MCP server that exposes tquery transit queries
// as tools for LLM agents over stdio transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/latebit/tquery/internal/cache"
	"github.com/latebit/tquery/internal/client"
	"github.com/latebit/tquery/protocol"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	defaultHost := flag.String("host", os.Getenv("TQUERY_HOST"), "default tquery server (e.g. tquery://localhost:6310)")
	token := flag.String("token", os.Getenv("TQUERY_AUTH"), "auth token for enable and disable")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	noCache := flag.Bool("no-cache", false, "disable the offline answer cache")
	cacheDir := flag.String("cache-dir", cache.DefaultDir(), "cache directory")
	flag.Parse()

	opts := client.Options{Insecure: *insecure, Format: protocol.FormatMarkdown}
	if !*noCache {
		opts.Cache = cache.New(*cacheDir)
	}
	c := client.New(opts)
	defer c.Close()

	s := server.NewMCPServer("tquery-mcp", "0.1.0")

	h := &handler{client: c, defaultHost: *defaultHost, token: *token}
	s.AddTool(routeTool(*defaultHost), h.route)
	s.AddTool(stationsTool(*defaultHost), h.stations)
	s.AddTool(stationOpTool("transit_disable", "Take a station out of service. Routes will skip it until it is enabled again.", *defaultHost), h.disable)
	s.AddTool(stationOpTool("transit_enable", "Put a disabled station back into service.", *defaultHost), h.enable)

	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}

// transitClient is the subset of client.Client the tools call.
type transitClient interface {
	Route(host, from, to string) (client.Result, error)
	Stations(host string) (client.Result, error)
	Enable(host, station, token string) (client.Result, error)
	Disable(host, station, token string) (client.Result, error)
}

type handler struct {
	client      transitClient
	defaultHost string
	token       string
}

// resolveHost picks the host argument or falls back to -host.
func (h *handler) resolveHost(raw string) (string, error) {
	if raw == "" {
		raw = h.defaultHost
	}
	if raw == "" {
		return "", fmt.Errorf("no host given; pass host or start with -host flag")
	}
	return client.ParseURL(raw)
}

// Tool definitions.

func hostDesc(host string) string {
	if host != "" {
		return fmt.Sprintf("server to ask, defaults to %s", host)
	}
	return "server to ask, e.g. tquery://localhost:6310"
}

func routeTool(host string) mcp.Tool {
	return mcp.NewTool("transit_route",
		mcp.WithDescription(
			"Find the cheapest route between two stations of the transit network. "+
				"Station names may be partial; an ambiguous name returns the candidates to choose from. "+
				"Returns a numbered list of stations to ride through, with line switches.",
		),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("start station, e.g. Park Street"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("destination station, e.g. Kendall"),
		),
		mcp.WithString("host",
			mcp.Description(hostDesc(host)),
		),
	)
}

func stationsTool(host string) mcp.Tool {
	return mcp.NewTool("transit_stations",
		mcp.WithDescription(
			"List every station with the lines serving it and whether it is in service. "+
				"Use this to find exact station names.",
		),
		mcp.WithString("line",
			mcp.Description("only list stations on this line"),
		),
		mcp.WithString("host",
			mcp.Description(hostDesc(host)),
		),
	)
}

func stationOpTool(name, desc, host string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(desc+" May require an auth token configured via the -token flag."),
		mcp.WithString("station",
			mcp.Required(),
			mcp.Description("station name, e.g. Broadway"),
		),
		mcp.WithString("host",
			mcp.Description(hostDesc(host)),
		),
	)
}

// Tool handlers.
// Handler signatures are dictated by mcp-go's ToolHandlerFunc type.

func (h *handler) route(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError("from is required"), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError("to is required"), nil
	}
	host, err := h.resolveHost(req.GetString("host", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid host: %v", err)), nil
	}

	result, err := h.client.Route(host, from, to)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("route failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResult(result)), nil
}

func (h *handler) stations(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	host, err := h.resolveHost(req.GetString("host", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid host: %v", err)), nil
	}

	result, err := h.client.Stations(host)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stations failed: %v", err)), nil
	}
	if line := req.GetString("line", ""); line != "" {
		result.Response.Body = filterLine(result.Response.Body, line)
	}
	return mcp.NewToolResultText(formatResult(result)), nil
}

func (h *handler) disable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	return h.stationOp(ctx, req, h.client.Disable)
}

func (h *handler) enable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) { //nolint:gocritic // signature required by mcp-go
	return h.stationOp(ctx, req, h.client.Enable)
}

func (h *handler) stationOp(_ context.Context, req mcp.CallToolRequest, op func(host, station, token string) (client.Result, error)) (*mcp.CallToolResult, error) { //nolint:gocritic // req passed by value like the mcp-go handlers
	station, err := req.RequireString("station")
	if err != nil {
		return mcp.NewToolResultError("station is required"), nil
	}
	host, err := h.resolveHost(req.GetString("host", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid host: %v", err)), nil
	}

	result, err := op(host, station, h.token)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("request failed: %v", err)), nil
	}
	if result.Response.Status == protocol.StatusUnauthorized && h.token == "" {
		return mcp.NewToolResultError("server requires a token; restart with -token"), nil
	}
	return mcp.NewToolResultText(formatResult(result)), nil
}

// formatResult renders a response as a plain-text summary for LLM
// consumption: status, sorted metadata and the markdown body.
func formatResult(r client.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s", r.Response.Status)
	if r.FromCache {
		b.WriteString(" (cached, server unreachable)")
	}
	b.WriteByte('\n')

	keys := make([]string, 0, len(r.Response.Metadata))
	for k := range r.Response.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, r.Response.Metadata[k])
	}

	b.WriteByte('\n')
	b.WriteString(r.Response.Body)
	return b.String()
}

// filterLine keeps the table header and the rows whose lines column names
// line.
func filterLine(body, line string) string {
	var b strings.Builder
	for _, row := range strings.SplitAfter(body, "\n") {
		cells := strings.Split(strings.Trim(strings.TrimSpace(row), "|"), "|")
		if len(cells) != 3 || strings.TrimSpace(cells[0]) == "Station" || strings.HasPrefix(strings.TrimSpace(row), "|---") {
			b.WriteString(row)
			continue
		}
		for _, l := range strings.Split(cells[1], ",") {
			if strings.EqualFold(strings.TrimSpace(l), line) {
				b.WriteString(row)
				break
			}
		}
	}
	return b.String()
}
