package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/latebit/tquery/internal/cache"
	"github.com/latebit/tquery/internal/client"
	"github.com/latebit/tquery/internal/command"
	"github.com/latebit/tquery/internal/tokens"
	"github.com/latebit/tquery/protocol"
)

const usage = `usage: tquery route [flags] FROM TO
       tquery route [flags] FROM to TO
       tquery enable [flags] STATION
       tquery disable [flags] STATION
       tquery stations [flags]
       tquery health [flags]
       tquery token <add|remove|list|default>

Station names may be partial; ambiguous names list the candidates.
Run "tquery <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "route":
		routeMain(os.Args[2:])
	case "enable", "disable":
		stationMain(os.Args[1], os.Args[2:])
	case "stations":
		stationsMain(os.Args[2:])
	case "health":
		healthMain(os.Args[2:])
	case "token":
		tokenMain(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// common holds the flags every request command accepts.
type common struct {
	host     *string
	format   *string
	insecure *bool
	noCache  *bool
	cacheDir *string
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		host:     fs.String("host", "", "server, tquery://host:port (env: TQUERY_HOST; default: stored default or localhost)"),
		format:   fs.String("format", protocol.FormatText, "response body format (text, markdown)"),
		insecure: fs.Bool("insecure", false, "skip TLS certificate verification"),
		noCache:  fs.Bool("no-cache", false, "disable the offline cache"),
		cacheDir: fs.String("cache-dir", cache.DefaultDir(), "cache directory (env: TQUERY_CACHE_DIR)"),
	}
}

func (c common) client() *client.Client {
	opts := client.Options{Insecure: *c.insecure, Format: *c.format}
	if !*c.noCache {
		opts.Cache = cache.New(*c.cacheDir)
	}
	return client.New(opts)
}

func (c common) resolveHost() string {
	var stored *tokens.Store
	if ts, err := tokens.Load(tokens.DefaultPath()); err == nil {
		stored = ts
	}
	host, err := resolveHost(*c.host, os.Getenv("TQUERY_HOST"), stored)
	if err != nil {
		log.Fatal(err)
	}
	return host
}

// resolveHost picks the server: flag > env var > stored default > localhost.
func resolveHost(flagVal, envVal string, stored *tokens.Store) (string, error) {
	raw := flagVal
	if raw == "" {
		raw = envVal
	}
	if raw == "" && stored != nil {
		if def := stored.Default(); def != "" {
			return def, nil
		}
	}
	if raw == "" {
		raw = "localhost"
	}
	return client.ParseURL(raw)
}

func routeMain(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	c := commonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tquery route [flags] FROM TO\n       tquery route [flags] FROM to TO\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	from, to, err := parseRouteArgs(fs.Args())
	if err != nil {
		fs.Usage()
		os.Exit(1)
	}

	host := c.resolveHost()
	cl := c.client()
	defer cl.Close()

	result, err := cl.Route(host, from, to)
	if err != nil {
		log.Fatal(err)
	}
	printResult(result)
	exitFor(result.Response.Status)
}

var errRouteArgs = errors.New("route needs a start and a destination")

// parseRouteArgs accepts either two arguments or the words of
// "FROM to TO", the same form the interactive server reads.
func parseRouteArgs(args []string) (string, string, error) {
	switch {
	case len(args) == 2:
		return args[0], args[1], nil
	case len(args) > 2:
		cmd := command.Parse("from " + strings.Join(args, " "))
		if cmd.Kind == command.Route {
			return cmd.From, cmd.To, nil
		}
	}
	return "", "", errRouteArgs
}

func stationMain(verb string, args []string) {
	fs := flag.NewFlagSet(verb, flag.ExitOnError)
	c := commonFlags(fs)
	authToken := fs.String("auth", "", "operator token (env: TQUERY_AUTH; default: stored token for host)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tquery %s [flags] STATION\n\n", verb)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	station := strings.Join(fs.Args(), " ")
	host := c.resolveHost()

	// Auth token: flag > env var > stored token for host.
	token := *authToken
	if token == "" {
		token = os.Getenv("TQUERY_AUTH")
	}
	if token == "" {
		if ts, err := tokens.Load(tokens.DefaultPath()); err == nil {
			token = ts.Get(host)
		}
	}

	cl := c.client()
	defer cl.Close()

	var (
		result client.Result
		err    error
	)
	if verb == "enable" {
		result, err = cl.Enable(host, station, token)
	} else {
		result, err = cl.Disable(host, station, token)
	}
	if err != nil {
		log.Fatal(err)
	}
	printResult(result)
	exitFor(result.Response.Status)
}

func stationsMain(args []string) {
	fs := flag.NewFlagSet("stations", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	host := c.resolveHost()
	cl := c.client()
	defer cl.Close()

	result, err := cl.Stations(host)
	if err != nil {
		log.Fatal(err)
	}
	printResult(result)
}

func healthMain(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	c := commonFlags(fs)
	_ = fs.Parse(args)

	host := c.resolveHost()
	cl := c.client()
	defer cl.Close()

	result, err := cl.Health(host)
	if err != nil {
		log.Fatal(err)
	}
	printResult(result)
	exitFor(result.Response.Status)
}

func printResult(result client.Result) {
	fmt.Println(formatHeader(result))
	fmt.Print(result.Response.Body)
}

// formatHeader renders the status line: status, sorted metadata and a
// cache marker. Suggestions are left to the body.
func formatHeader(result client.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", result.Response.Status)
	keys := make([]string, 0, len(result.Response.Metadata))
	for k := range result.Response.Metadata {
		if k != protocol.MetaSuggestions {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, result.Response.Metadata[k])
	}
	if result.FromCache {
		b.WriteString(" (cached)")
	}
	return b.String()
}

// exitCode maps a response status to the process exit code.
func exitCode(status string) int {
	switch status {
	case protocol.StatusOK:
		return 0
	case protocol.StatusAmbiguous, protocol.StatusNotFound, protocol.StatusDisabled, protocol.StatusNoPath:
		return 2
	default:
		return 1
	}
}

func exitFor(status string) {
	if code := exitCode(status); code != 0 {
		os.Exit(code)
	}
}

func tokenMain(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: tquery token <add|remove|list|default>\n")
		fmt.Fprintf(os.Stderr, "  add     tquery://host:port <token> [label]  Store a token for a server\n")
		fmt.Fprintf(os.Stderr, "  remove  tquery://host:port                  Remove a stored token\n")
		fmt.Fprintf(os.Stderr, "  list                                        List servers with stored tokens\n")
		fmt.Fprintf(os.Stderr, "  default tquery://host:port                  Use a server when -host is not given\n")
		os.Exit(1)
	}

	ts, err := tokens.Load(tokens.DefaultPath())
	if err != nil {
		log.Fatalf("load tokens: %v", err)
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			log.Fatal("usage: tquery token add tquery://host:port <token> [label]")
		}
		host, err := client.ParseURL(args[1])
		if err != nil {
			log.Fatalf("invalid URL: %v", err)
		}
		label := ""
		if len(args) > 3 {
			label = args[3]
		}
		if err := ts.Set(host, args[2], label); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Token stored for %s\n", host)

	case "remove":
		if len(args) < 2 {
			log.Fatal("usage: tquery token remove tquery://host:port")
		}
		host, err := client.ParseURL(args[1])
		if err != nil {
			log.Fatalf("invalid URL: %v", err)
		}
		if err := ts.Remove(host); err != nil {
			log.Fatalf("remove token: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Token removed for %s\n", host)

	case "default":
		if len(args) < 2 {
			log.Fatal("usage: tquery token default tquery://host:port")
		}
		host, err := client.ParseURL(args[1])
		if err != nil {
			log.Fatalf("invalid URL: %v", err)
		}
		if err := ts.SetDefault(host); err != nil {
			log.Fatal(err)
		}
		fmt.Fprintf(os.Stderr, "Default server is now %s\n", host)

	case "list":
		hosts := ts.Hosts()
		if len(hosts) == 0 {
			fmt.Println("No stored tokens.")
			return
		}
		for _, h := range hosts {
			line := h
			if l := ts.Label(h); l != "" {
				line += " (" + l + ")"
			}
			if h == ts.Default() {
				line += " *"
			}
			fmt.Println(line)
		}

	default:
		log.Fatalf("unknown token command: %s", args[0])
	}
}
