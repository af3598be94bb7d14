package transit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the name of the manifest at the root of a network directory.
const ManifestFile = "network.toml"

// Sentinel errors returned while loading network data.
var (
	ErrNoHeader            = errors.New("station listed before any line header")
	ErrEmptyLineName       = errors.New("empty line name")
	ErrDuplicateLine       = errors.New("line defined twice")
	ErrMalformedConnection = errors.New("malformed connection")
	ErrUnknownLine         = errors.New("unknown line")
	ErrEmptyManifest       = errors.New("manifest lists no line files")
)

// Manifest names the files that make up a network.
//
// TOML format:
//
//	lines = ["blue.dat", "red.dat"]
//	connections = "connections.dat"
type Manifest struct {
	Lines       []string `toml:"lines"`
	Connections string   `toml:"connections"`
}

// Connection joins the first station of From to the last station of To.
// Fallback, when set, replaces To if every station of To is disabled.
type Connection struct {
	From     string
	To       string
	Fallback string
}

// Load reads the manifest, its line files and its connections file from
// fsys and builds a network. Any read or parse failure aborts the load.
func Load(fsys fs.FS) (*Network, error) {
	var m Manifest
	if _, err := toml.DecodeFS(fsys, ManifestFile, &m); err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	if len(m.Lines) == 0 {
		return nil, ErrEmptyManifest
	}

	lines := make(map[string][]string)
	var order []string
	for _, name := range m.Lines {
		parsed, parsedOrder, err := readLineFile(fsys, name)
		if err != nil {
			return nil, err
		}
		for _, line := range parsedOrder {
			if _, exists := lines[line]; exists {
				return nil, fmt.Errorf("%s: %w: %q", name, ErrDuplicateLine, line)
			}
			lines[line] = parsed[line]
			order = append(order, line)
		}
	}

	var conns []Connection
	if m.Connections != "" {
		f, err := fsys.Open(m.Connections)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", m.Connections, err)
		}
		conns, err = ParseConnections(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Connections, err)
		}
	}

	return New(lines, order, conns)
}

func readLineFile(fsys fs.FS, name string) (map[string][]string, []string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	lines, order, err := ParseLines(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return lines, order, nil
}

// ParseLines reads a line file. A text line starting with "-" opens a new
// transit line named by the rest of the text; other non-blank text lines
// name stations of the most recent line, in order. The second result lists
// line names in file order.
func ParseLines(r io.Reader) (map[string][]string, []string, error) {
	lines := make(map[string][]string)
	var order []string
	current := ""

	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "-") {
			name := strings.TrimSpace(strings.TrimLeft(text, "-"))
			if name == "" {
				return nil, nil, fmt.Errorf("line %d: %w", n, ErrEmptyLineName)
			}
			if _, exists := lines[name]; exists {
				return nil, nil, fmt.Errorf("line %d: %w: %q", n, ErrDuplicateLine, name)
			}
			lines[name] = []string{}
			order = append(order, name)
			current = name
			continue
		}
		if current == "" {
			return nil, nil, fmt.Errorf("line %d: %w: %q", n, ErrNoHeader, text)
		}
		lines[current] = append(lines[current], text)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading line file: %w", err)
	}
	return lines, order, nil
}

// ParseConnections reads "line_a, line_b[, fallback]" records, one per text
// line. Blank lines are skipped and duplicate records are dropped.
func ParseConnections(r io.Reader) ([]Connection, error) {
	var conns []Connection
	seen := make(map[Connection]struct{})

	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: %w: %q", n, ErrMalformedConnection, text)
		}
		c := Connection{
			From: strings.TrimSpace(fields[0]),
			To:   strings.TrimSpace(fields[1]),
		}
		if len(fields) == 3 {
			c.Fallback = strings.TrimSpace(fields[2])
		}
		if c.From == "" || c.To == "" {
			return nil, fmt.Errorf("line %d: %w: %q", n, ErrMalformedConnection, text)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		conns = append(conns, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading connections: %w", err)
	}
	return conns, nil
}
