package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Request is one client call: a verb, a path and string metadata.
type Request struct {
	Verb     string
	Path     string
	Metadata map[string]string
}

// MaxRequestLineLength is the maximum allowed length for a request line.
const MaxRequestLineLength = 4096

// MaxRequestFrontmatterLength is the maximum allowed size for request metadata.
const MaxRequestFrontmatterLength = 65536 // 64KB

// Request parsing errors.
var (
	ErrEmptyRequest   = errors.New("empty request")
	ErrRequestTooLong = errors.New("request line too long")
	ErrUnknownVerb    = errors.New("unknown verb")
	ErrInvalidPath    = errors.New("invalid path")
)

// ParseRequest reads "VERB /path\n" from r, followed by optional YAML
// frontmatter. Nothing after the closing fence is read.
func ParseRequest(r io.Reader) (Request, error) {
	br := bufio.NewReaderSize(r, 1024)

	line, err := readLine(br, MaxRequestLineLength)
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return Request{}, ErrEmptyRequest
		}
		if !errors.Is(err, io.EOF) {
			return Request{}, fmt.Errorf("reading request: %w", err)
		}
	}

	verb, path, ok := strings.Cut(line, " ")
	if !ok {
		return Request{}, fmt.Errorf("malformed request: %q", line)
	}
	req := Request{Verb: verb, Path: path, Metadata: make(map[string]string)}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}

	next, err := readLine(br, MaxRequestLineLength)
	if next != "---" {
		// No frontmatter; a missing trailing block is not an error.
		return req, nil
	}
	if err != nil {
		return Request{}, fmt.Errorf("reading request metadata: %w", err)
	}

	var fm bytes.Buffer
	for {
		l, err := readLine(br, MaxRequestLineLength)
		if l == "---" {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Request{}, errUnclosedFrontmatter
			}
			return Request{}, fmt.Errorf("reading request metadata: %w", err)
		}
		fm.WriteString(l)
		fm.WriteByte('\n')
		if fm.Len() > MaxRequestFrontmatterLength {
			return Request{}, fmt.Errorf("request metadata exceeds limit: %d > %d bytes", fm.Len(), MaxRequestFrontmatterLength)
		}
	}

	meta, err := decodeFrontmatter(fm.Bytes())
	if err != nil {
		return Request{}, err
	}
	req.Metadata = meta
	return req, nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned together with io.EOF.
func readLine(br *bufio.Reader, limit int) (string, error) {
	var b []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		b = append(b, chunk...)
		if len(b) > limit {
			return "", ErrRequestTooLong
		}
		if err != nil {
			return string(b), err
		}
		if !isPrefix {
			return string(b), nil
		}
	}
}

// Validate checks the verb and path of a request.
func (req Request) Validate() error {
	if !isValidVerb(req.Verb) {
		return fmt.Errorf("%w: %q", ErrUnknownVerb, req.Verb)
	}
	if !strings.HasPrefix(req.Path, "/") || containsControlChars(req.Path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, req.Path)
	}
	return nil
}

// NewRoute builds a ROUTE request. format may be empty for the server default.
func NewRoute(from, to, format string) Request {
	meta := map[string]string{MetaFrom: from, MetaTo: to}
	if format != "" {
		meta[MetaFormat] = format
	}
	return Request{Verb: VerbRoute, Path: PathRoute, Metadata: meta}
}

// NewStationOp builds an ENABLE or DISABLE request. token may be empty.
func NewStationOp(verb, station, token string) Request {
	meta := map[string]string{MetaStation: station}
	if token != "" {
		meta[MetaAuth] = token
	}
	return Request{Verb: verb, Path: PathStations, Metadata: meta}
}

// WriteTo writes the request to w in wire format.
func (req Request) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(req.Verb)
	buf.WriteByte(' ')
	buf.WriteString(req.Path)
	buf.WriteByte('\n')

	if len(req.Metadata) > 0 {
		if err := appendFrontmatter(&buf, req.Metadata); err != nil {
			return 0, err
		}
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func isValidVerb(verb string) bool {
	switch verb {
	case VerbRoute, VerbEnable, VerbDisable, VerbStations:
		return true
	default:
		return false
	}
}

func containsControlChars(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r < 32 || r == 127
	})
}
