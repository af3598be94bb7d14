package protocol

import (
	"bytes"
	"fmt"
	"io"
	"maps"
)

// Standard status values. The result metadata key carries the precise
// outcome behind ambiguous, not-found and disabled.
const (
	StatusOK           = "ok"
	StatusAmbiguous    = "ambiguous"
	StatusNotFound     = "not-found"
	StatusDisabled     = "disabled"
	StatusNoPath       = "no-path"
	StatusBadRequest   = "bad-request"
	StatusUnauthorized = "unauthorized"
	StatusNotPermitted = "not-permitted"
	StatusRateLimited  = "rate-limited"
	StatusServerError  = "server-error"
)

const metaStatus = "status"

// Response is one server answer: a status, string metadata and a body in
// the requested format.
type Response struct {
	Status   string
	Metadata map[string]string
	Body     string
}

// ParseResponse reads a whole response from r. Everything after the
// frontmatter is the body; a response without frontmatter is all body.
func ParseResponse(r io.Reader) (Response, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}

	fm, body, _, err := splitFrontmatter(data)
	if err != nil {
		return Response{}, err
	}
	meta, err := decodeFrontmatter(fm)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Status: meta[metaStatus], Metadata: meta, Body: string(body)}
	delete(resp.Metadata, metaStatus)
	return resp, nil
}

// OK reports whether the response carries StatusOK.
func (resp Response) OK() bool {
	return resp.Status == StatusOK
}

// Suggestions returns the candidate station names of an ambiguous response.
func (resp Response) Suggestions() []string {
	return SplitList(resp.Metadata[MetaSuggestions])
}

// WriteTo writes the response to w in wire format.
func (resp Response) WriteTo(w io.Writer) (int64, error) {
	meta := maps.Clone(resp.Metadata)
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[metaStatus] = resp.Status

	var buf bytes.Buffer
	if err := appendFrontmatter(&buf, meta); err != nil {
		return 0, err
	}
	buf.WriteString(resp.Body)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
