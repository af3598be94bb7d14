package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Request
		wantErr bool
	}{
		{
			name:  "stations listing",
			input: "STATIONS /stations\n",
			want:  Request{Verb: VerbStations, Path: PathStations},
		},
		{
			name:  "health",
			input: "STATIONS /health\n",
			want:  Request{Verb: VerbStations, Path: PathHealth},
		},
		{
			name:  "route",
			input: "ROUTE /route\n",
			want:  Request{Verb: VerbRoute, Path: PathRoute},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no space separator",
			input:   "ROUTE\n",
			wantErr: true,
		},
		{
			name:    "unknown verb",
			input:   "FETCH /index.md\n",
			wantErr: true,
		},
		{
			name:    "relative path",
			input:   "STATIONS stations\n",
			wantErr: true,
		},
		{
			name:    "control characters in path",
			input:   "STATIONS /sta\x01tions\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Verb != tt.want.Verb {
				t.Errorf("verb: got %q, want %q", got.Verb, tt.want.Verb)
			}
			if got.Path != tt.want.Path {
				t.Errorf("path: got %q, want %q", got.Path, tt.want.Path)
			}
		})
	}
}

func TestParseRequestWithMetadata(t *testing.T) {
	input := "ROUTE /route\n---\nfrom: Park Street\nto: Kendall/MIT\nformat: text\n---\n"

	req, err := ParseRequest(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Verb != VerbRoute {
		t.Errorf("verb: got %q, want %q", req.Verb, VerbRoute)
	}
	if req.Metadata[MetaFrom] != "Park Street" {
		t.Errorf("from: got %q", req.Metadata[MetaFrom])
	}
	if req.Metadata[MetaTo] != "Kendall/MIT" {
		t.Errorf("to: got %q", req.Metadata[MetaTo])
	}
	if req.Metadata[MetaFormat] != FormatText {
		t.Errorf("format: got %q", req.Metadata[MetaFormat])
	}
}

func TestParseRequestNoMetadata(t *testing.T) {
	req, err := ParseRequest(strings.NewReader("STATIONS /stations\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Metadata) != 0 {
		t.Errorf("expected empty metadata, got %v", req.Metadata)
	}
}

func TestRequestWriteTo(t *testing.T) {
	req := Request{Verb: VerbStations, Path: PathStations}
	var buf bytes.Buffer
	if _, err := req.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "STATIONS /stations\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestNewStationOpWriteTo(t *testing.T) {
	req := NewStationOp(VerbDisable, "Kendall", "secret")
	var buf bytes.Buffer
	if _, err := req.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "DISABLE /stations\n---\n") {
		t.Errorf("missing verb line + frontmatter start: %q", got)
	}
	if !strings.Contains(got, "station: Kendall\n") {
		t.Errorf("missing station: %q", got)
	}
	if !strings.Contains(got, "auth: secret\n") {
		t.Errorf("missing auth: %q", got)
	}
	if !strings.HasSuffix(got, "---\n") {
		t.Errorf("missing closing ---: %q", got)
	}
}

func TestNewStationOpWithoutToken(t *testing.T) {
	req := NewStationOp(VerbEnable, "Kendall", "")
	if _, ok := req.Metadata[MetaAuth]; ok {
		t.Errorf("auth set without a token: %v", req.Metadata)
	}
}

func TestParseRequestLongLineInFrontmatter(t *testing.T) {
	input := "ROUTE /route\n---\n" + strings.Repeat("x", MaxRequestLineLength+1) + "\n"

	_, err := ParseRequest(strings.NewReader(input))
	if !errors.Is(err, ErrRequestTooLong) {
		t.Fatalf("got %v, want %v", err, ErrRequestTooLong)
	}
	if !strings.Contains(err.Error(), "reading request metadata") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyRequest},
		{"unknown verb", "FETCH /index.md\n", ErrUnknownVerb},
		{"relative path", "ROUTE route\n", ErrInvalidPath},
		{"long request line", "ROUTE /" + strings.Repeat("r", MaxRequestLineLength) + "\n", ErrRequestTooLong},
		{"unclosed frontmatter", "ROUTE /route\n---\nfrom: a\n", errUnclosedFrontmatter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRequest(strings.NewReader(tt.input)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseRequestWithoutTrailingNewline(t *testing.T) {
	req, err := ParseRequest(strings.NewReader("STATIONS /stations"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Path != PathStations {
		t.Errorf("path: got %q", req.Path)
	}
}

func TestRequestWriteToSortsKeys(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewRoute("A", "B", FormatText).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	want := "ROUTE /route\n---\nformat: text\nfrom: A\nto: B\n---\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestRequestRoundTripWithMetadata(t *testing.T) {
	original := NewRoute("South Station", "Andrew", FormatMarkdown)

	var buf bytes.Buffer
	if _, err := original.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	parsed, err := ParseRequest(&buf)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}

	if parsed.Verb != original.Verb {
		t.Errorf("verb: got %q, want %q", parsed.Verb, original.Verb)
	}
	if parsed.Path != original.Path {
		t.Errorf("path: got %q, want %q", parsed.Path, original.Path)
	}
	for _, k := range []string{MetaFrom, MetaTo, MetaFormat} {
		if parsed.Metadata[k] != original.Metadata[k] {
			t.Errorf("%s: got %q, want %q", k, parsed.Metadata[k], original.Metadata[k])
		}
	}
}
