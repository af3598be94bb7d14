package transit

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func TestParseLines(t *testing.T) {
	input := `-red
Alewife Station
  Davis Station

-Braintree
North Quincy Station
`
	lines, order, err := ParseLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"red", "Braintree"}) {
		t.Errorf("order: got %v", order)
	}
	if got := lines["red"]; !reflect.DeepEqual(got, []string{"Alewife Station", "Davis Station"}) {
		t.Errorf("red: got %v", got)
	}
	if got := lines["Braintree"]; !reflect.DeepEqual(got, []string{"North Quincy Station"}) {
		t.Errorf("Braintree: got %v", got)
	}
}

func TestParseLinesErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"station before header", "Alewife Station\n-red\n", ErrNoHeader},
		{"empty header", "-\nAlewife Station\n", ErrEmptyLineName},
		{"duplicate header", "-red\nA\n-red\nB\n", ErrDuplicateLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseLines(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseConnections(t *testing.T) {
	input := "Braintree, red\n\n B ,Kenmore, green \nBraintree, red\n"
	got, err := ParseConnections(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Connection{
		{From: "Braintree", To: "red"},
		{From: "B", To: "Kenmore", Fallback: "green"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseConnectionsErrors(t *testing.T) {
	for _, input := range []string{"red\n", "a, b, c, d\n", " , red\n"} {
		if _, err := ParseConnections(strings.NewReader(input)); !errors.Is(err, ErrMalformedConnection) {
			t.Errorf("ParseConnections(%q): got %v, want %v", input, err, ErrMalformedConnection)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want error
	}{
		{
			name: "empty manifest",
			fsys: fstest.MapFS{ManifestFile: {Data: []byte("")}},
			want: ErrEmptyManifest,
		},
		{
			name: "unknown connection line",
			fsys: fstest.MapFS{
				ManifestFile: {Data: []byte("lines = [\"a.dat\"]\nconnections = \"c.dat\"\n")},
				"a.dat":      {Data: []byte("-a\nA1\n")},
				"c.dat":      {Data: []byte("a, nope\n")},
			},
			want: ErrUnknownLine,
		},
		{
			name: "line defined in two files",
			fsys: fstest.MapFS{
				ManifestFile: {Data: []byte("lines = [\"a.dat\", \"b.dat\"]\n")},
				"a.dat":      {Data: []byte("-a\nA1\n")},
				"b.dat":      {Data: []byte("-a\nA2\n")},
			},
			want: ErrDuplicateLine,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.fsys)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("missing line file", func(t *testing.T) {
		fsys := fstest.MapFS{ManifestFile: {Data: []byte("lines = [\"gone.dat\"]\n")}}
		if _, err := Load(fsys); err == nil {
			t.Fatal("expected error for missing line file")
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		if _, err := Load(fstest.MapFS{}); err == nil {
			t.Fatal("expected error for missing manifest")
		}
	})
}
