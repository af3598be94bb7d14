package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"from South Station to Andrew Station", Command{Kind: Route, From: "South Station", To: "Andrew Station"}},
		{"from South to Andrew\n", Command{Kind: Route, From: "South", To: "Andrew"}},
		{"  from  Park Street   to Kendall  ", Command{Kind: Route, From: "Park Street", To: "Kendall"}},
		{"disable Park Street Station", Command{Kind: Disable, Station: "Park Street Station"}},
		{"enable Park Street Station\r\n", Command{Kind: Enable, Station: "Park Street Station"}},
		{"please disable Kendall", Command{Kind: Disable, Station: "Kendall"}},
		{"from Charles/MGH to Kendall", Command{Kind: Invalid}},
		{"from Alewife", Command{Kind: Invalid}},
		{"enable", Command{Kind: Invalid}},
		{"", Command{Kind: Invalid}},
		{"DISABLE Kendall", Command{Kind: Invalid}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{Route: "route", Enable: "enable", Disable: "disable", Invalid: "invalid"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
