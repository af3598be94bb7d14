package main

import (
	"strings"
	"testing"
)

const stationTable = `# Stations

| Station | Lines | Status |
|---|---|---|
| Downtown Crossing Station | red, orange | open |
| Kendall Station | red | disabled |
| State Station | orange, blue | open |
`

func TestParseStationTable(t *testing.T) {
	items := parseStationTable(stationTable)
	if len(items) != 3 {
		t.Fatalf("got %d stations, want 3", len(items))
	}
	dtx := items[0]
	if dtx.name != "Downtown Crossing Station" {
		t.Errorf("name: got %q", dtx.name)
	}
	if len(dtx.lines) != 2 || dtx.lines[0] != "red" || dtx.lines[1] != "orange" {
		t.Errorf("lines: got %v", dtx.lines)
	}
	if dtx.disabled {
		t.Error("Downtown Crossing should be open")
	}
	if !items[1].disabled {
		t.Error("Kendall should be disabled")
	}
}

func TestParseStationTableIgnoresProse(t *testing.T) {
	if items := parseStationTable("# Stations\n\nNothing here.\n"); len(items) != 0 {
		t.Errorf("got %d stations, want 0", len(items))
	}
}

func TestGroupByLine(t *testing.T) {
	items := groupByLine(parseStationTable(stationTable))

	var got []string
	for _, it := range items {
		if it.station == nil {
			got = append(got, "#"+it.heading)
		} else {
			got = append(got, it.station.name)
		}
	}
	want := []string{
		"#blue", "State Station",
		"#orange", "Downtown Crossing Station", "State Station",
		"#red", "Downtown Crossing Station", "Kendall Station",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestGroupByLineEmpty(t *testing.T) {
	if items := groupByLine(nil); len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestNextStationSkipsHeadings(t *testing.T) {
	items := groupByLine(parseStationTable(stationTable))

	if got := nextStation(items, -1, 1); got != 1 {
		t.Errorf("first station: got %d, want 1", got)
	}
	if got := nextStation(items, 1, 1); got != 3 {
		t.Errorf("after State: got %d, want 3", got)
	}
	if got := nextStation(items, 3, -1); got != 1 {
		t.Errorf("before Downtown Crossing: got %d, want 1", got)
	}
	last := len(items) - 1
	if got := nextStation(items, last, 1); got != last {
		t.Errorf("past end: got %d, want %d", got, last)
	}
}

func TestRenderStationView(t *testing.T) {
	items := groupByLine(parseStationTable(stationTable))
	out := renderStationView(items, 1, 80)

	if !strings.Contains(out, "Stations") {
		t.Error("missing title")
	}
	if !strings.Contains(out, "> ") {
		t.Error("missing cursor")
	}
	if !strings.Contains(out, "✗ Kendall Station") {
		t.Error("disabled station should carry the disabled icon")
	}
	if !strings.Contains(out, "◎ Downtown Crossing Station") {
		t.Error("transfer station should carry the transfer icon")
	}
}

func TestRenderStationViewEmpty(t *testing.T) {
	if out := renderStationView(nil, 0, 80); !strings.Contains(out, "No stations") {
		t.Errorf("got %q", out)
	}
}

func TestRenderStationViewTruncates(t *testing.T) {
	items := []listItem{{station: &stationItem{name: strings.Repeat("x", 100), lines: []string{"red"}}}}
	out := renderStationView(items, 0, 30)
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "xxx") && len(line) > 30 {
			t.Errorf("line not truncated: %q", line)
		}
	}
}

func TestIsStationOp(t *testing.T) {
	if !isStationOp("disable Kendall") || !isStationOp("enable Kendall") {
		t.Error("enable and disable are station operations")
	}
	if isStationOp("from A to B") || isStationOp("stations") {
		t.Error("route and listing are not station operations")
	}
}
