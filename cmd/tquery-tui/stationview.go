package main

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// viewMode distinguishes between route answers and the station browser.
type viewMode int

const (
	viewAnswer viewMode = iota
	viewStations
)

// stationItem is one station row from a STATIONS listing.
type stationItem struct {
	name     string
	lines    []string
	disabled bool
}

// listItem is a flattened row of the station browser: a line heading or a
// station under it.
type listItem struct {
	heading string
	station *stationItem
}

// parseStationTable reads the markdown table of a STATIONS response.
func parseStationTable(body string) []stationItem {
	var items []stationItem
	for _, row := range strings.Split(body, "\n") {
		row = strings.TrimSpace(row)
		if !strings.HasPrefix(row, "|") || strings.HasPrefix(row, "|---") {
			continue
		}
		cells := strings.Split(strings.Trim(row, "|"), "|")
		if len(cells) != 3 {
			continue
		}
		name := strings.TrimSpace(cells[0])
		if name == "Station" {
			continue
		}
		var lines []string
		for _, l := range strings.Split(cells[1], ",") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		items = append(items, stationItem{
			name:     name,
			lines:    lines,
			disabled: strings.TrimSpace(cells[2]) == "disabled",
		})
	}
	return items
}

// groupByLine lists every line in name order with its stations under it.
// Transfer stations appear under each of their lines.
func groupByLine(stations []stationItem) []listItem {
	byLine := make(map[string][]*stationItem)
	for i := range stations {
		s := &stations[i]
		for _, l := range s.lines {
			byLine[l] = append(byLine[l], s)
		}
	}
	lines := make([]string, 0, len(byLine))
	for l := range byLine {
		lines = append(lines, l)
	}
	sort.Strings(lines)

	var items []listItem
	for _, l := range lines {
		items = append(items, listItem{heading: l})
		for _, s := range byLine[l] {
			items = append(items, listItem{station: s})
		}
	}
	return items
}

// renderStationView renders the browser as a string for the viewport.
func renderStationView(items []listItem, selectedIdx, width int) string {
	if len(items) == 0 {
		return "\n  No stations.\n"
	}

	var b strings.Builder
	b.WriteString("\n  Stations\n\n")

	for i, item := range items {
		cursor := "  "
		if i == selectedIdx {
			cursor = "> "
		}

		var line string
		if item.station == nil {
			line = fmt.Sprintf("%s%s", cursor, item.heading)
		} else {
			line = fmt.Sprintf("%s    %s %s", cursor, stationIcon(item.station), item.station.name)
		}

		if width > 5 && len(line) > width-2 {
			line = line[:width-5] + "..."
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\n  [f] route from  [t] route to  [x] toggle service  [esc] back  [q] quit\n")
	return b.String()
}

func stationIcon(s *stationItem) string {
	switch {
	case s.disabled:
		return "✗"
	case len(s.lines) > 1:
		return "◎"
	default:
		return "●"
	}
}

// nextStation returns the index of the next station row after i in
// direction dir, or i when there is none.
func nextStation(items []listItem, i, dir int) int {
	for j := i + dir; j >= 0 && j < len(items); j += dir {
		if items[j].station != nil {
			return j
		}
	}
	return i
}

// handleStationKey processes key events when the station browser is active.
func (m model) handleStationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.mode = viewAnswer
		m.viewport.SetContent(m.answer)
		return m, nil
	case "j", "down":
		m.stationIdx = nextStation(m.stationList, m.stationIdx, 1)
		m.refreshStations()
		return m, nil
	case "k", "up":
		m.stationIdx = nextStation(m.stationList, m.stationIdx, -1)
		m.refreshStations()
		return m, nil
	}

	s := m.selectedStation()
	if s == nil {
		return m, nil
	}
	switch msg.String() {
	case "f":
		m.mode = viewAnswer
		m.input.SetValue("from " + s.name + " to ")
		m.input.CursorEnd()
		m.input.Focus()
		m.viewport.SetContent(m.answer)
		return m, nil
	case "t":
		m.mode = viewAnswer
		from := strings.TrimPrefix(m.input.Value(), "from ")
		if i := strings.Index(from, " to "); i >= 0 {
			from = from[:i]
		}
		m.input.SetValue("from " + strings.TrimSpace(from) + " to " + s.name)
		m.input.Focus()
		m.viewport.SetContent(m.answer)
		return m, nil
	case "x":
		verb := "disable"
		if s.disabled {
			verb = "enable"
		}
		m.loading = true
		return m, m.doRequest(verb + " " + s.name)
	}
	return m, nil
}

func (m *model) refreshStations() {
	if m.ready {
		m.viewport.SetContent(renderStationView(m.stationList, m.stationIdx, m.width))
	}
}

func (m model) selectedStation() *stationItem {
	if m.stationIdx < 0 || m.stationIdx >= len(m.stationList) {
		return nil
	}
	return m.stationList[m.stationIdx].station
}
