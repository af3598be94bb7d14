package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/latebit/tquery/internal/transit"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// RouteMarkdown renders a path query as a markdown document.
func RouteMarkdown(res transit.QueryResult, from, to string) string {
	var b strings.Builder
	switch res.Kind {
	case transit.QueryOK:
		fmt.Fprintf(&b, "# %s to %s\n\n", from, to)
		if len(res.Steps) == 0 {
			b.WriteString("You are already there.\n")
			break
		}
		for i, s := range res.Steps {
			fmt.Fprintf(&b, "%d. ", i+1)
			switch s.Kind {
			case transit.StepRide:
				fmt.Fprintf(&b, "**%s**, take %s\n", s.Station, s.Line)
			case transit.StepSwitch:
				fmt.Fprintf(&b, "_switch from %s to %s_\n", s.From, s.To)
			case transit.StepEnsure:
				fmt.Fprintf(&b, "_ensure you are on %s_\n", s.Line)
			}
		}
	case transit.AmbiguousStart:
		markdownList(&b, "Which start?", res.Suggestions)
	case transit.AmbiguousDestination:
		markdownList(&b, "Which destination?", res.Suggestions)
	case transit.NoSuchStart:
		fmt.Fprintf(&b, "# No such start\n\nNo station matches `%s`.\n", from)
	case transit.NoSuchDestination:
		fmt.Fprintf(&b, "# No such destination\n\nNo station matches `%s`.\n", to)
	case transit.StartDisabled:
		fmt.Fprintf(&b, "# Disabled start\n\n%s is out of service.\n", res.Station)
	case transit.DestinationDisabled:
		fmt.Fprintf(&b, "# Disabled destination\n\n%s is out of service.\n", res.Station)
	case transit.NoPath:
		fmt.Fprintf(&b, "# No path\n\nNo path exists from %s to %s.\n", from, to)
	}
	return b.String()
}

// OperationMarkdown renders an enable or disable result. verb is the
// past participle shown on success, "enabled" or "disabled".
func OperationMarkdown(res transit.OperationResult, station, verb string) string {
	var b strings.Builder
	switch res.Kind {
	case transit.OpSuccessful:
		fmt.Fprintf(&b, "# Done\n\n%s is %s.\n", res.Station, verb)
	case transit.OpDisambiguate:
		markdownList(&b, "Which station?", res.Suggestions)
	case transit.OpNoSuchStation:
		fmt.Fprintf(&b, "# No such station\n\nNo station matches `%s`.\n", station)
	}
	return b.String()
}

// StationsMarkdown renders a station table.
func StationsMarkdown(stations []transit.StationInfo) string {
	var b strings.Builder
	b.WriteString("# Stations\n\n| Station | Lines | Status |\n|---|---|---|\n")
	for _, s := range stations {
		status := "open"
		if s.Disabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Name, strings.Join(s.Lines, ", "), status)
	}
	return b.String()
}

func markdownList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "# %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts a markdown document to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
