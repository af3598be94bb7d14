// Package render formats transit results for people: plain text for the
// interactive line protocol, markdown for terminal clients and HTML for
// browsers.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/latebit/tquery/internal/transit"
)

// Prompt is written before every command read in an interactive session.
const Prompt = "===>>> "

// Text messages of the interactive protocol.
const (
	InvalidCommand       = "Invalid command format.\n"
	DisambiguateStart    = "disambiguate your start: "
	DisambiguateDest     = "disambiguate your destination: "
	DisambiguateTarget   = "disambiguate your target: "
	OperationDone        = "done\n"
	NoSuchStart          = "no such start: "
	NoSuchDest           = "no such destination: "
	DisabledStart        = "disabled start: "
	DisabledDest         = "disabled destination: "
	NoSuchStationDisable = "no such station to disable: "
	NoSuchStationEnable  = "no such station to enable: "
	NoPathExists         = "No path exists.\n"
)

// Route writes the text form of a path query. from and to are the names
// the user typed; they are echoed back when nothing matched.
func Route(w io.Writer, res transit.QueryResult, from, to string) error {
	var b strings.Builder
	switch res.Kind {
	case transit.QueryOK:
		writeSteps(&b, res.Steps)
	case transit.AmbiguousStart:
		writeList(&b, DisambiguateStart, res.Suggestions)
	case transit.AmbiguousDestination:
		writeList(&b, DisambiguateDest, res.Suggestions)
	case transit.NoSuchStart:
		writeLine(&b, NoSuchStart, from)
	case transit.NoSuchDestination:
		writeLine(&b, NoSuchDest, to)
	case transit.StartDisabled:
		writeLine(&b, DisabledStart, res.Station)
	case transit.DestinationDisabled:
		writeLine(&b, DisabledDest, res.Station)
	case transit.NoPath:
		b.WriteString(NoPathExists)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Enable writes the text form of an enable operation on station.
func Enable(w io.Writer, station string, res transit.OperationResult) error {
	return operation(w, station, res, NoSuchStationEnable)
}

// Disable writes the text form of a disable operation on station.
func Disable(w io.Writer, station string, res transit.OperationResult) error {
	return operation(w, station, res, NoSuchStationDisable)
}

// Invalid writes the reply to an unparseable command.
func Invalid(w io.Writer) error {
	_, err := io.WriteString(w, InvalidCommand)
	return err
}

// Steps writes one text line per step.
func Steps(w io.Writer, steps []transit.Step) error {
	var b strings.Builder
	writeSteps(&b, steps)
	_, err := io.WriteString(w, b.String())
	return err
}

func operation(w io.Writer, station string, res transit.OperationResult, noSuch string) error {
	var b strings.Builder
	switch res.Kind {
	case transit.OpSuccessful:
		b.WriteString(OperationDone)
	case transit.OpDisambiguate:
		writeList(&b, DisambiguateTarget, res.Suggestions)
	case transit.OpNoSuchStation:
		writeLine(&b, noSuch, station)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSteps(b *strings.Builder, steps []transit.Step) {
	for _, s := range steps {
		switch s.Kind {
		case transit.StepRide:
			fmt.Fprintf(b, "%s, take %s\n", s.Station, s.Line)
		case transit.StepSwitch:
			fmt.Fprintf(b, "---switch from %s to %s\n", s.From, s.To)
		case transit.StepEnsure:
			fmt.Fprintf(b, "---ensure you are on %s\n", s.Line)
		}
	}
}

// writeList writes header followed by every item and a trailing space.
func writeList(b *strings.Builder, header string, items []string) {
	b.WriteString(header)
	for _, item := range items {
		b.WriteString(item)
		b.WriteByte(' ')
	}
	b.WriteByte('\n')
}

func writeLine(b *strings.Builder, header, s string) {
	b.WriteString(header)
	b.WriteString(s)
	b.WriteByte('\n')
}

// Stations writes one line per station: its name, its lines and a marker
// for disabled stations.
func Stations(w io.Writer, stations []transit.StationInfo) error {
	var b strings.Builder
	for _, s := range stations {
		fmt.Fprintf(&b, "%s [%s]", s.Name, strings.Join(s.Lines, ", "))
		if s.Disabled {
			b.WriteString(" (disabled)")
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
