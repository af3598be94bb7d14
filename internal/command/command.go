// Package command parses the interactive query language:
//
//	from <station> to <station>
//	disable <station>
//	enable <station>
package command

import (
	"regexp"
	"strings"
)

// Kind identifies a parsed command.
type Kind int

const (
	Invalid Kind = iota
	Route
	Enable
	Disable
)

func (k Kind) String() string {
	switch k {
	case Route:
		return "route"
	case Enable:
		return "enable"
	case Disable:
		return "disable"
	default:
		return "invalid"
	}
}

// Command is a parsed input line. From and To are set for Route, Station
// for Enable and Disable.
type Command struct {
	Kind    Kind
	From    string
	To      string
	Station string
}

var (
	routeRe   = regexp.MustCompile(`from ([a-zA-Z ]+) to ([a-zA-Z ]+)`)
	disableRe = regexp.MustCompile(`disable ([a-zA-Z ]+)`)
	enableRe  = regexp.MustCompile(`enable ([a-zA-Z ]+)`)
)

// Parse recognizes the first matching command in line. Patterns are tried
// in the order route, disable, enable and need not anchor the whole line.
func Parse(line string) Command {
	if m := routeRe.FindStringSubmatch(line); m != nil {
		return Command{Kind: Route, From: strings.TrimSpace(m[1]), To: strings.TrimSpace(m[2])}
	}
	if m := disableRe.FindStringSubmatch(line); m != nil {
		return Command{Kind: Disable, Station: strings.TrimSpace(m[1])}
	}
	if m := enableRe.FindStringSubmatch(line); m != nil {
		return Command{Kind: Enable, Station: strings.TrimSpace(m[1])}
	}
	return Command{Kind: Invalid}
}
