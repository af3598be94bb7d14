// Package transit models a rapid transit system as a weighted graph of
// (station, line) nodes and answers route and station status queries.
//
// A Network is not safe for concurrent use. Callers sharing one instance
// must serialize every method call.
package transit

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/latebit/tquery/internal/graph"
)

// TransferCost is the weight of changing trains, expressed in stops.
const TransferCost = 2

// Reserved line labels of the synthetic endpoint nodes of transfer stations.
const (
	StartLine = "start_node"
	EndLine   = "end_node"
)

// Node is one line's stop at a station.
type Node struct {
	Station string
	Line    string
}

func (n Node) String() string {
	return n.Station + " (" + n.Line + ")"
}

// StationInfo describes a station for listings.
type StationInfo struct {
	Name     string
	Lines    []string
	Disabled bool
}

// Network holds the static line data, the set of disabled stations and
// the graph derived from them.
type Network struct {
	lines       map[string][]string
	order       []string
	connections []Connection

	disabled map[string]struct{}
	stations map[string][]Node
	graph    *graph.Labeled[Node]
	revision uint64
}

// New builds a network from line data. order fixes the sequence in which
// lines are added to the graph; it must name every key of lines exactly
// once. Connections must reference known lines.
func New(lines map[string][]string, order []string, conns []Connection) (*Network, error) {
	if len(order) != len(lines) {
		return nil, fmt.Errorf("line order has %d entries for %d lines", len(order), len(lines))
	}
	for _, name := range order {
		if _, ok := lines[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLine, name)
		}
	}
	for _, c := range conns {
		for _, name := range []string{c.From, c.To, c.Fallback} {
			if name == "" {
				continue
			}
			if _, ok := lines[name]; !ok {
				return nil, fmt.Errorf("connection %s-%s: %w: %q", c.From, c.To, ErrUnknownLine, name)
			}
		}
	}

	n := &Network{
		lines:       make(map[string][]string, len(lines)),
		order:       slices.Clone(order),
		connections: slices.Clone(conns),
		disabled:    make(map[string]struct{}),
	}
	for name, stations := range lines {
		n.lines[name] = slices.Clone(stations)
	}
	n.rebuild()
	return n, nil
}

// rebuild discards the graph and derives it again from the line data and
// the disabled set.
func (n *Network) rebuild() {
	n.stations = make(map[string][]Node)
	n.graph = graph.NewLabeled[Node]()

	for _, line := range n.order {
		var prev Node
		havePrev := false
		for _, name := range n.lines[line] {
			if n.isDisabled(name) {
				continue
			}
			node := Node{Station: name, Line: line}
			if !n.graph.Has(node) {
				n.graph.AddNode(node)
				for _, other := range n.stations[name] {
					n.graph.AddEdge(other, node, TransferCost, false)
				}
				n.stations[name] = append(n.stations[name], node)
			}
			if havePrev {
				n.graph.AddEdge(prev, node, graph.DefaultCost, false)
			}
			prev, havePrev = node, true
		}
	}

	for _, c := range n.connections {
		one, ok := n.firstEnabled(c.From)
		if !ok {
			continue
		}
		two, ok := n.lastEnabled(c.To)
		if !ok && c.Fallback != "" {
			two, ok = n.lastEnabled(c.Fallback)
		}
		if !ok {
			continue
		}
		for _, a := range n.stations[one] {
			for _, b := range n.stations[two] {
				n.graph.AddEdge(a, b, TransferCost, false)
			}
		}
	}

	names := make([]string, 0, len(n.stations))
	for name, nodes := range n.stations {
		if len(nodes) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		start := Node{Station: name, Line: StartLine}
		end := Node{Station: name, Line: EndLine}
		for _, node := range n.stations[name] {
			n.graph.AddEdge(start, node, 0, true)
			n.graph.AddEdge(node, end, 0, true)
		}
	}
}

func (n *Network) isDisabled(name string) bool {
	_, ok := n.disabled[name]
	return ok
}

func (n *Network) firstEnabled(line string) (string, bool) {
	for _, name := range n.lines[line] {
		if !n.isDisabled(name) {
			return name, true
		}
	}
	return "", false
}

func (n *Network) lastEnabled(line string) (string, bool) {
	stations := n.lines[line]
	for i := len(stations) - 1; i >= 0; i-- {
		if !n.isDisabled(stations[i]) {
			return stations[i], true
		}
	}
	return "", false
}

// Disambiguate matches name as a case-sensitive substring against every
// known station, enabled or not.
func (n *Network) Disambiguate(name string) Disambiguation {
	var matches []string
	seen := make(map[string]struct{})
	match := func(candidate string) {
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		if strings.Contains(candidate, name) {
			matches = append(matches, candidate)
		}
	}
	for candidate := range n.stations {
		match(candidate)
	}
	for candidate := range n.disabled {
		match(candidate)
	}

	if len(matches) == 1 {
		return Disambiguation{Station: matches[0]}
	}
	sort.Strings(matches)
	return Disambiguation{Suggestions: matches}
}

// FindPath finds the cheapest route between two possibly partial station
// names.
func (n *Network) FindPath(from, to string) QueryResult {
	start := n.Disambiguate(from)
	if !start.Found() {
		if len(start.Suggestions) == 0 {
			return QueryResult{Kind: NoSuchStart}
		}
		return QueryResult{Kind: AmbiguousStart, Suggestions: start.Suggestions}
	}
	dest := n.Disambiguate(to)
	if !dest.Found() {
		if len(dest.Suggestions) == 0 {
			return QueryResult{Kind: NoSuchDestination}
		}
		return QueryResult{Kind: AmbiguousDestination, Suggestions: dest.Suggestions}
	}

	src, ok := n.queryNode(start.Station, StartLine)
	if !ok {
		return QueryResult{Kind: StartDisabled, Station: start.Station}
	}
	dst, ok := n.queryNode(dest.Station, EndLine)
	if !ok {
		return QueryResult{Kind: DestinationDisabled, Station: dest.Station}
	}
	if start.Station == dest.Station {
		return QueryResult{Kind: QueryOK}
	}

	path, ok := n.graph.ShortestPath(src, dst)
	if !ok {
		return QueryResult{Kind: NoPath}
	}
	cost, _ := n.graph.PathCost(path)
	return QueryResult{Kind: QueryOK, Steps: Interpret(path), Cost: cost}
}

// queryNode picks the node a search enters or leaves a station through:
// the synthetic endpoint at transfer stations, the only node elsewhere.
func (n *Network) queryNode(station, endpoint string) (Node, bool) {
	nodes := n.stations[station]
	switch len(nodes) {
	case 0:
		return Node{}, false
	case 1:
		return nodes[0], true
	default:
		return Node{Station: station, Line: endpoint}, true
	}
}

// EnableStation puts a disabled station back into service.
func (n *Network) EnableStation(name string) OperationResult {
	return n.setEnabled(name, true)
}

// DisableStation takes a station out of service.
func (n *Network) DisableStation(name string) OperationResult {
	return n.setEnabled(name, false)
}

func (n *Network) setEnabled(name string, enable bool) OperationResult {
	d := n.Disambiguate(name)
	if !d.Found() {
		if len(d.Suggestions) == 0 {
			return OperationResult{Kind: OpNoSuchStation}
		}
		return OperationResult{Kind: OpDisambiguate, Suggestions: d.Suggestions}
	}

	if enable != n.isDisabled(d.Station) {
		return OperationResult{Kind: OpSuccessful, Station: d.Station}
	}
	if enable {
		delete(n.disabled, d.Station)
	} else {
		n.disabled[d.Station] = struct{}{}
	}
	n.revision++
	n.rebuild()
	return OperationResult{Kind: OpSuccessful, Station: d.Station, Changed: true}
}

// DisableExact disables every listed station that the network knows by
// exactly that name and rebuilds once. It returns the number of stations
// whose state changed.
func (n *Network) DisableExact(names []string) int {
	changed := 0
	for _, name := range names {
		if n.isDisabled(name) || !n.known(name) {
			continue
		}
		n.disabled[name] = struct{}{}
		changed++
	}
	if changed > 0 {
		n.revision++
		n.rebuild()
	}
	return changed
}

func (n *Network) known(name string) bool {
	for _, line := range n.order {
		if slices.Contains(n.lines[line], name) {
			return true
		}
	}
	return false
}

// Revision counts the mutations that changed the network since it was built.
func (n *Network) Revision() uint64 {
	return n.revision
}

// Lines returns line names in load order.
func (n *Network) Lines() []string {
	return slices.Clone(n.order)
}

// Disabled returns the disabled station names, sorted.
func (n *Network) Disabled() []string {
	out := make([]string, 0, len(n.disabled))
	for name := range n.disabled {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Stations lists every known station sorted by name, with the lines that
// serve it in load order.
func (n *Network) Stations() []StationInfo {
	index := make(map[string]int)
	var out []StationInfo
	for _, line := range n.order {
		for _, name := range n.lines[line] {
			i, ok := index[name]
			if !ok {
				i = len(out)
				index[name] = i
				out = append(out, StationInfo{Name: name, Disabled: n.isDisabled(name)})
			}
			if !slices.Contains(out[i].Lines, line) {
				out[i].Lines = append(out[i].Lines, line)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NodeCount returns the number of graph nodes, synthetic ones included.
func (n *Network) NodeCount() int {
	return n.graph.Len()
}
