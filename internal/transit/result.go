package transit

// QueryKind tags the outcome of FindPath.
type QueryKind int

const (
	QueryOK QueryKind = iota
	AmbiguousStart
	AmbiguousDestination
	NoSuchStart
	NoSuchDestination
	StartDisabled
	DestinationDisabled
	NoPath
)

var queryKindNames = map[QueryKind]string{
	QueryOK:              "ok",
	AmbiguousStart:       "ambiguous-start",
	AmbiguousDestination: "ambiguous-destination",
	NoSuchStart:          "no-such-start",
	NoSuchDestination:    "no-such-destination",
	StartDisabled:        "disabled-start",
	DestinationDisabled:  "disabled-destination",
	NoPath:               "no-path",
}

func (k QueryKind) String() string {
	if s, ok := queryKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// QueryResult is the outcome of a path query. Steps and Cost are set for
// QueryOK, Suggestions for the ambiguous kinds and Station for the disabled
// kinds. Cost is the summed edge weight of the route.
type QueryResult struct {
	Kind        QueryKind
	Steps       []Step
	Cost        int
	Suggestions []string
	Station     string
}

// IsStationDisabled reports whether either endpoint resolved to a station
// that has no surviving nodes.
func (r QueryResult) IsStationDisabled() bool {
	return r.Kind == StartDisabled || r.Kind == DestinationDisabled
}

// OpKind tags the outcome of EnableStation and DisableStation.
type OpKind int

const (
	OpSuccessful OpKind = iota
	OpDisambiguate
	OpNoSuchStation
)

func (k OpKind) String() string {
	switch k {
	case OpSuccessful:
		return "successful"
	case OpDisambiguate:
		return "disambiguate"
	case OpNoSuchStation:
		return "no-such-station"
	default:
		return "unknown"
	}
}

// OperationResult is the outcome of a station mutation. Station holds the
// resolved name on success; Changed is false when the station was already
// in the requested state.
type OperationResult struct {
	Kind        OpKind
	Suggestions []string
	Station     string
	Changed     bool
}

// StepKind tags a rider instruction.
type StepKind int

const (
	StepRide StepKind = iota
	StepSwitch
	StepEnsure
)

func (k StepKind) String() string {
	switch k {
	case StepRide:
		return "ride"
	case StepSwitch:
		return "switch"
	case StepEnsure:
		return "ensure"
	default:
		return "unknown"
	}
}

// Step is one rider instruction. Ride uses Station and Line, Switch uses
// From and To, Ensure uses Line.
type Step struct {
	Kind    StepKind
	Station string
	Line    string
	From    string
	To      string
}

// NewRide returns a step telling the rider to be at station on line.
func NewRide(station, line string) Step {
	return Step{Kind: StepRide, Station: station, Line: line}
}

// NewSwitch returns a step for changing trains within one station.
func NewSwitch(from, to string) Step {
	return Step{Kind: StepSwitch, From: from, To: to}
}

// NewEnsure returns a step telling the rider to board line.
func NewEnsure(line string) Step {
	return Step{Kind: StepEnsure, Line: line}
}

// Disambiguation is the outcome of resolving a user supplied name. Station
// is set when exactly one known station matched; otherwise Suggestions
// holds the sorted matches, possibly none.
type Disambiguation struct {
	Station     string
	Suggestions []string
}

// Found reports whether the name resolved to a single station.
func (d Disambiguation) Found() bool {
	return d.Station != ""
}
