// Package protocol implements the tquery wire protocol: a request line and
// optional YAML frontmatter from the client, a YAML frontmatter status block
// and markdown body from the server, one exchange per QUIC stream.
package protocol

import "strings"

const (
	// DefaultPort is the default port for tquery servers.
	DefaultPort = 6310

	// ALPN is the application-layer protocol negotiation identifier.
	ALPN = "tquery"
)

// Verbs.
const (
	// VerbRoute finds a route between the from and to metadata values.
	VerbRoute = "ROUTE"
	// VerbEnable puts the station named in metadata back into service.
	VerbEnable = "ENABLE"
	// VerbDisable takes the station named in metadata out of service.
	VerbDisable = "DISABLE"
	// VerbStations lists stations, or reports liveness on PathHealth.
	VerbStations = "STATIONS"
)

// Paths.
const (
	PathRoute    = "/route"
	PathStations = "/stations"
	PathHealth   = "/health"
)

// Metadata keys.
const (
	MetaFrom        = "from"
	MetaTo          = "to"
	MetaFormat      = "format"
	MetaStation     = "station"
	MetaAuth        = "auth"
	MetaResult      = "result"
	MetaSuggestions = "suggestions"
	MetaSteps       = "steps"
	MetaCost        = "cost"
	MetaRevision    = "revision"
)

// Body formats a client may ask for with MetaFormat.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// JoinList encodes a list as a newline separated metadata value.
func JoinList(items []string) string {
	return strings.Join(items, "\n")
}

// SplitList decodes a metadata value written by JoinList.
func SplitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, "\n")
}
