package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/latebit/tquery/internal/cache"
	"github.com/latebit/tquery/internal/client"
	"github.com/latebit/tquery/internal/command"
	"github.com/latebit/tquery/protocol"
)

var errUnknownCommand = errors.New("unknown command (try: from A to B, disable X, enable X, stations, health)")

type focus int

const (
	focusInput focus = iota
	focusViewport
)

type model struct {
	input       textinput.Model
	viewport    viewport.Model
	focus       focus
	mode        viewMode
	host        string
	token       string
	status      string
	metadata    map[string]string
	fromCache   bool
	err         error
	loading     bool
	client      transitClient
	answer      string
	pendingBody string
	stationList []listItem
	stationIdx  int
	width       int
	height      int
	ready       bool
}

// transitClient is the subset of client.Client the REPL calls.
type transitClient interface {
	Route(host, from, to string) (client.Result, error)
	Stations(host string) (client.Result, error)
	Health(host string) (client.Result, error)
	Enable(host, station, token string) (client.Result, error)
	Disable(host, station, token string) (client.Result, error)
}

type requestResult struct {
	line   string
	result client.Result
	err    error
}

func initialModel(host, token, initial string, c transitClient) model {
	ti := textinput.New()
	ti.Placeholder = "from Park Street to Kendall"
	ti.Prompt = "> "
	ti.SetValue(initial)
	ti.Focus()

	return model{
		input:  ti,
		focus:  focusInput,
		host:   host,
		token:  token,
		client: c,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.input.Value() != "" {
		cmds = append(cmds, m.doRequest(m.input.Value()))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == 0 {
			m.focus = focusInput
			m.input.Focus()
			return m, textinput.Blink
		}
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case requestResult:
		return m.handleResult(msg)
	}

	return m, nil
}

// chromeHeight is the input line, the divider and the status bar.
const chromeHeight = 3

func (m model) resize(width, height int) model {
	m.width, m.height = width, height
	m.input.Width = width - 4
	vh := max(height-chromeHeight, 1)

	if m.ready {
		m.viewport.Width = width
		m.viewport.Height = vh
		return m
	}

	m.viewport = viewport.New(width, vh)
	m.ready = true
	switch {
	case m.err != nil:
		m.viewport.SetContent(errorView(m.err))
	case m.pendingBody != "":
		m.answer = renderOrRaw(m.pendingBody, width)
		m.viewport.SetContent(m.answer)
		m.pendingBody = ""
	}
	return m
}

func (m model) handleResult(msg requestResult) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.err = msg.err
		m.status = ""
		m.metadata = nil
		m.fromCache = false
		if m.ready {
			m.viewport.SetContent(errorView(msg.err))
		}
		return m, nil
	}
	m.err = nil
	m.status = msg.result.Response.Status
	m.metadata = msg.result.Response.Metadata
	m.fromCache = msg.result.FromCache
	body := msg.result.Response.Body

	if isStationsLine(msg.line) && m.status == protocol.StatusOK {
		m.stationList = groupByLine(parseStationTable(body))
		m.stationIdx = nextStation(m.stationList, -1, 1)
		m.mode = viewStations
		m.focus = focusViewport
		m.input.Blur()
		m.refreshStations()
		return m, tea.ClearScreen
	}

	// Toggling a station from the browser refreshes the listing.
	if m.mode == viewStations && m.status == protocol.StatusOK && isStationOp(msg.line) {
		return m, m.doRequest("stations")
	}

	if m.ready {
		m.answer = renderOrRaw(body, m.width)
		m.viewport.SetContent(m.answer)
		m.viewport.GotoTop()
	} else {
		m.pendingBody = body
	}
	m.mode = viewAnswer
	m.focus = focusViewport
	m.input.Blur()
	return m, tea.ClearScreen
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		return m.toggleFocus(), nil
	}

	if m.focus == focusInput {
		switch msg.Type {
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			if line != "" {
				m.loading = true
				m.err = nil
				return m, m.doRequest(line)
			}
			return m, nil
		case tea.KeyEscape:
			m.focus = focusViewport
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.mode == viewStations {
		return m.handleStationKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "s":
		m.loading = true
		return m, m.doRequest("stations")
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) toggleFocus() model {
	if m.focus == focusInput {
		m.focus = focusViewport
		m.input.Blur()
	} else {
		m.focus = focusInput
		m.input.Focus()
	}
	return m
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	barStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Width(m.width)
	if m.focus == focusInput {
		barStyle = barStyle.Bold(true)
	}
	b.WriteString(barStyle.Render(m.input.View()))
	b.WriteByte('\n')

	b.WriteString(strings.Repeat("─", m.width))
	b.WriteByte('\n')

	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	b.WriteString(m.statusBarView())

	return b.String()
}

func (m model) statusBarView() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1)

	if m.loading {
		return style.Render("Loading...")
	}
	if m.err != nil {
		return style.Foreground(lipgloss.Color("9")).Render("Error: " + m.err.Error())
	}
	if m.status == "" {
		return style.Faint(true).Render(m.host + "  type a command and press Enter, [s] stations")
	}

	parts := []string{m.host, "[" + m.status + "]"}
	if m.fromCache {
		parts = append(parts, "(cached)")
	}
	if v, ok := m.metadata[protocol.MetaSteps]; ok {
		parts = append(parts, v+" steps")
	}
	if v, ok := m.metadata[protocol.MetaCost]; ok {
		parts = append(parts, "cost "+v)
	}
	if v, ok := m.metadata[protocol.MetaRevision]; ok {
		parts = append(parts, "rev "+v)
	}
	scroll := fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
	parts = append(parts, scroll)

	if m.status != protocol.StatusOK {
		style = style.Foreground(lipgloss.Color("11"))
	}
	return style.Render(strings.Join(parts, "  "))
}

func isStationsLine(line string) bool {
	return strings.TrimSpace(line) == "stations"
}

func isStationOp(line string) bool {
	k := command.Parse(line).Kind
	return k == command.Enable || k == command.Disable
}

// doRequest maps an input line to a client call.
func (m model) doRequest(line string) tea.Cmd {
	return func() tea.Msg {
		var (
			res client.Result
			err error
		)
		switch strings.TrimSpace(line) {
		case "stations":
			res, err = m.client.Stations(m.host)
		case "health":
			res, err = m.client.Health(m.host)
		default:
			cmd := command.Parse(line)
			switch cmd.Kind {
			case command.Route:
				res, err = m.client.Route(m.host, cmd.From, cmd.To)
			case command.Enable:
				res, err = m.client.Enable(m.host, cmd.Station, m.token)
			case command.Disable:
				res, err = m.client.Disable(m.host, cmd.Station, m.token)
			default:
				err = errUnknownCommand
			}
		}
		return requestResult{line: line, result: res, err: err}
	}
}

func renderOrRaw(body string, width int) string {
	rendered, err := renderMarkdown(body, width)
	if err != nil {
		return body
	}
	return rendered
}

func renderMarkdown(body string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return "", err
	}
	return r.Render(body)
}

func errorView(err error) string {
	return fmt.Sprintf("\n  Error: %s\n", err.Error())
}

func main() {
	hostFlag := flag.String("host", "", "server host[:port] or tquery:// URL")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	token := flag.String("auth", os.Getenv("TQUERY_AUTH"), "auth token for enable and disable")
	noCache := flag.Bool("no-cache", false, "disable the offline answer cache")
	flag.Parse()

	raw := *hostFlag
	if raw == "" {
		raw = os.Getenv("TQUERY_HOST")
	}
	if raw == "" {
		raw = "localhost"
	}
	host, err := client.ParseURL(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opts := client.Options{
		Insecure: *insecure,
		Format:   protocol.FormatMarkdown,
	}
	if !*noCache {
		opts.Cache = cache.New(cache.DefaultDir())
	}
	c := client.New(opts)
	defer c.Close()

	p := tea.NewProgram(
		initialModel(host, *token, strings.Join(flag.Args(), " "), c),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
