package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-communities/pkg/community"
	"github.com/dd0wney/cluso-communities/pkg/graph"
	"github.com/dd0wney/cluso-communities/pkg/logging"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	paramBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	resultBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	setupView view = iota
	matrixView
	resultsView
)

type keyMap struct {
	Tab         key.Binding
	ShiftTab    key.Binding
	Run         key.Binding
	Mode        key.Binding
	Connected   key.Binding
	Generalized key.Binding
	KUp         key.Binding
	KDown       key.Binding
	TimeLimit   key.Binding
	Sample      key.Binding
	Path        key.Binding
	Up          key.Binding
	Down        key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Run: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run"),
	),
	Mode: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "variant"),
	),
	Connected: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "connected"),
	),
	Generalized: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "generalized"),
	),
	KUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "more communities"),
	),
	KDown: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "fewer communities"),
	),
	TimeLimit: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "time limit"),
	),
	Sample: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sample graph"),
	),
	Path: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "load file"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Run, k.Mode, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Run},
		{k.Mode, k.Connected, k.Generalized, k.KUp, k.KDown, k.TimeLimit},
		{k.Sample, k.Path, k.Up, k.Down, k.Quit},
	}
}

// Built-in graphs for quick exploration.
var samples = []struct {
	name  string
	build func() *graph.Graph
}{
	{"two triangles", func() *graph.Graph { return graph.Disjoint(graph.Complete(3), graph.Complete(3)) }},
	{"three triangles", func() *graph.Graph {
		return graph.Disjoint(graph.Disjoint(graph.Complete(3), graph.Complete(3)), graph.Complete(3))
	}},
	{"complete K6", func() *graph.Graph { return graph.Complete(6) }},
	{"path P8", func() *graph.Graph { return graph.Path(8) }},
	{"cycle C8", func() *graph.Graph { return graph.Cycle(8) }},
	{"star S7", func() *graph.Graph { return graph.Star(7) }},
}

var timeLimits = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	5 * time.Minute,
}

type model struct {
	currentView view
	keys        keyMap
	help        help.Model
	pathInput   textinput.Model
	resultTable table.Model
	spin        spinner.Model

	g         *graph.Graph
	source    string
	sampleIdx int

	maxMode     bool
	k           int
	connected   bool
	generalized bool
	limitIdx    int

	editing bool
	solving bool

	status     string
	variant    community.Variant
	partition  *community.Partition
	subgraph   *community.Subgraph
	elapsed    time.Duration
	message    string
	messageErr bool

	width  int
	height int
}

type solveDoneMsg struct {
	variant community.Variant
	p       *community.Partition
	sg      *community.Subgraph
	err     error
	elapsed time.Duration
}

func solveCmd(g *graph.Graph, variant community.Variant, k int, opts community.Options) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		start := time.Now()

		var (
			p   *community.Partition
			sg  *community.Subgraph
			err error
		)
		switch variant {
		case community.VariantKCommunity:
			p, err = community.FindKCommunities(ctx, g, k, opts)
		case community.VariantConnectedKCommunity:
			p, err = community.FindConnectedKCommunities(ctx, g, k, opts)
		case community.VariantMaxCommunity:
			sg, err = community.FindMaxCommunity(ctx, g, opts)
		case community.VariantConnectedMaxCommunity:
			sg, err = community.FindConnectedMaxCommunity(ctx, g, opts)
		}

		return solveDoneMsg{variant: variant, p: p, sg: sg, err: err, elapsed: time.Since(start)}
	}
}

func initialModel(path string) model {
	ti := textinput.New()
	ti.Placeholder = "matrix.json"
	ti.CharLimit = 200
	ti.Width = 50

	columns := []table.Column{
		{Title: "Community", Width: 10},
		{Title: "Size", Width: 6},
		{Title: "Members", Width: 48},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF"))

	m := model{
		currentView: setupView,
		keys:        keys,
		help:        help.New(),
		pathInput:   ti,
		resultTable: t,
		spin:        sp,
		k:           2,
		limitIdx:    2,
	}

	if path != "" {
		if err := m.loadFile(path); err != nil {
			m.message = err.Error()
			m.messageErr = true
			m.useSample(0)
		}
	} else {
		m.useSample(0)
	}

	return m
}

func (m *model) useSample(idx int) {
	m.sampleIdx = idx % len(samples)
	m.g = samples[m.sampleIdx].build()
	m.source = samples[m.sampleIdx].name
	m.clampK()
}

func (m *model) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %v", path, err)
	}
	var matrix [][]int
	if err := json.Unmarshal(raw, &matrix); err != nil {
		return fmt.Errorf("%s: expected a JSON adjacency matrix", path)
	}
	g, err := graph.FromRows(matrix)
	if err != nil {
		return fmt.Errorf("%s: %v", path, err)
	}
	m.g = g
	m.source = path
	m.clampK()
	return nil
}

func (m *model) clampK() {
	if m.g == nil {
		return
	}
	if m.k < 1 {
		m.k = 1
	}
	if m.k > m.g.N() {
		m.k = m.g.N()
	}
}

func (m *model) pickVariant() community.Variant {
	switch {
	case m.maxMode && m.connected:
		return community.VariantConnectedMaxCommunity
	case m.maxMode:
		return community.VariantMaxCommunity
	case m.connected:
		return community.VariantConnectedKCommunity
	default:
		return community.VariantKCommunity
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		if m.solving {
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}

	case solveDoneMsg:
		m.solving = false
		m.elapsed = msg.elapsed
		m.variant = msg.variant
		if msg.err != nil {
			m.applyError(msg.err)
			return m, nil
		}
		m.partition = msg.p
		m.subgraph = msg.sg
		m.status = "optimal"
		m.message = fmt.Sprintf("Solved %s in %s", msg.variant, msg.elapsed.Round(time.Millisecond))
		m.messageErr = false
		m.refreshTable()
		m.currentView = resultsView
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "enter":
				m.editing = false
				m.pathInput.Blur()
				if err := m.loadFile(strings.TrimSpace(m.pathInput.Value())); err != nil {
					m.message = err.Error()
					m.messageErr = true
				} else {
					m.message = fmt.Sprintf("Loaded %s", m.source)
					m.messageErr = false
				}
				return m, nil
			case "esc":
				m.editing = false
				m.pathInput.Blur()
				return m, nil
			default:
				m.pathInput, cmd = m.pathInput.Update(msg)
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % 3

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = 2
			} else {
				m.currentView--
			}

		case key.Matches(msg, m.keys.Run):
			if m.solving {
				m.message = "A solve is already running"
				m.messageErr = true
				return m, nil
			}
			if m.g == nil {
				m.message = "Load a graph first"
				m.messageErr = true
				return m, nil
			}
			m.solving = true
			m.message = ""
			opts := community.Options{
				TimeLimit:   timeLimits[m.limitIdx],
				Generalized: m.generalized,
				Logger:      logging.NewNopLogger(),
			}
			return m, tea.Batch(m.spin.Tick, solveCmd(m.g, m.pickVariant(), m.k, opts))

		case key.Matches(msg, m.keys.Mode):
			m.maxMode = !m.maxMode

		case key.Matches(msg, m.keys.Connected):
			m.connected = !m.connected

		case key.Matches(msg, m.keys.Generalized):
			m.generalized = !m.generalized

		case key.Matches(msg, m.keys.KUp):
			m.k++
			m.clampK()

		case key.Matches(msg, m.keys.KDown):
			m.k--
			m.clampK()

		case key.Matches(msg, m.keys.TimeLimit):
			m.limitIdx = (m.limitIdx + 1) % len(timeLimits)

		case key.Matches(msg, m.keys.Sample):
			m.useSample(m.sampleIdx + 1)
			m.message = fmt.Sprintf("Loaded sample: %s", m.source)
			m.messageErr = false

		case key.Matches(msg, m.keys.Path):
			m.editing = true
			m.pathInput.Focus()
			return m, textinput.Blink
		}
	}

	if m.currentView == resultsView {
		m.resultTable, cmd = m.resultTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) applyError(err error) {
	m.partition = nil
	m.subgraph = nil

	var te *community.TimeoutError
	switch {
	case errors.As(err, &te) && (te.Partition != nil || te.Subgraph != nil):
		m.partition = te.Partition
		m.subgraph = te.Subgraph
		m.status = "timeout"
		m.message = fmt.Sprintf("Time limit hit after %s, showing the best solution found", te.Limit)
		m.messageErr = false
		m.refreshTable()
		m.currentView = resultsView
	case community.IsInfeasible(err):
		m.status = "infeasible"
		m.message = "No feasible community structure for these parameters"
		m.messageErr = true
	case community.IsInvalidInput(err):
		m.status = "invalid"
		m.message = err.Error()
		m.messageErr = true
	default:
		m.status = "error"
		m.message = err.Error()
		m.messageErr = true
	}
}

func (m *model) refreshTable() {
	if m.partition == nil {
		m.resultTable.SetRows(nil)
		return
	}

	rows := make([]table.Row, 0, len(m.partition.Members))
	idx := 0
	for _, members := range m.partition.Members {
		if len(members) == 0 {
			continue
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("%d", len(members)),
			formatVertices(members, 48),
		})
		idx++
	}
	m.resultTable.SetRows(rows)
}

func formatVertices(vs []int, width int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%d", v)
	}
	joined := strings.Join(parts, " ")
	if len(joined) > width {
		joined = joined[:width-3] + "..."
	}
	return joined
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Community Explorer"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case setupView:
		s.WriteString(m.renderSetup())
	case matrixView:
		s.WriteString(m.renderMatrix())
	case resultsView:
		s.WriteString(m.renderResults())
	}

	if m.solving {
		s.WriteString("\n\n")
		s.WriteString(contentStyle.Render(m.spin.View() + " Solving..."))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(contentStyle.Render(errorStyle.Render("✗ " + m.message)))
		} else {
			s.WriteString(contentStyle.Render(successStyle.Render("✓ " + m.message)))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Setup", "Matrix", "Results"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderSetup() string {
	mode := "k communities"
	if m.maxMode {
		mode = "maximum community"
	}
	connected := "no"
	if m.connected {
		connected = "yes"
	}
	generalized := "no"
	if m.generalized {
		generalized = "yes"
	}

	graphLine := "none"
	if m.g != nil {
		graphLine = fmt.Sprintf("%s (%d vertices, %d edges)", m.source, m.g.N(), m.g.EdgeCount())
	}

	var params strings.Builder
	fmt.Fprintf(&params, "Graph:       %s\n", graphLine)
	fmt.Fprintf(&params, "Mode:        %s\n", mode)
	if !m.maxMode {
		fmt.Fprintf(&params, "k:           %d\n", m.k)
		fmt.Fprintf(&params, "Generalized: %s\n", generalized)
	}
	fmt.Fprintf(&params, "Connected:   %s\n", connected)
	fmt.Fprintf(&params, "Time limit:  %s", timeLimits[m.limitIdx])

	actions := `Actions
━━━━━━━━━━━━━━━
[enter]  run solve
[v]      toggle variant
[+/-]    adjust k
[c]      connected
[g]      generalized
[t]      time limit
[s]      next sample
[p]      load a file`

	paramBox := paramBoxStyle.Render(params.String())
	actionsBox := paramBoxStyle.Render(actions)
	content := lipgloss.JoinHorizontal(lipgloss.Top, paramBox, actionsBox)

	if m.editing {
		content += "\n\nMatrix file path:\n" + m.pathInput.View()
	}

	return contentStyle.Render(content)
}

func (m model) renderMatrix() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Adjacency Matrix"))
	s.WriteString("\n\n")

	switch {
	case m.g == nil:
		s.WriteString("No graph loaded")
	case m.g.N() > 24:
		s.WriteString(fmt.Sprintf("%d vertices, %d edges: too large to draw", m.g.N(), m.g.EdgeCount()))
	default:
		rows := m.g.Rows()
		var grid strings.Builder
		for _, row := range rows {
			for j, cell := range row {
				if j > 0 {
					grid.WriteByte(' ')
				}
				fmt.Fprintf(&grid, "%d", cell)
			}
			grid.WriteByte('\n')
		}
		s.WriteString(resultBoxStyle.Render(strings.TrimRight(grid.String(), "\n")))
	}

	return contentStyle.Render(s.String())
}

func (m model) renderResults() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Results"))
	s.WriteString("\n\n")

	switch {
	case m.partition != nil:
		s.WriteString(fmt.Sprintf("%s  status: %s  communities: %d  rounds: %d  cuts: %d  took: %s\n\n",
			m.variant, m.status, m.partition.CommunityCount(),
			m.partition.Rounds, m.partition.Cuts, m.elapsed.Round(time.Millisecond)))
		s.WriteString(m.resultTable.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("Navigate with ↑/↓"))
	case m.subgraph != nil:
		s.WriteString(fmt.Sprintf("%s  status: %s  rounds: %d  cuts: %d  took: %s\n\n",
			m.variant, m.status, m.subgraph.Rounds, m.subgraph.Cuts,
			m.elapsed.Round(time.Millisecond)))
		body := fmt.Sprintf("Community of %d vertices\n\n%s",
			m.subgraph.Size(), formatVertices(m.subgraph.Vertices, 60))
		s.WriteString(resultBoxStyle.Render(body))
	default:
		s.WriteString("No results yet: run a solve from the Setup view")
	}

	return contentStyle.Render(s.String())
}

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	p := tea.NewProgram(initialModel(path), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
