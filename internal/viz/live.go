package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/experiment"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/sim"
)

const (
	historyCapacity = 600
	chartWidth      = 60
	chartHeight     = 8
	frameInterval   = time.Second / 30
)

var (
	statsStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(44)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(0, 1)
)

type TickMsg time.Time

// param is one tunable addressed as "<group>.<name>".
type param struct {
	group, name string
	initial     float64
}

func (p param) key() string { return p.group + "." + p.name }

// Model steps a drive experiment a few sampling periods per frame and shows
// speed, torque and flux histories next to the tunable parameters.
type Model struct {
	exp           *experiment.Experiment
	sim           *sim.Simulator
	tunables      map[string]dynamo.Configurable
	params        []param
	selected      int
	ticksPerFrame int
	ts            float64
	running       bool
	showHelp      bool
	err           error
	last          map[string]float64
	history       map[string][]float64
	time          float64
}

// NewModel wraps exp. ticksPerFrame sampling periods are simulated per
// redraw.
func NewModel(exp *experiment.Experiment, ticksPerFrame int) Model {
	if ticksPerFrame < 1 {
		ticksPerFrame = 1
	}
	tunables := exp.Tunables()
	params := make([]param, 0)
	for group, t := range tunables {
		for name, v := range t.GetParams() {
			params = append(params, param{group: group, name: name, initial: v})
		}
	}
	sort.Slice(params, func(i, j int) bool { return params[i].key() < params[j].key() })

	s := exp.GetSimulator()
	return Model{
		exp:           exp,
		sim:           s,
		tunables:      tunables,
		params:        params,
		ticksPerFrame: ticksPerFrame,
		ts:            s.Session().Controller().Parameters().Ts,
		running:       true,
		history:       make(map[string][]float64),
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			if len(m.params) > 0 {
				m.selected = (m.selected + 1) % len(m.params)
			}
		case "up", "k":
			m.adjust(1.05)
		case "down", "j":
			m.adjust(0.95)
		case "+", "=":
			m.ticksPerFrame *= 2
		case "-", "_":
			m.ticksPerFrame = max(1, m.ticksPerFrame/2)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) adjust(factor float64) {
	if len(m.params) == 0 {
		return
	}
	p := m.params[m.selected]
	t := m.tunables[p.group]
	v := t.GetParams()[p.name]
	if v == 0 {
		v = 1e-6
	}
	// rejected values leave the parameter unchanged
	_ = t.SetParam(p.name, v*factor)
}

func (m *Model) step() {
	err := m.sim.RunWithCallback(context.Background(), float64(m.ticksPerFrame)*m.ts, func(s dynamo.Sample) bool {
		m.push(s)
		return true
	})
	m.time = m.sim.Session().Time()
	if err != nil {
		m.err = err
		m.running = false
	}
}

func (m *Model) push(s dynamo.Sample) {
	m.last = s.Values
	for name, v := range s.Values {
		h := append(m.history[name], v)
		if len(h) > historyCapacity {
			h = h[len(h)-historyCapacity:]
		}
		m.history[name] = h
	}
}

func (m Model) chart(names ...string) string {
	data := make([][]float64, 0, len(names))
	for _, name := range names {
		h := m.history[name]
		if len(h) < 2 {
			return ""
		}
		data = append(data, finite(Downsample(h, chartWidth)))
	}
	return graphStyle.Render(asciigraph.PlotMany(data,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(seriesColors[:len(names)]...),
		asciigraph.SeriesLegends(names...),
	))
}

// View renders the TUI interface.
func (m Model) View() string {
	status := StatusRunning.Render("RUNNING")
	switch {
	case m.err != nil:
		status = StatusFailed.Render("STOPPED: " + m.err.Error())
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}

	charts := lipgloss.JoinVertical(lipgloss.Left,
		m.chart(fluxvec.ChanSpeedRef, fluxvec.ChanSpeed),
		m.chart(fluxvec.ChanTorqueRef, fluxvec.ChanTorque),
		m.chart(fluxvec.ChanFluxRef, fluxvec.ChanFlux),
	)

	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.exp.Config().Preset)) + "\n")
	s.WriteString(status + "\n\n")
	s.WriteString(MetricLabel.Render("time") + MetricValue.Render(fmt.Sprintf("%.3f s", m.time)) + "\n")
	s.WriteString(MetricLabel.Render("ticks/frame") + MetricValue.Render(fmt.Sprint(m.ticksPerFrame)) + "\n")
	for _, name := range []string{fluxvec.ChanSpeed, fluxvec.ChanTorque, fluxvec.ChanFlux, fluxvec.ChanDCVoltage} {
		s.WriteString(MetricLabel.Render(name) + MetricValue.Render(fmt.Sprintf("%.4g", m.last[name])) + "\n")
	}
	s.WriteString(MetricLabel.Render(fluxvec.ChanCurrentQ) + SparklineChart(m.history[fluxvec.ChanCurrentQ], 20) + "\n")

	s.WriteString("\nPARAMETERS\n")
	if len(m.params) == 0 {
		s.WriteString(KeyHint.Render("  (none)") + "\n")
	}
	for i, p := range m.params {
		v := m.tunables[p.group].GetParams()[p.name]
		ratio := 1.0
		if p.initial != 0 {
			ratio = v / p.initial
		}
		line := fmt.Sprintf("%-18s %s %.4g", p.key(), Gauge(ratio, 11), v)
		if i == m.selected {
			s.WriteString(ActiveParam.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	s.WriteString("\n" + Separator(40) + "\n")
	s.WriteString(KeyHint.Render("SP:pause  Q:quit  TAB:param  ↑↓:tune  +/-:speed  ?:help"))

	layout := lipgloss.JoinHorizontal(lipgloss.Top, charts, statsStyle.Render(s.String()))
	if m.showHelp {
		return Panel.Render(helpText) + "\n" + layout
	}
	return layout
}

const helpText = `space   pause or resume
tab     cycle parameters
up/k    increase parameter (+5%)
down/j  decrease parameter (-5%)
+/-     double or halve ticks per frame
?       toggle this help
q       quit`

// RunLive starts the interactive view for exp.
func RunLive(exp *experiment.Experiment, ticksPerFrame int) error {
	_, err := tea.NewProgram(NewModel(exp, ticksPerFrame), tea.WithAltScreen()).Run()
	return err
}
