// Package monitor renders a live grill dashboard in the terminal.
//
// The model subscribes to state pushes from a connected client and redraws
// on every update. It only reads from the grill; all control commands stay
// on the command line.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opengrill/pitboss"
	"github.com/opengrill/pitboss/grills"
)

// stateMsg carries one merged state snapshot from the client.
type stateMsg grills.State

// tickMsg refreshes the clock-driven parts of the view.
type tickMsg time.Time

// keyMap defines key bindings for the monitor screen
type keyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit},
	}
}

// outputFlags are the controller outputs shown in the OUTPUTS row, in
// display order. Boards that lack a flag simply omit the key.
var outputFlags = []struct{ key, label string }{
	{"moduleIsOn", "Module"},
	{"fanState", "Fan"},
	{"hotState", "Igniter"},
	{"motorState", "Auger"},
	{"lightState", "Light"},
	{"primeState", "Prime"},
}

// errorFlags are the controller fault bits, in display order.
var errorFlags = []struct{ key, label string }{
	{"err1", "Probe 1 fault"},
	{"err2", "Probe 2 fault"},
	{"err3", "Probe 3 fault"},
	{"highTempErr", "Over temperature"},
	{"fanErr", "Fan failure"},
	{"hotErr", "Igniter failure"},
	{"motorErr", "Auger failure"},
	{"noPellets", "No pellets"},
	{"erL", "ErL"},
}

// Model is the bubbletea model for the live dashboard.
type Model struct {
	grill     *grills.Grill
	states    <-chan grills.State
	connected func() bool

	state      grills.State
	lastUpdate time.Time

	width  int
	height int

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// New builds a monitor attached to client. The subscription stays alive for
// the life of the client; the channel buffers a handful of pushes and drops
// the rest, the next push always catches the view up.
func New(client *pitboss.PitBoss) Model {
	states := make(chan grills.State, 8)
	client.SubscribeState(func(s grills.State) {
		select {
		case states <- s:
		default:
		}
	})

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	keys := keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return Model{
		grill:     client.Spec,
		states:    states,
		connected: client.IsConnected,
		spinner:   s,
		help:      help.New(),
		keys:      keys,
	}
}

// Init starts the state pump, the spinner, and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), m.spinner.Tick, tick())
}

// waitForState blocks until the next state push and delivers it as a message.
func waitForState(states <-chan grills.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case stateMsg:
		m.state = grills.State(msg)
		m.lastUpdate = time.Now()
		return m, waitForState(m.states)

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	divider := dividerStyle.Render(strings.Repeat("─", m.contentWidth()))

	var body string
	if m.state == nil {
		body = fmt.Sprintf("\n  %s waiting for the first status push...\n", m.spinner.View())
	} else {
		sections := []string{
			m.renderTemperatures(),
			"",
			m.renderOutputs(),
			"",
			m.renderErrors(),
		}
		if recipe := m.renderRecipe(); recipe != "" {
			sections = append(sections, "", recipe)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	footer := lipgloss.JoinHorizontal(lipgloss.Top,
		subtleStyle.Render(m.updatedAgo()),
		"   ",
		m.help.View(m.keys),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		divider,
		body,
		divider,
		footer,
	) + "\n"
}

// renderHeader shows the grill identity and the connection status.
func (m Model) renderHeader() string {
	title := titleStyle.Render("PIT BOSS MONITOR")
	grill := subtleStyle.Render(fmt.Sprintf("%s (%s board)", m.grill.Name, m.grill.ControlBoard.Name))

	status := disconnectedStyle.Render("○ DISCONNECTED")
	if m.connected() {
		status = connectedStyle.Render("● CONNECTED")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", grill, "  ", status)
}

// renderTemperatures renders one row per readout: the grill itself, the
// smoker chamber on boards that report it, and each meat probe.
func (m Model) renderTemperatures() string {
	unit := "°F"
	if f, ok := m.state.Bool("isFahrenheit"); ok && !f {
		unit = "°C"
	}

	rows := []string{sectionStyle.Render("TEMPERATURES")}
	rows = append(rows, m.tempRow("Grill", "grillTemp", "grillSetTemp", unit))
	if _, ok := m.state["smokerActTemp"]; ok {
		rows = append(rows, m.tempRow("Smoker", "smokerActTemp", "", unit))
	}
	for i := 1; i <= m.grill.MeatProbes; i++ {
		target := fmt.Sprintf("p%dTarget", i)
		if _, ok := m.state[target]; !ok {
			target = ""
		}
		rows = append(rows, m.tempRow(fmt.Sprintf("Probe %d", i), fmt.Sprintf("p%dTemp", i), target, unit))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// tempRow renders "Label   actual   set target". A disconnected probe shows
// "--"; an empty targetKey suppresses the target column.
func (m Model) tempRow(label, actualKey, targetKey, unit string) string {
	actual := "--"
	if v, ok := m.state.Int(actualKey); ok {
		actual = fmt.Sprintf("%d%s", v, unit)
	}

	row := lipgloss.JoinHorizontal(lipgloss.Left,
		"  ",
		labelStyle.Render(label),
		valueStyle.Render(actual),
	)

	if targetKey != "" {
		if v, ok := m.state.Int(targetKey); ok {
			row = lipgloss.JoinHorizontal(lipgloss.Left, row,
				subtleStyle.Render(fmt.Sprintf("set %d%s", v, unit)))
		}
	}

	return row
}

// renderOutputs renders the controller output flags as a single dot row.
func (m Model) renderOutputs() string {
	var parts []string
	for _, f := range outputFlags {
		v, ok := m.state.Bool(f.key)
		if !ok {
			continue
		}
		if v {
			parts = append(parts, flagOnStyle.Render("● "+f.label))
		} else {
			parts = append(parts, flagOffStyle.Render("○ "+f.label))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render("OUTPUTS"),
		"  "+strings.Join(parts, "   "),
	)
}

// renderErrors lists the active fault bits, or a green "none".
func (m Model) renderErrors() string {
	var active []string
	for _, f := range errorFlags {
		if v, ok := m.state.Bool(f.key); ok && v {
			active = append(active, f.label)
		}
	}

	title := sectionStyle.Render("ERRORS")
	if len(active) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "  "+okStyle.Render("none"))
	}

	lines := []string{title}
	for _, label := range active {
		lines = append(lines, "  "+errorStyle.Render("✗ "+label))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderRecipe shows the running recipe step and its remaining time.
func (m Model) renderRecipe() string {
	step, okStep := m.state.Int("recipeStep")
	secs, okTime := m.state.Int("recipeTime")
	if !okStep && !okTime {
		return ""
	}

	var parts []string
	if okStep {
		parts = append(parts, fmt.Sprintf("Step %d", step))
	}
	if okTime {
		parts = append(parts, formatClock(secs))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render("RECIPE"),
		"  "+strings.Join(parts, " • "),
	)
}

func (m Model) updatedAgo() string {
	if m.lastUpdate.IsZero() {
		return "no updates yet"
	}
	return fmt.Sprintf("updated %s ago", time.Since(m.lastUpdate).Round(time.Second))
}

// contentWidth keeps the dividers inside the terminal and caps them at a
// readable width.
func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width - 2
	if w > 100 {
		w = 100
	}
	return w
}

// formatClock renders seconds as H:MM:SS, matching the controller display.
func formatClock(secs int) string {
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
