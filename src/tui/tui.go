// Package tui is a terminal front end for the sequencer.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jinjor/desktop-sequencer/src/sequencer"
)

var (
	accent = lipgloss.Color("#F5A623")
	gray   = lipgloss.Color("#666666")
	light  = lipgloss.Color("#DDDDDD")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginBottom(1)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Width(5)

	onStyle     = lipgloss.NewStyle().Foreground(light).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(gray)
	playStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	cursorStyle = lipgloss.NewStyle().Reverse(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(light).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(gray).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

const tempoStep = 5

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

type keyMap struct {
	Up, Down, Left, Right key.Binding
	Toggle, Play          key.Binding
	AddStep, RemoveStep   key.Binding
	Reset, Mute           key.Binding
	Waveform, Delay       key.Binding
	Faster, Slower        key.Binding
	Help, Quit            key.Binding
}

var keys = keyMap{
	Up:         binding("up", "up", "k"),
	Down:       binding("down", "down", "j"),
	Left:       binding("left", "left", "h"),
	Right:      binding("right", "right", "l"),
	Toggle:     binding("toggle", "enter", "t"),
	Play:       key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/stop")),
	AddStep:    binding("add step", "a"),
	RemoveStep: binding("remove step", "r"),
	Reset:      binding("reset", "x"),
	Mute:       binding("mute", "m"),
	Waveform:   binding("waveform", "w"),
	Delay:      binding("delay", "d"),
	Faster:     binding("tempo up", "+", "="),
	Slower:     binding("tempo down", "-", "_"),
	Help:       binding("more", "?"),
	Quit:       binding("quit", "q", "ctrl+c"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Play, k.Mute, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.Play, k.AddStep, k.RemoveStep},
		{k.Reset, k.Mute, k.Waveform, k.Delay},
		{k.Faster, k.Slower, k.Help, k.Quit},
	}
}

// Dispatcher is the part of the app the view drives.
type Dispatcher interface {
	Dispatch(action sequencer.Action) error
	Model() sequencer.Model
}

type Model struct {
	app      Dispatcher
	updates  <-chan sequencer.Model
	seq      sequencer.Model
	row      int
	col      int
	err      error
	help     help.Model
	quitting bool
}

// ModelMsg carries a new sequencer model from the app.
type ModelMsg struct {
	Model sequencer.Model
	ok    bool
}

func NewModel(app Dispatcher, updates <-chan sequencer.Model) Model {
	return Model{app: app, updates: updates, seq: app.Model(), help: help.New()}
}

func ListenForUpdates(updates <-chan sequencer.Model) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-updates
		return ModelMsg{Model: m, ok: ok}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case ModelMsg:
		if !msg.ok {
			m.quitting = true
			return m, tea.Quit
		}
		m.seq = msg.Model
		m.clampCursor()
		return m, ListenForUpdates(m.updates)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	seq := m.seq.Sequencer
	var action sequencer.Action
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		if seq.Running {
			m.err = m.app.Dispatch(sequencer.Stop{})
		}
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Up):
		m.row--
	case key.Matches(msg, keys.Down):
		m.row++
	case key.Matches(msg, keys.Left):
		m.col--
	case key.Matches(msg, keys.Right):
		m.col++
	case key.Matches(msg, keys.Toggle):
		if m.row < len(seq.Rows) {
			action = sequencer.ToggleStep{Note: seq.Rows[m.row].Name, Step: m.col}
		}
	case key.Matches(msg, keys.Play):
		if seq.Running {
			action = sequencer.Stop{}
		} else {
			action = sequencer.Play{}
		}
	case key.Matches(msg, keys.AddStep):
		action = sequencer.AddStep{}
	case key.Matches(msg, keys.RemoveStep):
		action = sequencer.RemoveStep{}
	case key.Matches(msg, keys.Reset):
		action = sequencer.ResetSteps{}
	case key.Matches(msg, keys.Mute):
		action = sequencer.MuteToggle{}
	case key.Matches(msg, keys.Waveform):
		action = sequencer.ChangeWaveform{Type: nextWaveform(m.seq.Synth.Waveform)}
	case key.Matches(msg, keys.Delay):
		if m.seq.Synth.DelayTime == sequencer.LongDelay {
			action = sequencer.ChangeDelay{Length: "short"}
		} else {
			action = sequencer.ChangeDelay{Length: "long"}
		}
	case key.Matches(msg, keys.Faster):
		action = sequencer.SetTempo{BPM: seq.Tempo + tempoStep}
	case key.Matches(msg, keys.Slower):
		action = sequencer.SetTempo{BPM: seq.Tempo - tempoStep}
	}
	if action != nil {
		m.err = m.app.Dispatch(action)
		m.seq = m.app.Model()
	}
	m.clampCursor()
	return m, nil
}

func (m *Model) clampCursor() {
	seq := m.seq.Sequencer
	if m.row >= len(seq.Rows) {
		m.row = len(seq.Rows) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	if m.col >= seq.StepCount {
		m.col = seq.StepCount - 1
	}
	if m.col < 0 {
		m.col = 0
	}
}

func nextWaveform(w sequencer.Waveform) sequencer.Waveform {
	for i, v := range sequencer.Waveforms {
		if v == w {
			return sequencer.Waveforms[(i+1)%len(sequencer.Waveforms)]
		}
	}
	return sequencer.Waveforms[0]
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	seq := m.seq.Sequencer
	var b strings.Builder
	b.WriteString(titleStyle.Render("desktop-sequencer"))
	b.WriteString("\n")

	var grid strings.Builder
	for r, row := range seq.Rows {
		grid.WriteString(nameStyle.Render(row.Name))
		for c, on := range row.Steps {
			cell := "·"
			style := offStyle
			if on {
				cell = "■"
				style = onStyle
			}
			if seq.Running && c == seq.Step {
				style = playStyle
			}
			if r == m.row && c == m.col {
				style = style.Inherit(cursorStyle)
			}
			grid.WriteString(" " + style.Render(cell))
		}
		grid.WriteString("\n")
	}
	b.WriteString(boxStyle.Render(strings.TrimRight(grid.String(), "\n")))
	b.WriteString("\n")

	state := "stopped"
	if seq.Running {
		state = "playing"
	}
	mute := "muted"
	if m.seq.Synth.MasterGain == 1 {
		mute = "on"
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s  step %d/%d  %g bpm  %s  delay %gs  sound %s",
		state, seq.Step+1, seq.StepCount, seq.Tempo, m.seq.Synth.Waveform, m.seq.Synth.DelayTime, mute)))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(keys)))
	b.WriteString("\n")
	return b.String()
}
