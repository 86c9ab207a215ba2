// ABOUTME: Bubbletea model for the playback TUI
// ABOUTME: Renders transport state, progress, spectrum and handles key controls
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/analysis"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/player"
)

// Colour palette
var (
	accentColor = lipgloss.Color("#FF8C00")
	brightColor = lipgloss.Color("#FFD700")
	dimColor    = lipgloss.Color("#B8860B")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(brightColor)
	labelStyle  = lipgloss.NewStyle().Faint(true)
	accentStyle = lipgloss.NewStyle().Foreground(accentColor)
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(1, 2)
)

// SeekStep is how far the arrow keys move the play head.
const SeekStep = 5.0 // seconds

// VolumeStep is the volume change per keypress.
const VolumeStep = 0.05

// tickMsg drives the 100ms status poll.
type tickMsg time.Time

// SpectrumBars is the number of frequency bars rendered.
const SpectrumBars = 32

// Model represents the TUI state. The engine is shared with the rest of
// the process; the model only issues transport calls and polls status.
type Model struct {
	engine    *player.Engine
	tap       *analysis.Tap
	trackName string

	status player.Status
	bars   []float64

	progressBar progress.Model

	width  int
	height int
}

// NewModel creates a TUI model bound to the engine.
func NewModel(engine *player.Engine, tap *analysis.Tap, trackName string) Model {
	p := progress.New(
		progress.WithGradient(string(accentColor), string(brightColor)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return Model{
		engine:      engine,
		tap:         tap,
		trackName:   trackName,
		status:      engine.Status(),
		progressBar: p,
	}
}

func tick() tea.Cmd {
	return tea.Tick(player.StatusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the status poll loop.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 20; w > 10 && w < 60 {
			m.progressBar.Width = w
		}
	case tickMsg:
		m.status = m.engine.Status()
		if m.tap != nil {
			m.bars = m.tap.Spectrum(SpectrumBars)
		}
		return m, tick()
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.status.IsPlaying {
			m.engine.Pause()
		} else {
			m.engine.Play()
		}
	case "s":
		m.engine.Stop()
	case "left":
		m.engine.Seek(m.status.Position - SeekStep)
	case "right":
		m.engine.Seek(m.status.Position + SeekStep)
	case "up", "+":
		m.engine.SetVolume(m.status.Volume + VolumeStep)
	case "down", "-":
		m.engine.SetVolume(m.status.Volume - VolumeStep)
	}

	m.status = m.engine.Status()
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Tapedeck"))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Track:  "))
	s.WriteString(m.trackName)
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("State:  "))
	s.WriteString(accentStyle.Render(stateLabel(m.status)))
	s.WriteString("\n\n")

	percent := 0.0
	if m.status.Duration > 0 {
		percent = m.status.Position / m.status.Duration
	}
	s.WriteString(m.progressBar.ViewAs(percent))
	s.WriteString(fmt.Sprintf("  %s / %s\n\n",
		formatTime(m.status.Position), formatTime(m.status.Duration)))

	s.WriteString(labelStyle.Render("Volume: "))
	s.WriteString(renderBar(m.status.Volume, 20))
	s.WriteString(fmt.Sprintf(" %d%%\n", int(m.status.Volume*100+0.5)))

	if len(m.bars) > 0 {
		s.WriteString("\n")
		s.WriteString(renderSpectrum(m.bars))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(labelStyle.Render("space:Play/Pause  s:Stop  ←/→:Seek  ↑/↓:Volume  q:Quit"))

	return borderStyle.Render(s.String()) + "\n"
}

func stateLabel(st player.Status) string {
	switch st.State {
	case player.Playing:
		return "▶ Playing"
	case player.Paused:
		return "⏸ Paused"
	default:
		return "⏹ Stopped"
	}
}

// formatTime renders seconds as m:ss.
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func renderBar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	return bar.String()
}

// renderSpectrum draws one block character per frequency bar.
func renderSpectrum(bars []float64) string {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var s strings.Builder
	for _, h := range bars {
		if h < 0 {
			h = 0
		}
		if h > 1 {
			h = 1
		}
		idx := int(h * float64(len(blocks)-1))
		s.WriteString(lipgloss.NewStyle().
			Foreground(dimColor).
			Render(string(blocks[idx])))
	}
	return s.String()
}
