// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the playback screen
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tapedeck-Audio/tapedeck-go/pkg/audio/analysis"
	"github.com/Tapedeck-Audio/tapedeck-go/pkg/player"
)

// Run starts the TUI and blocks until the user quits.
func Run(engine *player.Engine, tap *analysis.Tap, trackName string) error {
	p := tea.NewProgram(NewModel(engine, tap, trackName), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
