// Package tui renders the interactive session timer.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/wroklog/internal/models"
)

type keyMap struct {
	Stop  key.Binding
	Leave key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Leave, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Stop: key.NewBinding(
		key.WithKeys("s", "S"),
		key.WithHelp("s", "stop & save"),
	),
	Leave: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("esc/q", "exit (keep running)"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "force quit"),
	),
}

// RunTimer shows the live timer for sess. It returns the stopped session
// when the user stopped it from the timer, or nil when they left it running.
func RunTimer(sess *models.Session, now func() time.Time, stop StopFunc) (*models.Session, error) {
	model := NewTimerModel(sess, now, stop)

	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := finalModel.(TimerModel)
	if !ok {
		return nil, fmt.Errorf("unexpected timer model %T", finalModel)
	}
	return m.stopped, nil
}
