package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/display"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/session"
)

// StopFunc stops the session shown by the timer.
type StopFunc func() (*models.Session, error)

// TimerModel represents the TUI model for a running session
type TimerModel struct {
	width   int
	height  int
	session *models.Session
	now     func() time.Time
	stop    StopFunc
	help    help.Model

	// Timer state
	elapsed time.Duration
	current time.Time

	// Animation state
	frame int

	// Outcome
	stopping bool
	stopped  *models.Session
	stopErr  error
	exiting  bool
}

// timerTickMsg is sent every second to update the timer
type timerTickMsg struct{}

// animationTickMsg is sent for faster animations
type animationTickMsg struct{}

type stopResultMsg struct {
	session *models.Session
	err     error
}

// NewTimerModel creates a new timer TUI model
func NewTimerModel(sess *models.Session, now func() time.Time, stop StopFunc) TimerModel {
	if now == nil {
		now = time.Now
	}
	current := now()
	return TimerModel{
		session: sess,
		now:     now,
		stop:    stop,
		help:    help.New(),
		elapsed: display.Elapsed(sess.StartTime, current),
		current: current,
	}
}

// Init initializes the timer model
func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(timerTick(), animationTick())
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return timerTickMsg{} })
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return animationTickMsg{} })
}

func (m TimerModel) done() bool {
	return m.stopped != nil || m.exiting
}

// Update handles messages
func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		m.current = m.now()
		m.elapsed = display.Elapsed(m.session.StartTime, m.current)
		if m.done() {
			return m, nil
		}
		return m, timerTick()

	case animationTickMsg:
		m.frame = (m.frame + 1) % 4
		if m.done() {
			return m, nil
		}
		return m, animationTick()

	case stopResultMsg:
		m.stopping = false
		if msg.err != nil {
			m.stopErr = msg.err
			return m, nil
		}
		m.stopped = msg.session
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Stop):
			if m.stopping || m.stop == nil {
				return m, nil
			}
			m.stopping = true
			m.stopErr = nil
			stop := m.stop
			return m, func() tea.Msg {
				sess, err := stop()
				return stopResultMsg{session: sess, err: err}
			}
		case key.Matches(msg, keys.Leave), key.Matches(msg, keys.Quit):
			m.exiting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the timer TUI
func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Align(lipgloss.Center).
		Width(m.width).
		Render(m.help.View(keys))

	contentHeight := m.height - 2

	// Narrow view: just the timer panel, full width
	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderTimerPanel(m.width, contentHeight), helpBar)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTimerPanel(leftWidth, contentHeight),
		"  ",
		m.renderDetailsPanel(rightWidth, contentHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, helpBar)
}

// renderTimerPanel renders the left timer panel
func (m TimerModel) renderTimerPanel(width, height int) string {
	var components []string

	animChars := []string{"⏱", "⏲", "⏱", "⏲"}
	header := fmt.Sprintf("%s  TRACKING TIME  %s", animChars[m.frame], animChars[m.frame])
	components = append(components, centered(width).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true).
		Render(header))

	components = append(components, centered(width).
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Render(m.session.StartDay))

	var clock strings.Builder
	for i, line := range strings.Split(renderBigClock(m.elapsed), "\n") {
		if i > 0 {
			clock.WriteString("\n")
		}
		clock.WriteString(centered(width).Render(line))
	}
	components = append(components, clock.String())

	components = append(components, centered(width).
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Render("Started at "+m.session.StartTime.Local().Format("15:04:05")))

	if status := m.renderStatusLine(); status != "" {
		components = append(components, centered(width).Render(status))
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(components, "\n\n"))
}

func (m TimerModel) renderStatusLine() string {
	switch {
	case m.stopping:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render("Stopping...")
	case errors.Is(m.stopErr, apperr.ErrTooShort):
		earliest := m.session.StartTime.Add(session.MinDuration)
		msg := fmt.Sprintf("Too early to stop. Available in %s", display.Until(earliest, m.current))
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true).Render(msg)
	case m.stopErr != nil:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true).Render(m.stopErr.Error())
	}
	return ""
}

// renderDetailsPanel renders the right panel with session details
func (m TimerModel) renderDetailsPanel(width, height int) string {
	var b strings.Builder
	rowWidth := width - 8

	b.WriteString(centered(rowWidth).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Padding(0, 1).
		Render("wroklog"))
	b.WriteString("\n\n")

	b.WriteString(centered(rowWidth).
		Foreground(lipgloss.Color(ColorBorder)).
		Render(strings.Repeat("─", max(min(width-12, 40), 0))))
	b.WriteString("\n\n")

	earliest := m.session.StartTime.Add(session.MinDuration)
	stopValue, stopColor := "now", ColorSuccess
	if m.current.Before(earliest) {
		stopValue = fmt.Sprintf("%s (in %s)", earliest.Local().Format("15:04"), display.Until(earliest, m.current))
		stopColor = ColorSecondaryText
	}
	b.WriteString(detailRow(rowWidth, "🏁 Can stop", stopValue, stopColor))

	autoValue, autoColor := "off", ColorDisabledText
	if end := m.session.ScheduledEnd; end != nil {
		autoValue = fmt.Sprintf("%s (%s)", end.Local().Format("15:04"), display.Until(*end, m.current))
		autoColor = ColorWarning
	}
	b.WriteString(detailRow(rowWidth, "⏰ Auto-stop", autoValue, autoColor))

	device, deviceColor := "none", ColorDisabledText
	if m.session.DeviceID != "" {
		device, deviceColor = m.session.DeviceID, ColorAccentBright
	}
	b.WriteString(detailRow(rowWidth, "💻 Device", device, deviceColor))

	return lipgloss.NewStyle().Width(width).Height(height).Render(b.String())
}

func detailRow(width int, label, value, color string) string {
	line := fmt.Sprintf("%s: %s", label,
		lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(value))
	return centered(width).Render(line) + "\n"
}

func centered(width int) lipgloss.Style {
	return lipgloss.NewStyle().Align(lipgloss.Center).Width(width)
}

// ASCII art digits, five rows each
var bigDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// renderBigClock renders d as HH:MM:SS in block digits
func renderBigClock(d time.Duration) string {
	var lines [5]strings.Builder
	for _, char := range display.Clock(d) {
		art, ok := bigDigits[char]
		if !ok {
			continue
		}
		for i := range lines {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentBright)).
		Bold(true)

	rendered := make([]string, len(lines))
	for i := range lines {
		rendered[i] = style.Render(lines[i].String())
	}
	return strings.Join(rendered, "\n")
}
