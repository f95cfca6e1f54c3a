package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	liveshift "github.com/tphakala/go-audio-liveshift"
)

const (
	centsPerSemitone = 100
	centStep         = 10
	maxShiftCents    = 24 * centsPerSemitone
	refreshInterval  = 200 * time.Millisecond
)

// pitchControl is the part of the shifter the control thread drives.
type pitchControl interface {
	SetPitchCent(cents float64) error
	SetFormantOption(f liveshift.Formant) error
	Reset()
}

// tuiModel is the control thread. It never touches audio buffers; every key
// press is a parameter change on the shared shifter.
type tuiModel struct {
	control pitchControl
	stats   func() playbackStats

	title      string
	engineName string
	latency    time.Duration

	cents     int
	preserved bool
	current   playbackStats
	lastErr   error
	quitting  bool
}

type tickMsg time.Time

func newTUIModel(control pitchControl, stats func() playbackStats, title, engineName string,
	latency time.Duration, cents int, preserved bool,
) tuiModel {
	return tuiModel{
		control:    control,
		stats:      stats,
		title:      title,
		engineName: engineName,
		latency:    latency,
		cents:      cents,
		preserved:  preserved,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			m = m.shiftBy(centsPerSemitone)
		case "down", "j":
			m = m.shiftBy(-centsPerSemitone)
		case "right", "l":
			m = m.shiftBy(centStep)
		case "left", "h":
			m = m.shiftBy(-centStep)
		case "0":
			m = m.shiftBy(-m.cents)
		case "f":
			m = m.toggleFormant()
		case "r":
			m.control.Reset()
			m.lastErr = nil
		}
		return m, nil

	case tickMsg:
		if m.stats != nil {
			m.current = m.stats()
		}
		return m, tickEvery()
	}

	return m, nil
}

func (m tuiModel) shiftBy(delta int) tuiModel {
	target := max(-maxShiftCents, min(maxShiftCents, m.cents+delta))
	if err := m.control.SetPitchCent(float64(target)); err != nil {
		m.lastErr = err
		return m
	}
	m.cents = target
	m.lastErr = nil
	return m
}

func (m tuiModel) toggleFormant() tuiModel {
	next := liveshift.FormantPreserved
	if m.preserved {
		next = liveshift.FormantShifted
	}
	if err := m.control.SetFormantOption(next); err != nil {
		m.lastErr = err
		return m
	}
	m.preserved = !m.preserved
	m.lastErr = nil
	return m
}

// formatShift renders cents as semitones and cents, e.g. "+3 st -20 ct".
func formatShift(cents int) string {
	sign := "+"
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d st %02d ct", sign, cents/centsPerSemitone, cents%centsPerSemitone)
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Stopping playback...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	pitchStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	errStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("liveshift"))
	b.WriteString("\n\n")

	row := func(header, value string) {
		b.WriteString(headerStyle.Render(header))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Playing: ", m.title)
	row("Engine: ", fmt.Sprintf("%s (latency %s)", m.engineName, m.latency.Round(time.Millisecond)))

	b.WriteString(headerStyle.Render("Pitch: "))
	b.WriteString(pitchStyle.Render(formatShift(m.cents)))
	b.WriteString(valueStyle.Render(fmt.Sprintf("  x%.4f", liveshift.CentsToRatio(float64(m.cents)))))
	b.WriteString("\n")

	formant := liveshift.FormantShifted
	if m.preserved {
		formant = liveshift.FormantPreserved
	}
	row("Formant: ", formant.String())
	row("Position: ", m.current.Position.Round(100*time.Millisecond).String())
	row("Blocks: ", fmt.Sprintf("%d (%d dropped)", m.current.Blocks, m.current.Dropped))

	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render(
		"up/down: semitone  left/right: 10 cents  0: unison  f: formant  r: reset  q: quit"))

	return b.String()
}
