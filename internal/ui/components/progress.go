package components

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Meter is a horizontal bar used for both track position and volume levels.
type Meter struct {
	Width       int
	Current     time.Duration
	Total       time.Duration
	Level       float64 // used instead of Current/Total when ShowPercent
	BarChar     string
	EmptyChar   string
	ShowTime    bool
	ShowPercent bool
	Style       lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressMeter creates a meter displaying playback position over total.
func NewProgressMeter(width int) Meter {
	return Meter{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		ShowTime:    true,
		Style:       lipgloss.NewStyle(),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// NewLevelMeter creates a meter displaying a 0..1 level as a percentage.
func NewLevelMeter(width int) Meter {
	m := NewProgressMeter(width)
	m.ShowTime = false
	m.ShowPercent = true
	m.BarChar = "●"
	m.EmptyChar = "○"
	return m
}

// Update handles messages for the meter
func (p Meter) Update(msg tea.Msg) (Meter, tea.Cmd) {
	return p, nil
}

// SetProgress sets the current position
func (p *Meter) SetProgress(current, total time.Duration) {
	p.Current = current
	p.Total = total
}

// SetLevel sets the level for percent display
func (p *Meter) SetLevel(level float64) {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	p.Level = level
}

// View renders the meter
func (p Meter) View() string {
	var sb strings.Builder

	var percent float64
	if p.ShowPercent {
		percent = p.Level
	} else if p.Total > 0 {
		percent = float64(p.Current) / float64(p.Total)
	}
	if percent > 1 {
		percent = 1
	}

	// Calculate bar segments
	barWidth := p.Width - 14 // Leave room for the label
	if barWidth < 10 {
		barWidth = 10
	}

	filled := int(float64(barWidth) * percent)
	empty := barWidth - filled

	filledBar := p.FilledStyle.Render(strings.Repeat(p.BarChar, filled))
	emptyBar := p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, empty))

	sb.WriteString(filledBar)
	sb.WriteString(emptyBar)

	if p.ShowTime {
		sb.WriteString(" ")
		sb.WriteString(formatDuration(p.Current))
		sb.WriteString("/")
		sb.WriteString(formatDuration(p.Total))
	} else if p.ShowPercent {
		sb.WriteString(fmt.Sprintf(" %3d%%", int(percent*100)))
	}

	return p.Style.Render(sb.String())
}

// formatDuration formats a duration as MM:SS
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}
