package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/ui/components"
)

// SessionState is the snapshot of the game session the view renders.
type SessionState struct {
	ActiveEvent  api.EventTag
	CustomEvent  string
	Paused       bool
	CombatActive bool
	Disposition  api.Disposition
	GlobalVolume float64
	CrossfadeOn  bool
	Current      *api.PlayableSound
	Position     time.Duration
	Duration     time.Duration
}

// SessionView displays the game state driving the crossfade engine
type SessionView struct {
	Width       int
	Height      int
	State       *SessionState
	ProgressBar components.Meter
	VolumeBar   components.Meter

	// Styles
	EventStyle    lipgloss.Style
	NameStyle     lipgloss.Style
	FlagOnStyle   lipgloss.Style
	FlagOffStyle  lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewSessionView creates a new session view
func NewSessionView(width, height int) SessionView {
	return SessionView{
		Width:       width,
		Height:      height,
		ProgressBar: components.NewProgressMeter(width - 4),
		VolumeBar:   components.NewLevelMeter(30),
		EventStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		NameStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		FlagOnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		FlagOffStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
}

// SetState updates the session state
func (v *SessionView) SetState(state *SessionState) {
	v.State = state
	if state != nil {
		v.ProgressBar.SetProgress(state.Position, state.Duration)
		v.VolumeBar.SetLevel(state.GlobalVolume)
	}
}

// Update handles messages
func (v SessionView) Update(msg tea.Msg) (SessionView, tea.Cmd) {
	return v, nil
}

// View renders the session view
func (v SessionView) View() string {
	var sb strings.Builder

	if v.State == nil {
		sb.WriteString(v.EventStyle.Render("⚔ No session"))
	} else {
		s := v.State

		sb.WriteString(v.EventStyle.Render("⚔ Active event: " + string(s.ActiveEvent)))
		sb.WriteString("\n")
		sb.WriteString(v.renderFlags(s))
		sb.WriteString("\n\n")

		if s.Current != nil {
			sb.WriteString(v.NameStyle.Render("♪ " + s.Current.Name))
			if s.Current.Repeat {
				sb.WriteString(v.FlagOffStyle.Render("  🔁"))
			}
			sb.WriteString("\n")
			sb.WriteString(v.ProgressBar.View())
		} else {
			sb.WriteString(v.FlagOffStyle.Render("♪ Nothing playing"))
		}
		sb.WriteString("\n\n")

		sb.WriteString(fmt.Sprintf("Volume: %s", v.VolumeBar.View()))
		if s.CustomEvent != "" {
			sb.WriteString("\n")
			sb.WriteString(v.FlagOnStyle.Render("Custom: " + s.CustomEvent))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(v.ControlsStyle.Render(
		"[Space] Play/Stop  [n] Next  [b] Back  [P] Pause game  [c] Combat  [d] Disposition\n" +
			"[e] Custom event  [x] Crossfade on/off  [+/-] Volume  [q] Quit",
	))

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}

// renderFlags shows pause/combat state and the active disposition.
func (v SessionView) renderFlags(s *SessionState) string {
	var flags []string

	style := func(on bool) lipgloss.Style {
		if on {
			return v.FlagOnStyle
		}
		return v.FlagOffStyle
	}
	flags = append(flags, style(s.Paused).Render("⏸ Paused"))
	flags = append(flags, style(s.CombatActive).Render("⚔ Combat"))
	if s.CombatActive {
		flags = append(flags, v.FlagOnStyle.Render(dispositionLabel(s.Disposition)))
	}
	flags = append(flags, style(s.CrossfadeOn).Render("〜 Crossfade"))

	return strings.Join(flags, "  ")
}

func dispositionLabel(d api.Disposition) string {
	switch d {
	case api.DispositionFriendly:
		return "Friendly"
	case api.DispositionNeutral:
		return "Neutral"
	case api.DispositionHostile:
		return "Hostile"
	default:
		return "Unknown"
	}
}
