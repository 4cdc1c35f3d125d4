package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Element-Re/crossblade/api"
)

// SoundList represents a scrollable list of playable sounds
type SoundList struct {
	Items         []*api.PlayableSound
	Selected      int
	Height        int
	Width         int
	Offset        int
	Title         string
	ShowNumbers   bool
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	TitleStyle    lipgloss.Style
	PlayingStyle  lipgloss.Style
}

// NewSoundList creates a new sound list
func NewSoundList(height, width int) SoundList {
	return SoundList{
		Items:    make([]*api.PlayableSound, 0),
		Selected: 0,
		Height:   height,
		Width:    width,
		Offset:   0,
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		NormalStyle: lipgloss.NewStyle().
			Padding(0, 1),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		PlayingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		ShowNumbers: true,
	}
}

// SetItems sets the list items
func (l *SoundList) SetItems(items []*api.PlayableSound) {
	l.Items = items
	l.Selected = 0
	l.Offset = 0
}

// Update handles messages for the sound list
func (l SoundList) Update(msg tea.Msg) (SoundList, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home":
			l.Selected = 0
			l.Offset = 0
		case "end":
			if len(l.Items) > 0 {
				l.Selected = len(l.Items) - 1
				l.ensureVisible()
			}
		case "pgup":
			l.PageUp()
		case "pgdown":
			l.PageDown()
		}
	}
	return l, nil
}

// MoveUp moves selection up
func (l *SoundList) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
		l.ensureVisible()
	}
}

// MoveDown moves selection down
func (l *SoundList) MoveDown() {
	if l.Selected < len(l.Items)-1 {
		l.Selected++
		l.ensureVisible()
	}
}

// PageUp moves selection up by a page
func (l *SoundList) PageUp() {
	l.Selected -= l.Height - 2
	if l.Selected < 0 {
		l.Selected = 0
	}
	l.ensureVisible()
}

// PageDown moves selection down by a page
func (l *SoundList) PageDown() {
	l.Selected += l.Height - 2
	if l.Selected >= len(l.Items) {
		l.Selected = len(l.Items) - 1
	}
	l.ensureVisible()
}

// ensureVisible ensures the selected item is visible
func (l *SoundList) ensureVisible() {
	visibleHeight := l.Height - 2 // Account for title and border
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+visibleHeight {
		l.Offset = l.Selected - visibleHeight + 1
	}
}

// SelectedItem returns the currently selected sound
func (l *SoundList) SelectedItem() *api.PlayableSound {
	if l.Selected >= 0 && l.Selected < len(l.Items) {
		return l.Items[l.Selected]
	}
	return nil
}

// View renders the sound list
func (l SoundList) View() string {
	var sb strings.Builder

	// Title
	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	if len(l.Items) == 0 {
		sb.WriteString(l.NormalStyle.Render("No sounds"))
		return sb.String()
	}

	// Calculate visible range
	visibleHeight := l.Height - 2
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	end := l.Offset + visibleHeight
	if end > len(l.Items) {
		end = len(l.Items)
	}

	// Render visible items
	for i := l.Offset; i < end; i++ {
		sound := l.Items[i]
		var line string

		name := truncate(sound.Name, 35)
		detail := soundDetail(sound)
		if l.ShowNumbers {
			line = fmt.Sprintf("%3d. %s%s", i+1, name, detail)
		} else {
			line = fmt.Sprintf("%s%s", name, detail)
		}
		if sound.Playing {
			line = "▶ " + line
		}

		// Truncate to width
		if len(line) > l.Width-2 {
			line = line[:l.Width-5] + "..."
		}

		switch {
		case i == l.Selected:
			sb.WriteString(l.SelectedStyle.Render(line))
		case sound.Playing:
			sb.WriteString(l.PlayingStyle.Render(line))
		default:
			sb.WriteString(l.NormalStyle.Render(line))
		}

		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	// Scrollbar indicator
	if len(l.Items) > visibleHeight {
		sb.WriteString("\n")
		sb.WriteString(l.NormalStyle.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}

	return sb.String()
}

// soundDetail summarizes a sound's layers for the list line.
func soundDetail(sound *api.PlayableSound) string {
	if len(sound.Layers) == 0 {
		return ""
	}
	if len(sound.Layers) == 1 {
		return " (1 layer)"
	}
	return fmt.Sprintf(" (%d layers)", len(sound.Layers))
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
