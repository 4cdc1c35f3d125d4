package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EventInput is a one-line text input for typing a custom event trigger.
type EventInput struct {
	Value       string
	Placeholder string
	Suggestions []string
	Focused     bool
	Width       int
	CursorPos   int
	Style       lipgloss.Style
	FocusStyle  lipgloss.Style
	Prompt      string
}

// NewEventInput creates a new event input
func NewEventInput(width int) EventInput {
	return EventInput{
		Placeholder: "Custom event (empty clears)...",
		Width:       width,
		Prompt:      "⚡ ",
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Focus sets focus on the input
func (s *EventInput) Focus() {
	s.Focused = true
}

// Blur removes focus from the input
func (s *EventInput) Blur() {
	s.Focused = false
}

// SetValue sets the input value
func (s *EventInput) SetValue(value string) {
	s.Value = value
	s.CursorPos = len(value)
}

// Clear clears the input
func (s *EventInput) Clear() {
	s.Value = ""
	s.CursorPos = 0
}

// SetSuggestions sets the known event values displayed under the input
func (s *EventInput) SetSuggestions(values []string) {
	s.Suggestions = values
}

// Update handles messages for the event input
func (s EventInput) Update(msg tea.Msg) (EventInput, tea.Cmd) {
	if !s.Focused {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyBackspace:
			if len(s.Value) > 0 && s.CursorPos > 0 {
				s.Value = s.Value[:s.CursorPos-1] + s.Value[s.CursorPos:]
				s.CursorPos--
			}
		case tea.KeyDelete:
			if s.CursorPos < len(s.Value) {
				s.Value = s.Value[:s.CursorPos] + s.Value[s.CursorPos+1:]
			}
		case tea.KeyLeft:
			if s.CursorPos > 0 {
				s.CursorPos--
			}
		case tea.KeyRight:
			if s.CursorPos < len(s.Value) {
				s.CursorPos++
			}
		case tea.KeyHome:
			s.CursorPos = 0
		case tea.KeyEnd:
			s.CursorPos = len(s.Value)
		case tea.KeyRunes:
			// Insert character at cursor position
			char := string(msg.Runes)
			s.Value = s.Value[:s.CursorPos] + char + s.Value[s.CursorPos:]
			s.CursorPos += len(char)
		}
	}

	return s, nil
}

// View renders the event input
func (s EventInput) View() string {
	var content string

	if s.Value == "" && !s.Focused {
		content = s.Prompt + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(s.Placeholder)
	} else {
		// Show value with cursor
		if s.Focused {
			before := s.Value[:s.CursorPos]
			after := s.Value[s.CursorPos:]
			cursor := lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ")
			content = s.Prompt + before + cursor + after
		} else {
			content = s.Prompt + s.Value
		}
	}

	// Truncate if too long
	maxWidth := s.Width - 4
	if len(content) > maxWidth {
		content = content[:maxWidth]
	}

	view := s.Style.Width(s.Width).Render(content)
	if s.Focused {
		view = s.FocusStyle.Width(s.Width).Render(content)
	}

	if s.Focused && len(s.Suggestions) > 0 {
		hint := "Known: " + strings.Join(s.Suggestions, ", ")
		if len(hint) > maxWidth {
			hint = hint[:maxWidth]
		}
		view += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(hint)
	}
	return view
}
