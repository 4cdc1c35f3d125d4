package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/ui/components"
)

// SoundAddedMsg is emitted when a file is picked for the open playlist.
type SoundAddedMsg struct {
	PlaylistID string
	Path       string
}

// PlaylistView displays playlist management
type PlaylistView struct {
	Width       int
	Height      int
	SoundList   components.SoundList
	Browser     components.FileBrowser
	Browsing    bool
	Playlists   []*api.Playlist
	Current     *api.Playlist
	ShowingList bool // true = showing playlists, false = showing sounds
	Selected    int
	BorderStyle lipgloss.Style
	TitleStyle  lipgloss.Style
}

// NewPlaylistView creates a new playlist view
func NewPlaylistView(width, height int) PlaylistView {
	soundList := components.NewSoundList(height-8, width-6)
	soundList.Title = "📋 Playlist"

	return PlaylistView{
		Width:       width,
		Height:      height,
		SoundList:   soundList,
		Browser:     components.NewFileBrowser("", width-6, height-6),
		Playlists:   make([]*api.Playlist, 0),
		ShowingList: true,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
	}
}

// SetPlaylists sets the available playlists
func (v *PlaylistView) SetPlaylists(playlists []*api.Playlist) {
	v.Playlists = playlists
}

// SetCurrentPlaylist sets the current playlist to display
func (v *PlaylistView) SetCurrentPlaylist(playlist *api.Playlist) {
	v.Current = playlist
	v.ShowingList = false
	if playlist != nil {
		sounds := make([]*api.PlayableSound, len(playlist.Sounds))
		for i := range playlist.Sounds {
			sounds[i] = &playlist.Sounds[i]
		}
		v.SoundList.SetItems(sounds)
		v.SoundList.Title = "📋 " + playlist.Name + " " + modeLabel(playlist.Mode)
	}
}

// Update handles messages
func (v PlaylistView) Update(msg tea.Msg) (PlaylistView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.Browsing {
			switch msg.String() {
			case "esc":
				v.Browsing = false
			case "enter":
				if path := v.Browser.EnterSelected(); path != "" && v.Current != nil {
					v.Browsing = false
					playlistID := v.Current.ID
					return v, func() tea.Msg {
						return SoundAddedMsg{PlaylistID: playlistID, Path: path}
					}
				}
			default:
				v.Browser, _ = v.Browser.Update(msg)
			}
			return v, nil
		}

		if v.ShowingList {
			switch msg.String() {
			case "up", "k":
				if v.Selected > 0 {
					v.Selected--
				}
			case "down", "j":
				if v.Selected < len(v.Playlists)-1 {
					v.Selected++
				}
			case "enter":
				if v.Selected < len(v.Playlists) {
					v.SetCurrentPlaylist(v.Playlists[v.Selected])
				}
			}
		} else {
			switch msg.String() {
			case "backspace", "esc":
				v.ShowingList = true
				v.Current = nil
				return v, nil
			case "a":
				v.Browsing = true
				return v, nil
			default:
				v.SoundList, _ = v.SoundList.Update(msg)
			}
		}
	}
	return v, nil
}

// SelectedSound returns the currently selected sound
func (v *PlaylistView) SelectedSound() *api.PlayableSound {
	if v.ShowingList {
		return nil
	}
	return v.SoundList.SelectedItem()
}

// SelectedPlaylist returns the currently selected playlist
func (v *PlaylistView) SelectedPlaylist() *api.Playlist {
	if v.ShowingList && v.Selected < len(v.Playlists) {
		return v.Playlists[v.Selected]
	}
	return v.Current
}

// View renders the playlist view
func (v PlaylistView) View() string {
	if v.Browsing {
		return v.Browser.View()
	}

	var sb strings.Builder

	if v.ShowingList {
		// Show playlist list
		sb.WriteString(v.TitleStyle.Render("📋 Playlists"))
		sb.WriteString("\n\n")

		if len(v.Playlists) == 0 {
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("No playlists yet"))
		} else {
			selectedStyle := lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Bold(true).
				Padding(0, 1)
			normalStyle := lipgloss.NewStyle().Padding(0, 1)

			for i, pl := range v.Playlists {
				line := pl.Name + " " + modeLabel(pl.Mode)
				line += lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(
					fmt.Sprintf(" (%d sounds)", len(pl.Sounds)))

				if i == v.Selected {
					sb.WriteString(selectedStyle.Render(line))
				} else {
					sb.WriteString(normalStyle.Render(line))
				}
				sb.WriteString("\n")
			}
		}

		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(
			"[Enter] Open  [p] Preload  [↑↓] Navigate"))
	} else {
		// Show playlist sounds
		sb.WriteString(v.SoundList.View())
		sb.WriteString("\n\n")
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(
			"[Backspace/Esc] Back  [Enter] Play  [a] Add sound  [p] Preload  [↑↓] Navigate"))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}

func modeLabel(mode api.PlaylistMode) string {
	switch mode {
	case api.ModeShuffle:
		return "🔀"
	case api.ModeSimultaneous:
		return "⧉"
	default:
		return "→"
	}
}
