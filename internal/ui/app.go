package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/engine"
	"github.com/Element-Re/crossblade/internal/game"
	"github.com/Element-Re/crossblade/internal/library"
	"github.com/Element-Re/crossblade/internal/playlist"
	"github.com/Element-Re/crossblade/internal/ui/components"
	"github.com/Element-Re/crossblade/internal/ui/views"
	"github.com/Element-Re/crossblade/pkg/events"
)

// ViewType represents the current active view
type ViewType int

const (
	ViewSession ViewType = iota
	ViewPlaylist
)

// Deps are the components the UI drives.
type Deps struct {
	Engine   *engine.Engine
	Orch     *playlist.Orchestrator
	Manager  *playlist.Manager
	Importer *library.Importer
	State    *game.State
	Custom   *game.CustomEvent
	Bus      *events.Bus
	Options  game.Options

	// Duration probes the current track's length for the progress bar.
	Duration playlist.DurationFunc
}

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	// Current view
	activeView ViewType

	// Views
	sessionView  views.SessionView
	playlistView views.PlaylistView
	eventInput   components.EventInput
	editingEvent bool

	deps    Deps
	signals <-chan api.Signal

	// Cached duration probes, keyed by source path
	durations map[string]time.Duration

	// State
	ctx    context.Context
	cancel context.CancelFunc
	err    error

	// Styles
	tabStyle       lipgloss.Style
	activeTabStyle lipgloss.Style
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// SignalMsg carries one bus signal into the update loop
type SignalMsg struct {
	Signal api.Signal
}

// NewModel creates a new application model
func NewModel(deps Deps) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		width:      80,
		height:     24,
		activeView: ViewSession,
		deps:       deps,
		signals:    deps.Bus.SubscribeAll(),
		durations:  make(map[string]time.Duration),
		ctx:        ctx,
		cancel:     cancel,
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeTabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
	}

	// Initialize views
	m.sessionView = views.NewSessionView(m.width, m.height/2)
	m.playlistView = views.NewPlaylistView(m.width, m.height-10)
	m.eventInput = components.NewEventInput(m.width - 8)

	m.playlistView.SetPlaylists(deps.Manager.GetAll())
	m.refreshSession()

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.listenForSignals(),
	)
}

// tickCmd returns a command that ticks every 500ms
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// listenForSignals forwards bus signals into the update loop
func (m Model) listenForSignals() tea.Cmd {
	return func() tea.Msg {
		select {
		case sig, ok := <-m.signals:
			if !ok {
				return nil
			}
			return SignalMsg{Signal: sig}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()

	case TickMsg:
		m.refreshSession()
		cmds = append(cmds, tickCmd())

	case SignalMsg:
		m.refreshSession()
		if m.activeView == ViewPlaylist {
			m.playlistView.SetPlaylists(m.deps.Manager.GetAll())
		}
		cmds = append(cmds, m.listenForSignals())

	case views.SoundAddedMsg:
		if _, err := m.deps.Importer.ImportFile(msg.PlaylistID, msg.Path); err != nil {
			m.err = err
		} else {
			m.err = nil
			if pl, err := m.deps.Manager.GetByID(msg.PlaylistID); err == nil {
				m.playlistView.SetCurrentPlaylist(pl)
			}
		}

	case tea.KeyMsg:
		return m.handleKey(msg, cmds)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	// The custom event input captures everything except its own exit keys.
	if m.editingEvent {
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "enter":
			m.deps.Custom.Set(m.eventInput.Value)
			m.eventInput.Blur()
			m.editingEvent = false
		case "esc":
			m.eventInput.Blur()
			m.editingEvent = false
		default:
			m.eventInput, _ = m.eventInput.Update(msg)
		}
		return m, tea.Batch(cmds...)
	}

	// Same for the file browser inside the playlist view.
	if m.activeView == ViewPlaylist && m.playlistView.Browsing {
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.playlistView, cmd = m.playlistView.Update(msg)
			cmds = append(cmds, cmd)
			return m, tea.Batch(cmds...)
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.deps.Orch.StopAll(m.ctx)
		m.cancel()
		return m, tea.Quit

	case "1":
		m.activeView = ViewSession
	case "2":
		m.activeView = ViewPlaylist
		m.playlistView.SetPlaylists(m.deps.Manager.GetAll())
	case "tab":
		m.activeView = (m.activeView + 1) % 2
		if m.activeView == ViewPlaylist {
			m.playlistView.SetPlaylists(m.deps.Manager.GetAll())
		}

	case " ": // Space - play/stop current
		if current := m.deps.Orch.Queue().Current(); current != nil {
			if current.Playing {
				m.deps.Orch.Stop(m.ctx, current)
			} else {
				m.deps.Orch.Play(m.ctx, current)
			}
		}

	case "n": // Next
		m.skip(func() *api.PlayableSound { return m.deps.Orch.Queue().Next() })

	case "b": // Back
		m.skip(func() *api.PlayableSound { return m.deps.Orch.Queue().Previous() })

	case "P": // Toggle game pause
		m.deps.State.SetPaused(!m.deps.State.Paused())

	case "c": // Toggle combat
		m.deps.State.SetCombat(!m.deps.State.CombatActive(), m.deps.State.CombatantDisposition())

	case "d": // Cycle active combatant disposition
		next := (m.deps.State.CombatantDisposition() + 1) % (api.DispositionHostile + 1)
		m.deps.State.SetCombat(m.deps.State.CombatActive(), next)

	case "e": // Edit custom event
		m.eventInput.SetValue(m.deps.Custom.Get())
		// Offer the events of whatever is playing; fall back to every
		// event declared across the playlists.
		known := m.deps.Orch.PlayingCustomEvents()
		if len(known) == 0 {
			known = m.deps.Manager.CustomEvents()
		}
		m.eventInput.SetSuggestions(known)
		m.eventInput.Focus()
		m.editingEvent = true

	case "p": // Preload the open playlist's handles
		if m.activeView == ViewPlaylist {
			if pl := m.playlistView.SelectedPlaylist(); pl != nil {
				m.deps.Orch.PreloadPlaylist(m.ctx, pl)
			}
		}

	case "x": // Toggle crossfading
		m.deps.Engine.SetEnabled(!m.deps.Engine.Enabled())
		m.deps.Orch.CrossfadeAll(m.ctx)

	case "+", "=": // Volume up
		m.deps.State.SetGlobalVolume(m.deps.State.GlobalVolume() + 0.1)

	case "-": // Volume down
		m.deps.State.SetGlobalVolume(m.deps.State.GlobalVolume() - 0.1)

	case "enter":
		if m.activeView == ViewPlaylist {
			if sound := m.playlistView.SelectedSound(); sound != nil {
				pl := m.playlistView.SelectedPlaylist()
				m.playQueuedFrom(pl, sound)
			} else {
				var cmd tea.Cmd
				m.playlistView, cmd = m.playlistView.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	default:
		if m.activeView == ViewPlaylist {
			var cmd tea.Cmd
			m.playlistView, cmd = m.playlistView.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.refreshSession()
	return m, tea.Batch(cmds...)
}

// skip stops the current track and starts the one advance returns.
func (m *Model) skip(advance func() *api.PlayableSound) {
	if current := m.deps.Orch.Queue().Current(); current != nil && current.Playing {
		m.deps.Orch.Stop(m.ctx, current)
	}
	if next := advance(); next != nil {
		m.deps.Orch.Play(m.ctx, next)
	}
}

// playQueuedFrom loads the playlist into the queue and starts at the sound.
func (m *Model) playQueuedFrom(pl *api.Playlist, sound *api.PlayableSound) {
	if pl == nil {
		return
	}
	if current := m.deps.Orch.Queue().Current(); current != nil && current.Playing {
		m.deps.Orch.Stop(m.ctx, current)
	}

	m.deps.Orch.PlayPlaylist(m.ctx, pl)
	if pl.Mode == api.ModeSimultaneous {
		return
	}

	queue := m.deps.Orch.Queue()
	for i, s := range queue.GetAll() {
		if s.ID == sound.ID {
			if current := queue.Current(); current != nil && current.ID != s.ID && current.Playing {
				m.deps.Orch.Stop(m.ctx, current)
			}
			_ = queue.JumpTo(i)
			m.deps.Orch.Play(m.ctx, s)
			break
		}
	}
}

// refreshSession rebuilds the session view's state snapshot.
func (m *Model) refreshSession() {
	snap := &views.SessionState{
		ActiveEvent:  game.Resolve(m.deps.State, m.deps.Options),
		CustomEvent:  m.deps.Custom.Get(),
		Paused:       m.deps.State.Paused(),
		CombatActive: m.deps.State.CombatActive(),
		Disposition:  m.deps.State.CombatantDisposition(),
		GlobalVolume: m.deps.State.GlobalVolume(),
		CrossfadeOn:  m.deps.Engine.Enabled(),
	}

	if current := m.deps.Orch.Queue().Current(); current != nil && current.Playing {
		snap.Current = current
		if base := m.deps.Orch.Runtime(current).Base(); base != nil {
			snap.Position = time.Duration(base.CurrentTime() * float64(time.Second))
		}
		snap.Duration = m.durationOf(current.Path)
	}

	m.sessionView.SetState(snap)
}

// durationOf probes and caches a track's play length.
func (m *Model) durationOf(path string) time.Duration {
	if d, ok := m.durations[path]; ok {
		return d
	}
	if m.deps.Duration == nil {
		return 0
	}
	d, err := m.deps.Duration(path)
	if err != nil {
		d = 0
	}
	m.durations[path] = d
	return d
}

// updateViewSizes updates view dimensions
func (m *Model) updateViewSizes() {
	m.sessionView.Width = m.width
	m.sessionView.Height = m.height / 2
	m.playlistView.Width = m.width
	m.playlistView.Height = m.height - 12
	m.eventInput.Width = m.width - 8
}

// View renders the UI
func (m Model) View() string {
	var sb string

	// Header with tabs
	sb += m.renderTabs()
	sb += "\n"

	switch m.activeView {
	case ViewSession:
		sb += m.sessionView.View()
	case ViewPlaylist:
		sb += m.sessionView.View()
		sb += "\n"
		sb += m.playlistView.View()
	}

	if m.editingEvent {
		sb += "\n" + m.eventInput.View()
	}

	// Error display
	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
		sb += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return sb
}

// renderTabs renders the tab bar
func (m Model) renderTabs() string {
	tabs := []string{"[1] Session", "[2] Playlists"}

	var rendered []string
	for i, tab := range tabs {
		if ViewType(i) == m.activeView {
			rendered = append(rendered, m.activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, m.tabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Run starts the bubbletea program
func Run(deps Deps) error {
	model := NewModel(deps)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
