package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jarvis/internal/domain"
)

const (
	frameInterval = 80 * time.Millisecond
	phaseStep     = 0.35
	radiusEasing  = 0.2

	maxTranscriptWidth = 72
	// Rows kept for the title, status, transcript, input and help.
	reservedRows = 14
)

// Asker is the part of the orchestrator the screen drives.
type Asker interface {
	Ask(ctx context.Context, query string) (domain.State, error)
	Subscribe() (<-chan domain.State, func())
	SetQuery(query string)
}

type (
	stateMsg        domain.State
	streamClosedMsg struct{}
	askDoneMsg      struct{ err error }
	frameMsg        time.Time
)

type Model struct {
	ctx    context.Context
	asker  Asker
	states <-chan domain.State
	cancel func()

	input   textinput.Model
	spinner spinner.Model
	styles  Styles

	state   domain.State
	pending bool
	notice  string

	radius float64
	phase  float64
	width  int
	height int
}

func New(ctx context.Context, asker Asker, query string) Model {
	states, cancel := asker.Subscribe()

	input := textinput.New()
	input.Placeholder = domain.DefaultQuery
	input.Prompt = "› "
	input.CharLimit = 1000
	input.SetValue(query)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)

	return Model{
		ctx:     ctx,
		asker:   asker,
		states:  states,
		cancel:  cancel,
		input:   input,
		spinner: sp,
		styles:  DefaultStyles(),
		state:   domain.State{Query: query, Playback: domain.PlaybackIdle},
		radius:  baseRadius,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForState(), frame())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = max(msg.Width, 0), max(msg.Height, 0)
		m.input.Width = min(max(m.width-6, 10), maxTranscriptWidth)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if value := m.input.Value(); value != before {
			m.asker.SetQuery(value)
		}
		return m, cmd

	case stateMsg:
		m.state = domain.State(msg)
		return m, m.waitForState()

	case streamClosedMsg:
		return m, tea.Quit

	case askDoneMsg:
		m.pending = false
		switch {
		case errors.Is(msg.err, domain.ErrBusy):
			m.notice = "Jarvis est déjà occupé"
		case msg.err != nil:
			m.notice = msg.err.Error()
		}
		return m, nil

	case frameMsg:
		m.phase += phaseStep
		m.radius += (Radius(m.state.Transcript) - m.radius) * radiusEasing
		return m, frame()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit is the send button: disabled while a request is loading. The query
// goes out exactly as typed, empty included.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.pending || m.state.Loading() {
		return m, nil
	}
	query := m.input.Value()

	m.pending = true
	m.notice = ""
	asker, ctx := m.asker, m.ctx
	return m, func() tea.Msg {
		_, err := asker.Ask(ctx, query)
		return askDoneMsg{err: err}
	}
}

func (m Model) View() string {
	var sections []string

	sections = append(sections, m.styles.Title.Render("J.A.R.V.I.S"))

	orbStyle := m.styles.Orb
	if m.state.Playing() {
		orbStyle = m.styles.OrbPlaying
	}
	maxRows := 0
	if m.height > 0 {
		maxRows = max((m.height-reservedRows)/2, 2)
	}
	sections = append(sections, orbStyle.Render(renderOrb(m.radius, m.phase, m.state.Playing(), maxRows)))

	sections = append(sections, m.styles.Status.Render(m.status()))

	width := maxTranscriptWidth
	if m.width > 0 {
		width = min(max(m.width-4, 20), maxTranscriptWidth)
	}
	transcript := m.styles.Empty.Render("Aucune réponse pour le moment")
	if m.state.Transcript != "" {
		transcript = m.state.Transcript
	}
	sections = append(sections, m.styles.Transcript.Width(width).Render(transcript))

	if m.state.Error != "" {
		sections = append(sections, m.styles.Error.Render(m.state.Error))
	}
	if m.notice != "" {
		sections = append(sections, m.styles.Notice.Render(m.notice))
	}

	sections = append(sections, m.input.View())
	sections = append(sections, m.styles.Help.Render("entrée: envoyer • échap: quitter"))

	body := lipgloss.JoinVertical(lipgloss.Center, sections...)
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, body)
	}
	return body
}

func (m Model) status() string {
	switch m.state.Playback {
	case domain.PlaybackLoading:
		return m.spinner.View() + " Jarvis réfléchit..."
	case domain.PlaybackPlaying:
		return "♪ Jarvis parle"
	default:
		return "Prêt"
	}
}

func (m Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return streamClosedMsg{}
		}
		return stateMsg(s)
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
