package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/rs/zerolog/log"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/chat"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/compliance"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/events"
)

// TurnEventMsg wraps a lifecycle event so the event router can hand it to the
// program through tea.Program.Send.
type TurnEventMsg struct {
	Event events.Event
}

type model struct {
	controller *chat.Controller
	modeID     string

	starterQueries []string
	showSample     bool

	viewport viewport.Model
	textArea textarea.Model
	spinner  spinner.Model

	keyMap KeyMap
	style  *Style

	width  int
	height int
	ready  bool
}

type ModelOption func(*model)

func WithStarterQueries(queries []string) ModelOption {
	return func(m *model) {
		m.starterQueries = queries
	}
}

func NewModel(controller *chat.Controller, options ...ModelOption) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a compliance question..."
	ta.Focus()
	ta.SetHeight(3)
	ta.CharLimit = 0
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &model{
		controller: controller,
		modeID:     controller.Modes().DefaultID(),
		textArea:   ta,
		spinner:    sp,
		keyMap:     DefaultKeyMap,
		style:      DefaultStyles(),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg_ := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg_.Width
		m.height = msg_.Height
		m.textArea.SetWidth(msg_.Width - 2)
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg_.Width, msg_.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg_.Width
			m.viewport.Height = msg_.Height - headerHeight - footerHeight
		}
		m.refreshViewport(false)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg_, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg_, m.keyMap.SubmitMessage):
			text := m.textArea.Value()
			if _, ok := m.controller.Submit(context.Background(), text, m.modeID); ok {
				m.textArea.SetValue("")
				m.refreshViewport(true)
			}

		case key.Matches(msg_, m.keyMap.RetryFailed):
			if turn, ok := m.lastFailedTurn(); ok {
				if _, ok := m.controller.Retry(context.Background(), turn.ID, m.modeID); ok {
					m.refreshViewport(true)
				}
			}

		case key.Matches(msg_, m.keyMap.CycleMode):
			m.cycleMode()

		case key.Matches(msg_, m.keyMap.ToggleSample):
			m.showSample = !m.showSample
			m.refreshViewport(true)

		case key.Matches(msg_, m.keyMap.ScrollUp):
			m.viewport.HalfViewUp()

		case key.Matches(msg_, m.keyMap.ScrollDown):
			m.viewport.HalfViewDown()

		default:
			var cmd tea.Cmd
			m.textArea, cmd = m.textArea.Update(msg)
			cmds = append(cmds, cmd)
		}

	case TurnEventMsg:
		m.refreshViewport(true)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.controller.Busy() {
			m.refreshViewport(false)
		}
	}

	// key handling above already covers scrolling
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m *model) headerView() string {
	pills := []string{}
	for _, mode := range m.controller.Modes().Modes() {
		if mode.ID == m.modeID {
			pills = append(pills, m.style.ModeActive.Render(mode.Label))
		} else {
			pills = append(pills, m.style.ModeInactive.Render(mode.Label))
		}
	}

	title := m.style.Header.Render("Compliance Hub")
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", strings.Join(pills, " "))
}

func (m *model) footerView() string {
	status := ""
	if m.controller.Busy() {
		status = m.spinner.View() + " thinking..."
	}
	help := m.style.Help.Render(
		"enter: send | tab: mode | ctrl+r: retry | ctrl+e: sample | ctrl+c: quit")
	return status + "\n" + m.textArea.View() + "\n" + help
}

func (m *model) cycleMode() {
	modes := m.controller.Modes().Modes()
	for i, mode := range modes {
		if mode.ID == m.modeID {
			m.modeID = modes[(i+1)%len(modes)].ID
			return
		}
	}
	if len(modes) > 0 {
		m.modeID = modes[0].ID
	}
}

func (m *model) lastFailedTurn() (chat.Turn, bool) {
	turns := m.controller.Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Status == chat.TurnStatusFailed {
			return turns[i], true
		}
	}
	return chat.Turn{}, false
}

func (m *model) refreshViewport(goToBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.conversationView())
	if goToBottom {
		m.viewport.GotoBottom()
	}
}

func (m *model) conversationView() string {
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}

	turns := m.controller.Turns()
	if len(turns) == 0 && !m.showSample {
		return m.emptyStateView(width)
	}

	var sections []string

	if m.showSample {
		sections = append(sections, m.sampleView(width))
	}

	for _, turn := range turns {
		sections = append(sections, m.turnView(turn, width))
	}

	return strings.Join(sections, "\n")
}

func (m *model) emptyStateView(width int) string {
	var sb strings.Builder
	sb.WriteString("\nAsk about DPDP, GDPR, HIPAA or other compliance frameworks.\n")
	if len(m.starterQueries) > 0 {
		sb.WriteString("\nFor example:\n")
		for _, query := range m.starterQueries {
			sb.WriteString(fmt.Sprintf("  - %s\n", query))
		}
	}
	return wordwrap.String(sb.String(), width)
}

func (m *model) sampleView(width int) string {
	response, err := compliance.SampleResponse()
	if err != nil {
		log.Error().Err(err).Msg("failed to load sample response")
		return m.style.ErrorCard.Width(width).Render("Sample data unavailable.")
	}

	user := m.style.UserMessage.Render(wordwrap.String(compliance.SampleQuery, width-4))
	card, err := RenderResponse(response, width-2)
	if err != nil {
		log.Error().Err(err).Msg("failed to render sample response")
		card = response.Summary
	}
	return user + "\n" + m.style.AssistantCard.Width(width).Render(card)
}

func (m *model) turnView(turn chat.Turn, width int) string {
	var sb strings.Builder

	userText := wordwrap.String(turn.UserText, width-4)
	sb.WriteString(m.style.UserMessage.Render(userText))
	sb.WriteString("\n")
	if turn.ModeLabel != "" {
		sb.WriteString(m.style.ModeTag.Render(turn.ModeLabel))
		sb.WriteString("\n")
	}

	switch turn.Status {
	case chat.TurnStatusPending:
		sb.WriteString(m.spinner.View() + " waiting for the agent...")
	case chat.TurnStatusFailed:
		sb.WriteString(m.style.ErrorCard.Width(width).Render(
			turn.ErrorMessage + "\n\npress ctrl+r to retry"))
	case chat.TurnStatusResolved:
		card, err := RenderResponse(turn.Response, width-2)
		if err != nil {
			log.Error().Err(err).Str("turn_id", turn.ID.String()).
				Msg("failed to render response")
			card = turn.Response.Summary
		}
		sb.WriteString(m.style.AssistantCard.Width(width).Render(card))
	}

	return sb.String()
}
