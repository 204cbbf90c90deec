package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/fanout/internal/client"
)

// MaxHistory caps the number of lines kept in the chat log.
const MaxHistory = 1000

// Sender delivers outgoing chat lines; *client.Client satisfies it.
type Sender interface {
	SendText(text string) error
}

// Messages for the chat model
type incomingMsg client.Message

type disconnectedMsg struct{ err error }

type sentMsg struct {
	text string
	err  error
}

// chatKeyMap defines key bindings for the chat screen
type chatKeyMap struct {
	Send     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.PageUp, k.PageDown, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.PageUp, k.PageDown, k.Quit},
	}
}

// ChatOptions configures a ChatModel.
type ChatOptions struct {
	Sender   Sender
	Messages <-chan client.Message
	// Err reports why the connection ended once Messages is closed.
	Err func() error
	URL  string
	Nick string
}

// ChatModel is the interactive chat screen: a scrolling log of everything
// the relay broadcasts, the user's own lines included, above an input line.
type ChatModel struct {
	opts ChatOptions

	viewport viewport.Model
	input    textinput.Model
	help     help.Model
	keys     chatKeyMap

	lines     []string
	connected bool
	ready     bool

	Width  int
	Height int
}

// NewChatModel creates the chat screen for an established connection
func NewChatModel(opts ChatOptions) ChatModel {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.Prompt = PromptStyle.Render("> ")
	input.CharLimit = 4096
	input.Focus()

	width, height := GetTerminalSize()

	m := ChatModel{
		opts:     opts,
		viewport: viewport.New(width, height),
		input:    input,
		help:     help.New(),
		keys: chatKeyMap{
			Send: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "send"),
			),
			PageUp: key.NewBinding(
				key.WithKeys("pgup"),
				key.WithHelp("pgup", "scroll up"),
			),
			PageDown: key.NewBinding(
				key.WithKeys("pgdown"),
				key.WithHelp("pgdown", "scroll down"),
			),
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c", "esc"),
				key.WithHelp("esc", "quit"),
			),
		},
		connected: true,
		Width:     width,
		Height:    height,
	}
	m.layout()
	m.appendLine(SystemStyle.Render("connected to " + opts.URL))
	return m
}

// Init implements tea.Model
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForMessage())
}

// waitForMessage blocks on the next relayed frame.
func (m ChatModel) waitForMessage() tea.Cmd {
	messages, errFn := m.opts.Messages, m.opts.Err
	if messages == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-messages
		if !ok {
			var err error
			if errFn != nil {
				err = errFn()
			}
			return disconnectedMsg{err: err}
		}
		return incomingMsg(msg)
	}
}

// send delivers one line off the UI goroutine.
func (m ChatModel) send(text string) tea.Cmd {
	sender := m.opts.Sender
	return func() tea.Msg {
		if sender == nil {
			return sentMsg{text: text, err: fmt.Errorf("not connected")}
		}
		return sentMsg{text: text, err: sender.SendText(text)}
	}
}

// Update implements tea.Model
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.input.Value())
			if text == "" || !m.connected {
				return m, nil
			}
			m.input.Reset()
			if m.opts.Nick != "" {
				text = m.opts.Nick + ": " + text
			}
			return m, m.send(text)

		case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case incomingMsg:
		m.appendLine(formatMessage(client.Message(msg)))
		return m, m.waitForMessage()

	case sentMsg:
		if msg.err != nil {
			m.appendLine(ErrorMessageStyle.Render("send failed: " + msg.err.Error()))
		}
		// Successful sends show up when the relay echoes them back.
		return m, nil

	case disconnectedMsg:
		m.connected = false
		m.input.Blur()
		notice := "disconnected from relay"
		if msg.err != nil {
			notice += ": " + msg.err.Error()
		}
		m.appendLine(ErrorMessageStyle.Render(notice))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m ChatModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		RenderHorizontalDivider(m.Width, "─"),
		m.input.View(),
		m.help.View(m.keys),
	)
}

// Connected reports whether the relay connection is still up.
func (m ChatModel) Connected() bool { return m.connected }

// Lines returns the rendered chat log.
func (m ChatModel) Lines() []string { return m.lines }

func (m ChatModel) renderHeader() string {
	status := StatusOnlineStyle.Render(OnlineMarker + " online")
	if !m.connected {
		status = StatusOfflineStyle.Render(FailureMarker + " offline")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		TitleStyle.Render("fanout"),
		" ",
		MutedStyle.Render(m.opts.URL),
		"  ",
		status,
	)
}

// layout sizes the viewport to whatever the header, input and help leave.
func (m *ChatModel) layout() {
	const chrome = 4 // header, divider, input, help
	height := m.Height - chrome
	if height < 1 {
		height = 1
	}
	m.viewport.Width = m.Width
	m.viewport.Height = height
	m.input.Width = m.Width - 4
	m.help.Width = m.Width
}

func (m *ChatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > MaxHistory {
		m.lines = m.lines[len(m.lines)-MaxHistory:]
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// formatMessage renders one relayed frame as a log line.
func formatMessage(msg client.Message) string {
	at := msg.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	stamp := TimestampStyle.Render(at.Format("15:04:05"))

	if !msg.Text() || !utf8.Valid(msg.Data) {
		return stamp + " " + MutedStyle.Render(fmt.Sprintf("[binary, %d bytes]", len(msg.Data)))
	}
	return stamp + " " + MessageStyle.Render(string(msg.Data))
}

// RunChat runs the chat screen until the user quits.
func RunChat(opts ChatOptions) error {
	p := tea.NewProgram(NewChatModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
