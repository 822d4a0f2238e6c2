package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/a-h/chatrelay/client"
	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/session"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ChatCommand struct {
	ServerURL string `help:"The URL of the chat relay server." env:"CHAT_RELAY_URL" default:"http://localhost:9040"`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

const defaultTitle = "New chat"

// revealInterval is the delay between characters of the reveal animation.
const revealInterval = 30 * time.Millisecond

type replyResult struct {
	content string
	err     error
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	crc := client.New(c.ServerURL)

	toRelay := make(chan models.ChatPostRequest)
	fromRelay := make(chan replyResult)
	titles := make(chan string, 1)
	defer close(toRelay)
	defer close(fromRelay)

	go func() {
		for req := range toRelay {
			resp, err := crc.ChatPost(ctx, req)
			if err != nil {
				fromRelay <- replyResult{err: err}
				continue
			}
			fromRelay <- replyResult{content: resp.Content()}
		}
	}()

	s := session.New(func(title string) {
		titles <- title
	})

	p := tea.NewProgram(newChatModel(ctx, s, toRelay, fromRelay, titles))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

type theme struct {
	name      string
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errBanner lipgloss.Style
	status    lipgloss.Style
}

var darkTheme = theme{
	name:      "dark",
	header:    lipgloss.NewStyle().Background(lipgloss.Color("#44475a")).Foreground(lipgloss.Color("#bd93f9")).Bold(true).Padding(0, 1),
	user:      lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(lipgloss.Color("#282a36")).Foreground(lipgloss.Color("#ff79c6")),
	assistant: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(lipgloss.Color("#282a36")).Foreground(lipgloss.Color("#8be9fd")),
	errBanner: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true).Padding(0, 1),
	status:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4")).Padding(0, 1),
}

var lightTheme = theme{
	name:      "light",
	header:    lipgloss.NewStyle().Background(lipgloss.Color("#e0e0e0")).Foreground(lipgloss.Color("#6f42c1")).Bold(true).Padding(0, 1),
	user:      lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(lipgloss.Color("#f5f5f5")).Foreground(lipgloss.Color("#d63384")),
	assistant: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(lipgloss.Color("#f5f5f5")).Foreground(lipgloss.Color("#0d6efd")),
	errBanner: lipgloss.NewStyle().Foreground(lipgloss.Color("#dc3545")).Bold(true).Padding(0, 1),
	status:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d")).Padding(0, 1),
}

type revealTickMsg struct {
	id int
}

type titleMsg string

type chatModel struct {
	ctx      context.Context
	viewport viewport.Model
	textarea textarea.Model
	session  *session.Session

	messages []models.Message
	title    string
	theme    theme
	loading  bool
	err      error

	// Reveal animation state for the latest assistant message. A new reveal
	// bumps the id, which invalidates any tick still in flight for the
	// previous message.
	revealID    int
	revealShown int

	toRelay   chan models.ChatPostRequest
	fromRelay chan replyResult
	titles    chan string
}

func newChatModel(ctx context.Context, s *session.Session, toRelay chan models.ChatPostRequest, fromRelay chan replyResult, titles chan string) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Enter a message"
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 280

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return chatModel{
		ctx:       ctx,
		textarea:  ta,
		viewport:  vp,
		session:   s,
		title:     defaultTitle,
		theme:     darkTheme,
		toRelay:   toRelay,
		fromRelay: fromRelay,
		titles:    titles,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToReplies(),
		m.subscribeToTitles(),
	)
}

func (m chatModel) subscribeToReplies() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromRelay:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m chatModel) subscribeToTitles() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.titles:
			return titleMsg(x)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m chatModel) revealTick() tea.Cmd {
	id := m.revealID
	return tea.Tick(revealInterval, func(time.Time) tea.Msg {
		return revealTickMsg{id: id}
	})
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case replyResult:
		m.loading = false
		content := msg.content
		if msg.err != nil {
			m.err = msg.err
			content = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.err = nil
			m.session.Observe(content)
		}
		// The user's turn stays in the transcript even when the reply is an
		// error, so the conversation remains usable after failure.
		m.messages = append(m.messages, models.Message{
			Role:    models.RoleAssistant,
			Content: content,
		})
		m.revealID++
		m.revealShown = 0
		m.renderMessages()
		return m, tea.Batch(m.subscribeToReplies(), m.revealTick())

	case titleMsg:
		m.title = string(msg)
		return m, m.subscribeToTitles()

	case revealTickMsg:
		if msg.id != m.revealID {
			// A newer reveal has started; this tick belongs to a cancelled one.
			return m, nil
		}
		m.revealShown++
		m.renderMessages()
		if last := m.messages[len(m.messages)-1]; m.revealShown < len([]rune(last.Content)) {
			return m, m.revealTick()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 5
		m.textarea.SetWidth(msg.Width)
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "ctrl+t":
			if m.theme.name == darkTheme.name {
				m.theme = lightTheme
			} else {
				m.theme = darkTheme
			}
			m.renderMessages()
			return m, nil
		case "enter":
			v := m.textarea.Value()

			if v == "" || m.loading {
				// Don't send empty messages, and don't allow a second
				// in-flight turn.
				return m, nil
			}

			req := m.session.BuildRequest(m.messages, v)
			m.messages = append(m.messages, models.Message{
				Role:    models.RoleUser,
				Content: v,
			})
			// Cancel any reveal still running for the previous reply.
			m.revealID++
			m.loading = true
			m.textarea.Reset()
			m.renderMessages()
			m.toRelay <- req
			return m, nil
		default:
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m *chatModel) renderMessages() {
	var sb strings.Builder
	for i, cm := range m.messages {
		content := cm.Content
		if cm.Role == models.RoleAssistant && i == len(m.messages)-1 {
			runes := []rune(content)
			if m.revealShown < len(runes) {
				content = string(runes[:m.revealShown])
			}
		}
		style := m.theme.user
		if cm.Role == models.RoleAssistant {
			style = m.theme.assistant
		}
		sb.WriteString(style.Render(wordwrap.String(strings.TrimSpace(content), 80)))
		sb.WriteString("\n")
	}
	if m.loading {
		sb.WriteString(m.theme.status.Render("..."))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.theme.header.Render(m.title))
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(m.theme.errBanner.Render(fmt.Sprintf("Failed to get a response: %v", m.err)))
		sb.WriteString("\n")
	}
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n")
	sb.WriteString(m.theme.status.Render("enter: send • ctrl+t: theme • esc: quit"))
	sb.WriteString("\n")
	return sb.String()
}
