// Package tui is the terminal front end of a chat session.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
)

const noticeTTL = 4 * time.Second

// Session is what the model drives; *chat.Session implements it.
type Session interface {
	Start(ctx context.Context) error
	Snapshot() chat.Snapshot
	SendMessage(ctx context.Context, text string) error
	NotifyTyping(active bool) error
	LoadHistory(ctx context.Context, limit, offset int) error
	Disconnect()
}

// Translator is the i18n catalog as seen by the UI.
type Translator interface {
	T(key, def string) string
	Language() string
	ChangeLanguage(ctx context.Context, lang string) error
	Reload(ctx context.Context) error
}

// Messages forwarded from session hooks.
type (
	SnapshotMsg chat.Snapshot
	NoticeMsg   chat.Notice
	MessageMsg  chat.ChatMessage
)

type (
	startedMsg     struct{ err error }
	sentMsg        struct{ err error }
	langMsg        struct{ err error }
	clearNoticeMsg struct{ seq int }
)

// Hooks turns session callbacks into program messages.
func Hooks(send func(tea.Msg)) chat.Hooks {
	return chat.Hooks{
		OnChange:  func(s chat.Snapshot) { send(SnapshotMsg(s)) },
		OnMessage: func(m chat.ChatMessage) { send(MessageMsg(m)) },
		OnNotice:  func(n chat.Notice) { send(NoticeMsg(n)) },
	}
}

type Model struct {
	ctx     context.Context
	session Session
	tr      Translator
	userID  string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   styles

	snap      chat.Snapshot
	loading   bool
	sending   bool
	notice    *chat.Notice
	noticeSeq int
	width     int
}

func New(ctx context.Context, session Session, tr Translator, userID string) Model {
	ti := textinput.New()
	ti.Placeholder = tr.T("chat.type_message", "Type your message...")
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		session:  session,
		tr:       tr,
		userID:   userID,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		styles:   defaultStyles(),
		loading:  true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.start())
}

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.session.Start(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, m.quit()
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if after := m.input.Value(); after != before && strings.TrimSpace(after) != "" {
			_ = m.session.NotifyTyping(true)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh(false)

	case SnapshotMsg:
		m.snap = chat.Snapshot(msg)
		m.refresh(false)

	case MessageMsg:
		m.refresh(true)

	case NoticeMsg:
		n := chat.Notice(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		cmds = append(cmds, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} }))

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}

	case startedMsg:
		m.loading = false
		m.snap = m.session.Snapshot()
		m.refresh(true)

	case sentMsg:
		m.sending = false
		if msg.err == nil || errors.Is(msg.err, chat.ErrEmptyMessage) {
			m.input.Reset()
		}

	case langMsg:
		if msg.err != nil {
			cmds = append(cmds, func() tea.Msg {
				return NoticeMsg(chat.Notice{Level: chat.NoticeError, Key: "chat.notice.translations_failed",
					Text: "Failed to load translations", Err: msg.err})
			})
		}
		m.input.Placeholder = m.tr.T("chat.type_message", "Type your message...")
		m.refresh(false)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.sending {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.command(text)
	}

	m.sending = true
	return m, func() tea.Msg {
		return sentMsg{err: m.session.SendMessage(m.ctx, text)}
	}
}

// command runs one of /lang <code>, /reload, /history [n], /quit.
func (m Model) command(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return m, m.quit()

	case "/lang":
		if len(fields) < 2 {
			return m, m.info(m.tr.T("chat.cmd.lang_usage", "usage: /lang <code>"))
		}
		lang := fields[1]
		return m, func() tea.Msg {
			return langMsg{err: m.tr.ChangeLanguage(m.ctx, lang)}
		}

	case "/reload":
		return m, func() tea.Msg {
			return langMsg{err: m.tr.Reload(m.ctx)}
		}

	case "/history":
		limit := chat.DefaultHistoryLimit
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				limit = n
			}
		}
		return m, func() tea.Msg {
			_ = m.session.LoadHistory(m.ctx, limit, 0)
			return nil
		}
	}
	return m, m.info(m.tr.T("chat.cmd.unknown", "unknown command") + ": " + fields[0])
}

// quit runs Disconnect as a command, outside Update.
func (m Model) quit() tea.Cmd {
	return func() tea.Msg {
		m.session.Disconnect()
		return tea.QuitMsg{}
	}
}

func (m Model) info(text string) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg(chat.Notice{Level: chat.NoticeInfo, Text: text})
	}
}

// refresh re-renders the message list; bottom forces a scroll to the end.
func (m *Model) refresh(bottom bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if bottom || atBottom {
		m.viewport.GotoBottom()
	}
}
