package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
)

// header, presence, rule, typing, notice, input
const chromeHeight = 7

type styles struct {
	title     lipgloss.Style
	online    lipgloss.Style
	offline   lipgloss.Style
	muted     lipgloss.Style
	author    lipgloss.Style
	self      lipgloss.Style
	errNotice lipgloss.Style
	okNotice  lipgloss.Style
	rule      lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		online:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		offline:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		author:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		self:      lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
		errNotice: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		okNotice:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		rule:      lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.renderPresence())
	b.WriteByte('\n')
	b.WriteString(m.styles.rule.Render(strings.Repeat("─", max(m.width, 20))))
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.renderTyping())
	b.WriteByte('\n')
	b.WriteString(m.renderNotice())
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.title.Render(m.tr.T("chat.title", "Board Chat"))
	var status string
	switch m.snap.State {
	case chat.Connected:
		status = m.styles.online.Render("● " + m.tr.T("chat.connected", "Connected"))
	case chat.Connecting:
		status = m.styles.muted.Render(m.spinner.View() + m.tr.T("chat.connecting", "Connecting..."))
	default:
		status = m.styles.offline.Render("● " + m.tr.T("chat.disconnected", "Disconnected"))
	}
	lang := m.styles.muted.Render("[" + m.tr.Language() + "]")
	return title + " " + lang + "  " + status
}

func (m Model) renderPresence() string {
	label := m.tr.T("chat.online_users", "Online Users")
	users := m.snap.OnlineUsers
	if len(users) == 0 {
		return m.styles.muted.Render(fmt.Sprintf("%s (0): %s", label,
			m.tr.T("chat.no_users_online", "No users currently online")))
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, m.displayName(u.DisplayName()))
	}
	return m.styles.muted.Render(fmt.Sprintf("%s (%d): %s", label, len(users), strings.Join(names, ", ")))
}

func (m Model) renderMessages() string {
	if m.loading {
		return m.styles.muted.Render(m.spinner.View() + m.tr.T("chat.loading", "Loading messages..."))
	}
	if len(m.snap.Messages) == 0 {
		return m.styles.muted.Render(m.tr.T("chat.no_messages", "No messages yet"))
	}

	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := m.displayName(msg.Username)
		style := m.styles.author
		if msg.UserID == m.userID {
			style = m.styles.self
		}
		ts := ""
		if !msg.CreatedAt.IsZero() {
			ts = m.styles.muted.Render(msg.CreatedAt.Local().Format("15:04")) + " "
		}
		b.WriteString(ts + style.Render(name) + ": " + msg.Content)
	}
	return b.String()
}

func (m Model) renderTyping() string {
	ids := m.snap.Typing
	switch len(ids) {
	case 0:
		return ""
	case 1:
		return m.styles.muted.Render(m.displayName(ids[0]) + " " + m.tr.T("chat.is_typing", "is typing..."))
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, m.displayName(id))
	}
	return m.styles.muted.Render(strings.Join(names, ", ") + " " + m.tr.T("chat.are_typing", "are typing..."))
}

func (m Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	text := m.notice.Text
	if m.notice.Key != "" {
		text = m.tr.T(m.notice.Key, m.notice.Text)
	}
	switch m.notice.Level {
	case chat.NoticeError:
		return m.styles.errNotice.Render(text)
	case chat.NoticeSuccess:
		return m.styles.okNotice.Render(text)
	default:
		return m.styles.muted.Render(text)
	}
}

func (m Model) displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return m.tr.T("chat.anonymous_user", "Anonymous User")
	}
	return name
}
