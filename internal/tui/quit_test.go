package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelusa-v/boardhub-chat/internal/auth"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
	"github.com/stretchr/testify/require"
)

type idleAPI struct{}

func (idleAPI) ChatMessages(context.Context, int, int) (chat.ChatMessagesResponse, error) {
	return chat.ChatMessagesResponse{}, nil
}

func (idleAPI) OnlineUsers(context.Context) ([]chat.OnlineUser, error) {
	return []chat.OnlineUser{{ID: "me"}}, nil
}

func (idleAPI) SendChatMessage(_ context.Context, content string) (chat.ChatMessage, error) {
	return chat.ChatMessage{Content: content}, nil
}

// idleConn blocks reads until closed.
type idleConn struct {
	closed chan struct{}
	once   sync.Once
}

func (c *idleConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *idleConn) WriteMessage(int, []byte) error { return nil }

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type idleDialer struct{ conn *idleConn }

func (d idleDialer) Dial(context.Context, string, []string, http.Header) (chat.ConnLike, error) {
	return d.conn, nil
}

func runProgram(t *testing.T, quit tea.Msg) {
	t.Helper()
	conn := &idleConn{closed: make(chan struct{})}

	var program *tea.Program
	session := chat.NewSession(idleAPI{}, idleDialer{conn: conn}, auth.StaticToken("tok"),
		chat.WithUserID("me"),
		chat.WithURL("ws://backend.test/routes/chat/ws"),
		chat.WithPingInterval(0),
		chat.WithHooks(Hooks(func(msg tea.Msg) { program.Send(msg) })),
	)
	t.Cleanup(session.Disconnect)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	tr := &fakeTranslator{lang: "en", strings: map[string]string{}}
	program = tea.NewProgram(New(ctx, session, tr, "me"),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	done := make(chan error, 1)
	go func() {
		_, err := program.Run()
		done <- err
	}()

	require.Eventually(t, func() bool { return session.State() == chat.Connected }, 3*time.Second, 10*time.Millisecond)
	program.Send(quit)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("program still running after quit")
	}
	require.Equal(t, chat.Disconnected, session.State())
	select {
	case <-conn.closed:
	default:
		t.Fatal("socket left open after quit")
	}
}

func TestProgram_CtrlCWhileConnected(t *testing.T) {
	runProgram(t, tea.KeyMsg{Type: tea.KeyCtrlC})
}

func TestProgram_EscWhileConnected(t *testing.T) {
	runProgram(t, tea.KeyMsg{Type: tea.KeyEsc})
}
