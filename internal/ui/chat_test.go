package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/muurk/fanout/internal/client"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func newTestChat(sender Sender, messages chan client.Message) ChatModel {
	m := NewChatModel(ChatOptions{
		Sender:   sender,
		Messages: messages,
		URL:      "ws://relay:8000/?t=xxxxx",
	})
	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return model.(ChatModel)
}

func typeText(m ChatModel, text string) ChatModel {
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return model.(ChatModel)
}

func lastLine(m ChatModel) string {
	lines := m.Lines()
	return lines[len(lines)-1]
}

func TestChatSendsInput(t *testing.T) {
	sender := &fakeSender{}
	m := newTestChat(sender, nil)

	m = typeText(m, "hello")
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(ChatModel)

	if cmd == nil {
		t.Fatal("enter should return a send command")
	}
	msg := cmd()
	if _, ok := msg.(sentMsg); !ok {
		t.Fatalf("send command returned %T, want sentMsg", msg)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "hello" {
		t.Errorf("sent = %v, want [hello]", sender.sent)
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
}

func TestChatNickPrefix(t *testing.T) {
	sender := &fakeSender{}
	m := NewChatModel(ChatOptions{Sender: sender, Nick: "ada"})

	m = typeText(m, "hi")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()

	if len(sender.sent) != 1 || sender.sent[0] != "ada: hi" {
		t.Errorf("sent = %v, want [ada: hi]", sender.sent)
	}
}

func TestChatIgnoresBlankInput(t *testing.T) {
	sender := &fakeSender{}
	m := newTestChat(sender, nil)

	m = typeText(m, "   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank input should not send")
	}
}

func TestChatShowsSendErrors(t *testing.T) {
	m := newTestChat(&fakeSender{}, nil)

	model, _ := m.Update(sentMsg{text: "x", err: errors.New("broken pipe")})
	m = model.(ChatModel)

	if !strings.Contains(lastLine(m), "broken pipe") {
		t.Errorf("last line = %q, want the send error", lastLine(m))
	}
}

func TestChatReceivesMessages(t *testing.T) {
	messages := make(chan client.Message, 1)
	m := newTestChat(&fakeSender{}, messages)

	messages <- client.Message{Type: websocket.TextMessage, Data: []byte("hello from relay"), ReceivedAt: time.Now()}
	msg := m.waitForMessage()()
	model, cmd := m.Update(msg)
	m = model.(ChatModel)

	if !strings.Contains(lastLine(m), "hello from relay") {
		t.Errorf("last line = %q, want the relayed text", lastLine(m))
	}
	if cmd == nil {
		t.Error("model should keep waiting for messages")
	}
	if !strings.Contains(m.View(), "hello from relay") {
		t.Error("View() does not show the message")
	}
}

func TestChatDisconnect(t *testing.T) {
	messages := make(chan client.Message)
	m := NewChatModel(ChatOptions{
		Sender:   &fakeSender{},
		Messages: messages,
		Err:      func() error { return errors.New("connection reset by peer") },
	})
	close(messages)

	msg := m.waitForMessage()()
	if _, ok := msg.(disconnectedMsg); !ok {
		t.Fatalf("closed channel produced %T, want disconnectedMsg", msg)
	}
	model, _ := m.Update(msg)
	m = model.(ChatModel)

	if m.Connected() {
		t.Error("model should be disconnected")
	}
	if !strings.Contains(lastLine(m), "connection reset by peer") {
		t.Errorf("last line = %q, want the disconnect reason", lastLine(m))
	}
	if !strings.Contains(m.View(), "offline") {
		t.Error("header should show offline")
	}

	m = typeText(m, "anyone?")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("should not send after disconnect")
	}
}

func TestChatQuit(t *testing.T) {
	m := newTestChat(&fakeSender{}, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should return tea.Quit")
	}
}

func TestChatHistoryCap(t *testing.T) {
	m := newTestChat(&fakeSender{}, nil)
	for i := 0; i < MaxHistory+10; i++ {
		m.appendLine("line")
	}
	if got := len(m.Lines()); got != MaxHistory {
		t.Errorf("history = %d lines, want %d", got, MaxHistory)
	}
}

func TestFormatMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		msg  client.Message
		want string
	}{
		{"text", client.Message{Type: websocket.TextMessage, Data: []byte("hi"), ReceivedAt: at}, "hi"},
		{"binary", client.Message{Type: websocket.BinaryMessage, Data: []byte{0, 1, 2}, ReceivedAt: at}, "[binary, 3 bytes]"},
		{"invalid utf8", client.Message{Type: websocket.TextMessage, Data: []byte{0xff}, ReceivedAt: at}, "[binary, 1 bytes]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessage(tt.msg)
			if !strings.Contains(got, "13:04:05") || !strings.Contains(got, tt.want) {
				t.Errorf("formatMessage() = %q, want timestamp and %q", got, tt.want)
			}
		})
	}
}
