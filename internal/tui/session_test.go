package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func newTestSession(h *stubHandler) (*Session, *Writer) {
	w := NewWriter()
	h.out = w
	s := NewSession(context.Background(), lipgloss.DefaultRenderer(), h, w, "banner\n")
	// Simulate a window size so View doesn't short-circuit.
	s.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return s, w
}

func TestSession_CtrlC_InputState(t *testing.T) {
	s, _ := newTestSession(&stubHandler{})

	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected a command from ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSession_EmptyInput_Ignored(t *testing.T) {
	s, _ := newTestSession(&stubHandler{})

	s.input.SetValue("   ")
	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no command for blank input")
	}
	if s.state != inputState {
		t.Errorf("expected inputState, got %d", s.state)
	}
}

func TestSession_EnterSubmits(t *testing.T) {
	s, _ := newTestSession(&stubHandler{})

	s.input.SetValue("  /tools ")
	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	msg, ok := cmd().(submitMsg)
	if !ok || msg.line != "/tools" {
		t.Fatalf("expected submitMsg{/tools}, got %#v", msg)
	}
	if s.input.Value() != "" {
		t.Error("expected input to be cleared")
	}
}

func TestSession_StreamsOutputThenReturnsToInput(t *testing.T) {
	h := &stubHandler{chunks: []string{"Calling tool search_papers\n", "Found it.\n"}}
	s, _ := newTestSession(h)

	s.state = busyState
	cmd := s.startCmd("physics?")
	for range h.chunks {
		msg, ok := cmd().(outputMsg)
		if !ok {
			t.Fatal("expected output before completion")
		}
		_, cmd = s.Update(msg)
	}
	done, ok := cmd().(doneMsg)
	if !ok {
		t.Fatal("expected doneMsg")
	}
	_, cmd = s.Update(done)
	if cmd != nil {
		t.Error("expected no command after a successful line")
	}

	if s.state != inputState {
		t.Errorf("expected inputState, got %d", s.state)
	}
	if !strings.Contains(s.Transcript(), "Calling tool search_papers\nFound it.\n") {
		t.Errorf("transcript missing output: %q", s.Transcript())
	}
	if h.lines[0] != "physics?" {
		t.Errorf("handler got %q", h.lines[0])
	}
}

func TestSession_ErrorIsShown(t *testing.T) {
	s, _ := newTestSession(&stubHandler{err: errors.New("model offline")})

	cmd := s.startCmd("hi")
	_, _ = s.Update(cmd())
	if !strings.Contains(s.Transcript(), "model offline") {
		t.Errorf("expected error in transcript, got %q", s.Transcript())
	}
	if s.state != inputState {
		t.Errorf("expected inputState, got %d", s.state)
	}
}

func TestSession_QuitFromHandler(t *testing.T) {
	s, _ := newTestSession(&stubHandler{quit: true})

	cmd := s.startCmd("quit")
	_, cmd = s.Update(cmd())
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSession_CtrlC_BusyCancelsLine(t *testing.T) {
	s, _ := newTestSession(&stubHandler{block: true})

	s.state = busyState
	cmd := s.startCmd("slow question")
	_, quit := s.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if quit != nil {
		if _, ok := quit().(tea.QuitMsg); ok {
			t.Fatal("ctrl+c while busy should not quit")
		}
	}

	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	select {
	case msg := <-result:
		done, ok := msg.(doneMsg)
		if !ok || !errors.Is(done.err, context.Canceled) {
			t.Fatalf("expected canceled doneMsg, got %#v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("line was not canceled")
	}
}

func TestSession_EndReleasesRunningLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &stubHandler{chunks: []string{"first\n", "second\n"}, returned: make(chan struct{})}
	w := NewWriter()
	h.out = w
	s := NewSession(ctx, lipgloss.DefaultRenderer(), h, w, "")

	s.state = busyState
	_ = s.startCmd("physics?")
	cancel()

	select {
	case <-h.returned:
	case <-time.After(5 * time.Second):
		t.Fatal("handler still blocked on output after the session ended")
	}
}

func TestSession_ViewShowsWorkingStatus(t *testing.T) {
	s, _ := newTestSession(&stubHandler{})
	s.state = busyState
	s.busySince = time.Now().Add(-3 * time.Second)

	if !strings.Contains(s.View(), "Working... [00:0") {
		t.Errorf("expected working status in view, got %q", s.View())
	}
}

func TestWriterWithoutSessionDropsOutput(t *testing.T) {
	n, err := NewWriter().Write([]byte("ignored"))
	if err != nil || n != len("ignored") {
		t.Fatalf("unexpected write result %d, %v", n, err)
	}
}

func TestFormatElapsedClock(t *testing.T) {
	for d, want := range map[time.Duration]string{
		0:                                         "00:00",
		999 * time.Millisecond:                    "00:00",
		59 * time.Second:                          "00:59",
		61 * time.Second:                          "01:01",
		time.Hour + 2*time.Minute + 3*time.Second: "01:02:03",
	} {
		t.Run(fmt.Sprint(d), func(t *testing.T) {
			if got := formatElapsedClock(d); got != want {
				t.Errorf("formatElapsedClock(%s) = %q, want %q", d, got, want)
			}
		})
	}
}

// stubHandler is a test double for Handler.
type stubHandler struct {
	out    *Writer
	chunks []string
	err    error
	quit   bool
	block  bool
	lines  []string

	returned chan struct{}
}

func (h *stubHandler) Handle(ctx context.Context, line string) (bool, error) {
	h.lines = append(h.lines, line)
	if h.returned != nil {
		defer close(h.returned)
	}
	if h.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	for _, c := range h.chunks {
		_, _ = h.out.Write([]byte(c))
	}
	return h.quit, h.err
}
