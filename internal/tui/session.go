// Package tui is the full-screen front end of the shell.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dotcommander/confab/internal/present"
)

// Handler runs one shell line. *shell.Shell implements it.
type Handler interface {
	Handle(ctx context.Context, line string) (bool, error)
}

type sessionState int

const (
	inputState sessionState = iota
	busyState
)

// Session is the Bubble Tea model of an interactive shell session.
type Session struct {
	state    sessionState
	input    textinput.Model
	viewport viewport.Model
	renderer *lipgloss.Renderer
	styles   present.Styles

	handler Handler
	writer  *Writer
	ctx     context.Context

	historyBuf  bytes.Buffer
	events      chan tea.Msg
	cancelQuery context.CancelFunc

	width  int
	height int

	busySince time.Time
}

// Writer is the io.Writer handed to the shell. Output written while a line
// runs is forwarded to the session until the session ends.
type Writer struct {
	mu   sync.Mutex
	ch   chan<- tea.Msg
	done <-chan struct{}
}

// NewWriter returns a writer that drops output until a session line runs.
func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ch != nil && len(p) > 0 {
		select {
		case w.ch <- outputMsg(string(p)):
		case <-w.done:
		}
	}
	return len(p), nil
}

func (w *Writer) attach(ch chan<- tea.Msg, done <-chan struct{}) {
	w.mu.Lock()
	w.ch = ch
	w.done = done
	w.mu.Unlock()
}

// NewSession creates the model. banner is shown above the first prompt.
func NewSession(ctx context.Context, r *lipgloss.Renderer, handler Handler, w *Writer, banner string) *Session {
	ti := textinput.New()
	ti.Prompt = "confab> "
	ti.Focus()
	ti.CharLimit = 0

	vp := viewport.New(0, 0)
	vp.GotoBottom()

	s := &Session{
		state:    inputState,
		input:    ti,
		viewport: vp,
		renderer: r,
		styles:   present.MakeStyles(r),
		handler:  handler,
		writer:   w,
		ctx:      ctx,
	}
	s.historyBuf.WriteString(banner)
	return s
}

type submitMsg struct {
	line string
}

type outputMsg string

type doneMsg struct {
	quit bool
	err  error
}

type waitingTickMsg struct{}

// Init implements tea.Model.
func (s *Session) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (s *Session) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.resizeViewport()
		s.refreshViewport()
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if s.state == busyState {
				s.cancel()
				return s, nil
			}
			return s, tea.Quit
		case "enter":
			if s.state != inputState {
				break
			}
			text := strings.TrimSpace(s.input.Value())
			if text == "" {
				return s, nil
			}
			s.input.SetValue("")
			return s, func() tea.Msg {
				return submitMsg{line: text}
			}
		}

	case submitMsg:
		fmt.Fprintf(&s.historyBuf, "\n%s %s\n", s.styles.Prompt.Render(">"), msg.line)
		s.busySince = time.Now()
		s.state = busyState
		s.resizeViewport()
		s.refreshViewport()
		return s, tea.Batch(s.startCmd(msg.line), s.waitingTickCmd())

	case outputMsg:
		s.historyBuf.WriteString(string(msg))
		s.refreshViewport()
		return s, s.receiveCmd()

	case doneMsg:
		s.cancel()
		s.busySince = time.Time{}
		s.state = inputState
		if msg.err != nil {
			fmt.Fprintf(&s.historyBuf, "%s %s\n", s.styles.ErrorHeader.String(), s.styles.ErrorDetails.Render(msg.err.Error()))
		}
		s.resizeViewport()
		s.refreshViewport()
		if msg.quit {
			return s, tea.Quit
		}
		return s, nil

	case waitingTickMsg:
		if s.state == busyState {
			return s, s.waitingTickCmd()
		}
		return s, nil
	}

	if s.state == inputState {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return s, tea.Batch(cmds...)
}

// View implements tea.Model.
func (s *Session) View() string {
	if s.width == 0 || s.height == 0 {
		return ""
	}

	divider := s.styles.Comment.Render(strings.Repeat("─", max(s.width, 1)))
	if s.state == busyState {
		return s.viewport.View() + "\n" + divider + "\n" + s.waitingStatus(time.Now())
	}
	return s.viewport.View() + "\n" + divider + "\n" + s.input.View()
}

// Transcript returns everything shown in the session so far.
func (s *Session) Transcript() string {
	return s.historyBuf.String()
}

// startCmd runs the line on its own goroutine. Output and completion arrive
// through s.events, which receiveCmd drains one message at a time. Once the
// session context ends nothing drains s.events, so sends give up.
func (s *Session) startCmd(line string) tea.Cmd {
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelQuery = cancel

	events := make(chan tea.Msg)
	s.events = events
	s.writer.attach(events, s.ctx.Done())

	go func() {
		quit, err := s.handler.Handle(ctx, line)
		s.writer.attach(nil, nil)
		select {
		case events <- doneMsg{quit: quit, err: err}:
		case <-s.ctx.Done():
		}
	}()
	return s.receiveCmd()
}

func (s *Session) receiveCmd() tea.Cmd {
	events := s.events
	return func() tea.Msg {
		return <-events
	}
}

func (s *Session) cancel() {
	if s.cancelQuery != nil {
		s.cancelQuery()
		s.cancelQuery = nil
	}
}

func (s *Session) refreshViewport() {
	content := strings.TrimRightFunc(s.historyBuf.String(), unicode.IsSpace) + "\n"
	truncated := s.renderer.NewStyle().MaxWidth(s.width).Render(content)

	wasAtBottom := s.viewport.ScrollPercent() >= 1.0
	s.viewport.SetContent(truncated)
	if wasAtBottom {
		s.viewport.GotoBottom()
	}
}

func (s *Session) waitingTickCmd() tea.Cmd {
	const waitingInterval = 200 * time.Millisecond
	return tea.Tick(waitingInterval, func(time.Time) tea.Msg {
		return waitingTickMsg{}
	})
}

func (s *Session) resizeViewport() {
	const footerLines = 2
	if s.width > 0 {
		s.viewport.Width = s.width
	}
	s.viewport.Height = max(s.height-footerLines, 1)
}

func (s *Session) waitingStatus(now time.Time) string {
	if s.busySince.IsZero() {
		return s.styles.Comment.Render("Working...")
	}
	elapsed := max(now.Sub(s.busySince), 0)
	return s.styles.Comment.Render("Working... [" + formatElapsedClock(elapsed) + "]  ctrl+c to cancel")
}

func formatElapsedClock(d time.Duration) string {
	totalSeconds := int(d / time.Second)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
