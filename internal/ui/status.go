// ABOUTME: Stream server status view for displaying connected clients
// ABOUTME: Real-time client, codec and position display using bubbletea
package ui

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/audiounit-go/caplay/pkg/stream"
)

// ServerStatus holds server state for the view
type ServerStatus struct {
	Name    string
	Port    int
	Title   string
	Clients []ClientInfo
	// Served counts clients that listened to the end
	Served int
}

// ClientInfo holds one connected client
type ClientInfo struct {
	ID       string
	Name     string
	Codec    string
	Position time.Duration
}

// statusModel is the bubbletea model for the status view
type statusModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{} // Signals the server to stop
}

type tickMsg time.Time
type statusMsg ServerStatus

func newStatusModel(status ServerStatus, quitChan chan struct{}) statusModel {
	return statusModel{
		status:    status,
		startTime: time.Now(),
		quitChan:  quitChan,
	}
}

func (m statusModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
	}

	return m, nil
}

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	clientHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

func (m statusModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("ulawcast"))
	b.WriteString("\n\n")

	field := func(label, value string) {
		b.WriteString(headerStyle.Render(label + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("Server", m.status.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	field("Streaming", m.status.Title)
	field("Served", fmt.Sprintf("%d", m.status.Served))
	b.WriteString("\n")

	b.WriteString(clientHeaderStyle.Render(fmt.Sprintf("Connected Clients (%d)", len(m.status.Clients))))
	b.WriteString("\n\n")

	if len(m.status.Clients) == 0 {
		b.WriteString(valueStyle.Render("  No clients connected"))
		b.WriteString("\n")
	}
	for _, client := range m.status.Clients {
		name := client.Name
		if name == "" {
			name = client.ID
		}
		b.WriteString(fmt.Sprintf("  * %s", name))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" (%s, %s)", client.Codec, formatPosition(client.Position))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// formatPosition prints a duration as m:ss
func formatPosition(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ServerTUI runs the status view and folds client events into it
type ServerTUI struct {
	program  *tea.Program
	updates  chan ServerStatus
	quitChan chan struct{}

	mu      sync.Mutex
	status  ServerStatus
	clients map[string]ClientInfo
	stopped bool
}

// NewServerTUI creates the status view for a server
func NewServerTUI(name string, port int, title string) *ServerTUI {
	t := &ServerTUI{
		updates:  make(chan ServerStatus, 1),
		quitChan: make(chan struct{}, 1),
		status:   ServerStatus{Name: name, Port: port, Title: title},
		clients:  make(map[string]ClientInfo),
	}
	t.program = tea.NewProgram(newStatusModel(t.status, t.quitChan), tea.WithAltScreen())
	return t
}

// Run shows the view until Stop is called or the user quits
func (t *ServerTUI) Run() error {
	go func() {
		for status := range t.updates {
			t.program.Send(statusMsg(status))
		}
	}()

	_, err := t.program.Run()
	return err
}

// ClientEvent applies a stream.Server client event. It never blocks.
func (t *ServerTUI) ClientEvent(ev stream.ClientEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.State {
	case stream.ClientStreaming:
		t.clients[ev.ID] = ClientInfo{ID: ev.ID, Name: ev.Name, Codec: ev.Codec, Position: ev.Position}
	case stream.ClientFinished:
		delete(t.clients, ev.ID)
		t.status.Served++
	default:
		delete(t.clients, ev.ID)
	}

	t.status.Clients = make([]ClientInfo, 0, len(t.clients))
	for _, c := range t.clients {
		t.status.Clients = append(t.status.Clients, c)
	}
	slices.SortFunc(t.status.Clients, func(a, b ClientInfo) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if !t.stopped {
		t.publish(t.status)
	}
}

// publish replaces any undelivered status with the latest one. The caller holds mu.
func (t *ServerTUI) publish(status ServerStatus) {
	for {
		select {
		case t.updates <- status:
			return
		default:
		}
		select {
		case <-t.updates:
		default:
		}
	}
}

// Status returns the current status snapshot
func (t *ServerTUI) Status() ServerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := t.status
	status.Clients = slices.Clone(t.status.Clients)
	return status
}

// Stop closes the view. Run must have been called.
func (t *ServerTUI) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	close(t.updates)
	t.mu.Unlock()

	t.program.Quit()
}

// QuitChan returns the channel that signals when the user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
