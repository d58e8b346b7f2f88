// Package tui provides a Bubble Tea terminal user interface for beat-sharer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/beat-sharer/internal/config"
	"github.com/handiism/beat-sharer/internal/download"
	"github.com/handiism/beat-sharer/internal/share"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	keyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateFetchingList
	StateUploading
	StateDownloading
	StateComplete
	StateError
)

const maxLogs = 10

// errCancelled is shown when the user aborts a running operation.
var errCancelled = errors.New("cancelled by user")

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	service   *share.Service
	events    chan download.ProgressEvent
	logs      []LogEntry
	err       error

	// Operation context
	ctx    context.Context
	cancel context.CancelFunc

	// Running or finished download
	batch    *share.Batch
	playlist string

	// Finished upload
	uploadKey   uint8
	uploadCount int

	// Options
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "list key (0-255)"
	ti.Focus()
	ti.CharLimit = 3
	ti.Width = 20
	ti.Validate = func(s string) error {
		if strings.Trim(s, "0123456789") != "" {
			return errors.New("digits only")
		}
		return nil
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	// Events are dropped rather than blocking a download when the UI lags.
	events := make(chan download.ProgressEvent, 256)
	onProgress := func(event download.ProgressEvent) {
		select {
		case events <- event:
		default:
		}
	}

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		service:   share.NewService(settings, onProgress),
		events:    events,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listen())
}

// Message types
type (
	// ProgressMsg carries one event from the downloader or share service.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// BatchStartedMsg is sent once the list was loaded and the download began.
	BatchStartedMsg struct {
		Batch *share.Batch
		Err   error
	}

	// BatchDoneMsg is sent when the running download has finished.
	BatchDoneMsg struct {
		Playlist string
		Err      error
	}

	// UploadDoneMsg is sent when an upload finished.
	UploadDoneMsg struct {
		Key   uint8
		Count int
		Err   error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.busy() {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput {
				key, err := parseKey(m.textInput.Value())
				if err != nil {
					m.err = err
					return m, nil
				}
				m.err = nil
				m.state = StateFetchingList
				return m, tea.Batch(m.startDownload(key), m.spinner.Tick)
			}

		case "u":
			if m.state == StateInput {
				m.err = nil
				m.state = StateUploading
				return m, tea.Batch(m.startUpload(), m.spinner.Tick)
			}

		case "p":
			if m.state == StateInput {
				m.settings.CreatePlaylist = !m.settings.CreatePlaylist
				return m, nil
			}

		case "s":
			if m.state == StateInput {
				m.settings.SkipExisting = !m.settings.SkipExisting
				return m, nil
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "+", "=":
			if m.state == StateDownloading && m.batch != nil {
				m.batch.SetLimit(m.batch.Limit() + 1)
			}

		case "-":
			if m.state == StateDownloading && m.batch != nil {
				m.batch.SetLimit(m.batch.Limit() - 1)
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.listen())
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case BatchStartedMsg:
		if m.state != StateFetchingList {
			break
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.batch = msg.Batch
		m.state = StateDownloading
		cmds = append(cmds, m.waitBatch(msg.Batch), m.tickProgress())

	case BatchDoneMsg:
		if m.state != StateDownloading {
			break
		}
		m.playlist = msg.Playlist
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.state = StateComplete
		}
		cmds = append(cmds, m.progress.SetPercent(m.percent()))

	case UploadDoneMsg:
		if m.state != StateUploading {
			break
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.uploadKey = msg.Key
		m.uploadCount = msg.Count
		m.state = StateComplete

	case TickMsg:
		if m.batch != nil && m.state == StateDownloading {
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		if key, ok := msg.(tea.KeyMsg); !ok || !isCommandKey(key.String()) {
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// isCommandKey reports whether key is handled by the input screen itself
// instead of the text field.
func isCommandKey(key string) bool {
	switch key {
	case "u", "p", "s", "v", "enter", "esc":
		return true
	}
	return false
}

func (m Model) busy() bool {
	return m.state == StateFetchingList || m.state == StateUploading || m.state == StateDownloading
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.batch = nil
	m.playlist = ""
	m.uploadKey = 0
	m.uploadCount = 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// percent returns the share of maps attempted in the current batch.
func (m Model) percent() float64 {
	if m.batch == nil || m.batch.Total() == 0 {
		return 1
	}
	snap := m.batch.Snapshot()
	done := snap.Completed + len(snap.Failures)
	return float64(done) / float64(m.batch.Total())
}

// parseKey validates a list key typed by the user.
func parseKey(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("enter a list key")
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: must be a number from 0 to 255", s)
	}
	return uint8(n), nil
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// listen waits for the next progress event.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♪ Beat Sharer"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Share custom levels by key"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateFetchingList:
		b.WriteString(m.viewWaiting("Loading shared list..."))
	case StateUploading:
		b.WriteString(m.viewWaiting("Sharing installed levels..."))
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter a list key to download, or press u to share your levels:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Skip installed levels (s)\n", check(m.settings.SkipExisting))
	fmt.Fprintf(&b, "  %s Create playlist (p)\n", check(m.settings.CreatePlaylist))
	fmt.Fprintf(&b, "  %s Verbose/debug output (v)\n", check(m.verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Levels folder: %s", m.settings.CustomLevelsPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewWaiting(label string) string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(label))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if n := len(m.batch.Skipped); n > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d level(s) already installed", n)))
		b.WriteString("\n")
	}

	snap := m.batch.Snapshot()
	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Levels: %d/%d | Failed: %d | Downloaded: %.2f MB",
		snap.Completed,
		m.batch.Total(),
		len(snap.Failures),
		float64(m.batch.Received())/1024/1024,
	)))
	b.WriteString("\n")

	inFlight := snap.InFlight
	b.WriteString(infoStyle.Render(fmt.Sprintf("Parallel: %d/%d", len(inFlight), m.batch.Limit())))
	if len(inFlight) > 0 {
		b.WriteString(dimStyle.Render("  " + strings.Join(inFlight, " ")))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	if m.batch == nil {
		box := boxStyle.Render(fmt.Sprintf(
			"✨ Levels shared!\n\n"+
				"Key: %s\n"+
				"Levels: %d",
			keyStyle.Render(strconv.Itoa(int(m.uploadKey))),
			m.uploadCount,
		))
		b.WriteString(box)
		return b.String()
	}

	summary := fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Levels: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d\n"+
			"Size: %.2f MB",
		m.batch.Completed(),
		len(m.batch.Skipped),
		len(m.batch.Failures()),
		float64(m.batch.Received())/1024/1024,
	)
	if m.playlist != "" {
		summary += "\nPlaylist: " + m.playlist
	}
	b.WriteString(boxStyle.Render(summary))
	b.WriteString("\n")

	for _, f := range m.batch.Failures() {
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", f.ID, f.Err)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: download • u: share my levels • s: skip installed • p: playlist • v: verbose • esc: quit"
	case StateFetchingList, StateUploading:
		return "esc: cancel"
	case StateDownloading:
		return "+/-: parallel downloads • esc: cancel"
	case StateComplete, StateError:
		return "r: start over • q: quit"
	}
	return ""
}

// startDownload loads the list stored under key and starts fetching it.
func (m Model) startDownload(key uint8) tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		batch, err := service.Download(ctx, key)
		return BatchStartedMsg{Batch: batch, Err: err}
	}
}

// waitBatch blocks until batch has finished and writes its playlist.
func (m Model) waitBatch(batch *share.Batch) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		<-batch.Done()
		if err := batch.Err(); err != nil {
			return BatchDoneMsg{Err: err}
		}
		path, err := service.WritePlaylist(batch)
		return BatchDoneMsg{Playlist: path, Err: err}
	}
}

// startUpload shares the installed levels.
func (m Model) startUpload() tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		key, codes, err := service.Upload(ctx)
		return UploadDoneMsg{Key: key, Count: len(codes), Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
