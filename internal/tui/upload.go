// Package tui is the interactive upload screen: a progress bar while the
// file streams, Esc to cancel, and the reconciled tables when it is done.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/stocksync/internal/core"
)

// Uploader is the part of core.Service the screen drives.
type Uploader interface {
	Upload(ctx context.Context, file *core.UploadFile) (core.UploadReport, error)
	Cancel() bool
}

// Relay forwards upload progress from the controller to the screen.
// Updates are dropped when the screen falls behind.
type Relay struct {
	ch        chan progressMsg
	done      chan struct{}
	closeOnce sync.Once
}

// NewRelay creates a Relay.
func NewRelay() *Relay {
	return &Relay{ch: make(chan progressMsg, 16), done: make(chan struct{})}
}

// Close releases anyone waiting for the next update. Safe to call twice.
func (r *Relay) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// next blocks until an update arrives or the relay is closed.
func (r *Relay) next() tea.Msg {
	select {
	case msg := <-r.ch:
		return msg
	case <-r.done:
		return nil
	}
}

// Func returns the ProgressFunc to install with core.WithProgress.
func (r *Relay) Func() core.ProgressFunc {
	return func(sent, total int64) {
		select {
		case r.ch <- progressMsg{sent: sent, total: total}:
		default:
		}
	}
}

type progressMsg struct {
	sent, total int64
}

type doneMsg struct {
	report core.UploadReport
	err    error
}

type phase int

const (
	phaseUploading phase = iota
	phaseCancelling
	phaseDone
)

// Model is the bubbletea model of the upload screen.
type Model struct {
	ctx      context.Context
	svc      Uploader
	file     *core.UploadFile
	relay    *Relay
	progress progress.Model
	spinner  spinner.Model
	phase    phase
	sent     int64
	total    int64
	report   core.UploadReport
	err      error
	width    int
}

// NewModel creates the screen for uploading file. relay may be nil.
func NewModel(ctx context.Context, svc Uploader, file *core.UploadFile, relay *Relay) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyle

	return Model{
		ctx:      ctx,
		svc:      svc,
		file:     file,
		relay:    relay,
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  s,
		total:    file.Size,
	}
}

// Init starts the upload.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startUpload(), m.waitProgress())
}

func (m Model) startUpload() tea.Cmd {
	return func() tea.Msg {
		report, err := m.svc.Upload(m.ctx, m.file)
		if m.relay != nil {
			m.relay.Close()
		}
		return doneMsg{report: report, err: err}
	}
}

func (m Model) waitProgress() tea.Cmd {
	if m.relay == nil {
		return nil
	}
	return m.relay.next
}

// Update handles keys, progress and the final outcome.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			if m.phase == phaseUploading {
				m.svc.Cancel()
				m.phase = phaseCancelling
				return m, nil
			}
			if m.phase == phaseDone {
				return m, tea.Quit
			}
		case "q", "enter":
			if m.phase == phaseDone {
				return m, tea.Quit
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-4, 60)
		return m, nil

	case progressMsg:
		if m.phase == phaseDone {
			return m, nil
		}
		m.sent, m.total = msg.sent, msg.total
		var cmd tea.Cmd
		if msg.total > 0 {
			cmd = m.progress.SetPercent(float64(msg.sent) / float64(msg.total))
		}
		return m, tea.Batch(cmd, m.waitProgress())

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case spinner.TickMsg:
		if m.phase == phaseDone {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case doneMsg:
		m.phase = phaseDone
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Stock Sync Upload"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("File:"), m.file.Name)

	switch m.phase {
	case phaseUploading, phaseCancelling:
		status := "Uploading"
		if m.phase == phaseCancelling {
			status = "Cancelling"
		}
		fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), status, byteCount(m.sent, m.total))
		b.WriteString(m.progress.View())
		b.WriteString(helpStyle.Render("esc: cancel"))

	case phaseDone:
		b.WriteString(m.resultView())
		b.WriteString(helpStyle.Render("enter/q: quit"))
	}
	return b.String()
}

func (m Model) resultView() string {
	if m.err != nil {
		return errorStyle.Render(core.FormatUserError(m.err)) + "\n"
	}

	out := m.report.Outcome
	switch out.Status {
	case core.StatusCancelled:
		return warningStyle.Render("Upload cancelled. Nothing was saved.") + "\n"
	case core.StatusFailed:
		return errorStyle.Render(out.Reason) + "\n"
	}

	var b strings.Builder
	b.WriteString(successStyle.Render(out.SuccessMessage()))
	b.WriteString("\n\n")
	if rec := m.report.Reconciliation; rec != nil {
		b.WriteString(RecordTable("Newly Stock (In)", rec.Inserted))
		b.WriteString("\n")
		b.WriteString(RecordTable("Stock Sold (Out)", rec.Missing))
		b.WriteString("\n")
	}
	if m.report.ShareLink != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Share:"), m.report.ShareLink)
	}
	return b.String()
}

// Report returns the finished upload's report and error.
func (m Model) Report() (core.UploadReport, error) {
	return m.report, m.err
}

// Run shows the upload screen until the user quits and returns the report.
func Run(ctx context.Context, svc Uploader, file *core.UploadFile, relay *Relay, opts ...tea.ProgramOption) (core.UploadReport, error) {
	final, err := tea.NewProgram(NewModel(ctx, svc, file, relay), opts...).Run()
	if err != nil {
		return core.UploadReport{}, fmt.Errorf("run upload screen: %w", err)
	}
	return final.(Model).Report()
}

func byteCount(sent, total int64) string {
	if total <= 0 {
		return humanBytes(sent)
	}
	return humanBytes(sent) + " / " + humanBytes(total)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
