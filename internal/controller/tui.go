package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

const (
	maxLogLines     = 500
	defaultWidth    = 80
	defaultLogLines = 12
	// Lines of a scan view outside the log viewport: title, info, gauge,
	// two spacers and help.
	scanChromeLines = 6
	// Lines of a browse view outside the viewport: title, spacer, help.
	browseChromeLines = 3
)

var errTUIStarted = errors.New("tui already started")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

type (
	runInfoMsg       struct{ info RunInfo }
	scanStartedMsg   struct{ path m.Path }
	scanCompletedMsg struct {
		path    m.Path
		outcome m.Outcome
	}
	progressMsg struct{ progress m.Progress }
	contentMsg  struct{ content string }
)

// TUI implements UI using Bubble Tea. A scan renders a live gauge and status
// log; listings and reports open in a scrollable full-screen view.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	mode    StartMode
	final   string
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the Bubble Tea program for the requested mode.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return errTUIStarted
	}

	var (
		model    tea.Model
		programs = []tea.ProgramOption{tea.WithOutput(t.output)}
	)

	if cfg.mode == ModeBrowse {
		model = newBrowseModel()
		programs = append(programs, tea.WithAltScreen())
	} else {
		model = newScanModel(cfg.cancel)
	}

	t.mode = cfg.mode
	t.final = ""
	t.program = tea.NewProgram(model, programs...)
	t.done = make(chan struct{})

	program, done := t.program, t.done

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Error("TUI stopped", "error", err)
		}
	}()

	return nil
}

// Close stops the program and, after a scan, prints the final report below
// the live view.
func (t *TUI) Close(_ context.Context) {
	t.mu.Lock()
	program, done, final := t.program, t.done, t.final
	t.program, t.done = nil, nil
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	<-done

	if final != "" {
		_, _ = fmt.Fprint(t.output, final)
	}
}

// Wait blocks until the user closes the view.
func (t *TUI) Wait(ctx context.Context) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// DisplayRunInfo shows the run parameters above the gauge.
func (t *TUI) DisplayRunInfo(_ context.Context, info RunInfo) {
	t.send(runInfoMsg{info: info})
}

// DisplayScanStarted appends a status line for a dispatched file.
func (t *TUI) DisplayScanStarted(_ context.Context, path m.Path) {
	t.send(scanStartedMsg{path: path})
}

// DisplayScanCompleted appends the outcome of a file to the status log.
func (t *TUI) DisplayScanCompleted(_ context.Context, path m.Path, outcome m.Outcome) {
	t.send(scanCompletedMsg{path: path, outcome: outcome})
}

// DisplayProgress moves the gauge.
func (t *TUI) DisplayProgress(_ context.Context, progress m.Progress) {
	t.send(progressMsg{progress: progress})
}

// DisplayReport shows a finished run. After a live scan the report is
// printed once the program exits.
func (t *TUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content := renderReport(report)

	t.mu.Lock()
	mode := t.mode
	if mode == ModeScan {
		t.final = content
	}
	t.mu.Unlock()

	if mode == ModeBrowse {
		t.send(contentMsg{content: content})
	}

	return nil
}

// DisplayFiles shows the discovered files in the browse view.
func (t *TUI) DisplayFiles(ctx context.Context, root m.Path, files []m.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(contentMsg{content: fmt.Sprintf("Files to scan in %s:\n\n%s", root, renderFileTable(files))})

	return nil
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

// scanModel renders a live scan.
type scanModel struct {
	keys     keyMap
	cancel   context.CancelFunc
	info     RunInfo
	progress m.Progress
	bar      progress.Model
	log      viewport.Model
	lines    []string
	width    int
	aborting bool
}

func newScanModel(cancel context.CancelFunc) scanModel {
	return scanModel{
		keys:   defaultKeyMap(),
		cancel: cancel,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth/2)),
		log:    viewport.New(defaultWidth, defaultLogLines),
		width:  defaultWidth,
	}
}

func (sm scanModel) Init() tea.Cmd {
	return nil
}

func (sm scanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		sm.width = msg.Width
		sm.bar.Width = msg.Width / 2
		sm.log.Width = msg.Width

		if h := msg.Height - scanChromeLines; h > 0 && h < defaultLogLines {
			sm.log.Height = h
		}

		return sm, nil

	case tea.KeyMsg:
		if key.Matches(msg, sm.keys.Quit) {
			if sm.aborting {
				return sm, tea.Quit
			}

			sm.aborting = true
			if sm.cancel != nil {
				sm.cancel()
			}

			return sm, nil
		}

		var cmd tea.Cmd
		sm.log, cmd = sm.log.Update(msg)

		return sm, cmd

	case runInfoMsg:
		sm.info = msg.info
		sm.progress = m.Progress{TotalFiles: msg.info.TotalFiles}

		return sm, nil

	case scanStartedMsg:
		sm.appendLine(infoStyle.Render(fmt.Sprintf("scanning %s", msg.path)))

		return sm, nil

	case scanCompletedMsg:
		switch {
		case msg.outcome.IsFailed():
			sm.appendLine(failStyle.Render(fmt.Sprintf("FAILED %s: %s", msg.path, msg.outcome.Failure)))
		case msg.outcome.MatchCount() > 0:
			sm.appendLine(matchStyle.Render(fmt.Sprintf("MATCH %s: %s", msg.path, joinRules(msg.outcome.Rules))))
		}

		return sm, nil

	case progressMsg:
		sm.progress = msg.progress

		return sm, nil
	}

	return sm, nil
}

func (sm *scanModel) appendLine(line string) {
	sm.lines = append(sm.lines, line)
	if len(sm.lines) > maxLogLines {
		sm.lines = sm.lines[len(sm.lines)-maxLogLines:]
	}

	sm.log.SetContent(strings.Join(sm.lines, "\n"))
	sm.log.GotoBottom()
}

func (sm scanModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sigscan"))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("%s | %d file(s) | %d worker(s) | timeout %s | rules %s",
		sm.info.Root, sm.info.TotalFiles, sm.info.MaxConcurrency, sm.info.Timeout, sm.info.RuleSource)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %3d%% (%d/%d)\n\n",
		sm.bar.ViewAs(float64(sm.progress.Percent)/100),
		sm.progress.Percent, sm.progress.FilesScanned, sm.progress.TotalFiles)

	b.WriteString(sm.log.View())
	b.WriteString("\n")

	if sm.aborting {
		b.WriteString(helpStyle.Render("aborting after the current batch... (q again to detach)"))
	} else {
		b.WriteString(helpStyle.Render("q: abort scan"))
	}

	b.WriteString("\n")

	return b.String()
}

// browseModel shows a static listing or report in a scrollable viewport.
type browseModel struct {
	keys     keyMap
	view     viewport.Model
	content  string
	quitting bool
}

func newBrowseModel() browseModel {
	return browseModel{
		keys: defaultKeyMap(),
		view: viewport.New(defaultWidth, defaultLogLines),
	}
}

func (bm browseModel) Init() tea.Cmd {
	return nil
}

func (bm browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		bm.view.Width = msg.Width

		bm.view.Height = msg.Height - browseChromeLines
		if bm.view.Height < 1 {
			bm.view.Height = 1
		}

		return bm, nil

	case contentMsg:
		bm.content = msg.content
		bm.view.SetContent(msg.content)
		bm.view.GotoTop()

		return bm, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, bm.keys.Quit):
			bm.quitting = true
			return bm, tea.Quit
		case key.Matches(msg, bm.keys.Top):
			bm.view.GotoTop()
			return bm, nil
		case key.Matches(msg, bm.keys.Bottom):
			bm.view.GotoBottom()
			return bm, nil
		case key.Matches(msg, bm.keys.Up):
			bm.view.LineUp(1)
			return bm, nil
		case key.Matches(msg, bm.keys.Down):
			bm.view.LineDown(1)
			return bm, nil
		case key.Matches(msg, bm.keys.PageUp):
			bm.view.ViewUp()
			return bm, nil
		case key.Matches(msg, bm.keys.PageDown):
			bm.view.ViewDown()
			return bm, nil
		}
	}

	return bm, nil
}

func (bm browseModel) View() string {
	if bm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("sigscan"))
	b.WriteString("\n")
	b.WriteString(bm.view.View())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", helpStyle.Render(fmt.Sprintf("%3.f%% | ↑/k ↓/j PgUp/PgDn g/G | q: quit", bm.view.ScrollPercent()*100)))

	return b.String()
}
