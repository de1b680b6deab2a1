package controller

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

func TestScanModel_ProgressAndLog(t *testing.T) {
	var model tea.Model = newScanModel(nil)

	model, _ = model.Update(runInfoMsg{info: RunInfo{Root: "site", TotalFiles: 13, MaxConcurrency: 5, Timeout: 5 * time.Second, RuleSource: "php.yar"}})
	model, _ = model.Update(scanStartedMsg{path: "site/a.php"})
	model, _ = model.Update(scanCompletedMsg{path: "site/a.php", outcome: m.Matched("R1")})
	model, _ = model.Update(scanCompletedMsg{path: "site/b.php", outcome: m.Failed(m.FailureTimeout, context.DeadlineExceeded)})
	model, _ = model.Update(progressMsg{progress: m.Progress{FilesScanned: 5, TotalFiles: 13, Percent: 38}})

	view := model.View()
	for _, want := range []string{"site", "13 file(s)", "38% (5/13)", "scanning site/a.php", "MATCH site/a.php: R1", "FAILED site/b.php: timeout", "q: abort scan"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q\nGot:\n%s", want, view)
		}
	}
}

func TestScanModel_QuitCancelsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var model tea.Model = newScanModel(cancel)

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("first abort should keep the view running")
	}

	if ctx.Err() == nil {
		t.Fatal("abort should cancel the run context")
	}

	if !strings.Contains(model.View(), "aborting after the current batch") {
		t.Errorf("view should show the abort notice\nGot:\n%s", model.View())
	}

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second abort should quit")
	}

	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("second abort should return tea.Quit")
	}
}

func TestScanModel_LogIsBounded(t *testing.T) {
	sm := newScanModel(nil)

	for i := 0; i < maxLogLines+50; i++ {
		sm.appendLine("line")
	}

	if len(sm.lines) != maxLogLines {
		t.Errorf("lines = %d, want %d", len(sm.lines), maxLogLines)
	}
}

func TestBrowseModel_ContentAndQuit(t *testing.T) {
	var model tea.Model = newBrowseModel()

	model, _ = model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model, _ = model.Update(contentMsg{content: renderReport(sampleReport())})

	view := model.View()
	if !strings.Contains(view, "site/shell.php") {
		t.Errorf("view missing report content\nGot:\n%s", view)
	}

	if !strings.Contains(view, "q: quit") {
		t.Errorf("view missing help line\nGot:\n%s", view)
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit the browse view")
	}

	if model.View() != "" {
		t.Errorf("quitting view should be empty, got %q", model.View())
	}
}

func TestTUI_NotStarted(t *testing.T) {
	tui := NewTUI(&strings.Builder{})
	ctx := context.Background()

	// Display calls before Start are dropped.
	tui.DisplayScanStarted(ctx, "a.php")
	tui.DisplayProgress(ctx, m.Progress{Percent: 50})
	tui.Wait(ctx)
	tui.Close(ctx)
}
