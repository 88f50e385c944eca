package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/macadam/engine"
)

// resultMsg carries one settled per-asset result into the model.
type resultMsg engine.Result

// doneMsg signals that the result stream closed.
type doneMsg struct{}

// SyncModel renders live sync progress: a spinner, a completion bar,
// and running action counts.
type SyncModel struct {
	title   string
	total   int
	done    int
	results <-chan engine.Result

	spinner spinner.Model
	bar     progress.Model

	uploaded  int
	reused    int
	unchanged int
	declared  int
	failed    int
	lastKey   string

	finished bool
}

// NewSyncModel creates the progress model for a run of total assets.
func NewSyncModel(title string, total int, results <-chan engine.Result) SyncModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return SyncModel{
		title:   title,
		total:   total,
		results: results,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

// waitResult blocks for the next settled result.
func waitResult(ch <-chan engine.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return resultMsg(res)
	}
}

// Init implements tea.Model.
func (m SyncModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitResult(m.results))
}

// Update implements tea.Model.
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.absorb(engine.Result(msg))
		var cmds []tea.Cmd
		if m.total > 0 {
			cmds = append(cmds, m.bar.SetPercent(float64(m.done)/float64(m.total)))
		}
		cmds = append(cmds, waitResult(m.results))
		return m, tea.Batch(cmds...)

	case doneMsg:
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// absorb folds one result into the running counts.
func (m *SyncModel) absorb(res engine.Result) {
	m.done++
	m.lastKey = res.Key.String()
	switch {
	case res.Err != nil:
		m.failed++
	case res.Action == engine.ActionUpload:
		m.uploaded++
	case res.Action == engine.ActionReuse:
		m.reused++
	case res.Action == engine.ActionUnchanged:
		m.unchanged++
	case res.Action == engine.ActionDeclared:
		m.declared++
	}
}

// View implements tea.Model.
func (m SyncModel) View() string {
	if m.finished {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.spinner.View())
	fmt.Fprintf(&b, " %d/%d assets\n", m.done, m.total)
	b.WriteString(m.bar.View())
	b.WriteString("\n\n")

	counts := []string{
		SuccessStyle.Render(fmt.Sprintf("%d uploaded", m.uploaded)),
		WarningStyle.Render(fmt.Sprintf("%d reused", m.reused)),
		fmt.Sprintf("%d unchanged", m.unchanged),
	}
	if m.declared > 0 {
		counts = append(counts, fmt.Sprintf("%d declared", m.declared))
	}
	if m.failed > 0 {
		counts = append(counts, ErrorStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	b.WriteString(strings.Join(counts, "  "))
	b.WriteString("\n")

	if m.lastKey != "" {
		b.WriteString(MutedStyle.Render(m.lastKey))
		b.WriteString("\n")
	}
	return b.String()
}

// RunSync drives the progress display until the result stream closes.
func RunSync(title string, total int, results <-chan engine.Result) error {
	_, err := tea.NewProgram(NewSyncModel(title, total, results)).Run()
	return err
}
