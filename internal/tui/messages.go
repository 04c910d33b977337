package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/copiloto/internal/advisor"
	"github.com/jask/copiloto/internal/progress"
	"github.com/jask/copiloto/internal/simulation"
	"github.com/jask/copiloto/internal/upload"
)

type progressMsg struct {
	run uint64
	inc float64
	ok  bool
}

type analyzeDoneMsg struct{ upload.Result }

type publishMsg struct{ run uint64 }

type simulationDoneMsg struct {
	session uint64
	simulation.Result
}

type planDoneMsg struct {
	session uint64
	advisor.Result
}

type statusMsg string

// waitProgress delivers the next estimator increment. A closed task yields
// ok=false and ends the loop.
func waitProgress(task *progress.Task, run uint64) tea.Cmd {
	if task == nil {
		return nil
	}
	return func() tea.Msg {
		inc, ok := <-task.C
		return progressMsg{run: run, inc: inc, ok: ok}
	}
}

func publishAfter(d time.Duration, run uint64) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return publishMsg{run: run} })
}

func (a *App) analyzeCmd(job upload.Job) tea.Cmd {
	return func() tea.Msg {
		return analyzeDoneMsg{job.Execute(a.ctx, a.backend)}
	}
}

func (a *App) simulateCmd(session uint64, job simulation.Job) tea.Cmd {
	return func() tea.Msg {
		return simulationDoneMsg{session: session, Result: job.Execute(a.ctx, a.backend)}
	}
}

func (a *App) planCmd(session uint64, job advisor.Job) tea.Cmd {
	return func() tea.Msg {
		return planDoneMsg{session: session, Result: job.Execute(a.ctx, a.backend)}
	}
}
