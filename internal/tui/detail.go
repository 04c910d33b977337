package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/copiloto/internal/advisor"
	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/markup"
	"github.com/jask/copiloto/internal/router"
	"github.com/jask/copiloto/internal/scenario"
	"github.com/jask/copiloto/internal/simulation"
)

type detailFocus int

const (
	focusMonths detailFocus = iota
	focusKind
	focusCategory
	focusValueType
	focusValue
	focusChanges
	focusChat
	focusCount
)

// detailSession is the state of one visit to the detail view. A new session
// starts empty; results addressed to an older session are dropped.
type detailSession struct {
	id       uint64
	snapshot *analysis.Snapshot
	builder  *scenario.Builder
	panel    *simulation.Panel
	chat     *advisor.Chat

	months  textinput.Model
	value   textinput.Model
	message textinput.Model
	prompt  textinput.Model

	focus  detailFocus
	cursor int
	hint   string
}

func (a *App) openDetail() {
	snap := a.router.Snapshot()
	if snap == nil {
		return
	}
	a.sessions++
	d := &detailSession{
		id:       a.sessions,
		snapshot: snap,
		builder:  scenario.New(),
		panel:    simulation.NewPanel(a.cfg.Simulation.DefaultMonths, a.log),
		chat:     advisor.NewChat(a.log),
	}
	d.builder.Derive(snap)

	d.months = textinput.New()
	d.months.Prompt = "Meses a proyectar: "
	d.months.CharLimit = 4
	d.months.SetValue(d.panel.Months)

	d.value = textinput.New()
	d.value.Prompt = "Valor: "
	d.value.Placeholder = "0"

	d.message = textinput.New()
	d.message.Prompt = "> "
	d.message.Placeholder = "Ej: Quiero ahorrar para un viaje"

	d.prompt = textinput.New()
	d.prompt.Prompt = "Nombre: "

	a.detail = d
	a.log.WithField("session", d.id).Info("open detail")
	d.setFocus(focusMonths)
}

func (d *detailSession) setFocus(f detailFocus) {
	d.focus = (f + focusCount) % focusCount
	d.months.Blur()
	d.value.Blur()
	d.message.Blur()
	switch d.focus {
	case focusMonths:
		d.months.Focus()
	case focusValue:
		d.value.Focus()
	case focusChat:
		d.message.Focus()
	}
}

func (a *App) handleDetailKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := a.detail
	if d == nil {
		a.router.Navigate(router.Upload)
		a.enterUpload()
		return a, nil
	}
	if d.builder.Prompting() {
		return a.handlePromptKey(m)
	}

	switch {
	case key.Matches(m, a.keys.Back):
		a.leaveDetail()
		return a, nil
	case key.Matches(m, a.keys.Next):
		d.setFocus(d.focus + 1)
		return a, nil
	case key.Matches(m, a.keys.Prev):
		d.setFocus(d.focus - 1)
		return a, nil
	case key.Matches(m, a.keys.Run):
		return a, a.runSimulation()
	}

	switch d.focus {
	case focusMonths:
		if key.Matches(m, a.keys.Enter) {
			return a, a.runSimulation()
		}
		var cmd tea.Cmd
		d.months, cmd = d.months.Update(m)
		if d.months.Value() != d.panel.Months {
			d.panel.Months = d.months.Value()
			d.panel.MarkStale()
		}
		return a, cmd
	case focusKind:
		if key.Matches(m, a.keys.Left, a.keys.Right) {
			if d.builder.Form.Kind == analysis.Expense {
				d.builder.Form.Kind = analysis.Income
			} else {
				d.builder.Form.Kind = analysis.Expense
			}
		}
	case focusCategory:
		switch {
		case key.Matches(m, a.keys.Left):
			d.cycleCategory(-1)
		case key.Matches(m, a.keys.Right):
			d.cycleCategory(1)
		}
	case focusValueType:
		if key.Matches(m, a.keys.Left, a.keys.Right) {
			if d.builder.Form.ValueType == scenario.Amount {
				d.builder.Form.ValueType = scenario.Percentage
			} else {
				d.builder.Form.ValueType = scenario.Amount
			}
		}
	case focusValue:
		if key.Matches(m, a.keys.Enter) {
			return a, a.addChange()
		}
		var cmd tea.Cmd
		d.value, cmd = d.value.Update(m)
		return a, cmd
	case focusChanges:
		switch {
		case key.Matches(m, a.keys.Up):
			d.cursor = max(0, d.cursor-1)
		case key.Matches(m, a.keys.Down):
			d.cursor = min(max(0, d.builder.Len()-1), d.cursor+1)
		case key.Matches(m, a.keys.Remove):
			if d.builder.Remove(d.cursor) {
				d.panel.MarkStale()
				d.cursor = min(d.cursor, max(0, d.builder.Len()-1))
			}
		}
	case focusChat:
		if key.Matches(m, a.keys.Enter) {
			return a, a.sendGoal()
		}
		var cmd tea.Cmd
		d.message, cmd = d.message.Update(m)
		return a, cmd
	}
	return a, nil
}

func (a *App) handlePromptKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := a.detail
	switch {
	case key.Matches(m, a.keys.Back):
		d.builder.CancelCategory()
		d.closePrompt()
		return a, nil
	case key.Matches(m, a.keys.Enter):
		if d.builder.CompleteCategory(d.prompt.Value()) {
			d.panel.MarkStale()
			d.value.SetValue("")
			d.cursor = d.builder.Len() - 1
		}
		d.closePrompt()
		return a, nil
	}
	var cmd tea.Cmd
	d.prompt, cmd = d.prompt.Update(m)
	d.hint = ""
	if s, ok := d.builder.Suggest(d.prompt.Value()); ok {
		d.hint = fmt.Sprintf("¿Quisiste decir %q?", s)
	}
	return a, cmd
}

func (d *detailSession) closePrompt() {
	d.prompt.Reset()
	d.prompt.Blur()
	d.hint = ""
	d.setFocus(focusValue)
}

func (d *detailSession) cycleCategory(step int) {
	opts := d.builder.Options()
	i := slices.Index(opts, d.builder.Form.Category)
	if i < 0 {
		i = 0
	} else {
		i = (i + step + len(opts)) % len(opts)
	}
	d.builder.Form.Category = opts[i]
}

func (a *App) leaveDetail() {
	if !a.router.Back(false) {
		return
	}
	a.log.WithField("session", a.detail.id).Info("close detail")
	a.detail = nil
	a.enterUpload()
}

func (a *App) addChange() tea.Cmd {
	d := a.detail
	d.builder.Form.Value = d.value.Value()
	switch d.builder.Add() {
	case scenario.Added:
		d.value.SetValue("")
		d.panel.MarkStale()
		d.cursor = d.builder.Len() - 1
	case scenario.NeedsCategory:
		d.value.Blur()
		return d.prompt.Focus()
	}
	return nil
}

func (a *App) runSimulation() tea.Cmd {
	d := a.detail
	d.panel.Months = d.months.Value()
	job, err := d.panel.Start(d.snapshot, d.builder.Changes())
	if err != nil {
		if !errors.Is(err, simulation.ErrInFlight) {
			a.log.WithError(err).Debug("simulation not started")
		}
		return nil
	}
	return tea.Batch(a.simulateCmd(d.id, job), a.spinner.Tick)
}

func (a *App) sendGoal() tea.Cmd {
	d := a.detail
	job, err := d.chat.Send(d.snapshot, d.message.Value())
	switch {
	case errors.Is(err, advisor.ErrMissingAnalysis):
		d.chat.SetErr(advisor.MissingAnalysisMessage)
		return nil
	case err != nil:
		return nil
	}
	d.message.Reset()
	return tea.Batch(a.planCmd(d.id, job), a.spinner.Tick)
}

func (a *App) renderDetail() string {
	d := a.detail
	var b strings.Builder
	b.WriteString(titleStyle.Render(`Simulador "What-If" y Copiloto IA`) + "\n\n")

	b.WriteString(headingStyle.Render("Simulador de escenarios") + "\n")
	b.WriteString(d.field(focusMonths, d.months.View()) + "\n")
	b.WriteString(d.field(focusKind, "Tipo: "+d.builder.Form.Kind.Label()) + "\n")
	if d.builder.Form.Kind == analysis.Expense {
		b.WriteString(d.field(focusCategory, "Categoría: "+categoryLabel(d.builder.Form.Category)) + "\n")
	}
	b.WriteString(d.field(focusValueType, "Tipo de valor: "+d.builder.Form.ValueType.Label()) + "\n")
	b.WriteString(d.field(focusValue, d.value.View()) + "\n\n")

	b.WriteString(boldStyle.Render("Cambios a simular") + "\n")
	if d.builder.Len() == 0 {
		b.WriteString(mutedStyle.Render("Aún no agregas cambios.") + "\n")
	}
	for i, c := range d.builder.Changes() {
		line := markup.Clean(c.Describe(a.money.Format))
		if d.focus == focusChanges && i == d.cursor {
			line = focusStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + a.renderSimulation() + "\n\n")
	b.WriteString(a.renderChat() + "\n")
	b.WriteString(a.help.View(bindingHelp{a.keys.Next, a.keys.Run, a.withHelp(a.keys.Back, "volver al análisis"), a.keys.Quit}))

	body := b.String()
	if d.builder.Prompting() {
		body += "\n\n" + a.renderPrompt()
	}
	return body
}

func (d *detailSession) field(f detailFocus, s string) string {
	if d.focus == f {
		return focusStyle.Render("› ") + s
	}
	return "  " + s
}

func categoryLabel(c string) string {
	switch c {
	case scenario.NewCategory:
		return "+ Nueva categoría"
	case "":
		return "(sin categorías)"
	}
	return markup.Clean(c)
}

func (a *App) renderSimulation() string {
	p := a.detail.panel
	switch {
	case p.Loading():
		return a.spinner.View() + " Simulando..."
	case p.Err() != "":
		return errorStyle.Render(markup.Clean(p.Err()))
	case len(p.Result()) == 0:
		return mutedStyle.Render("Presiona ctrl+r para ver el impacto de tus cambios.")
	}
	points := p.Result()
	last := points[len(points)-1]
	var b strings.Builder
	b.WriteString(headingStyle.Render("Balance proyectado") + "\n")
	b.WriteString(renderProjection(points, max(20, a.width-4)) + "\n")
	b.WriteString(fmt.Sprintf("Balance al cierre de %s: %s", markup.Clean(last.Period), boldStyle.Render(a.money.Format(last.Value))))
	if p.Stale() {
		b.WriteString("\n" + mutedStyle.Render("Los datos cambiaron. Vuelve a ejecutar la simulación."))
	}
	return b.String()
}

func (a *App) renderChat() string {
	d := a.detail
	var b strings.Builder
	b.WriteString(headingStyle.Render("Copiloto IA") + "\n")
	for _, m := range d.chat.Messages() {
		who := botStyle.Render("Copiloto:")
		if m.Sender == advisor.User {
			who = userStyle.Render("Tú:")
		}
		b.WriteString(who + " " + renderMarkup(m.Text) + "\n")
	}
	if d.chat.Loading() {
		b.WriteString(a.spinner.View() + " Pensando...\n")
	}
	if msg := d.chat.Err(); msg != "" {
		b.WriteString(errorStyle.Render(markup.Clean(msg)) + "\n")
	}
	b.WriteString(d.field(focusChat, d.message.View()) + "\n")
	return b.String()
}

func (a *App) renderPrompt() string {
	d := a.detail
	lines := []string{
		boldStyle.Render("Nueva categoría"),
		"Escribe el nombre de la nueva categoría de gasto:",
		d.prompt.View(),
	}
	if d.hint != "" {
		lines = append(lines, mutedStyle.Render(d.hint))
	}
	lines = append(lines, mutedStyle.Render("enter confirmar • esc cancelar"))
	return modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
