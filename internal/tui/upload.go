package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/markup"
	"github.com/jask/copiloto/internal/upload"
)

const barWidth = 30

func (a *App) handleUploadKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := a.pipeline
	if p.Loading() {
		return a, nil
	}
	if p.ShowingResult() {
		switch {
		case key.Matches(m, a.keys.QuitRune):
			a.Close()
			return a, tea.Quit
		case key.Matches(m, a.keys.Details):
			if a.router.ViewDetails() {
				a.openDetail()
			}
		case key.Matches(m, a.keys.Back), key.Matches(m, a.keys.Another):
			if !a.router.Back(true) {
				a.loadAnother()
			}
		}
		return a, nil
	}

	switch {
	case key.Matches(m, a.keys.Back):
		a.router.Back(false)
		a.path.Blur()
		a.status = ""
		return a, nil
	case key.Matches(m, a.keys.Cancel):
		p.Reset()
		a.path.Reset()
		return a, nil
	case key.Matches(m, a.keys.Enter):
		if path := strings.TrimSpace(a.path.Value()); path != "" {
			a.selectPath(path)
			return a, nil
		}
		return a, a.submit()
	}
	var cmd tea.Cmd
	a.path, cmd = a.path.Update(m)
	return a, cmd
}

func (a *App) selectPath(path string) {
	f, err := upload.Inspect(path)
	if err != nil {
		a.log.WithError(err).Warn("inspect file")
		a.status = "No se pudo leer el archivo: " + err.Error()
		return
	}
	a.status = ""
	if a.pipeline.Select(f) {
		a.path.Reset()
	}
}

func (a *App) submit() tea.Cmd {
	job, ok := a.pipeline.Submit(a.ctx)
	if !ok {
		return nil
	}
	a.path.Blur()
	return tea.Batch(a.analyzeCmd(job), waitProgress(a.pipeline.Ticks(), job.Run), a.spinner.Tick)
}

// loadAnother clears the shown result so a new file can be chosen. The
// published snapshot stays with the router.
func (a *App) loadAnother() {
	a.pipeline.Reset()
	a.path.Reset()
	a.path.Focus()
}

func (a *App) renderUpload() string {
	if a.pipeline.ShowingResult() {
		return a.renderDashboard(a.pipeline.Result())
	}
	p := a.pipeline
	lines := []string{
		titleStyle.Render("Cargar archivo de Excel"),
		"Escribe la ruta de tu archivo .xls o .xlsx y presiona enter para seleccionarlo.",
		"",
		a.path.View(),
	}
	if msg := p.Err(); msg != "" {
		lines = append(lines, errorStyle.Render(markup.Clean(msg)))
	}
	if f := p.File(); f != nil {
		lines = append(lines, fmt.Sprintf("Archivo seleccionado: %s %s", boldStyle.Render(f.Name), mutedStyle.Render(sizeLabel(f.Size))))
	}
	lines = append(lines, "")
	switch {
	case p.Loading():
		lines = append(lines,
			fmt.Sprintf("%s Procesando... %d%%", a.spinner.View(), int(math.Round(p.Progress()))),
			a.bar.ViewAs(p.Progress()/100),
		)
	case p.File() != nil:
		lines = append(lines, a.help.View(bindingHelp{
			a.withHelp(a.keys.Enter, "aceptar y analizar"),
			a.keys.Cancel,
			a.withHelp(a.keys.Back, "volver al menú"),
		}))
	default:
		lines = append(lines, a.help.View(bindingHelp{
			a.withHelp(a.keys.Enter, "seleccionar"),
			a.withHelp(a.keys.Back, "volver al menú"),
			a.keys.Quit,
		}))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderDashboard(s *analysis.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Análisis de: "+markup.Clean(s.Label())) + "\n\n")

	// absent totals render as zero
	var income, expenses, balance *float64
	if d := s.Descriptive; d != nil {
		income, expenses, balance = &d.TotalIncome, &d.TotalExpenses, &d.NetBalance
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render("Total Ingresos\n"+incomeStyle.Render(a.money.FormatOptional(income))),
		cardStyle.Render("Total Gastos\n"+expenseStyle.Render(a.money.FormatOptional(expenses))),
		cardStyle.Render("Balance Neto\n"+balanceStyle.Render(a.money.FormatOptional(balance))),
	)
	b.WriteString(cards + "\n\n")

	b.WriteString(headingStyle.Render("Principales Gastos por Categoría") + "\n")
	b.WriteString(a.renderExpenseBars(s) + "\n")

	if rec := s.Recommendation(); rec != "" {
		b.WriteString("\n" + headingStyle.Render("Recomendación de la IA") + "\n")
		b.WriteString(renderMarkup(rec) + "\n")
	}
	b.WriteString("\n" + a.help.View(bindingHelp{a.keys.Details, a.withHelp(a.keys.Back, "cargar otro archivo"), a.keys.QuitRune}))
	return b.String()
}

func (a *App) renderExpenseBars(s *analysis.Snapshot) string {
	top := s.Descriptive.TopExpenses()
	if len(top) == 0 {
		return mutedStyle.Render("No se encontraron datos de gastos para graficar.")
	}
	nameWidth, peak := 0, 0.0
	for i := range top {
		top[i].Name = markup.Clean(top[i].Name)
	}
	for _, c := range top {
		nameWidth = max(nameWidth, lipgloss.Width(c.Name))
		peak = math.Max(peak, c.Amount)
	}
	var lines []string
	for _, c := range top {
		n := 0
		if peak > 0 && c.Amount > 0 {
			n = max(1, int(math.Round(c.Amount/peak*barWidth)))
		}
		name := c.Name + strings.Repeat(" ", nameWidth-lipgloss.Width(c.Name))
		lines = append(lines, fmt.Sprintf("%s %s %s", name, expenseStyle.Render(strings.Repeat("█", n)), a.money.Format(c.Amount)))
	}
	return strings.Join(lines, "\n")
}

func sizeLabel(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("(%.1f MB)", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("(%.1f KB)", float64(n)/(1<<10))
	}
	return fmt.Sprintf("(%d B)", n)
}
