package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/advisor"
	"github.com/jask/copiloto/internal/config"
	"github.com/jask/copiloto/internal/markup"
	"github.com/jask/copiloto/internal/money"
	"github.com/jask/copiloto/internal/progress"
	"github.com/jask/copiloto/internal/router"
	"github.com/jask/copiloto/internal/simulation"
	"github.com/jask/copiloto/internal/upload"
)

// Backend is the analysis service as seen by the views.
type Backend interface {
	upload.Analyzer
	simulation.Projector
	advisor.Planner
}

// App ties together views.
type App struct {
	ctx     context.Context
	cfg     config.Config
	backend Backend
	log     logrus.FieldLogger
	money   money.Formatter
	keys    keyMap

	router   *router.Router
	pipeline *upload.Pipeline
	detail   *detailSession
	sessions uint64

	user     textinput.Model
	password textinput.Model
	loginErr string
	path     textinput.Model
	status   string

	spinner spinner.Model
	bar     progressbar.Model
	help    help.Model
	width   int
	height  int
}

// New builds the App starting at the login view. A nil auth accepts every
// credential pair.
func New(ctx context.Context, cfg config.Config, backend Backend, auth router.Authenticator, log logrus.FieldLogger) *App {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	user := textinput.New()
	user.Placeholder = "Usuario"
	user.Prompt = "Usuario: "
	user.Focus()

	password := textinput.New()
	password.Placeholder = "Contraseña"
	password.Prompt = "Contraseña: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	path := textinput.New()
	path.Placeholder = "/ruta/a/estado-de-cuenta.xlsx"
	path.Prompt = "Archivo: "

	return &App{
		ctx:     ctx,
		cfg:     cfg,
		backend: backend,
		log:     log,
		money:   money.NewFormatter(cfg.UI.CurrencySymbol, cfg.UI.Locale),
		keys:    newKeyMap(),
		router:  router.New(auth, log),
		pipeline: upload.New(upload.Options{
			Estimator: progress.FromConfig(cfg.Upload.Progress),
			Initial:   cfg.Upload.Progress.Initial,
			Cap:       cfg.Upload.Progress.Cap,
			Log:       log,
		}),
		user:     user,
		password: password,
		path:     path,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:      progressbar.New(progressbar.WithDefaultGradient(), progressbar.WithWidth(40)),
		help:     help.New(),
		width:    100,
	}
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Close stops background work. It is safe to call more than once.
func (a *App) Close() {
	a.pipeline.Close()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.bar.Width = max(10, min(60, m.Width-20))
		a.help.Width = m.Width
	case tea.KeyMsg:
		if key.Matches(m, a.keys.Quit) {
			a.Close()
			return a, tea.Quit
		}
		switch a.router.View() {
		case router.Login:
			return a.handleLoginKey(m)
		case router.Main:
			return a.handleMainKey(m)
		case router.Upload:
			return a.handleUploadKey(m)
		case router.Detail:
			return a.handleDetailKey(m)
		}
	case progressMsg:
		if m.ok && a.pipeline.Tick(m.run, m.inc) {
			return a, waitProgress(a.pipeline.Ticks(), m.run)
		}
	case analyzeDoneMsg:
		if a.pipeline.Complete(m.Result) {
			return a, publishAfter(a.cfg.Upload.PublishDelay, m.Run)
		}
	case publishMsg:
		if snap, ok := a.pipeline.Publish(m.run); ok {
			a.router.Publish(snap)
			a.status = ""
		}
	case simulationDoneMsg:
		if d := a.detail; d != nil && d.id == m.session {
			d.panel.Complete(m.Result)
		}
	case planDoneMsg:
		if d := a.detail; d != nil && d.id == m.session {
			d.chat.Complete(m.Result)
		}
	case spinner.TickMsg:
		if a.busy() {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(m)
			return a, cmd
		}
	case statusMsg:
		a.status = string(m)
	}
	return a, nil
}

func (a *App) busy() bool {
	if a.pipeline.Loading() {
		return true
	}
	d := a.detail
	return d != nil && (d.panel.Loading() || d.chat.Loading())
}

func (a *App) View() string {
	var body string
	switch a.router.View() {
	case router.Login:
		body = a.renderLogin()
	case router.Main:
		body = a.renderMain()
	case router.Upload:
		body = a.renderUpload()
	case router.Detail:
		if a.detail == nil || a.router.Snapshot() == nil {
			body = a.renderUpload()
			break
		}
		body = a.renderDetail()
	}
	if a.status != "" {
		body += "\n" + mutedStyle.Render(a.status)
	}
	return body
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Next), key.Matches(m, a.keys.Prev):
		a.toggleLoginFocus()
		return a, nil
	case key.Matches(m, a.keys.Enter):
		if a.user.Focused() && a.password.Value() == "" {
			a.toggleLoginFocus()
			return a, nil
		}
		err := a.router.SubmitCredentials(a.user.Value(), a.password.Value())
		if errors.Is(err, router.ErrMissingCredentials) {
			a.loginErr = "Usuario y contraseña son obligatorios."
			return a, nil
		}
		if err != nil {
			a.loginErr = "No se pudo iniciar sesión: " + err.Error()
			return a, nil
		}
		a.loginErr = ""
		a.password.Reset()
		a.user.Blur()
		a.password.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	if a.user.Focused() {
		a.user, cmd = a.user.Update(m)
	} else {
		a.password, cmd = a.password.Update(m)
	}
	return a, cmd
}

func (a *App) toggleLoginFocus() {
	if a.user.Focused() {
		a.user.Blur()
		a.password.Focus()
		return
	}
	a.password.Blur()
	a.user.Focus()
}

func (a *App) handleMainKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.QuitRune):
		a.Close()
		return a, tea.Quit
	case key.Matches(m, a.keys.Enter):
		if a.router.StartAnalysis() {
			a.enterUpload()
		}
	}
	return a, nil
}

// enterUpload shows the dashboard of an existing snapshot or the empty form.
func (a *App) enterUpload() {
	if snap := a.router.Snapshot(); snap != nil && !a.pipeline.Loading() {
		a.pipeline.Restore(snap)
	}
	if a.pipeline.ShowingResult() {
		a.path.Blur()
		return
	}
	a.path.Focus()
}

func (a *App) renderLogin() string {
	title := titleStyle.Render("Inicio de sesión")
	lines := []string{title, "", a.user.View(), a.password.View(), ""}
	if a.loginErr != "" {
		lines = append(lines, errorStyle.Render(a.loginErr))
	}
	lines = append(lines, a.help.View(bindingHelp{a.keys.Next, a.withHelp(a.keys.Enter, "ingresar"), a.keys.Quit}))
	return strings.Join(lines, "\n")
}

func (a *App) renderMain() string {
	title := titleStyle.Render("¡Bienvenido a tu copiloto!")
	cards := []string{"Proyecta tus finanzas", "Anticipa riesgos", "Entiende tu presente y planea tu futuro"}
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for _, c := range cards {
		b.WriteString(cardStyle.Render(c) + "\n")
	}
	if a.router.Snapshot() != nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Análisis cargado: %s", markup.Clean(a.router.Snapshot().Label()))) + "\n")
	}
	b.WriteString("\n" + a.help.View(bindingHelp{a.withHelp(a.keys.Enter, "comenzar análisis"), a.keys.QuitRune}))
	return b.String()
}

func (a *App) withHelp(b key.Binding, desc string) key.Binding {
	b.SetHelp(b.Help().Key, desc)
	return b
}
