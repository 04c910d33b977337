package tui

import (
	"archive/zip"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
	"github.com/jask/copiloto/internal/config"
	"github.com/jask/copiloto/internal/logger"
	"github.com/jask/copiloto/internal/mockserver"
	"github.com/jask/copiloto/internal/router"
	"github.com/jask/copiloto/internal/scenario"
)

const flowTimeout = 5 * time.Second

func testConfig() config.Config {
	return config.Config{
		API: config.APIConfig{Timeout: 5 * time.Second},
		Upload: config.UploadConfig{
			Progress: config.ProgressConfig{
				Initial:       1,
				Cap:           98,
				FirstDelayMin: time.Millisecond,
				FirstDelayMax: 2 * time.Millisecond,
				MinDelay:      time.Millisecond,
				MaxDelay:      2 * time.Millisecond,
				MinStep:       1,
				MaxStep:       15,
			},
			PublishDelay: 20 * time.Millisecond,
		},
		Simulation: config.SimulationConfig{DefaultMonths: 12},
		UI:         config.UIConfig{CurrencySymbol: "$", Locale: "en-US"},
	}
}

// flow drives an App the way the bubbletea runtime does: commands run on
// their own goroutines and their messages are applied one at a time.
type flow struct {
	t    *testing.T
	app  *App
	msgs chan tea.Msg
	// observe runs after every applied message.
	observe func(*App)
}

func newFlow(t *testing.T, backend Backend) *flow {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	app := New(ctx, testConfig(), backend, router.AcceptAll{}, logger.Discard())
	f := &flow{t: t, app: app, msgs: make(chan tea.Msg, 256)}
	t.Cleanup(app.Close)
	f.apply(tea.WindowSizeMsg{Width: 100, Height: 40})
	return f
}

func mockBackend(t *testing.T, srv *mockserver.Server) *api.Client {
	t.Helper()
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return api.NewClient(hs.URL, 5*time.Second, logger.Discard())
}

func (f *flow) apply(msg tea.Msg) {
	_, cmd := f.app.Update(msg)
	if f.observe != nil {
		f.observe(f.app)
	}
	f.dispatch(cmd)
}

func (f *flow) dispatch(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		switch msg := cmd().(type) {
		case nil, tea.QuitMsg:
		case tea.BatchMsg:
			for _, c := range msg {
				f.dispatch(c)
			}
		default:
			f.msgs <- msg
		}
	}()
}

// until applies queued messages until cond holds.
func (f *flow) until(cond func() bool) {
	f.t.Helper()
	deadline := time.After(flowTimeout)
	for !cond() {
		select {
		case msg := <-f.msgs:
			f.apply(msg)
		case <-deadline:
			f.t.Fatalf("condition not reached; view:\n%s", f.app.View())
		}
	}
}

// untilMsg applies queued messages up to and including the first one match
// accepts.
func (f *flow) untilMsg(match func(tea.Msg) bool) {
	f.t.Helper()
	deadline := time.After(flowTimeout)
	for {
		select {
		case msg := <-f.msgs:
			f.apply(msg)
			if match(msg) {
				return
			}
		case <-deadline:
			f.t.Fatal("message not received")
		}
	}
}

func (f *flow) press(k tea.KeyType) { f.apply(tea.KeyMsg{Type: k}) }

func (f *flow) typeText(s string) {
	f.apply(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (f *flow) view() string { return f.app.View() }

func (f *flow) login() {
	f.t.Helper()
	f.typeText("ana")
	f.press(tea.KeyTab)
	f.typeText("secreta")
	f.press(tea.KeyEnter)
	require.Equal(f.t, router.Main, f.app.router.View())
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "estado.xlsx")
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for _, name := range []string{"[Content_Types].xml", "xl/workbook.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<xml/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return path
}

// analyze logs in, uploads a workbook and waits for the dashboard.
func (f *flow) analyze() {
	f.t.Helper()
	f.login()
	f.press(tea.KeyEnter)
	require.Equal(f.t, router.Upload, f.app.router.View())
	f.typeText(writeWorkbook(f.t))
	f.press(tea.KeyEnter)
	require.NotNil(f.t, f.app.pipeline.File())
	f.press(tea.KeyEnter)
	require.True(f.t, f.app.pipeline.Loading())
	f.until(func() bool { return f.app.router.Snapshot() != nil })
}

func TestLoginRequiresBothFields(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	require.Contains(t, f.view(), "Inicio de sesión")

	f.typeText("ana")
	f.press(tea.KeyTab)
	f.press(tea.KeyEnter)
	require.Equal(t, router.Login, f.app.router.View())
	require.Contains(t, f.view(), "Usuario y contraseña son obligatorios.")

	f.typeText("x")
	f.press(tea.KeyEnter)
	require.Equal(t, router.Main, f.app.router.View())
	require.Contains(t, f.view(), "¡Bienvenido a tu copiloto!")
}

func TestUploadShowsDashboard(t *testing.T) {
	srv := mockserver.New(logger.Discard())
	srv.Delay = 100 * time.Millisecond
	f := newFlow(t, mockBackend(t, srv))

	var maxBefore float64
	var sawComplete bool
	f.observe = func(a *App) {
		p := a.pipeline
		if !p.Loading() {
			return
		}
		if p.Progress() == 100 {
			sawComplete = true
			return
		}
		maxBefore = max(maxBefore, p.Progress())
	}
	f.analyze()

	require.True(t, sawComplete)
	require.LessOrEqual(t, maxBefore, 98.0)
	require.Greater(t, maxBefore, 1.0)

	v := f.view()
	require.Contains(t, v, "Análisis de: Excel (.xlsx)")
	require.Contains(t, v, "$1,000.00")
	require.Contains(t, v, "$400.00")
	require.Contains(t, v, "$600.00")
	require.Contains(t, v, "Renta")
	require.Contains(t, v, "Recomendación de la IA")
	require.NotContains(t, v, "Cargar archivo de Excel")
}

func TestUploadRejectsOtherFiles(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.login()
	f.press(tea.KeyEnter)

	txt := filepath.Join(t.TempDir(), "notas.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hola\n"), 0o600))
	f.typeText(txt)
	f.press(tea.KeyEnter)
	require.Nil(t, f.app.pipeline.File())
	require.Contains(t, f.view(), "Por favor, selecciona solo archivos .xls o .xlsx")
	require.False(t, f.app.pipeline.Loading())

	f.press(tea.KeyCtrlX)
	require.Empty(t, f.app.pipeline.Err())
	f.press(tea.KeyEnter)
	require.False(t, f.app.pipeline.Loading())
}

func TestUploadServerError(t *testing.T) {
	f := newFlow(t, failingBackend{err: &api.Error{Kind: api.KindServer, Status: 500, Detail: "archivo corrupto"}})
	f.login()
	f.press(tea.KeyEnter)
	f.typeText(writeWorkbook(t))
	f.press(tea.KeyEnter)
	f.press(tea.KeyEnter)
	f.until(func() bool { return !f.app.pipeline.Loading() })

	require.Equal(t, 0.0, f.app.pipeline.Progress())
	require.Nil(t, f.app.router.Snapshot())
	require.Contains(t, f.view(), "Error del servidor: archivo corrupto")
}

func TestBackAndLoadAnother(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.analyze()
	require.True(t, f.app.pipeline.ShowingResult())

	f.press(tea.KeyEsc)
	require.Equal(t, router.Upload, f.app.router.View())
	require.False(t, f.app.pipeline.ShowingResult())
	require.Contains(t, f.view(), "Cargar archivo de Excel")
	require.NotNil(t, f.app.router.Snapshot())

	f.press(tea.KeyEsc)
	require.Equal(t, router.Main, f.app.router.View())
	require.Contains(t, f.view(), "Análisis cargado: Excel (.xlsx)")

	// returning shows the published snapshot again
	f.press(tea.KeyEnter)
	require.True(t, f.app.pipeline.ShowingResult())
}

func TestDetailRequiresSnapshot(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.login()
	require.Equal(t, router.Upload, f.app.router.Navigate(router.Detail))
	require.NotContains(t, f.view(), "Simulador")
}

func (f *flow) openDetail() {
	f.t.Helper()
	f.analyze()
	f.typeText("d")
	require.Equal(f.t, router.Detail, f.app.router.View())
	require.NotNil(f.t, f.app.detail)
}

func TestDetailAddChangeAndSimulate(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.openDetail()
	d := f.app.detail
	require.Contains(t, f.view(), `Simulador "What-If" y Copiloto IA`)
	require.Equal(t, "12", d.months.Value())
	require.Equal(t, "Comida", d.builder.Form.Category)

	f.press(tea.KeyTab) // kind
	f.press(tea.KeyTab) // category
	f.press(tea.KeyTab) // value type
	f.press(tea.KeyTab) // value
	f.typeText("-50")
	f.press(tea.KeyEnter)

	require.Equal(t, []analysis.Change{{
		Kind:       analysis.Expense,
		Category:   "Comida",
		Adjustment: analysis.FixedAmount{Amount: -50},
	}}, d.builder.Changes())
	require.Empty(t, d.value.Value())
	require.Contains(t, f.view(), "Gasto (Comida): -$50.00 / mes")

	f.press(tea.KeyCtrlR)
	require.True(t, d.panel.Loading())
	f.until(func() bool { return !d.panel.Loading() })

	pts := d.panel.Result()
	require.Len(t, pts, 12)
	require.Equal(t, "2025-02", pts[0].Period)
	require.Equal(t, 600.0+650, pts[0].Value)
	v := f.view()
	require.Contains(t, v, "Balance proyectado")
	require.Contains(t, v, "Balance al cierre de 2026-01")

	// editing after a run flags the result
	f.press(tea.KeyShiftTab) // value type
	f.press(tea.KeyShiftTab) // category
	f.press(tea.KeyShiftTab) // kind
	f.press(tea.KeyShiftTab) // months
	f.typeText("0")
	require.Equal(t, "120", d.panel.Months)
	require.True(t, d.panel.Stale())
}

func TestDetailNewCategoryPrompt(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.openDetail()
	d := f.app.detail

	f.press(tea.KeyTab)
	f.press(tea.KeyTab)
	f.press(tea.KeyLeft)
	require.Equal(t, scenario.NewCategory, d.builder.Form.Category)
	f.press(tea.KeyTab)
	f.press(tea.KeyTab)
	f.typeText("200")
	f.press(tea.KeyEnter)
	require.True(t, d.builder.Prompting())
	require.Contains(t, f.view(), "Nueva categoría")

	f.typeText("Comidas")
	require.Contains(t, f.view(), `¿Quisiste decir "Comida"?`)
	f.press(tea.KeyEnter)

	require.False(t, d.builder.Prompting())
	require.Equal(t, "Comidas", d.builder.Form.Category)
	require.Contains(t, d.builder.Categories(), "Comidas")
	require.Equal(t, 1, d.builder.Len())
}

func TestDetailPromptCancel(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.openDetail()
	d := f.app.detail
	d.builder.Form.Category = scenario.NewCategory
	d.setFocus(focusValue)
	f.typeText("10")
	f.press(tea.KeyEnter)
	require.True(t, d.builder.Prompting())

	f.press(tea.KeyEsc)
	require.False(t, d.builder.Prompting())
	require.Equal(t, router.Detail, f.app.router.View())
	require.Zero(t, d.builder.Len())
}

func TestDetailChat(t *testing.T) {
	f := newFlow(t, mockBackend(t, mockserver.New(logger.Discard())))
	f.openDetail()
	d := f.app.detail

	f.press(tea.KeyShiftTab)
	require.Equal(t, focusChat, d.focus)
	f.press(tea.KeyEnter)
	require.Len(t, d.chat.Messages(), 1)

	f.typeText("Quiero un viaje")
	f.press(tea.KeyEnter)
	require.True(t, d.chat.Loading())
	require.Empty(t, d.message.Value())
	f.until(func() bool { return !d.chat.Loading() })

	msgs := d.chat.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "Quiero un viaje", msgs[1].Text)
	require.True(t, strings.HasPrefix(msgs[2].Text, "# Plan para: Quiero un viaje"))
	v := f.view()
	require.Contains(t, v, "Plan para: Quiero un viaje")
	require.Contains(t, v, "Capacidad de ahorro mensual:")
	require.NotContains(t, v, "**")
}

// gatedBackend counts projection calls and holds each until released.
type gatedBackend struct {
	*api.Client
	calls   atomic.Int32
	release chan struct{}
}

func (g *gatedBackend) Project(ctx context.Context, req analysis.ProjectionRequest) (analysis.ProjectionResponse, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return analysis.ProjectionResponse{}, ctx.Err()
	}
	return g.Client.Project(ctx, req)
}

func TestSimulationSingleFlight(t *testing.T) {
	g := &gatedBackend{Client: mockBackend(t, mockserver.New(logger.Discard())), release: make(chan struct{})}
	f := newFlow(t, g)
	f.openDetail()
	d := f.app.detail

	f.press(tea.KeyCtrlR)
	f.press(tea.KeyCtrlR)
	f.press(tea.KeyEnter)
	close(g.release)
	f.until(func() bool { return !d.panel.Loading() })

	require.Equal(t, int32(1), g.calls.Load())
	require.Len(t, d.panel.Result(), 12)
}

func TestStaleSessionResultDropped(t *testing.T) {
	g := &gatedBackend{Client: mockBackend(t, mockserver.New(logger.Discard())), release: make(chan struct{})}
	f := newFlow(t, g)
	f.openDetail()
	first := f.app.detail.id

	f.press(tea.KeyCtrlR)
	f.press(tea.KeyEsc)
	require.Equal(t, router.Upload, f.app.router.View())
	require.Nil(t, f.app.detail)
	require.True(t, f.app.pipeline.ShowingResult())

	f.typeText("d")
	second := f.app.detail
	require.NotEqual(t, first, second.id)

	close(g.release)
	f.untilMsg(func(msg tea.Msg) bool {
		done, ok := msg.(simulationDoneMsg)
		return ok && done.session == first
	})
	require.Nil(t, second.panel.Result())
	require.False(t, second.panel.Loading())
}

type failingBackend struct{ err error }

func (b failingBackend) Analyze(context.Context, api.Upload) (*analysis.Snapshot, error) {
	return nil, b.err
}

func (b failingBackend) Project(context.Context, analysis.ProjectionRequest) (analysis.ProjectionResponse, error) {
	return analysis.ProjectionResponse{}, b.err
}

func (b failingBackend) GeneratePlan(context.Context, analysis.PlanRequest) (analysis.PlanResponse, error) {
	return analysis.PlanResponse{}, b.err
}

func TestDetailChatWithoutPredictive(t *testing.T) {
	srv := mockserver.New(logger.Discard())
	srv.Snapshot.Predictive = nil
	f := newFlow(t, mockBackend(t, srv))
	f.openDetail()
	d := f.app.detail

	f.press(tea.KeyShiftTab)
	f.typeText("Quiero un viaje")
	f.press(tea.KeyEnter)

	require.False(t, d.chat.Loading())
	require.Len(t, d.chat.Messages(), 1)
	require.Contains(t, f.view(), "No se pueden enviar mensajes. Faltan datos del análisis inicial.")
}
