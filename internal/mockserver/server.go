// Package mockserver is a deterministic stand-in for the analysis backend.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
)

const maxUploadBytes = 32 << 20

// Server holds the canned data served by the handlers.
type Server struct {
	// Snapshot is returned by the analysis endpoint. Its FileType is replaced
	// by a label derived from the uploaded file name.
	Snapshot analysis.Snapshot
	// Start is the month projections count from.
	Start time.Time
	// Delay is slept before every response to exercise client progress.
	Delay time.Duration

	log logrus.FieldLogger
}

// New returns a Server with the sample fixture.
func New(log logrus.FieldLogger) *Server {
	return &Server{Snapshot: Fixture(), Start: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), log: log}
}

// Fixture is the sample analysis served by default.
func Fixture() analysis.Snapshot {
	var s analysis.Snapshot
	// the literal is valid JSON; a failure here is a programming error
	if err := json.Unmarshal([]byte(fixtureJSON), &s); err != nil {
		panic(fmt.Sprintf("mockserver fixture: %v", err))
	}
	return s
}

const fixtureJSON = `{
  "tipo_archivo": "Estado de cuenta",
  "analisis_descriptivo": {
    "total_ingresos": 1000,
    "total_gastos": 400,
    "balance_neto": 600,
    "principales_gastos_por_categoria": {"Renta": 250, "Comida": 100, "Transporte": 50}
  },
  "analisis_predictivo": {"tendencia": "estable", "proyeccion_siguiente_mes": 620},
  "analisis_ia": {"recomendacion": "**Buen trabajo.**\nTu balance es positivo; considera ahorrar el 20% de tus ingresos."}
}`

// Handler returns the chi router serving the three endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Post(api.AnalyzePath, s.handleAnalyze)
	r.Post(api.ProjectPath, s.handleProject)
	r.Post(api.PlanPath, s.handlePlan)
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		if s.log == nil {
			return
		}
		s.log.WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"request_id": r.Header.Get(api.RequestIDHeader),
			"elapsed":    time.Since(started).String(),
		}).Info("mock request")
	})
}

func (s *Server) wait(r *http.Request) bool {
	if s.Delay <= 0 {
		return true
	}
	select {
	case <-time.After(s.Delay):
		return true
	case <-r.Context().Done():
		return false
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "Se esperaba un formulario multipart con el campo 'file'.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Se requiere un archivo en el campo 'file'.")
		return
	}
	defer file.Close()
	if !s.wait(r) {
		return
	}

	snap := s.Snapshot
	snap.FileType = fileLabel(header.Filename)
	writeJSON(w, http.StatusOK, snap)
}

func fileLabel(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "Excel (.xlsx)"
	case ".xls":
		return "Excel (.xls)"
	default:
		return "Estado de cuenta"
	}
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req analysis.ProjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Cuerpo de simulación inválido: "+err.Error())
		return
	}
	if req.Descriptive == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Falta analisis_descriptivo.")
		return
	}
	if req.Months < analysis.MinMonths || req.Months > analysis.MaxMonths {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("meses_a_proyectar debe estar entre %d y %d.", analysis.MinMonths, analysis.MaxMonths))
		return
	}
	if !s.wait(r) {
		return
	}
	writeJSON(w, http.StatusOK, Project(req, s.Start))
}

// Project computes a linear month-by-month balance under the scenario changes.
func Project(req analysis.ProjectionRequest, start time.Time) analysis.ProjectionResponse {
	d := req.Descriptive
	income := d.TotalIncome
	expenses := d.TotalExpenses
	for _, c := range req.Changes {
		switch c.Kind {
		case analysis.Income:
			income += delta(income, c.Adjustment)
		case analysis.Expense:
			base := d.ExpensesByCategory[c.Category]
			expenses += delta(base, c.Adjustment)
		}
	}
	net := income - expenses
	balance := d.NetBalance
	out := analysis.ProjectionResponse{
		Dates:  make([]string, 0, req.Months),
		Values: make([]float64, 0, req.Months),
	}
	for i := 1; i <= req.Months; i++ {
		balance += net
		out.Dates = append(out.Dates, start.AddDate(0, i, 14).Format("2006-01-02"))
		out.Values = append(out.Values, balance)
	}
	return out
}

func delta(base float64, adj analysis.Adjustment) float64 {
	switch a := adj.(type) {
	case analysis.Percentage:
		return base * a.Fraction
	case analysis.FixedAmount:
		return a.Amount
	}
	return 0
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req analysis.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Cuerpo inválido: "+err.Error())
		return
	}
	goal := strings.TrimSpace(req.Goal)
	if goal == "" || req.Descriptive == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Se requieren meta_usuario y analisis_descriptivo.")
		return
	}
	if !s.wait(r) {
		return
	}
	net := req.Descriptive.TotalIncome - req.Descriptive.TotalExpenses
	plan := fmt.Sprintf("# Plan para: %s\n**Capacidad de ahorro mensual:** %.2f\n- Reserva un monto fijo cada mes.\n- Revisa tus gastos principales.", goal, net)
	writeJSON(w, http.StatusOK, analysis.PlanResponse{Recommendation: plan})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
