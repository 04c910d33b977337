// Package simulation runs what-if projections for the current snapshot.
package simulation

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
)

// Display text for the local failures.
const (
	NoAnalysisMessage      = "No hay datos de análisis base para ejecutar la simulación."
	UnexpectedShapeMessage = "La respuesta de la API no tiene el formato esperado."
)

var (
	ErrNoAnalysis      = errors.New("no descriptive analysis")
	ErrUnexpectedShape = errors.New("projection dates and values missing or of unequal length")
	ErrInFlight        = errors.New("simulation already running")
)

var messages = api.Messages{
	ServerPrefix: "Error del servidor: ",
	Network:      "No se pudo conectar con el servidor.",
	LocalPrefix:  "Error: ",
}

// Projector performs the projection request.
type Projector interface {
	Project(ctx context.Context, req analysis.ProjectionRequest) (analysis.ProjectionResponse, error)
}

// CoerceMonths parses the leading integer of raw and clamps it to the
// accepted range. Input without a leading integer becomes MinMonths.
func CoerceMonths(raw string) int {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return analysis.MinMonths
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// overflow keeps the sign
		if s[0] == '-' {
			return analysis.MinMonths
		}
		return analysis.MaxMonths
	}
	return min(max(n, analysis.MinMonths), analysis.MaxMonths)
}

// Normalize validates a projection reply and zips it into year-month points.
func Normalize(resp analysis.ProjectionResponse) ([]analysis.Point, error) {
	if resp.Dates == nil || resp.Values == nil || len(resp.Dates) != len(resp.Values) {
		return nil, ErrUnexpectedShape
	}
	points := make([]analysis.Point, len(resp.Dates))
	for i, d := range resp.Dates {
		if r := []rune(d); len(r) > 7 {
			d = string(r[:7])
		}
		points[i] = analysis.Point{Period: d, Value: resp.Values[i]}
	}
	return points, nil
}

// Job is one projection run to execute off the event loop.
type Job struct {
	Run     uint64
	Request analysis.ProjectionRequest
}

// Result is the outcome of a Job.
type Result struct {
	Run    uint64
	Points []analysis.Point
	Err    error
}

// Execute sends the request and normalizes the reply.
func (j Job) Execute(ctx context.Context, p Projector) Result {
	resp, err := p.Project(ctx, j.Request)
	if err != nil {
		return Result{Run: j.Run, Err: err}
	}
	points, err := Normalize(resp)
	return Result{Run: j.Run, Points: points, Err: err}
}

// Panel is the simulation state of one detail session. Methods must be
// called from the event loop.
type Panel struct {
	// Months is the raw months input.
	Months string

	log     logrus.FieldLogger
	result  []analysis.Point
	stale   bool
	errMsg  string
	loading bool
	run     uint64
}

// NewPanel returns an idle Panel with the months input set to defaultMonths.
func NewPanel(defaultMonths int, log logrus.FieldLogger) *Panel {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Panel{Months: strconv.Itoa(defaultMonths), log: log.WithField("component", "simulation")}
}

// Start builds a projection request from the snapshot and a copy of changes.
// It fails with ErrInFlight while a run is pending, leaving state unchanged,
// and with ErrNoAnalysis when the snapshot has no descriptive analysis.
func (p *Panel) Start(s *analysis.Snapshot, changes []analysis.Change) (Job, error) {
	if p.loading {
		return Job{}, ErrInFlight
	}
	if !s.HasDescriptive() {
		p.errMsg = NoAnalysisMessage
		return Job{}, ErrNoAnalysis
	}
	cambios := make([]analysis.Change, len(changes))
	copy(cambios, changes)

	p.run++
	p.loading = true
	p.result = nil
	p.stale = false
	p.errMsg = ""
	req := analysis.ProjectionRequest{
		Descriptive: s.Descriptive,
		Months:      CoerceMonths(p.Months),
		Changes:     cambios,
	}
	p.log.WithFields(logrus.Fields{"run": p.run, "months": req.Months, "changes": len(cambios)}).Info("run simulation")
	return Job{Run: p.run, Request: req}, nil
}

// Complete applies a Result. Results for older runs are ignored.
func (p *Panel) Complete(res Result) bool {
	if res.Run != p.run || !p.loading {
		p.log.WithField("run", res.Run).Debug("ignored stale simulation result")
		return false
	}
	p.loading = false
	if res.Err != nil {
		p.errMsg = describe(res.Err)
		p.log.WithError(res.Err).Warn("simulation failed")
		return true
	}
	p.result = res.Points
	return true
}

// MarkStale flags the shown result as out of date after an input change.
func (p *Panel) MarkStale() {
	if p.result != nil {
		p.stale = true
	}
}

func describe(err error) string {
	if errors.Is(err, ErrUnexpectedShape) {
		return UnexpectedShapeMessage
	}
	return messages.Describe(err)
}

func (p *Panel) Result() []analysis.Point { return p.result }
func (p *Panel) Stale() bool { return p.stale }
func (p *Panel) Err() string { return p.errMsg }
func (p *Panel) Loading() bool { return p.loading }
func (p *Panel) Run() uint64 { return p.run }
