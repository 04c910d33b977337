// Package upload validates a statement file, submits it for analysis and
// tracks the estimated progress until the snapshot is published.
package upload

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
	"github.com/jask/copiloto/internal/progress"
)

// ErrUnsupportedMessage is shown when a non-spreadsheet file is selected.
const ErrUnsupportedMessage = "Por favor, selecciona solo archivos .xls o .xlsx"

var messages = api.Messages{
	ServerPrefix: "Error del servidor: ",
	Network:      "No se pudo conectar con el servidor. ¿Está encendido?",
	Local:        "Ocurrió un error inesperado al preparar la solicitud.",
}

// Options configures a Pipeline.
type Options struct {
	Estimator progress.Estimator
	// Initial is the progress shown as soon as a submission starts.
	Initial float64
	// Cap is the ceiling for estimated progress before the response arrives.
	Cap float64
	Log logrus.FieldLogger
}

// Pipeline is the upload state machine. All methods must be called from the
// event loop; only Job.Execute runs elsewhere.
type Pipeline struct {
	opts Options
	log  logrus.FieldLogger

	file     *File
	result   *analysis.Snapshot
	pending  *analysis.Snapshot
	errMsg   string
	progress float64
	loading  bool
	run      uint64
	task     *progress.Task
}

// New returns an idle Pipeline.
func New(opts Options) *Pipeline {
	if opts.Cap <= 0 {
		opts.Cap = 98
	}
	if opts.Initial <= 0 {
		opts.Initial = 1
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Pipeline{opts: opts, log: log.WithField("component", "upload")}
}

// Select stores f when it is a spreadsheet. A rejected file leaves the
// previous selection in place and sets the validation message. Selection is
// refused while a submission is in flight.
func (p *Pipeline) Select(f File) bool {
	if p.loading {
		return false
	}
	if !f.Accepted() {
		p.errMsg = ErrUnsupportedMessage
		p.log.WithFields(logrus.Fields{"file": f.Name, "mime": f.MIMEType}).Info("rejected file type")
		return false
	}
	sel := f
	p.file = &sel
	p.result = nil
	p.errMsg = ""
	p.progress = 0
	return true
}

// Submit starts a submission and returns the Job to execute. It reports false
// when no file is selected or a submission is already in flight.
func (p *Pipeline) Submit(ctx context.Context) (Job, bool) {
	if p.file == nil || p.loading {
		return Job{}, false
	}
	p.run++
	p.loading = true
	p.result = nil
	p.pending = nil
	p.errMsg = ""
	p.progress = p.opts.Initial
	p.task.Cancel()
	p.task = p.opts.Estimator.Start(ctx)
	p.log.WithFields(logrus.Fields{"run": p.run, "file": p.file.Name}).Info("submit")
	return Job{Run: p.run, File: *p.file}, true
}

// Ticks exposes the running estimator, or nil when idle.
func (p *Pipeline) Ticks() *progress.Task { return p.task }

// Run is the id of the latest submission.
func (p *Pipeline) Run() uint64 { return p.run }

// Tick applies an estimator increment for run. It reports whether the
// caller should keep listening for increments.
func (p *Pipeline) Tick(run uint64, inc float64) bool {
	if run != p.run || !p.loading || p.pending != nil {
		return false
	}
	p.progress = progress.Advance(p.progress, inc, p.opts.Cap)
	return true
}

// Complete applies the outcome of a Job. It reports true when the analysis
// succeeded and Publish should be called after the display delay. Results for
// an older run are ignored.
func (p *Pipeline) Complete(res Result) bool {
	if res.Run != p.run || !p.loading || p.pending != nil {
		p.log.WithField("run", res.Run).Debug("ignored stale upload result")
		return false
	}
	p.stopEstimator()
	if res.Err != nil {
		p.loading = false
		p.progress = 0
		p.errMsg = messages.Describe(res.Err)
		p.log.WithError(res.Err).WithField("kind", api.KindOf(res.Err).String()).Warn("analysis failed")
		return false
	}
	p.progress = 100
	p.pending = res.Snapshot
	return true
}

// Publish ends the submission for run and returns the new snapshot.
func (p *Pipeline) Publish(run uint64) (*analysis.Snapshot, bool) {
	if run != p.run || p.pending == nil {
		return nil, false
	}
	p.result = p.pending
	p.pending = nil
	p.loading = false
	p.log.WithField("run", run).Info("snapshot published")
	return p.result, true
}

// Restore shows an already published snapshot without a file selection.
func (p *Pipeline) Restore(s *analysis.Snapshot) {
	if p.loading || s == nil {
		return
	}
	p.result = s
	p.file = nil
	p.errMsg = ""
	p.progress = 0
}

// Reset clears selection, result, error and progress. It is refused while
// a submission is in flight.
func (p *Pipeline) Reset() bool {
	if p.loading {
		return false
	}
	p.file = nil
	p.result = nil
	p.errMsg = ""
	p.progress = 0
	return true
}

// Close is called when the owning view is torn down. It stops the estimator
// and invalidates any in-flight completion.
func (p *Pipeline) Close() {
	p.stopEstimator()
	if p.loading {
		p.run++
		p.loading = false
		p.pending = nil
		p.progress = 0
	}
}

func (p *Pipeline) stopEstimator() {
	p.task.Cancel()
	p.task = nil
}

func (p *Pipeline) File() *File { return p.file }
func (p *Pipeline) Result() *analysis.Snapshot { return p.result }
func (p *Pipeline) Err() string { return p.errMsg }
func (p *Pipeline) Progress() float64 { return p.progress }
func (p *Pipeline) Loading() bool { return p.loading }

// ShowingResult reports whether the dashboard for a snapshot is displayed.
func (p *Pipeline) ShowingResult() bool { return p.result != nil && !p.loading }
