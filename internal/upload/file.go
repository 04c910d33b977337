package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
)

// Accepted spreadsheet MIME types.
const (
	MIMEXLS  = "application/vnd.ms-excel"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is a candidate statement on disk.
type File struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// Accepted reports whether the file has a spreadsheet MIME type.
func (f File) Accepted() bool {
	return f.MIMEType == MIMEXLS || f.MIMEType == MIMEXLSX
}

// Inspect stats path and sniffs its MIME type from content.
func Inspect(path string) (File, error) {
	abs := path
	if p, err := filepath.Abs(path); err == nil {
		abs = p
	}
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", abs)
	}
	mt, err := mimetype.DetectFile(abs)
	if err != nil {
		return File{}, fmt.Errorf("detect type of %s: %w", abs, err)
	}
	return File{Path: abs, Name: filepath.Base(abs), MIMEType: mimeOf(mt), Size: info.Size()}, nil
}

// mimeOf maps a detected type onto one of the accepted spreadsheet types when
// it is one of them or a descendant of one.
func mimeOf(mt *mimetype.MIME) string {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(MIMEXLSX) {
			return MIMEXLSX
		}
		if m.Is(MIMEXLS) {
			return MIMEXLS
		}
	}
	return mt.String()
}

// Analyzer performs the analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, up api.Upload) (*analysis.Snapshot, error)
}

// Job is one submission handed to the caller to execute off the event loop.
type Job struct {
	Run  uint64
	File File
}

// Result is the outcome of a Job.
type Result struct {
	Run      uint64
	Snapshot *analysis.Snapshot
	Err      error
}

// Execute opens the file and sends it to the analyzer. It is safe to call
// from any goroutine.
func (j Job) Execute(ctx context.Context, a Analyzer) Result {
	f, err := os.Open(j.File.Path)
	if err != nil {
		return Result{Run: j.Run, Err: &api.Error{Kind: api.KindLocal, Err: fmt.Errorf("open %s: %w", j.File.Path, err)}}
	}
	defer f.Close()
	snap, err := a.Analyze(ctx, api.Upload{Name: j.File.Name, MIMEType: j.File.MIMEType, Body: f})
	if err == nil && snap == nil {
		err = &api.Error{Kind: api.KindServer, Detail: "respuesta vacía"}
	}
	return Result{Run: j.Run, Snapshot: snap, Err: err}
}
