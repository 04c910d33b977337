// Package router arbitrates the top-level views and owns the analysis
// snapshot shared by them.
package router

import (
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/analysis"
)

// View is a top-level screen.
type View string

const (
	Login  View = "login"
	Main   View = "main"
	Upload View = "upload"
	Detail View = "detail"
)

// ErrMissingCredentials is returned when the username or password is blank.
var ErrMissingCredentials = errors.New("usuario y contraseña son obligatorios")

// Authenticator checks credentials.
type Authenticator interface {
	Authenticate(user, password string) error
}

// AcceptAll is the stand-in authenticator; it accepts every credential pair.
type AcceptAll struct{}

func (AcceptAll) Authenticate(string, string) error { return nil }

// Router holds the current view and the optional snapshot. Methods must be
// called from the event loop.
type Router struct {
	view     View
	snapshot *analysis.Snapshot
	auth     Authenticator
	log      logrus.FieldLogger
}

// New starts at Login.
func New(auth Authenticator, log logrus.FieldLogger) *Router {
	if auth == nil {
		auth = AcceptAll{}
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Router{view: Login, auth: auth, log: log.WithField("component", "router")}
}

func (r *Router) View() View { return r.view }

// Snapshot is the current analysis, or nil. Callers must not modify it.
func (r *Router) Snapshot() *analysis.Snapshot { return r.snapshot }

// Publish replaces the snapshot wholesale.
func (r *Router) Publish(s *analysis.Snapshot) {
	r.snapshot = s
	r.log.WithField("tipo_archivo", s.Label()).Info("snapshot replaced")
}

// SubmitCredentials moves Login to Main once the authenticator accepts.
func (r *Router) SubmitCredentials(user, password string) error {
	if r.view != Login {
		return nil
	}
	if strings.TrimSpace(user) == "" || password == "" {
		return ErrMissingCredentials
	}
	if err := r.auth.Authenticate(user, password); err != nil {
		return err
	}
	r.Navigate(Main)
	return nil
}

// StartAnalysis moves Main to Upload.
func (r *Router) StartAnalysis() bool {
	if r.view != Main {
		return false
	}
	r.Navigate(Upload)
	return true
}

// Back leaves the current view. From Upload it returns to Main only when no
// result is displayed; otherwise it stays and reports false so the caller
// can switch to load-another mode. From Detail it returns to Upload.
func (r *Router) Back(showingResult bool) bool {
	switch r.view {
	case Upload:
		if showingResult {
			return false
		}
		r.Navigate(Main)
		return true
	case Detail:
		r.Navigate(Upload)
		return true
	}
	return false
}

// ViewDetails moves Upload to Detail when a snapshot exists.
func (r *Router) ViewDetails() bool {
	if r.view != Upload {
		return false
	}
	return r.Navigate(Detail) == Detail
}

// Navigate switches to v and returns the view actually entered. Detail
// without a snapshot is refused and lands on Upload.
func (r *Router) Navigate(v View) View {
	if v == Detail && r.snapshot == nil {
		r.log.WithField("from", string(r.view)).Warn("detail requested without analysis, redirecting to upload")
		v = Upload
	}
	if v != r.view {
		r.log.WithFields(logrus.Fields{"from": string(r.view), "to": string(v)}).Debug("navigate")
	}
	r.view = v
	return v
}
