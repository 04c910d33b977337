package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed request by how far it got.
type Kind int

const (
	// KindLocal means the request could not be constructed.
	KindLocal Kind = iota
	// KindNetwork means the request was sent but no response arrived.
	KindNetwork
	// KindServer means a response arrived but it was an error or unreadable.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "local"
	}
}

// Error is returned by every Client method.
type Error struct {
	Kind   Kind
	Status int
	// Detail is server supplied text, or the HTTP status text when absent.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		if e.Status != 0 {
			return fmt.Sprintf("server error %d: %s", e.Status, e.Detail)
		}
		return fmt.Sprintf("server error: %s", e.Detail)
	case KindNetwork:
		return fmt.Sprintf("network error: %v", e.Err)
	default:
		return fmt.Sprintf("request error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err. Errors that are not *Error are local.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindLocal
}

func localError(err error) *Error {
	return &Error{Kind: KindLocal, Err: err}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// serverError builds an error from a non-2xx body, preferring its detail field.
func serverError(status int, body []byte) *Error {
	detail := detailFrom(body)
	if detail == "" {
		detail = http.StatusText(status)
	}
	if detail == "" {
		detail = fmt.Sprintf("%d", status)
	}
	return &Error{Kind: KindServer, Status: status, Detail: detail}
}

func detailFrom(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if string(env.Detail) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, env.Detail); err != nil {
		return string(env.Detail)
	}
	return buf.String()
}

// Messages holds the user-facing text a feature shows for each Kind.
type Messages struct {
	// ServerPrefix is prepended to the server detail.
	ServerPrefix string
	Network      string
	// Local is shown for local errors; when empty the error text is shown
	// after LocalPrefix.
	Local       string
	LocalPrefix string
}

// Describe renders err for display.
func (m Messages) Describe(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = localError(err)
	}
	switch apiErr.Kind {
	case KindServer:
		return m.ServerPrefix + apiErr.Detail
	case KindNetwork:
		return m.Network
	}
	if m.Local != "" {
		return m.Local
	}
	if apiErr.Err != nil {
		return m.LocalPrefix + apiErr.Err.Error()
	}
	return m.LocalPrefix + apiErr.Error()
}
