package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jask/copiloto/internal/analysis"
)

// Endpoint paths on the analysis backend.
const (
	AnalyzePath = "/api/v1/analisis/financiero"
	ProjectPath = "/api/v1/simulacion/proyectar"
	PlanPath    = "/api/v1/metas/generar-plan"
)

// RequestIDHeader correlates a client request with server logs.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// Client talks to the analysis backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewClient builds a Client for baseURL. A zero timeout leaves the
// http.Client without one.
func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Upload is a file to analyze.
type Upload struct {
	Name     string
	MIMEType string
	Body     io.Reader
}

// Analyze posts the spreadsheet as multipart field "file" and decodes the snapshot.
func (c *Client) Analyze(ctx context.Context, up Upload) (*analysis.Snapshot, error) {
	if up.Body == nil {
		return nil, localError(fmt.Errorf("analyze: no file body"))
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Name))
	if up.MIMEType != "" {
		h.Set("Content-Type", up.MIMEType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, localError(fmt.Errorf("analyze: create part: %w", err))
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return nil, localError(fmt.Errorf("analyze: read file: %w", err))
	}
	if err := mw.Close(); err != nil {
		return nil, localError(fmt.Errorf("analyze: close multipart: %w", err))
	}

	var out analysis.Snapshot
	if err := c.do(ctx, AnalyzePath, mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Project runs a scenario simulation.
func (c *Client) Project(ctx context.Context, req analysis.ProjectionRequest) (analysis.ProjectionResponse, error) {
	var out analysis.ProjectionResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, localError(fmt.Errorf("project: encode: %w", err))
	}
	err = c.do(ctx, ProjectPath, "application/json", bytes.NewReader(body), &out)
	return out, err
}

// GeneratePlan asks the advisor for a goal-oriented recommendation.
func (c *Client) GeneratePlan(ctx context.Context, req analysis.PlanRequest) (analysis.PlanResponse, error) {
	var out analysis.PlanResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, localError(fmt.Errorf("plan: encode: %w", err))
	}
	err = c.do(ctx, PlanPath, "application/json", bytes.NewReader(body), &out)
	return out, err
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	if c.baseURL == "" {
		return localError(fmt.Errorf("%s: base url not configured", path))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return localError(fmt.Errorf("%s: build request: %w", path, err))
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	entry := c.logger().WithFields(logrus.Fields{"path": path, "request_id": reqID})
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Warn("request failed without response")
		return networkError(fmt.Errorf("%s: %w", path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		entry.WithError(err).Warn("read response body")
		return networkError(fmt.Errorf("%s: read body: %w", path, err))
	}
	entry = entry.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(started).String()})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := serverError(resp.StatusCode, data)
		entry.WithField("detail", apiErr.Detail).Warn("server returned error")
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		entry.WithError(err).Warn("decode response")
		return &Error{Kind: KindServer, Status: resp.StatusCode, Detail: "respuesta no válida", Err: err}
	}
	entry.Debug("request complete")
	return nil
}

func (c *Client) logger() logrus.FieldLogger {
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return c.log
}
