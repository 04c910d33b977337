package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/api"
	"github.com/jask/copiloto/internal/logger"
	"github.com/jask/copiloto/internal/mockserver"
)

func newMockClient(t *testing.T) *api.Client {
	t.Helper()
	srv := httptest.NewServer(mockserver.New(logger.Discard()).Handler())
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL+"/", 5*time.Second, logger.Discard())
}

func TestAnalyzeAgainstMock(t *testing.T) {
	c := newMockClient(t)

	snap, err := c.Analyze(context.Background(), api.Upload{Name: "enero.xls", MIMEType: "application/vnd.ms-excel", Body: strings.NewReader("data")})
	require.NoError(t, err)
	require.Equal(t, "Excel (.xls)", snap.FileType)
	require.Equal(t, 1000.0, snap.Descriptive.TotalIncome)
	require.True(t, snap.HasPredictive())
}

func TestProjectAndPlanAgainstMock(t *testing.T) {
	c := newMockClient(t)
	fx := mockserver.Fixture()

	proj, err := c.Project(context.Background(), analysis.ProjectionRequest{Descriptive: fx.Descriptive, Months: 3, Changes: []analysis.Change{}})
	require.NoError(t, err)
	require.Len(t, proj.Dates, 3)
	require.Len(t, proj.Values, 3)

	plan, err := c.GeneratePlan(context.Background(), analysis.PlanRequest{Goal: "Viajar", Descriptive: fx.Descriptive, Predictive: fx.Predictive})
	require.NoError(t, err)
	require.Contains(t, plan.Recommendation, "Viajar")
}

func TestServerErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get(api.RequestIDHeader))
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"Formato de archivo no soportado"}`)
	}))
	defer srv.Close()
	c := api.NewClient(srv.URL, time.Second, nil)

	_, err := c.Project(context.Background(), analysis.ProjectionRequest{Changes: []analysis.Change{}})
	require.Error(t, err)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, api.KindServer, apiErr.Kind)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, "Formato de archivo no soportado", apiErr.Detail)
}

func TestServerErrorStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer srv.Close()
	c := api.NewClient(srv.URL, time.Second, nil)

	_, err := c.GeneratePlan(context.Background(), analysis.PlanRequest{Goal: "x"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Internal Server Error", apiErr.Detail)
}

func TestServerErrorStructuredDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail": [ {"loc": ["body"], "msg": "field required"} ]}`)
	}))
	defer srv.Close()
	c := api.NewClient(srv.URL, time.Second, nil)

	_, err := c.GeneratePlan(context.Background(), analysis.PlanRequest{Goal: "x"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, `[{"loc":["body"],"msg":"field required"}]`, apiErr.Detail)
}

func TestUndecodableBodyIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()
	c := api.NewClient(srv.URL, time.Second, nil)

	_, err := c.Project(context.Background(), analysis.ProjectionRequest{Changes: []analysis.Change{}})
	require.Equal(t, api.KindServer, api.KindOf(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	c := api.NewClient(url, time.Second, nil)

	_, err := c.Analyze(context.Background(), api.Upload{Name: "a.xlsx", Body: strings.NewReader("x")})
	require.Equal(t, api.KindNetwork, api.KindOf(err))
}

func TestLocalErrors(t *testing.T) {
	c := api.NewClient("http://127.0.0.1:1", time.Second, nil)

	_, err := c.Analyze(context.Background(), api.Upload{Name: "a.xlsx"})
	require.Equal(t, api.KindLocal, api.KindOf(err))

	_, err = c.Project(context.Background(), analysis.ProjectionRequest{Changes: []analysis.Change{{Kind: analysis.Expense}}})
	require.Equal(t, api.KindLocal, api.KindOf(err))

	_, err = api.NewClient("", time.Second, nil).GeneratePlan(context.Background(), analysis.PlanRequest{})
	require.Equal(t, api.KindLocal, api.KindOf(err))

	require.Equal(t, api.KindLocal, api.KindOf(errors.New("plain")))
}
