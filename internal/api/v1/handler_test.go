package v1

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"enrollboard/internal/config"
	"enrollboard/internal/exporter"
	"enrollboard/internal/fetch"
	"enrollboard/internal/model"
	"enrollboard/internal/pipeline"
)

type stubRunner struct {
	report *model.Report
	err    error
}

func (s *stubRunner) Run(context.Context) (*model.Report, error) {
	return s.report, s.err
}

func testReport() *model.Report {
	cols := []model.CentreColumn{{Header: "PR1", Centre: "PR1"}}
	return &model.Report{
		RunID:         "run-1",
		GeneratedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		BaselineLabel: "AY2024",
		CurrentLabel:  "AY2025",
		Series: &model.Series{
			Columns: cols,
			Rows: []model.Row{
				{Date: "01/01", Values: []float64{361}},
				{Date: "01/08", Values: []float64{400}},
			},
		},
		Comparisons: []model.Comparison{
			{Centre: "PR1", Baseline: model.Float64Ptr(361), Latest: model.Float64Ptr(400), PercentChange: model.Float64Ptr(10.8)},
			{Centre: "SN", Baseline: model.Float64Ptr(82)},
		},
		Growth: &model.Growth{
			Columns: cols,
			Rows: []model.GrowthRow{
				{Date: "01/01", Values: []*float64{nil}},
				{Date: "01/08", Values: []*float64{model.Float64Ptr(10.803324099722991)}},
			},
		},
	}
}

func setupRouter(runner pipeline.Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(runner, exporter.NewExporter("Enrollment Dashboard"), nil).RegisterRoutes(r.Group("/api"))
	return r
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	w := serve(setupRouter(&stubRunner{report: testReport()}), http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, 1, resp.Centres)
	assert.Empty(t, resp.Error)
}

func TestGetStatus_FailureStillOK(t *testing.T) {
	t.Parallel()

	err := &pipeline.Error{Stage: "fetch", Kind: pipeline.KindNetwork, Err: errors.New("dial tcp: timeout")}
	w := serve(setupRouter(&stubRunner{err: err}), http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, pipeline.KindNetwork, resp.Kind)
	assert.Equal(t, "Failed to load or parse Google Sheet: fetch: dial tcp: timeout", resp.Error)
}

func TestGetReport_UndefinedAsNull(t *testing.T) {
	t.Parallel()

	w := serve(setupRouter(&stubRunner{report: testReport()}), http.MethodGet, "/api/report")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"centre":"SN","baseline":82,"latest":null,"percentChange":null`)
	assert.Contains(t, body, `"percentChange":10.8`)
	assert.Contains(t, body, `"values":[null]`)
}

func TestGetReport_ErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		kind   pipeline.Kind
	}{
		{"network", &pipeline.Error{Stage: "fetch", Kind: pipeline.KindNetwork, Err: errors.New("unexpected status 404")}, http.StatusBadGateway, pipeline.KindNetwork},
		{"parse", &pipeline.Error{Stage: "fetch", Kind: pipeline.KindParse, Err: errors.New("html body")}, http.StatusUnprocessableEntity, pipeline.KindParse},
		{"shape", &pipeline.Error{Stage: "clean", Kind: pipeline.KindShape, Err: errors.New("no centre columns")}, http.StatusUnprocessableEntity, pipeline.KindShape},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(setupRouter(&stubRunner{err: tt.err}), http.MethodGet, "/api/report")
			require.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.True(t, strings.HasPrefix(resp.Error, pipeline.UserMessagePrefix))
		})
	}
}

func TestExport_Download(t *testing.T) {
	t.Parallel()

	w := serve(setupRouter(&stubRunner{report: testReport()}), http.MethodGet, "/api/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="enrollment-report-20250301-090000.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), exporter.SheetComparison)
}

func TestExport_PipelineFailure(t *testing.T) {
	t.Parallel()

	err := &pipeline.Error{Stage: "clean", Kind: pipeline.KindShape, Err: errors.New("no rows")}
	w := serve(setupRouter(&stubRunner{err: err}), http.MethodGet, "/api/export")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func readEvents(t *testing.T, body string) []exportProgressEvent {
	t.Helper()

	var events []exportProgressEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var e exportProgressEvent
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		events = append(events, e)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestExportStream_DownloadOnce(t *testing.T) {
	t.Parallel()

	r := setupRouter(&stubRunner{report: testReport()})
	w := serve(r, http.MethodPost, "/api/export/stream")
	require.Equal(t, http.StatusOK, w.Code)

	events := readEvents(t, w.Body.String())
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, "start", events[0].Type)
	assert.Equal(t, "progress", events[1].Type)

	done := events[len(events)-1]
	require.Equal(t, "done", done.Type)
	data, ok := done.Data.(map[string]any)
	require.True(t, ok)
	url, _ := data["downloadUrl"].(string)
	require.True(t, strings.HasPrefix(url, "/api/export/download/"), url)

	first := serve(r, http.MethodGet, url)
	require.Equal(t, http.StatusOK, first.Code)
	assert.NotZero(t, first.Body.Len())

	second := serve(r, http.MethodGet, url)
	assert.Equal(t, http.StatusNotFound, second.Code)
}

func TestExportStream_PipelineFailure(t *testing.T) {
	t.Parallel()

	err := &pipeline.Error{Stage: "fetch", Kind: pipeline.KindParse, Err: errors.New("html body")}
	w := serve(setupRouter(&stubRunner{err: err}), http.MethodPost, "/api/export/stream")

	events := readEvents(t, w.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, "error", events[1].Type)
	assert.True(t, strings.HasPrefix(events[1].Message, pipeline.UserMessagePrefix))
}

func TestExportDownloadStore_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newExportDownloadStore()
	s.now = func() time.Time { return now }

	file, err := os.CreateTemp(t.TempDir(), "export_*.xlsx")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	token := s.put(file.Name(), "a.xlsx", time.Minute)
	item, ok := s.get(token)
	require.True(t, ok)
	assert.Equal(t, "a.xlsx", item.filename)
	assert.FileExists(t, file.Name())

	// 过期后条目与临时文件一并清理
	now = now.Add(2 * time.Minute)
	_, ok = s.get(token)
	assert.False(t, ok)
	assert.Empty(t, s.items)
	assert.NoFileExists(t, file.Name())
}

func TestGetReport_EncodeFailureIsNotEmpty200(t *testing.T) {
	t.Parallel()

	report := testReport()
	report.Series.Rows[1].Values[0] = math.Inf(1)

	w := serve(setupRouter(&stubRunner{report: report}), http.MethodGet, "/api/report")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "encode report")
}

func TestGetReport_InfiniteCellsDropped(t *testing.T) {
	t.Parallel()

	const sheetURL = "https://sheets.example.test/export?format=csv"
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, sheetURL,
		httpmock.NewStringResponder(http.StatusOK, "Date,PR1\n01/01,10\n01/08,inf\n01/15,12\n"))

	cfg := config.DefaultConfig()
	cfg.Source.URL = sheetURL
	p, err := pipeline.New(cfg, pipeline.WithFetcher(fetch.New(&http.Client{Transport: transport})))
	require.NoError(t, err)

	w := serve(setupRouter(p), http.MethodGet, "/api/report")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Series struct {
			Rows []struct {
				Date string `json:"date"`
			} `json:"rows"`
		} `json:"series"`
		Stats struct {
			Incomplete int `json:"incomplete"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Series.Rows, 2)
	assert.Equal(t, "01/15", body.Series.Rows[1].Date)
	assert.Equal(t, 1, body.Stats.Incomplete)
}
