package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fapiao/internal/domain"
	"fapiao/internal/handler"
	"fapiao/internal/pipeline"
	"fapiao/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRunner records the request it received and returns a scripted result.
type stubRunner struct {
	req    pipeline.Request
	result *domain.PipelineResult
	err    error
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) (*domain.PipelineResult, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubTemplateReader returns fixed headers for any template file.
type stubTemplateReader struct {
	headers  []string
	err      error
	filename string
}

func (s *stubTemplateReader) Headers(filename string, _ []byte) ([]string, error) {
	s.filename = filename
	return s.headers, s.err
}

func okResult() *domain.PipelineResult {
	return &domain.PipelineResult{
		Records: []domain.InvoiceRecord{
			{Amount: 100, TaxID: "T-1", Date: "2024-03-15", Items: []domain.LineItem{}},
		},
		Summary: domain.SummaryRecord{
			TotalAmount: 100,
			ByCategory:  map[string]domain.CategoryStat{"其他": {Count: 1, Total: 100}},
			ByDate:      map[string]float64{"2024-03-15": 100},
		},
		CSV: "日期,金额\n2024-03-15,100",
	}
}

func newTestRouter(runner *stubRunner, templates *stubTemplateReader) *gin.Engine {
	parseH := handler.NewParseHandler(runner, templates, 1)
	return router.Setup(parseH, handler.NewExportHandler(), handler.NewHealthHandler(), nil)
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files []formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/parse-fapiao", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var envelope handler.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestParse_Success(t *testing.T) {
	runner := &stubRunner{result: okResult()}
	r := newTestRouter(runner, &stubTemplateReader{})

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{{field: "fapiao", name: "a.jpg", data: []byte("img")}},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	records := data["parsedFapiao"].([]interface{})
	require.Len(t, records, 1)
	assert.Equal(t, "日期,金额\n2024-03-15,100", data["csv"])
	assert.NotEmpty(t, data["excelBase64"])
	// Summary was not requested.
	assert.NotContains(t, data, "summary")

	assert.Equal(t, "sk-test", runner.req.Token)
	assert.True(t, runner.req.WantCSV)
	assert.False(t, runner.req.WantSummary)
	require.Len(t, runner.req.Files, 1)
	assert.Equal(t, "a.jpg", runner.req.Files[0].Name)
}

func TestParse_SummaryRequested(t *testing.T) {
	runner := &stubRunner{result: okResult()}
	r := newTestRouter(runner, &stubTemplateReader{})

	req := multipartRequest(t,
		map[string]string{"token": "sk-test", "summary": "true"},
		[]formFile{{field: "image", name: "a.jpg", data: []byte("img")}},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data.(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(100), summary["totalAmount"])
	assert.True(t, runner.req.WantSummary)
}

func TestParse_BearerTokenFallback(t *testing.T) {
	runner := &stubRunner{result: okResult()}
	r := newTestRouter(runner, &stubTemplateReader{})

	req := multipartRequest(t, nil,
		[]formFile{{field: "file", name: "a.jpg", data: []byte("img")}})
	req.Header.Set("Authorization", "Bearer sk-header")
	rec := doRequest(r, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sk-header", runner.req.Token)
}

func TestParse_MissingToken(t *testing.T) {
	r := newTestRouter(&stubRunner{result: okResult()}, &stubTemplateReader{})

	req := multipartRequest(t, nil,
		[]formFile{{field: "fapiao", name: "a.jpg", data: []byte("img")}})
	rec := doRequest(r, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "MISSING_TOKEN", envelope.Error.Code)
}

func TestParse_MissingFile(t *testing.T) {
	r := newTestRouter(&stubRunner{result: okResult()}, &stubTemplateReader{})

	req := multipartRequest(t, map[string]string{"token": "sk-test"}, nil)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FILE", decodeEnvelope(t, rec).Error.Code)
}

func TestParse_FileTooLarge(t *testing.T) {
	// The router is built with a 1 MB limit.
	r := newTestRouter(&stubRunner{result: okResult()}, &stubTemplateReader{})

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{{field: "fapiao", name: "huge.jpg", data: make([]byte, 2*1024*1024)}},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeEnvelope(t, rec).Error.Code)
}

func TestParse_TemplateHeadersForwarded(t *testing.T) {
	runner := &stubRunner{result: okResult()}
	templates := &stubTemplateReader{headers: []string{"日期", "金额"}}
	r := newTestRouter(runner, templates)

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{
			{field: "template", name: "tpl.xlsx", data: []byte("wb")},
			{field: "fapiao", name: "a.jpg", data: []byte("img")},
		},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tpl.xlsx", templates.filename)
	assert.Equal(t, []string{"日期", "金额"}, runner.req.TemplateHeaders)
}

func TestParse_TemplateReaderError(t *testing.T) {
	templates := &stubTemplateReader{
		err: domain.NewInputError("tpl.xlsx", domain.ErrTemplateUnavailable),
	}
	r := newTestRouter(&stubRunner{result: okResult()}, templates)

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{
			{field: "template", name: "tpl.xlsx", data: []byte("wb")},
			{field: "fapiao", name: "a.jpg", data: []byte("img")},
		},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TEMPLATE_UNAVAILABLE", decodeEnvelope(t, rec).Error.Code)
}

func TestParse_UpstreamTimeout(t *testing.T) {
	runner := &stubRunner{err: &domain.TimeoutError{Batch: 2, Err: context.DeadlineExceeded}}
	r := newTestRouter(runner, &stubTemplateReader{})

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{{field: "fapiao", name: "a.jpg", data: []byte("img")}},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "UPSTREAM_TIMEOUT", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Message, "batch 2")
}

func TestParse_UpstreamError(t *testing.T) {
	runner := &stubRunner{err: &domain.UpstreamError{Status: 500, Body: "boom"}}
	r := newTestRouter(runner, &stubTemplateReader{})

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{{field: "fapiao", name: "a.jpg", data: []byte("img")}},
	)
	rec := doRequest(r, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestParse_RequestIDHeader(t *testing.T) {
	r := newTestRouter(&stubRunner{result: okResult()}, &stubTemplateReader{})

	req := multipartRequest(t,
		map[string]string{"token": "sk-test"},
		[]formFile{{field: "fapiao", name: "a.jpg", data: []byte("img")}},
	)
	req.Header.Set("X-Request-ID", "req-42")
	rec := doRequest(r, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
