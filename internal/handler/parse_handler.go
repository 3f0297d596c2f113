package handler

import (
	"context"
	"encoding/base64"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fapiao/internal/domain"
	"fapiao/internal/pipeline"
	"fapiao/internal/port"
	"fapiao/internal/preprocess"
	"fapiao/internal/xlsxexport"
)

// invoiceFields are the multipart field names accepted for invoice files,
// in the order their files are appended to the run.
var invoiceFields = []string{"fapiao", "image", "file"}

// Runner abstracts the pipeline for handler tests.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*domain.PipelineResult, error)
}

// ParseHandler handles invoice parsing requests.
type ParseHandler struct {
	runner       Runner
	templates    port.TemplateReader
	maxFileBytes int64
}

// NewParseHandler creates a ParseHandler.
func NewParseHandler(runner Runner, templates port.TemplateReader, maxFileSizeMB int64) *ParseHandler {
	return &ParseHandler{
		runner:       runner,
		templates:    templates,
		maxFileBytes: maxFileSizeMB * 1024 * 1024,
	}
}

// ParseResponse is the success payload of POST /api/parse-fapiao.
type ParseResponse struct {
	ParsedFapiao []domain.InvoiceRecord `json:"parsedFapiao"`
	Summary      *domain.SummaryRecord  `json:"summary,omitempty"`
	CSV          string                 `json:"csv"`
	ExcelBase64  string                 `json:"excelBase64,omitempty"`
	RawTexts     []string               `json:"rawTexts,omitempty"`
}

// Parse handles POST /api/parse-fapiao
// @Summary Parse invoice files
// @Description Upload invoice images/PDFs plus an optional spreadsheet template; returns normalized records, an optional summary, merged CSV text, and a filled workbook.
// @Tags parse
// @Accept multipart/form-data
// @Produce json
// @Param token formData string false "Upstream API token (or Authorization: Bearer header)"
// @Param template formData file false "Spreadsheet template whose first row defines CSV columns"
// @Param fapiao formData file true "Invoice image or PDF (repeatable; image/file also accepted)"
// @Param summary formData string false "Request aggregation summary (true/1/on)"
// @Success 200 {object} APIResponse{data=ParseResponse}
// @Failure 400 {object} APIResponse "Validation failure"
// @Failure 502 {object} APIResponse "Upstream model failure"
// @Failure 504 {object} APIResponse "Upstream timeout"
// @Router /api/parse-fapiao [post]
func (h *ParseHandler) Parse(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_TOKEN", "API token is required")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "expected multipart/form-data")
		return
	}

	files, err := h.collectFiles(form)
	if err != nil {
		HandleError(c, err)
		return
	}
	if len(files) == 0 {
		HandleError(c, domain.ErrMissingFile)
		return
	}

	templateHeaders, err := h.templateHeaders(form)
	if err != nil {
		HandleError(c, err)
		return
	}

	wantSummary := parseFlag(c.PostForm("summary"))
	requestID, _ := c.Get("request_id")

	result, err := h.runner.Run(c.Request.Context(), pipeline.Request{
		Token:           token,
		Files:           files,
		TemplateHeaders: templateHeaders,
		WantSummary:     wantSummary,
		WantCSV:         true,
		Progress: func(percent int, stage string) {
			log.Printf("[%s] progress %d%% (%s)", requestID, percent, stage)
		},
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	resp := ParseResponse{
		ParsedFapiao: result.Records,
		CSV:          result.CSV,
		RawTexts:     result.RawTexts,
	}
	if wantSummary {
		resp.Summary = &result.Summary
	}

	if workbook, err := xlsxexport.Workbook(templateHeaders, result.Records); err == nil {
		resp.ExcelBase64 = base64.StdEncoding.EncodeToString(workbook)
	} else {
		log.Printf("[%s] workbook generation failed: %v", requestID, err)
	}

	RespondOK(c, resp)
}

// extractToken reads the upstream credential from the token form field or
// the Authorization Bearer header.
func (h *ParseHandler) extractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.PostForm("token")); token != "" {
		return token
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// collectFiles gathers invoice uploads across the accepted field names,
// preserving per-field upload order.
func (h *ParseHandler) collectFiles(form *multipart.Form) ([]preprocess.InputFile, error) {
	var files []preprocess.InputFile
	for _, field := range invoiceFields {
		for _, header := range form.File[field] {
			if h.maxFileBytes > 0 && header.Size > h.maxFileBytes {
				return nil, domain.NewInputError(header.Filename, domain.ErrFileTooLarge)
			}
			data, err := readFile(header)
			if err != nil {
				return nil, domain.NewInputError(header.Filename, err)
			}
			files = append(files, preprocess.InputFile{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	return files, nil
}

func (h *ParseHandler) templateHeaders(form *multipart.Form) ([]string, error) {
	headers := form.File["template"]
	if len(headers) == 0 {
		return nil, nil
	}
	header := headers[0]
	data, err := readFile(header)
	if err != nil {
		return nil, domain.NewInputError(header.Filename, err)
	}
	return h.templates.Headers(header.Filename, data)
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
