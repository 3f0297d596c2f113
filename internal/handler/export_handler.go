package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"fapiao/internal/csvexport"
	"fapiao/internal/domain"
)

// ExportHandler turns parsed results back into downloadable files. The
// service holds no state between runs, so clients post the payload back.
type ExportHandler struct{}

// NewExportHandler creates an ExportHandler.
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// CSVRequest is the body of POST /api/export/csv.
type CSVRequest struct {
	CSV  string `json:"csv" binding:"required"`
	Name string `json:"name"`
}

// CSV handles POST /api/export/csv: returns the CSV text as a UTF-8
// attachment with a leading BOM for spreadsheet-application compatibility.
func (h *ExportHandler) CSV(c *gin.Context) {
	var req CSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "csv field is required")
		return
	}

	filename := csvexport.BuildFilename(req.Name)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", csvexport.WithBOM(req.CSV))
}

// JSON handles POST /api/export/json: returns the records plus summary as a
// pretty-printed JSON attachment.
func (h *ExportHandler) JSON(c *gin.Context) {
	var req domain.ExportJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "invoices field is required")
		return
	}

	pretty, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="fapiao.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", pretty)
}
