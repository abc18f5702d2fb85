package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jpcardenasg/automatcher/dto"
	"github.com/jpcardenasg/automatcher/service"
)

type MatchHandler struct {
	pipeline *service.Pipeline
	logger   *log.Logger
}

func NewMatchHandler(pipeline *service.Pipeline) *MatchHandler {
	return &MatchHandler{
		pipeline: pipeline,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "handler"}),
	}
}

// RunMatch handles the POST /match endpoint. It expects a multipart
// form with the soporte PDF under "pdf" and the ledger workbook under
// "excel", plus optional "margin" and "threshold" fields. The run
// happens in a per-request temp workspace that is removed once the
// response is written; the match records in the response carry the
// results.
func (h *MatchHandler) RunMatch(c *gin.Context) {
	h.logger.Info("received match request")

	pdfFile, err := c.FormFile("pdf")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "PDF file is required", err)
		return
	}
	excelFile, err := c.FormFile("excel")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Excel file is required", err)
		return
	}

	margin, err := formDecimal(c, "margin")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid margin", err)
		return
	}
	threshold, err := formFloat(c, "threshold")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid threshold", err)
		return
	}

	workDir, err := os.MkdirTemp("", "automatcher-*")
	if err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to create workspace", err)
		return
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, filepath.Base(pdfFile.Filename))
	if err := c.SaveUploadedFile(pdfFile, pdfPath); err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to store PDF upload", err)
		return
	}
	excelPath := filepath.Join(workDir, filepath.Base(excelFile.Filename))
	if err := c.SaveUploadedFile(excelFile, excelPath); err != nil {
		h.sendError(c, http.StatusInternalServerError, "Failed to store Excel upload", err)
		return
	}

	records, summary, err := h.pipeline.Run(service.RunParams{
		PDFPath:          pdfPath,
		ExcelPath:        excelPath,
		OutputDir:        filepath.Join(workDir, "out"),
		Margin:           margin,
		ContentThreshold: threshold,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNotFound) {
			status = http.StatusNotFound
		}
		h.sendError(c, status, "Pipeline run failed", err)
		return
	}

	h.logger.Info("match run completed", "matched", summary.Matched)
	c.JSON(http.StatusOK, dto.MatchResponse{
		Records:     records,
		Summary:     summary,
		ProcessedAt: time.Now().Format(time.RFC3339),
	})
}

func (h *MatchHandler) sendError(c *gin.Context, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
		h.logger.Error(message, "error", err)
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Error:   "MATCH_FAILED",
		Message: errorMsg,
		Code:    statusCode,
	})
}

func formDecimal(c *gin.Context, field string) (decimal.Decimal, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return decimal.Decimal{}, nil
	}
	return decimal.NewFromString(raw)
}

func formFloat(c *gin.Context, field string) (float64, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
