package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jpcardenasg/automatcher/dto"
)

const (
	egresoField = "No Egreso"
	giradoField = "Girado a"
)

// PDFGenerator produces one output PDF per matched soporte: the receipt
// image scaled onto an A4 page with the transaction's business fields
// stamped beneath it.
type PDFGenerator struct {
	conf   *model.Configuration
	logger *log.Logger
}

func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{
		conf:   model.NewDefaultConfiguration(),
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "pdfgen"}),
	}
}

// RenderMatch builds the PDF for one matched record. The file is named
// by the row's "No Egreso" and "Girado a" fields, "NA" when absent.
func (g *PDFGenerator) RenderMatch(record dto.MatchRecord, outputDir string) (string, error) {
	if record.Row == nil {
		return "", fmt.Errorf("%w: record for %s has no matched transaction", ErrRenderFailed, record.Receipt.Path)
	}
	if _, err := os.Stat(record.Receipt.Path); err != nil {
		return "", fmt.Errorf("%w: soporte image %s", ErrNotFound, record.Receipt.Path)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating output dir: %v", ErrRenderFailed, err)
	}

	noEgreso := record.Row.Field(egresoField, "NA")
	giradoA := record.Row.Field(giradoField, "NA")
	outPath := filepath.Join(outputDir, fmt.Sprintf("%s - %s.pdf", noEgreso, giradoA))

	imp, err := api.Import("form:A4, pos:c, sc:0.8 rel", types.POINTS)
	if err != nil {
		return "", fmt.Errorf("%w: bad import spec: %v", ErrRenderFailed, err)
	}
	if err := api.ImportImagesFile([]string{record.Receipt.Path}, outPath, imp, g.conf); err != nil {
		return "", fmt.Errorf("%w: importing %s: %v", ErrRenderFailed, record.Receipt.Path, err)
	}

	text := fmt.Sprintf("No Egreso: %s\nGirado a: %s", noEgreso, giradoA)
	wm, err := api.TextWatermark(text, "font:Helvetica-Bold, points:12, pos:bl, off:50 40, scalefactor:1 abs, rot:0, col:0 0 0", true, false, types.POINTS)
	if err != nil {
		return "", fmt.Errorf("%w: bad watermark spec: %v", ErrRenderFailed, err)
	}
	if err := api.AddWatermarksFile(outPath, "", nil, wm, g.conf); err != nil {
		return "", fmt.Errorf("%w: stamping %s: %v", ErrRenderFailed, outPath, err)
	}

	g.logger.Info("PDF generated", "path", outPath)
	return outPath, nil
}

// RenderAll renders every ABONADO record that found a transaction.
// Failures do not stop the remaining records; they are joined into the
// returned error after the batch completes.
func (g *PDFGenerator) RenderAll(records []dto.MatchRecord, outputDir string) ([]string, error) {
	var paths []string
	var errs []error

	for _, record := range records {
		if record.Status != dto.StatusAccepted || record.Row == nil {
			g.logger.Info("skipping PDF for unmatched soporte", "path", record.Receipt.Path, "status", record.Status)
			continue
		}
		path, err := g.RenderMatch(record, outputDir)
		if err != nil {
			g.logger.Error("failed to generate PDF", "soporte", record.Receipt.Path, "error", err)
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}

	return paths, errors.Join(errs...)
}
