package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/jpcardenasg/automatcher/dto"
)

// RunParams are the inputs of one matching run. Margin and
// ContentThreshold fall back to the defaults when left zero.
type RunParams struct {
	PDFPath          string
	ExcelPath        string
	OutputDir        string
	Margin           decimal.Decimal
	ContentThreshold float64
}

// Pipeline wires extraction, matching, rendering and ledger persistence
// into the single run operation.
type Pipeline struct {
	extractor *Extractor
	matcher   *Matcher
	generator *PDFGenerator
	logger    *log.Logger
}

func NewPipeline(extractor *Extractor, matcher *Matcher, generator *PDFGenerator) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		matcher:   matcher,
		generator: generator,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "pipeline"}),
	}
}

// Run executes the full flow: crop soportes out of the PDF, match them
// against the ledger, save the annotated ledger, then render one PDF
// per match. Missing inputs and ledger save failures abort the run;
// per-soporte problems only show up in the returned records. The ledger
// is saved before rendering so render failures never lose usado marks.
func (p *Pipeline) Run(params RunParams) ([]dto.MatchRecord, dto.RunSummary, error) {
	var summary dto.RunSummary

	margin := params.Margin
	if margin.IsZero() {
		margin = decimal.NewFromFloat(DefaultMargin)
	}
	threshold := params.ContentThreshold
	if threshold <= 0 {
		threshold = DefaultContentThreshold
	}

	soportesDir := filepath.Join(params.OutputDir, "soportes")
	receipts, err := p.extractor.Extract(params.PDFPath, soportesDir, nil, threshold)
	if err != nil {
		return nil, summary, fmt.Errorf("extracting soportes: %w", err)
	}
	summary.Extracted = len(receipts)

	ledger, err := LoadLedger(params.ExcelPath)
	if err != nil {
		return nil, summary, fmt.Errorf("loading ledger: %w", err)
	}

	records := p.matcher.Match(receipts, ledger, margin)
	for _, record := range records {
		if record.Status == dto.StatusAccepted {
			summary.Accepted++
		}
		if record.Row != nil {
			summary.Matched++
		}
	}

	if err := ledger.Save(params.ExcelPath); err != nil {
		return records, summary, fmt.Errorf("saving ledger: %w", err)
	}

	rendered, err := p.generator.RenderAll(records, params.OutputDir)
	summary.Rendered = len(rendered)
	if err != nil {
		return records, summary, fmt.Errorf("rendering output PDFs: %w", err)
	}

	p.logger.Info("run complete",
		"extracted", summary.Extracted,
		"accepted", summary.Accepted,
		"matched", summary.Matched,
		"rendered", summary.Rendered)
	return records, summary, nil
}
