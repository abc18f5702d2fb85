package service

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/jpcardenasg/automatcher/dto"
)

// Matcher pairs extracted soportes with free ledger transactions. The
// matching is greedy first-fit in receipt order against ledger order;
// a soporte takes the first eligible row even when a later row would be
// a closer value. Downstream output names depend on this exact policy.
type Matcher struct {
	ocr    *OCREngine
	logger *log.Logger
}

func NewMatcher(ocr *OCREngine) *Matcher {
	return &Matcher{
		ocr:    ocr,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "matcher"}),
	}
}

// Match processes soportes strictly in input order, one MatchRecord per
// input. A row selected for an ABONADO soporte is marked used before
// the next soporte is examined, so two soportes with the same value end
// up on different rows.
func (m *Matcher) Match(receipts []dto.ReceiptImage, ledger *Ledger, margin decimal.Decimal) []dto.MatchRecord {
	records := make([]dto.MatchRecord, 0, len(receipts))

	for _, receipt := range receipts {
		extraction := m.ocr.Process(receipt)
		record := dto.MatchRecord{
			Receipt: receipt,
			Status:  extraction.Status,
			Value:   extraction.Value,
		}

		if extraction.Status != dto.StatusAccepted {
			m.logger.Info("soporte not accepted", "path", receipt.Path, "status", extraction.Status)
			records = append(records, record)
			continue
		}

		if row := ledger.Allocate(extraction.Value, margin); row != nil {
			if err := ledger.MarkUsed(row); err != nil {
				m.logger.Error("failed to mark transaction used", "index", row.Index, "error", err)
			} else {
				record.Row = row
				m.logger.Info("soporte matched", "path", receipt.Path, "tb_index", row.Index)
			}
		} else {
			m.logger.Warn("no transaction matched soporte", "path", receipt.Path, "value", extraction.Value)
		}

		records = append(records, record)
	}

	return records
}
