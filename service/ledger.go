package service

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jpcardenasg/automatcher/dto"
)

// DefaultMargin is the tolerance in currency units when comparing a
// recognized soporte value against a ledger value. It absorbs OCR
// rounding noise on the printed amount.
const DefaultMargin = 100.0

const (
	valueColumn = "Valor"
	usedColumn  = "usado"
)

// Ledger is the in-memory table of bank transactions. Rows keep their
// spreadsheet order; allocation scans that order and each row can be
// handed out at most once.
type Ledger struct {
	mu     sync.Mutex
	rows   []*dto.TransactionRow
	file   *excelize.File
	sheet  string
	usedAt int // zero-based column index of "usado"
	logger *log.Logger
}

// NewLedger builds a ledger over pre-loaded rows. Used by tests and by
// LoadLedger.
func NewLedger(rows []*dto.TransactionRow) *Ledger {
	return &Ledger{
		rows:   rows,
		usedAt: -1,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "ledger"}),
	}
}

// LoadLedger reads the first sheet of an .xlsx workbook. The header row
// names the business columns; a non-empty "Valor" cell must parse as a
// numeric amount, a blank one yields a row that never matches. A missing
// "usado" column defaults every row to free.
func LoadLedger(path string) (*Ledger, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: spreadsheet %s", ErrNotFound, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	headers := make([]string, len(raw[0]))
	valueAt, usedAt := -1, -1
	for i, h := range raw[0] {
		headers[i] = strings.TrimSpace(h)
		switch headers[i] {
		case valueColumn:
			valueAt = i
		case usedColumn:
			usedAt = i
		}
	}
	if valueAt == -1 {
		return nil, fmt.Errorf("sheet %q has no %q column", sheet, valueColumn)
	}

	rows := make([]*dto.TransactionRow, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			if j < len(cells) {
				fields[h] = strings.TrimSpace(cells[j])
			} else {
				fields[h] = ""
			}
		}

		value := dto.AbsentValue
		if s := cell(cells, valueAt); s != "" {
			value, err = parseAmount(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %q cell: %w", i+2, valueColumn, err)
			}
		}

		rows = append(rows, &dto.TransactionRow{
			Index:  i,
			Value:  value,
			Used:   parseUsed(cell(cells, usedAt)),
			Fields: fields,
		})
	}

	ledger := NewLedger(rows)
	ledger.file = f
	ledger.sheet = sheet
	ledger.usedAt = usedAt
	if usedAt == -1 {
		ledger.usedAt = len(headers)
	}
	ledger.logger.Info("loaded ledger", "path", path, "transactions", len(rows))
	return ledger, nil
}

// Rows exposes the loaded transactions in spreadsheet order.
func (l *Ledger) Rows() []*dto.TransactionRow {
	return l.rows
}

// Allocate returns the first unused row whose value lies within
// [target-margin, target+margin], bounds inclusive, or nil when none
// qualifies. Rows without an amount never qualify. The row is not
// marked used; callers commit via MarkUsed.
func (l *Ledger) Allocate(target, margin decimal.Decimal) *dto.TransactionRow {
	l.mu.Lock()
	defer l.mu.Unlock()

	lo := target.Sub(margin)
	hi := target.Add(margin)
	for _, row := range l.rows {
		if row.Used || row.Value.Equal(dto.AbsentValue) {
			continue
		}
		if row.Value.Cmp(lo) >= 0 && row.Value.Cmp(hi) <= 0 {
			l.logger.Info("free transaction found", "index", row.Index, "value", row.Value)
			return row
		}
	}

	l.logger.Warn("no free transaction for value", "value", target)
	return nil
}

// MarkUsed flags a row so Allocate never returns it again. The row must
// have come from this ledger; anything else is ErrNotFound.
func (l *Ledger) MarkUsed(row *dto.TransactionRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.rows {
		if r == row {
			r.Used = true
			l.logger.Info("transaction marked used", "index", r.Index)
			return nil
		}
	}
	return fmt.Errorf("%w: transaction %d is not part of this ledger", ErrNotFound, row.Index)
}

// Save writes the usado column back into the workbook, leaving every
// other column and the row order untouched.
func (l *Ledger) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("ledger was not loaded from a spreadsheet")
	}

	headerCell, err := excelize.CoordinatesToCellName(l.usedAt+1, 1)
	if err != nil {
		return fmt.Errorf("failed to address %q header: %w", usedColumn, err)
	}
	if err := l.file.SetCellValue(l.sheet, headerCell, usedColumn); err != nil {
		return fmt.Errorf("failed to write %q header: %w", usedColumn, err)
	}

	for i, row := range l.rows {
		cellName, err := excelize.CoordinatesToCellName(l.usedAt+1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := l.file.SetCellValue(l.sheet, cellName, row.Used); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := l.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}
	l.logger.Info("ledger saved with usado marks", "path", path)
	return nil
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// parseAmount accepts the formatted cell text excelize returns, with or
// without thousands commas.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func parseUsed(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "verdadero", "x", "si", "sí":
		return true
	default:
		return false
	}
}
