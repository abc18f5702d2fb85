package dto

import "github.com/shopspring/decimal"

// Status is the outcome of reading the estado label off a soporte.
type Status string

const (
	// StatusAccepted means the soporte carries the "abonado" keyword.
	StatusAccepted Status = "ABONADO"
	// StatusRejected means the soporte was read but the keyword is absent.
	StatusRejected Status = "RECHAZADO"
	// StatusFailed means OCR could not produce usable text for the soporte.
	StatusFailed Status = "ERROR"
)

// AbsentValue marks a soporte whose value could not be recognized.
// Parsed amounts are always non-negative, so -1 never collides with one.
var AbsentValue = decimal.NewFromInt(-1)

// Region is an axis-aligned crop rectangle in page points.
type Region struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// DefaultRegions returns the three vertically stacked bands of a
// US-letter page that soportes are printed into.
func DefaultRegions() []Region {
	return []Region{
		{X1: 0, Y1: 0, X2: 612, Y2: 264},
		{X1: 0, Y1: 264, X2: 612, Y2: 500},
		{X1: 0, Y1: 500, X2: 612, Y2: 792},
	}
}

// ReceiptImage is one content-bearing crop saved to disk. Page and
// Region are 1-based and identify where on the source PDF it came from.
type ReceiptImage struct {
	Path   string `json:"path"`
	Page   int    `json:"page"`
	Region int    `json:"region"`
}

// ExtractionResult is what OCR read off a single soporte.
type ExtractionResult struct {
	Status Status          `json:"status"`
	Value  decimal.Decimal `json:"value"`
}

// HasValue reports whether a currency amount was recognized.
func (r ExtractionResult) HasValue() bool {
	return !r.Value.Equal(AbsentValue)
}

// TransactionRow is one bank transaction loaded from the ledger
// spreadsheet. Fields holds every business column by header name;
// Value and Used mirror the "Valor" and "usado" columns.
type TransactionRow struct {
	Index  int               `json:"index"`
	Value  decimal.Decimal   `json:"value"`
	Used   bool              `json:"used"`
	Fields map[string]string `json:"fields"`
}

// Field returns a business column value, or fallback when the column
// is missing or blank.
func (r *TransactionRow) Field(name, fallback string) string {
	if v, ok := r.Fields[name]; ok && v != "" {
		return v
	}
	return fallback
}

// MatchRecord is the terminal artifact of matching one soporte.
// Row is nil when the soporte was not ABONADO or when no free
// transaction fell inside the margin.
type MatchRecord struct {
	Receipt ReceiptImage    `json:"receipt"`
	Status  Status          `json:"status"`
	Value   decimal.Decimal `json:"value"`
	Row     *TransactionRow `json:"row,omitempty"`
}
