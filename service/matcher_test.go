package service

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcardenasg/automatcher/dto"
)

// scriptedRecognizer replays one text per soporte. Process runs two
// recognition passes per soporte, so consecutive call pairs share a text.
type scriptedRecognizer struct {
	texts []string
	calls int
}

func (r *scriptedRecognizer) Recognize(img image.Image) (string, error) {
	idx := r.calls / 2
	r.calls++
	if idx >= len(r.texts) {
		return "", errors.New("no scripted text left")
	}
	if r.texts[idx] == "" {
		return "", errors.New("recognizer crashed")
	}
	return r.texts[idx], nil
}

func writeSoporte(t *testing.T, dir string, name string) dto.ReceiptImage {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(5, 5, color.Gray{Y: 0})

	path := filepath.Join(dir, name)
	require.NoError(t, savePNG(img, path))
	return dto.ReceiptImage{Path: path, Page: 1, Region: 1}
}

func newTestMatcher(texts ...string) *Matcher {
	return NewMatcher(NewOCREngine(&scriptedRecognizer{texts: texts}))
}

func TestMatchTwoEqualReceiptsConsumeBothRows(t *testing.T) {
	dir := t.TempDir()
	receipts := []dto.ReceiptImage{
		writeSoporte(t, dir, "soporte_p1_1.png"),
		writeSoporte(t, dir, "soporte_p1_2.png"),
	}
	matcher := newTestMatcher(
		"Estado: ABONADO\nValor: 1.000,00",
		"Estado: ABONADO\nValor: 1.000,00",
	)
	ledger := NewLedger(testRows("1000.00", "1000.00"))

	records := matcher.Match(receipts, ledger, dec("100"))

	require.Len(t, records, 2)
	require.NotNil(t, records[0].Row)
	require.NotNil(t, records[1].Row)
	assert.Equal(t, 0, records[0].Row.Index)
	assert.Equal(t, 1, records[1].Row.Index)
	assert.True(t, ledger.Rows()[0].Used)
	assert.True(t, ledger.Rows()[1].Used)
}

func TestMatchNoEligibleRowKeepsRecord(t *testing.T) {
	dir := t.TempDir()
	receipts := []dto.ReceiptImage{writeSoporte(t, dir, "soporte_p1_1.png")}
	matcher := newTestMatcher("Estado: ABONADO\nValor: 5.000,00")
	ledger := NewLedger(testRows("1000.00", "1000.00"))

	records := matcher.Match(receipts, ledger, dec("100"))

	require.Len(t, records, 1)
	assert.Equal(t, dto.StatusAccepted, records[0].Status)
	assert.True(t, records[0].Value.Equal(dec("5000")))
	assert.Nil(t, records[0].Row)
	assert.False(t, ledger.Rows()[0].Used)
	assert.False(t, ledger.Rows()[1].Used)
}

func TestMatchRejectedReceiptSkipsAllocation(t *testing.T) {
	dir := t.TempDir()
	receipts := []dto.ReceiptImage{writeSoporte(t, dir, "soporte_p1_1.png")}
	matcher := newTestMatcher("Estado: RECHAZADO\nValor: 1.000,00")
	ledger := NewLedger(testRows("1000.00"))

	records := matcher.Match(receipts, ledger, dec("100"))

	require.Len(t, records, 1)
	assert.Equal(t, dto.StatusRejected, records[0].Status)
	assert.Nil(t, records[0].Row)
	assert.False(t, ledger.Rows()[0].Used)
}

func TestMatchRecognizerFailureYieldsErrorStatus(t *testing.T) {
	dir := t.TempDir()
	receipts := []dto.ReceiptImage{writeSoporte(t, dir, "soporte_p1_1.png")}
	matcher := newTestMatcher("")
	ledger := NewLedger(testRows("1000.00"))

	records := matcher.Match(receipts, ledger, dec("100"))

	require.Len(t, records, 1)
	assert.Equal(t, dto.StatusFailed, records[0].Status)
	assert.True(t, records[0].Value.Equal(dto.AbsentValue))
	assert.Nil(t, records[0].Row)
}

func TestMatchNoRowAllocatedTwice(t *testing.T) {
	dir := t.TempDir()
	var receipts []dto.ReceiptImage
	var texts []string
	for i := 0; i < 5; i++ {
		receipts = append(receipts, writeSoporte(t, dir, fmt.Sprintf("soporte_p%d_1.png", i+1)))
		texts = append(texts, "Estado: ABONADO\nValor: 1.000,00")
	}
	matcher := newTestMatcher(texts...)
	ledger := NewLedger(testRows("1000.00", "950.00", "1050.00"))

	records := matcher.Match(receipts, ledger, dec("100"))

	seen := map[int]bool{}
	matched := 0
	for _, record := range records {
		if record.Row == nil {
			continue
		}
		assert.False(t, seen[record.Row.Index], "row %d allocated twice", record.Row.Index)
		seen[record.Row.Index] = true
		matched++
	}
	assert.Equal(t, 3, matched)
}

func TestMatchIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	receipts := []dto.ReceiptImage{
		writeSoporte(t, dir, "soporte_p1_1.png"),
		writeSoporte(t, dir, "soporte_p2_1.png"),
	}
	texts := []string{
		"Estado: ABONADO\nValor: 1.000,00",
		"Estado: ABONADO\nValor: 2.500,00",
	}

	run := func() []dto.MatchRecord {
		matcher := newTestMatcher(texts...)
		ledger := NewLedger(testRows("2500.00", "1000.00"))
		return matcher.Match(receipts, ledger, dec("100"))
	}

	first := run()
	second := run()

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.True(t, first[i].Value.Equal(second[i].Value))
		if first[i].Row == nil {
			assert.Nil(t, second[i].Row)
		} else {
			require.NotNil(t, second[i].Row)
			assert.Equal(t, first[i].Row.Index, second[i].Row.Index)
		}
	}
}
