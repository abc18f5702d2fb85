package service

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcardenasg/automatcher/dto"
)

// fakeDocument serves pre-built page bitmaps in place of a rasterized PDF.
type fakeDocument struct {
	pages  []image.Image
	closed bool
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Render(pageIndex int) (image.Image, error) {
	if d.pages[pageIndex] == nil {
		return nil, errors.New("corrupt page")
	}
	return d.pages[pageIndex], nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

// letterPage builds a white 612x792 page and inks a block inside each
// given band (0=top, 1=middle, 2=bottom).
func letterPage(inkedBands ...int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 612, 792))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	bands := [][2]int{{0, 264}, {264, 500}, {500, 792}}
	for _, band := range inkedBands {
		top, bottom := bands[band][0], bands[band][1]
		for y := top + 20; y < bottom-20; y++ {
			for x := 50; x < 550; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

func fakePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soportes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func newTestExtractor(doc *fakeDocument) *Extractor {
	return NewExtractor(func(path string) (RasterDocument, error) {
		return doc, nil
	})
}

func TestExtractFiltersEmptyRegions(t *testing.T) {
	doc := &fakeDocument{pages: []image.Image{letterPage(0, 2)}}
	extractor := newTestExtractor(doc)
	outDir := t.TempDir()

	receipts, err := extractor.Extract(fakePDF(t), outDir, nil, DefaultContentThreshold)
	require.NoError(t, err)

	require.Len(t, receipts, 2)
	assert.Equal(t, 1, receipts[0].Region)
	assert.Equal(t, 3, receipts[1].Region)
	assert.True(t, doc.closed)
}

func TestExtractNamesAndOrdersCrops(t *testing.T) {
	doc := &fakeDocument{pages: []image.Image{letterPage(0, 1, 2), letterPage(1)}}
	extractor := newTestExtractor(doc)
	outDir := t.TempDir()

	receipts, err := extractor.Extract(fakePDF(t), outDir, nil, DefaultContentThreshold)
	require.NoError(t, err)

	require.Len(t, receipts, 4)
	wantNames := []string{
		"soporte_p1_1.png",
		"soporte_p1_2.png",
		"soporte_p1_3.png",
		"soporte_p2_2.png",
	}
	for i, receipt := range receipts {
		assert.Equal(t, wantNames[i], filepath.Base(receipt.Path))
		_, err := os.Stat(receipt.Path)
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, receipts[3].Page)
}

func TestExtractSkipsCorruptPages(t *testing.T) {
	doc := &fakeDocument{pages: []image.Image{nil, letterPage(0)}}
	extractor := newTestExtractor(doc)

	receipts, err := extractor.Extract(fakePDF(t), t.TempDir(), nil, DefaultContentThreshold)
	require.NoError(t, err)

	require.Len(t, receipts, 1)
	assert.Equal(t, 2, receipts[0].Page)
}

func TestExtractMissingPDF(t *testing.T) {
	extractor := newTestExtractor(&fakeDocument{})

	_, err := extractor.Extract(filepath.Join(t.TempDir(), "missing.pdf"), t.TempDir(), nil, DefaultContentThreshold)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExtractUnreadableDocument(t *testing.T) {
	extractor := NewExtractor(func(path string) (RasterDocument, error) {
		return nil, errors.New("not a PDF")
	})

	_, err := extractor.Extract(fakePDF(t), t.TempDir(), nil, DefaultContentThreshold)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExtractCustomRegions(t *testing.T) {
	doc := &fakeDocument{pages: []image.Image{letterPage(0)}}
	extractor := newTestExtractor(doc)

	regions := []dto.Region{{X1: 0, Y1: 0, X2: 612, Y2: 264}}
	receipts, err := extractor.Extract(fakePDF(t), t.TempDir(), regions, DefaultContentThreshold)
	require.NoError(t, err)

	require.Len(t, receipts, 1)
	assert.Equal(t, "soporte_p1_1.png", filepath.Base(receipts[0].Path))
}

func TestHasContent(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	assert.False(t, hasContent(blank, DefaultContentThreshold))

	// 3% inked comfortably clears the 2% bar.
	inked := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range inked.Pix {
		inked.Pix[i] = 255
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 100; x++ {
			inked.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	assert.True(t, hasContent(inked, DefaultContentThreshold))

	// Near-white pixels above the cutoff still count as blank.
	nearWhite := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range nearWhite.Pix {
		nearWhite.Pix[i] = 245
	}
	assert.False(t, hasContent(nearWhite, DefaultContentThreshold))
}
