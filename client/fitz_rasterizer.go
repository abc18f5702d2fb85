package client

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// soporteDPI matches the point coordinate space of the crop regions:
// at 72 DPI one PDF point maps to exactly one pixel.
const soporteDPI = 72

// FitzRasterizer renders PDF pages to bitmaps via MuPDF.
type FitzRasterizer struct{}

func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

// Open loads a PDF for page-by-page rendering. The returned document
// must be closed by the caller.
func (fr *FitzRasterizer) Open(path string) (*FitzDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return &FitzDocument{doc: doc}, nil
}

// FitzDocument is an open PDF backed by a MuPDF handle.
type FitzDocument struct {
	doc *fitz.Document
}

// PageCount returns the number of pages in the document.
func (d *FitzDocument) PageCount() int {
	return d.doc.NumPage()
}

// Render rasterizes the zero-based page at 72 DPI.
func (d *FitzDocument) Render(pageIndex int) (image.Image, error) {
	img, err := d.doc.ImageDPI(pageIndex, soporteDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page %d: %w", pageIndex+1, err)
	}
	return img, nil
}

// Close releases the MuPDF handle.
func (d *FitzDocument) Close() error {
	return d.doc.Close()
}
