package service

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	xdraw "golang.org/x/image/draw"

	"github.com/jpcardenasg/automatcher/dto"
)

// DefaultContentThreshold rejects crops that are at least 98% near-white.
const DefaultContentThreshold = 0.98

// whiteCutoff is the gray intensity above which a pixel counts as blank paper.
const whiteCutoff = 240

// RasterDocument is an open multi-page document that can render its
// pages as bitmaps. Page points map 1:1 to pixels.
type RasterDocument interface {
	PageCount() int
	Render(pageIndex int) (image.Image, error)
	Close() error
}

// OpenDocumentFunc opens a document for rasterization.
type OpenDocumentFunc func(path string) (RasterDocument, error)

// Extractor crops soporte regions out of a PDF and persists the
// content-bearing ones as PNG files.
type Extractor struct {
	open   OpenDocumentFunc
	logger *log.Logger
}

func NewExtractor(open OpenDocumentFunc) *Extractor {
	return &Extractor{
		open:   open,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "extractor"}),
	}
}

// Extract rasterizes every page and crops each region in declaration
// order, dropping crops that fail the content test. Crops are saved as
// soporte_p<page>_<region>.png under outputDir and returned page-major.
// A nil regions slice selects the default three bands per page. Per-crop
// failures are logged and skipped; a missing or unreadable PDF aborts
// with ErrNotFound.
func (e *Extractor) Extract(pdfPath, outputDir string, regions []dto.Region, contentThreshold float64) ([]dto.ReceiptImage, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("%w: PDF %s", ErrNotFound, pdfPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	if regions == nil {
		regions = dto.DefaultRegions()
	}
	if contentThreshold <= 0 {
		contentThreshold = DefaultContentThreshold
	}

	doc, err := e.open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable PDF %s: %v", ErrNotFound, pdfPath, err)
	}
	defer doc.Close()

	pages := doc.PageCount()
	e.logger.Info("opened PDF", "path", pdfPath, "pages", pages)

	var receipts []dto.ReceiptImage
	for pageIdx := 0; pageIdx < pages; pageIdx++ {
		pageImg, err := doc.Render(pageIdx)
		if err != nil {
			e.logger.Error("failed to render page", "page", pageIdx+1, "error", err)
			continue
		}

		for regionIdx, region := range regions {
			crop := cropRegion(pageImg, region)
			if !hasContent(crop, contentThreshold) {
				e.logger.Info("skipping empty soporte", "page", pageIdx+1, "region", regionIdx+1)
				continue
			}

			name := fmt.Sprintf("soporte_p%d_%d.png", pageIdx+1, regionIdx+1)
			path := filepath.Join(outputDir, name)
			if err := savePNG(crop, path); err != nil {
				e.logger.Error("failed to save soporte", "page", pageIdx+1, "region", regionIdx+1, "error", err)
				continue
			}

			e.logger.Info("saved soporte", "path", path)
			receipts = append(receipts, dto.ReceiptImage{
				Path:   path,
				Page:   pageIdx + 1,
				Region: regionIdx + 1,
			})
		}
	}

	return receipts, nil
}

// cropRegion copies the region rectangle out of the page bitmap,
// clamped to the page bounds.
func cropRegion(pageImg image.Image, region dto.Region) *image.RGBA {
	rect := image.Rect(int(region.X1), int(region.Y1), int(region.X2), int(region.Y2))
	rect = rect.Intersect(pageImg.Bounds())
	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(crop, crop.Bounds(), pageImg, rect.Min, xdraw.Src)
	return crop
}

// hasContent reports whether the fraction of non-near-white pixels
// exceeds 1-threshold. A crop that is almost entirely blank paper is
// not worth sending to OCR.
func hasContent(img image.Image, threshold float64) bool {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return false
	}

	inked := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if gray.Y < whiteCutoff {
				inked++
			}
		}
	}

	return float64(inked)/float64(total) > (1 - threshold)
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
