package service

import (
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	xdraw "golang.org/x/image/draw"

	"github.com/jpcardenasg/automatcher/dto"
	"github.com/jpcardenasg/automatcher/utils"
)

// binarizeThreshold splits mid-gray: darker pixels become ink, the rest paper.
const binarizeThreshold = 128

// contrastFactor is the fixed boost applied before binarization.
const contrastFactor = 2.0

// TextRecognizer turns a bitmap into plain text. It may fail outright,
// which is distinct from recognizing text that contains nothing useful.
type TextRecognizer interface {
	Recognize(img image.Image) (string, error)
}

// OCREngine reads the estado label and the monetary value off a
// soporte image.
type OCREngine struct {
	recognizer TextRecognizer
	logger     *log.Logger
}

func NewOCREngine(recognizer TextRecognizer) *OCREngine {
	return &OCREngine{
		recognizer: recognizer,
		logger:     log.NewWithOptions(os.Stderr, log.Options{Prefix: "ocr"}),
	}
}

// Process runs the full extraction for one soporte. It never returns an
// error: an unreadable image or a recognizer crash degrades to
// {StatusFailed, AbsentValue} so one bad soporte cannot stop the batch.
func (e *OCREngine) Process(receipt dto.ReceiptImage) dto.ExtractionResult {
	img, err := loadImage(receipt.Path)
	if err != nil {
		e.logger.Error("failed to load soporte", "path", receipt.Path, "error", err)
		return dto.ExtractionResult{Status: dto.StatusFailed, Value: dto.AbsentValue}
	}

	// Both passes read the same preprocessed bitmap.
	pre := preprocess(img)

	return dto.ExtractionResult{
		Status: e.extractStatus(pre),
		Value:  e.extractValue(pre),
	}
}

func (e *OCREngine) extractStatus(img image.Image) dto.Status {
	text, err := e.recognizer.Recognize(img)
	if err != nil {
		e.logger.Error("status OCR failed", "error", err)
		return dto.StatusFailed
	}
	return utils.ExtractStatus(text)
}

// extractValue folds a recognizer failure into "no value found": the
// caller learns about unreadable soportes via the status channel.
func (e *OCREngine) extractValue(img image.Image) decimal.Decimal {
	text, err := e.recognizer.Recognize(img)
	if err != nil {
		e.logger.Error("value OCR failed", "error", err)
		return dto.AbsentValue
	}

	value, ok := utils.ExtractValue(text)
	if !ok {
		e.logger.Warn("no value found in OCR text")
	}
	return value
}

// preprocess normalizes scan artifacts before recognition. The order is
// fixed: grayscale, median denoise, 2x contrast, hard binarization.
func preprocess(img image.Image) *image.Gray {
	gray := toGray(img)
	gray = medianFilter(gray)
	gray = enhanceContrast(gray, contrastFactor)
	return binarize(gray, binarizeThreshold)
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(gray, gray.Bounds(), img, bounds.Min, xdraw.Src)
	return gray
}

// medianFilter replaces each pixel with the median of its 3x3
// neighborhood, clamped at the image edges.
func medianFilter(img *image.Gray) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	window := make([]byte, 0, 9)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					window = append(window, img.GrayAt(nx, ny).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}
	return out
}

// enhanceContrast stretches intensities away from the mean gray level.
func enhanceContrast(img *image.Gray, factor float64) *image.Gray {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return img
	}

	var sum uint64
	for _, p := range img.Pix {
		sum += uint64(p)
	}
	mean := float64(sum) / float64(total)

	out := image.NewGray(bounds)
	for i, p := range img.Pix {
		v := mean + (float64(p)-mean)*factor
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v)
	}
	return out
}

func binarize(img *image.Gray, threshold uint8) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, p := range img.Pix {
		if p < threshold {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
