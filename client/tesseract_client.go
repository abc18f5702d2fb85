package client

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractClient runs Tesseract OCR over soporte images. The language
// is a Tesseract traineddata tag ("spa" for the receipts' Spanish).
type TesseractClient struct {
	tessdataPrefix string
	language       string
}

func NewTesseractClient(tessdataPrefix, language string) *TesseractClient {
	return &TesseractClient{
		tessdataPrefix: tessdataPrefix,
		language:       language,
	}
}

// Recognize extracts plain text from an in-memory image.
func (tc *TesseractClient) Recognize(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if tc.tessdataPrefix != "" {
		client.SetTessdataPrefix(tc.tessdataPrefix)
	}
	if err := client.SetLanguage(tc.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return text, nil
}
