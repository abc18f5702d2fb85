package service

import "errors"

var (
	// ErrNotFound means an input document, image or spreadsheet is missing.
	// It aborts the stage that raised it.
	ErrNotFound = errors.New("not found")

	// ErrRenderFailed means an output PDF could not be produced. Ledger
	// marks already committed stay committed.
	ErrRenderFailed = errors.New("render failed")
)
