//go:build windows

package services

import (
	"errors"
)

var errOCRUnavailable = errors.New("OCR is not available on Windows, run the server in the container image")

// OCRService is a stub; Tesseract bindings need cgo on Linux
type OCRService struct{}

// OCRResult contains the OCR processing result
type OCRResult struct {
	Text string
}

// NewOCRService always fails on Windows
func NewOCRService(language string) (*OCRService, error) {
	return nil, errOCRUnavailable
}

func (s *OCRService) ProcessImage(imageBytes []byte) (*OCRResult, error) {
	return nil, errOCRUnavailable
}

func (s *OCRService) ProcessImageFromPath(imagePath string) (*OCRResult, error) {
	return nil, errOCRUnavailable
}

func (s *OCRService) Close() error {
	return nil
}
