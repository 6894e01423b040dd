//go:build !windows

package services

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// OCRService turns receipt photos into text with Tesseract
type OCRService struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// OCRResult contains the OCR processing result
type OCRResult struct {
	Text string
}

// NewOCRService creates a Tesseract client for the given languages, e.g. "pol+eng"
func NewOCRService(language string) (*OCRService, error) {
	client := gosseract.NewClient()

	langs := strings.Split(language, "+")
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// PSM 6: a receipt is one uniform block of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &OCRService{client: client}, nil
}

// ProcessImage extracts text from an encoded image
func (s *OCRService) ProcessImage(imageBytes []byte) (*OCRResult, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	// The client keeps image state between calls
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.SetImageFromBytes(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := s.client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	return &OCRResult{Text: text}, nil
}

// ProcessImageFromPath extracts text from an image on disk
func (s *OCRService) ProcessImageFromPath(imagePath string) (*OCRResult, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return s.ProcessImage(data)
}

// Close releases OCR resources
func (s *OCRService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
