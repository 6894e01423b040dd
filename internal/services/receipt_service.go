package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/metrics"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

var ErrOCRFailed = errors.New("OCR processing failed")

// ReceiptStore persists receipts and their parsed lines
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, req *models.CreateReceiptRequest) (*models.Receipt, error)
	UpdateReceiptStatus(ctx context.Context, id int, status models.ReceiptStatus, ocrText *string, errMsg *string) error
	UpdateReceiptMetadata(ctx context.Context, id int, storeName *string, receiptDate *time.Time) error
	CreateReceiptItem(ctx context.Context, req *models.CreateReceiptItemRequest) (*models.ReceiptItem, error)
	GetReceiptByID(ctx context.Context, id int) (*models.ReceiptWithItems, error)
}

// ObjectStorage keeps the uploaded images
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// TextRecognizer extracts text from an image
type TextRecognizer interface {
	ProcessImage(imageBytes []byte) (*OCRResult, error)
}

// ReceiptUpload is an image received from the client
type ReceiptUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReceiptService runs the metered scan pipeline: upload, OCR, parse, match
type ReceiptService struct {
	store   ReceiptStore
	storage ObjectStorage
	ocr     TextRecognizer
	parser  *ReceiptParser
	matcher *ReceiptLineMatcher
	limits  usage.LimitsSource
	ledger  *usage.Ledger
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// ReceiptServiceConfig groups the service collaborators. Metrics is optional.
type ReceiptServiceConfig struct {
	Store   ReceiptStore
	Storage ObjectStorage
	OCR     TextRecognizer
	Parser  *ReceiptParser
	Matcher *ReceiptLineMatcher
	Limits  usage.LimitsSource
	Ledger  *usage.Ledger
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

func NewReceiptService(cfg ReceiptServiceConfig) *ReceiptService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cfg.Parser
	if parser == nil {
		parser = NewReceiptParser()
	}
	return &ReceiptService{
		store:   cfg.Store,
		storage: cfg.Storage,
		ocr:     cfg.OCR,
		parser:  parser,
		matcher: cfg.Matcher,
		limits:  cfg.Limits,
		ledger:  cfg.Ledger,
		metrics: cfg.Metrics,
		logger:  logger.Named("receipts"),
		now:     time.Now,
	}
}

// Scan stores the image, recognizes and parses it and saves the matched
// lines for review. The scan counts against the daily quota only when it
// completes.
func (s *ReceiptService) Scan(ctx context.Context, userID int, upload ReceiptUpload) (*models.ReceiptWithItems, error) {
	limits := usage.ResolveLimits(ctx, s.limits, s.logger)
	status := s.ledger.CheckLimit(ctx, userID, usage.KindReceiptScans, limits)
	if !status.Allowed {
		s.metrics.QuotaRejected(string(usage.KindReceiptScans))
		s.metrics.ReceiptScanned("rejected")
		return nil, &QuotaExceededError{Kind: usage.KindReceiptScans, Status: status}
	}

	key := ReceiptObjectKey(userID, upload.Filename, s.now())
	size := int64(len(upload.Data))

	uploaded, err := s.storage.Upload(ctx, key, bytes.NewReader(upload.Data), size, upload.ContentType)
	if err != nil {
		s.metrics.ReceiptScanned("failed")
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	receipt, err := s.store.CreateReceipt(ctx, &models.CreateReceiptRequest{
		UserID:           userID,
		S3Bucket:         uploaded.Bucket,
		S3Key:            key,
		OriginalFilename: upload.Filename,
		ContentType:      upload.ContentType,
		FileSizeBytes:    size,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up image", zap.String("key", key), zap.Error(delErr))
		}
		s.metrics.ReceiptScanned("failed")
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	log := s.logger.With(zap.Int("receipt_id", receipt.ID), zap.Int("user_id", userID))

	if err := s.store.UpdateReceiptStatus(ctx, receipt.ID, models.ReceiptStatusProcessing, nil, nil); err != nil {
		log.Warn("failed to mark receipt processing", zap.Error(err))
	}

	result, err := s.ocr.ProcessImage(upload.Data)
	if err != nil {
		msg := err.Error()
		if statusErr := s.store.UpdateReceiptStatus(ctx, receipt.ID, models.ReceiptStatusFailed, nil, &msg); statusErr != nil {
			log.Warn("failed to mark receipt failed", zap.Error(statusErr))
		}
		s.metrics.ReceiptScanned("failed")
		log.Error("ocr failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOCRFailed, err)
	}

	parsed := s.parser.Parse(result.Text)
	if err := s.store.UpdateReceiptMetadata(ctx, receipt.ID, parsed.StoreName, parsed.Date); err != nil {
		log.Warn("failed to save receipt metadata", zap.Error(err))
	}

	saved := 0
	for _, line := range s.matcher.MatchLines(ctx, receipt.ID, parsed.Items) {
		if _, err := s.store.CreateReceiptItem(ctx, &line); err != nil {
			log.Warn("failed to save receipt line", zap.Int("line", line.LineNumber), zap.Error(err))
			continue
		}
		saved++
	}

	if err := s.store.UpdateReceiptStatus(ctx, receipt.ID, models.ReceiptStatusCompleted, &result.Text, nil); err != nil {
		s.metrics.ReceiptScanned("failed")
		return nil, fmt.Errorf("failed to complete receipt: %w", err)
	}

	if err := s.ledger.RecordUsage(ctx, userID, usage.KindReceiptScans); err != nil {
		s.metrics.UsageRecordFailed(string(usage.KindReceiptScans))
		log.Error("receipt scanned but usage was not recorded", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUsageNotRecorded, err)
	}
	s.metrics.ReceiptScanned("completed")

	log.Info("receipt scanned", zap.Int("lines", len(parsed.Items)), zap.Int("saved", saved))

	return s.store.GetReceiptByID(ctx, receipt.ID)
}
