package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/pantry-assist/internal/matching"
	"github.com/foxxcyber/pantry-assist/internal/metrics"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

type memReceiptStore struct {
	mu       sync.Mutex
	receipts map[int]*models.ReceiptWithItems
	nextID   int
}

func newMemReceiptStore() *memReceiptStore {
	return &memReceiptStore{receipts: make(map[int]*models.ReceiptWithItems)}
}

func (m *memReceiptStore) CreateReceipt(_ context.Context, req *models.CreateReceiptRequest) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r := &models.ReceiptWithItems{Receipt: models.Receipt{
		ID:       m.nextID,
		UserID:   req.UserID,
		S3Bucket: req.S3Bucket,
		S3Key:    req.S3Key,
		Status:   models.ReceiptStatusPending,
	}}
	m.receipts[r.ID] = r
	out := r.Receipt
	return &out, nil
}

func (m *memReceiptStore) UpdateReceiptStatus(_ context.Context, id int, status models.ReceiptStatus, ocrText *string, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.receipts[id]
	r.Status = status
	if ocrText != nil {
		r.OCRText = ocrText
	}
	r.ErrorMessage = errMsg
	return nil
}

func (m *memReceiptStore) UpdateReceiptMetadata(_ context.Context, id int, storeName *string, receiptDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[id].StoreName = storeName
	m.receipts[id].ReceiptDate = receiptDate
	return nil
}

func (m *memReceiptStore) CreateReceiptItem(_ context.Context, req *models.CreateReceiptItemRequest) (*models.ReceiptItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.receipts[req.ReceiptID]
	line := req.LineNumber
	item := models.ReceiptItem{
		ID:                len(r.Items) + 1,
		ReceiptID:         req.ReceiptID,
		RawText:           req.RawText,
		ExtractedName:     req.ExtractedName,
		ExtractedQuantity: req.ExtractedQuantity,
		UnitHint:          req.UnitHint,
		MatchedProductID:  req.MatchedProductID,
		SuggestedUnitID:   req.SuggestedUnitID,
		MatchStatus:       req.MatchStatus,
		LineNumber:        &line,
	}
	r.Items = append(r.Items, models.ReceiptItemWithDetails{ReceiptItem: item})
	return &item, nil
}

func (m *memReceiptStore) GetReceiptByID(_ context.Context, id int) (*models.ReceiptWithItems, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	out := *r
	return &out, nil
}

type memObjectStorage struct {
	objects map[string][]byte
}

func (s *memObjectStorage) Upload(_ context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	s.objects[key] = data
	return &UploadResult{Bucket: "receipts", Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *memObjectStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) ProcessImage([]byte) (*OCRResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &OCRResult{Text: f.text}, nil
}

type receiptFixture struct {
	service *ReceiptService
	store   *memReceiptStore
	objects *memObjectStorage
	ocr     *fakeOCR
	counts  *countingStore
	ledger  *usage.Ledger
	limits  usage.LimitsSource
}

func newReceiptFixture(limit int) *receiptFixture {
	f := &receiptFixture{
		store:   newMemReceiptStore(),
		objects: &memObjectStorage{objects: make(map[string][]byte)},
		ocr:     &fakeOCR{text: sampleReceipt},
		counts:  newCountingStore(),
		limits:  staticLimits{ReceiptScans: limit, Substitutions: 10},
	}
	f.ledger = usage.NewLedger(f.counts)
	f.service = NewReceiptService(ReceiptServiceConfig{
		Store:   f.store,
		Storage: f.objects,
		OCR:     f.ocr,
		Matcher: NewReceiptLineMatcher(matching.NewCatalogResolver(newMemCatalog(), nil), nil),
		Limits:  f.limits,
		Ledger:  f.ledger,
		Metrics: metrics.New(),
	})
	return f
}

func (f *receiptFixture) scansUsed() int {
	return f.ledger.GetUsageSnapshot(context.Background(), 1, usage.Limits(f.limits.(staticLimits))).ReceiptScans.Used
}

func TestReceiptService_Scan(t *testing.T) {
	f := newReceiptFixture(5)

	receipt, err := f.service.Scan(context.Background(), 1, ReceiptUpload{
		Filename:    "paragon.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReceiptStatusCompleted, receipt.Status)
	require.NotNil(t, receipt.StoreName)
	assert.Equal(t, "BIEDRONKA", *receipt.StoreName)
	require.NotNil(t, receipt.ReceiptDate)
	assert.Equal(t, 2024, receipt.ReceiptDate.Year())
	require.Len(t, receipt.Items, 4)
	assert.Equal(t, models.MatchStatusMatched, receipt.Items[0].MatchStatus)
	assert.Equal(t, models.MatchStatusUnmatched, receipt.Items[3].MatchStatus)

	assert.Len(t, f.objects.objects, 1)
	assert.Contains(t, f.objects.objects, receipt.S3Key)
	assert.Equal(t, 1, f.scansUsed())
}

func TestReceiptService_QuotaExceeded(t *testing.T) {
	f := newReceiptFixture(1)
	upload := ReceiptUpload{Filename: "a.png", ContentType: "image/png", Data: []byte("png")}

	_, err := f.service.Scan(context.Background(), 1, upload)
	require.NoError(t, err)

	_, err = f.service.Scan(context.Background(), 1, upload)
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, usage.KindReceiptScans, quotaErr.Kind)

	// Rejected scans never reach storage
	assert.Len(t, f.objects.objects, 1)
	assert.Equal(t, 1, f.scansUsed())
}

func TestReceiptService_OCRFailureNotCounted(t *testing.T) {
	f := newReceiptFixture(5)
	f.ocr.err = errors.New("tesseract crashed")

	_, err := f.service.Scan(context.Background(), 1, ReceiptUpload{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("x")})
	require.ErrorIs(t, err, ErrOCRFailed)

	stored, err := f.store.GetReceiptByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "tesseract crashed")
	assert.Equal(t, 0, f.scansUsed())
}

func TestReceiptService_RecordFailureSurfaces(t *testing.T) {
	f := newReceiptFixture(5)
	f.counts.incErr = errors.New("write timeout")

	_, err := f.service.Scan(context.Background(), 1, ReceiptUpload{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUsageNotRecorded)
}
