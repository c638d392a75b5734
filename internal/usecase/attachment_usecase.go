package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/metrics"
)

// Attachment errors
var (
	ErrAttachmentTooLarge     = fmt.Errorf("attachment must be between 1 and %d bytes", MaxAttachmentSize)
	ErrUnsupportedContentType = errors.New("unsupported attachment content type")
)

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// AttachmentUseCase hands documents to the storage collaborator and returns
// references that entries can carry.
type AttachmentUseCase struct {
	store   AttachmentStore
	idGen   IDGenerator
	metrics *metrics.Metrics
}

// NewAttachmentUseCase creates a new AttachmentUseCase.
func NewAttachmentUseCase(store AttachmentStore, idGen IDGenerator, metrics *metrics.Metrics) *AttachmentUseCase {
	return &AttachmentUseCase{store: store, idGen: idGen, metrics: metrics}
}

// UploadInput represents a document upload.
type UploadInput struct {
	ShopID      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores the blob and returns its reference.
func (uc *AttachmentUseCase) Upload(ctx context.Context, input UploadInput) (*domain.Attachment, error) {
	if input.ShopID == "" {
		return nil, domain.ErrMissingShop
	}
	if input.Size <= 0 || input.Size > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if !allowedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, input.ContentType)
	}

	fileName := path.Base(strings.ReplaceAll(input.FileName, "\\", "/"))
	if fileName == "." || fileName == "/" {
		fileName = "document"
	}

	key := fmt.Sprintf("shops/%s/attachments/%s%s", input.ShopID, strings.ToLower(uc.idGen.Generate()), strings.ToLower(path.Ext(fileName)))

	url, err := uc.store.Put(ctx, key, io.LimitReader(input.Body, input.Size), input.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.AttachmentsStored.Inc()
		uc.metrics.AttachmentBytes.Add(float64(input.Size))
	}

	return &domain.Attachment{
		Key:         key,
		URL:         url,
		FileName:    fileName,
		ContentType: contentType,
		Size:        input.Size,
	}, nil
}
