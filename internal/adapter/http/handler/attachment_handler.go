package handler

import (
	"context"
	"net/http"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// multipartOverhead is allowed on top of the file size for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// AttachmentService defines the behavior needed by AttachmentHandler.
type AttachmentService interface {
	Upload(ctx context.Context, input usecase.UploadInput) (*domain.Attachment, error)
}

// AttachmentHandler accepts document uploads for ledger entries.
type AttachmentHandler struct {
	attachmentUC AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachmentUC AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentUC: attachmentUC}
}

// Upload stores the multipart "file" field and returns its reference.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxAttachmentSize+multipartOverhead)
	if err := r.ParseMultipartForm(usecase.MaxAttachmentSize); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "missing file field", err.Error())
		return
	}
	defer file.Close()

	attachment, err := h.attachmentUC.Upload(r.Context(), usecase.UploadInput{
		ShopID:      shop,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(w, r, "failed to store attachment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AttachmentFromDomain(attachment))
}
