package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"eden-backend/application/batch"
	"eden-backend/application/ports"
	"eden-backend/application/services"
	domainconfig "eden-backend/domain/config"
	"eden-backend/interfaces/http/rest/sse"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// multipart bodies beyond this are spooled to disk by the standard library
const uploadMemory = 32 << 20

// ImportHandler streams batch imports of URLs and uploaded files.
type ImportHandler struct {
	base
	runner         *batch.Runner
	extractor      ports.ContentExtractor
	config         *domainconfig.DomainConfig
	maxUploadBytes int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(
	runner *batch.Runner,
	extractor ports.ContentExtractor,
	cfg *domainconfig.DomainConfig,
	maxUploadBytes int64,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ImportHandler {
	return &ImportHandler{
		base:           base{errorHandler: errorHandler, logger: logger},
		runner:         runner,
		extractor:      extractor,
		config:         cfg,
		maxUploadBytes: maxUploadBytes,
	}
}

// StreamRequest is the body of POST /api/import/stream.
type StreamRequest struct {
	URLs []string `json:"urls" validate:"required"`
}

// Stream handles POST /api/import/stream
func (h *ImportHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req StreamRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	inputs := batch.URLInputs(req.URLs, h.config.MaxBatchURLs)
	if len(inputs) == 0 {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("at least one URL is required"))
		return
	}

	emitter := sse.NewEmitter(w, h.logger)
	defer emitter.Close()

	h.runner.Run(r.Context(), userID, inputs, batch.RunOptions{Source: services.SourceBatch}, func(e batch.Event) {
		emitter.Send(e)
	})
}

// Upload handles POST /api/import/upload. Each file gets its own
// start/item/complete sequence on the same stream. Bookmark exports expand
// into one pipeline per bookmark.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	maxFiles := h.config.MaxUploadFiles
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*int64(maxFiles)+uploadMemory)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("invalid multipart upload").WithCause(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("at least one file is required"))
		return
	}
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}

	emitter := sse.NewEmitter(w, h.logger)
	defer emitter.Close()
	onEvent := func(e batch.Event) { emitter.Send(e) }

	for _, fh := range files {
		if r.Context().Err() != nil {
			return
		}
		inputs := h.fileInputs(r, fh.Filename, fh.Size, fh.Open)
		h.runner.Run(r.Context(), userID, inputs, batch.RunOptions{Source: services.SourceUpload, Label: fh.Filename}, onEvent)
	}
}
