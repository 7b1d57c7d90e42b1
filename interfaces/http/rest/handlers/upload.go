package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"eden-backend/application/batch"
	"eden-backend/application/ports"
	pkgerrors "eden-backend/pkg/errors"
)

// fileInputs extracts one uploaded file up front. A bookmark export becomes
// a URL sub-batch; anything else is a single pre-extracted input. Failures
// become a pre-failed input so the file still reports through its own events.
func (h *ImportHandler) fileInputs(r *http.Request, name string, size int64, open func() (multipart.File, error)) []batch.Input {
	if size > h.maxUploadBytes {
		return []batch.Input{{
			Label: name,
			Err:   pkgerrors.NewValidationError(fmt.Sprintf("%s exceeds the %d byte upload limit", name, h.maxUploadBytes)),
		}}
	}

	f, err := open()
	if err != nil {
		return []batch.Input{{Label: name, Err: pkgerrors.NewExtractionError("could not read uploaded file", err)}}
	}
	defer f.Close()

	ext, err := h.extractor.ExtractFile(r.Context(), ports.FileSource{Name: name, Reader: f, Size: size})
	if err != nil {
		h.logger.Warn("Upload extraction failed", zap.String("file", name), zap.Error(err))
		return []batch.Input{{Label: name, Err: err}}
	}

	if ext.IsBookmarkExport() {
		h.logger.Info("Bookmark export uploaded",
			zap.String("file", name),
			zap.Int("bookmarks", len(ext.Bookmarks)),
		)
		return batch.BookmarkInputs(ext.Bookmarks, h.config.MaxBookmarksPerFile)
	}
	return []batch.Input{{Extraction: ext, Label: name}}
}
