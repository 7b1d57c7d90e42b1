package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"eden-backend/application/services"
	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// CaptureHandler saves a single URL synchronously.
type CaptureHandler struct {
	base
	capture *services.CaptureService
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(capture *services.CaptureService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *CaptureHandler {
	return &CaptureHandler{base: base{errorHandler: errorHandler, logger: logger}, capture: capture}
}

// CaptureRequest is the body of POST /api/capture.
type CaptureRequest struct {
	URL    string `json:"url" validate:"required"`
	Intent string `json:"intent" validate:"max=2000"`
}

// Capture handles POST /api/capture
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CaptureRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	res, err := h.capture.Capture(r.Context(), services.CaptureRequest{
		UserID: userID,
		URL:    req.URL,
		Notes:  strings.TrimSpace(req.Intent),
		Source: services.SourceCapture,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, res.Item)
}
