package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"eden-backend/application/services"
	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// ChatHandler answers questions about the user's saved items.
type ChatHandler struct {
	base
	chat *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{base: base{errorHandler: errorHandler, logger: logger}, chat: chat}
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	reply, err := h.chat.Ask(r.Context(), userID, req.Message)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, reply)
}
