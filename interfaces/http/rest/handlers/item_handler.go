package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"eden-backend/application/services"
	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// ItemHandler serves reads and edits of saved items.
type ItemHandler struct {
	base
	items *services.ItemService
}

// NewItemHandler creates a new item handler
func NewItemHandler(items *services.ItemService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{base: base{errorHandler: errorHandler, logger: logger}, items: items}
}

// List handles GET /api/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	items, err := h.items.List(r.Context(), userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, http.StatusOK, items, &common.MetaInfo{
		RequestID: chimiddleware.GetReqID(r.Context()),
		Count:     len(items),
	})
}

// Get handles GET /api/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	item, err := h.items.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, item)
}

// Update handles PATCH /api/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var patch services.ItemPatch
	if !h.decode(w, r, &patch) {
		return
	}
	if err := utils.ValidateStruct(patch); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	item, err := h.items.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search?q=
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("Search query is required"))
		return
	}

	items, err := h.items.Search(r.Context(), userID, query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, http.StatusOK, items, &common.MetaInfo{
		RequestID: chimiddleware.GetReqID(r.Context()),
		Count:     len(items),
	})
}

// Graph handles GET /api/graph
func (h *ItemHandler) Graph(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	graph, err := h.items.Graph(r.Context(), userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, graph)
}

// Collections handles GET /api/collections
func (h *ItemHandler) Collections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.items.Collections(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, collections)
}

// Concepts handles GET /api/concepts
func (h *ItemHandler) Concepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.items.Concepts(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, concepts)
}
