package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/application/services"
	"eden-backend/domain/core/entities"
	"eden-backend/infrastructure/tasks"
	"eden-backend/pkg/auth"
	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
)

var callbackRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]{0,63}$`)

// TaskSubmitter queues work to run after the response is sent.
type TaskSubmitter interface {
	Submit(task tasks.Task) error
}

// BookmarkletHandler serves the cross-origin bookmarklet. It authenticates
// with an opaque API token and answers with a JSONP script.
type BookmarkletHandler struct {
	base
	capture   *services.CaptureService
	tokens    ports.TokenStore
	scheduler TaskSubmitter
}

// NewBookmarkletHandler creates a new bookmarklet handler
func NewBookmarkletHandler(
	capture *services.CaptureService,
	tokens ports.TokenStore,
	scheduler TaskSubmitter,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *BookmarkletHandler {
	return &BookmarkletHandler{
		base:      base{errorHandler: errorHandler, logger: logger},
		capture:   capture,
		tokens:    tokens,
		scheduler: scheduler,
	}
}

type bookmarkletResult struct {
	Success bool                `json:"success"`
	Item    *entities.SavedItem `json:"item,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Save handles GET /api/bookmarklet/save. Failures after the callback is
// validated are reported inside the script with a 200 status, since a script
// tag cannot read an error response.
func (h *BookmarkletHandler) Save(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	callback := q.Get("callback")
	if !callbackRe.MatchString(callback) {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("callback must be a valid JavaScript identifier"))
		return
	}

	token := strings.TrimSpace(q.Get("token"))
	if !auth.LooksLikeAPIToken(token) {
		h.respond(w, callback, bookmarkletResult{Error: "invalid token"})
		return
	}
	userID, err := h.tokens.ResolveToken(r.Context(), token)
	if err != nil {
		h.logger.Warn("Bookmarklet token rejected", zap.String("token", auth.MaskToken(token)), zap.Error(err))
		h.respond(w, callback, bookmarkletResult{Error: "invalid token"})
		return
	}

	rawURL := strings.TrimSpace(q.Get("url"))
	if rawURL == "" {
		h.respond(w, callback, bookmarkletResult{Error: "url is required"})
		return
	}

	item, err := h.capture.Save(r.Context(), services.CaptureRequest{
		UserID:    userID,
		URL:       rawURL,
		TitleHint: strings.TrimSpace(q.Get("title")),
		Source:    services.SourceBookmarklet,
	})
	if err != nil {
		h.logger.Warn("Bookmarklet save failed", zap.String("userID", userID), zap.String("url", rawURL), zap.Error(err))
		h.respond(w, callback, bookmarkletResult{Error: pkgerrors.UserMessage(err)})
		return
	}

	h.scheduleLinking(userID, item.ID)
	h.respond(w, callback, bookmarkletResult{Success: true, Item: item})
}

// scheduleLinking links the new item in the background. The task gets its own
// context from the scheduler, so the response does not wait for it and a
// closed connection does not cancel it.
func (h *BookmarkletHandler) scheduleLinking(userID, itemID string) {
	err := h.scheduler.Submit(tasks.Task{
		Name: "bookmarklet-link",
		Run: func(ctx context.Context) error {
			_, err := h.capture.LinkItem(ctx, userID, itemID)
			return err
		},
	})
	if err != nil {
		h.logger.Warn("Could not schedule linking",
			zap.String("userID", userID),
			zap.String("itemID", itemID),
			zap.Error(err),
		)
	}
}

func (h *BookmarkletHandler) respond(w http.ResponseWriter, callback string, result bookmarkletResult) {
	body, err := json.Marshal(result)
	if err != nil {
		body = []byte(`{"success":false,"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s(%s);", callback, body)
}

// TokenHandler issues bookmarklet API tokens to signed-in users.
type TokenHandler struct {
	base
	tokens ports.TokenStore
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens ports.TokenStore, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{base: base{errorHandler: errorHandler, logger: logger}, tokens: tokens}
}

// Issue handles POST /api/bookmarklet/token
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	token, err := h.tokens.IssueToken(r.Context(), userID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.logger.Info("Bookmarklet token issued", zap.String("userID", userID), zap.String("token", auth.MaskToken(token)))
	common.RespondJSON(w, http.StatusCreated, map[string]string{"token": token})
}
