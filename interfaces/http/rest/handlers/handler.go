// Package handlers holds the HTTP handlers of the Eden API.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
)

const maxJSONBody = 1 << 20

// base carries what every handler needs to answer errors consistently.
type base struct {
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// userID returns the authenticated user or writes a 401.
func (b base) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := common.GetUserID(r.Context())
	if !ok {
		b.errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("authentication required"))
		return "", false
	}
	return userID, true
}

// decode parses a JSON body, answering 400 on malformed input.
func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxJSONBody); err != nil {
		b.errorHandler.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return false
	}
	return true
}
