package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWrapKeepsType(t *testing.T) {
	base := NewNotFoundError("item")
	wrapped := Wrap(base, "load item")

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "load item: item not found", UserMessage(wrapped))
	assert.Equal(t, "item not found", base.Message, "wrapping must not mutate the original")
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("boom"), "save")

	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestPredicatesSeeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", NewExtractionError("unreachable", nil))
	assert.True(t, IsExtraction(err))
	assert.False(t, IsConflict(err))
}

func TestErrorHandler(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{"validation", NewValidationError("url is required"), http.StatusBadRequest, "VALIDATION", "url is required"},
		{"not found", NewNotFoundError("item"), http.StatusNotFound, "NOT_FOUND", "item not found"},
		{"extraction", NewExtractionError("could not fetch", nil), http.StatusUnprocessableEntity, "EXTRACTION", "could not fetch"},
		{"plain error hides detail", fmt.Errorf("secret"), http.StatusInternalServerError, "INTERNAL", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}
