package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eden-backend/pkg/auth"
	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.GetUserID(r.Context())
	w.Write([]byte(userID + "/" + common.GetAuthMode(r.Context())))
}

func TestAuthenticateHeaderMode(t *testing.T) {
	h := Authenticate(nil, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1/header", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateJWTMode(t *testing.T) {
	validator, err := auth.NewJWTValidator("secret", "eden-backend")
	require.NoError(t, err)
	gen, err := auth.NewJWTGenerator("secret", "eden-backend", time.Hour)
	require.NoError(t, err)
	token, err := gen.GenerateToken("u42", "")
	require.NoError(t, err)

	h := Authenticate(validator, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"valid bearer token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"header fallback is ignored", map[string]string{"X-User-ID": "u1"}, http.StatusUnauthorized},
		{"garbage token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "u42/jwt", rec.Body.String())
			}
		})
	}
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := auth.NewKeyedRateLimiter(0.001, 2)
	h := RateLimit(limiter, pkgerrors.NewErrorHandler(zap.NewNop(), false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111"), "budgets are per IP")
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	collector := observability.NewCollector("eden_test")
	r := chi.NewRouter()
	r.Use(Metrics(collector))
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
	}

	n, err := testutil.GatherAndCount(collector.Registry(), "eden_test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one series for all ids")
}
