package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eden-backend/infrastructure/config"
)

func TestInitializeContainerWithMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "local", container.LLM.Name())
	assert.Equal(t, cfg.BatchConcurrency, container.Runner.Concurrency())
	assert.Nil(t, container.Storage.Ping)

	rec := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainerWithSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.StoreBackend = config.StoreSQLite
	cfg.SQLitePath = t.TempDir() + "/eden.db"
	cfg.SearchIndexPath = t.TempDir() + "/index.bleve"

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, container.Storage.Ping)
	assert.NoError(t, container.Storage.Ping(context.Background()))

	token, err := container.Storage.Tokens.IssueToken(context.Background(), "u1")
	require.NoError(t, err)
	userID, err := container.Storage.Tokens.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestInitializeContainerRejectsBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"

	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}
