package extra_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hanseartic/jsonrpcd/config"
	"github.com/hanseartic/jsonrpcd/dispatch"
	"github.com/hanseartic/jsonrpcd/extra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type probe struct{}

func (probe) Ping() string { return "pong" }

func TestStatusHandler(t *testing.T) {
	cfg := config.NewInternalConfig()
	cfg.ServerNameValue = "calc"
	cfg.ServerVersionValue = "1.2.3"

	registry := dispatch.NewRegistry(nil, zap.NewNop())
	require.True(t, registry.Bind(probe{}))
	dispatcher, err := dispatch.NewDispatcher(registry, dispatch.NewBlocklist(), zap.NewNop())
	require.NoError(t, err)
	dispatcher.Blocklist().Block("shutdown")

	recorder := httptest.NewRecorder()
	extra.StatusHandler(cfg, zap.NewNop(), dispatcher)(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var response extra.StatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Config)
	assert.Equal(t, "calc", response.Server)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, 1, response.Handlers)
	assert.Equal(t, 1, response.BlockedMethods)
}

func TestStatusHandlerWithoutDispatcher(t *testing.T) {
	recorder := httptest.NewRecorder()
	extra.StatusHandler(config.NewInternalConfig(), zap.NewNop(), nil)(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response extra.StatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Config)
	assert.Zero(t, response.Handlers)
}
