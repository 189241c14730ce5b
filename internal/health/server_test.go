package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewServer("yield-engine", 8080, logger)
}

func TestHandleLive(t *testing.T) {
	server := testServer()
	recorder := httptest.NewRecorder()

	server.handleLive(recorder, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body liveResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "yield-engine", body.Service)
}

func TestHandleReadyNotReady(t *testing.T) {
	server := testServer()
	recorder := httptest.NewRecorder()

	server.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestHandleReadyChecks(t *testing.T) {
	server := testServer()
	server.SetReady(true)
	server.RegisterCheck("database", func(context.Context) error { return nil })

	recorder := httptest.NewRecorder()
	server.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body readyResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["database"])
}

func TestHandleReadyFailingCheck(t *testing.T) {
	server := testServer()
	server.SetReady(true)
	server.RegisterCheck("event_source", func(context.Context) error {
		return errors.New("connection refused")
	})

	recorder := httptest.NewRecorder()
	server.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	var body readyResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Contains(t, body.Checks["event_source"], "connection refused")
}
