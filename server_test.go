package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tr4cks/firmod/controller"
	"github.com/tr4cks/firmod/modules"
	"github.com/tr4cks/firmod/modules/example"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startTestController(t *testing.T) *controller.Controller {
	t.Helper()
	ctrl := controller.New(&example.ExampleModule{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctrl
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	return rr, decoded
}

func TestAPI_Lifecycle(t *testing.T) {
	router := newRouter(&Config{}, startTestController(t), zerolog.Nop())

	rr, body := doRequest(t, router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idle", body["status"])

	rr, body = doRequest(t, router, http.MethodPut, "/api/parameters", `{"example-value":42,"example-rate":3.5,"is-enabled":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "active", body["status"])

	rr, body = doRequest(t, router, http.MethodPut, "/api/parameters", "null")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ko", body["status"])
	assert.Contains(t, body["error"], "invalid argument")

	rr, body = doRequest(t, router, http.MethodPut, "/api/parameters", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, body["error"], "invalid argument")

	rr, body = doRequest(t, router, http.MethodGet, "/api/parameters", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, map[string]interface{}{
		"example-value": float64(42),
		"example-rate":  3.5,
		"is-enabled":    true,
	}, body["parameters"])

	rr, body = doRequest(t, router, http.MethodPost, "/api/update", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "active", body["status"])

	rr, body = doRequest(t, router, http.MethodPost, "/api/init", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idle", body["status"])
	assert.Equal(t, map[string]interface{}{
		"example-value": float64(0),
		"example-rate":  float64(0),
		"is-enabled":    false,
	}, body["parameters"])
}

func TestAPI_MalformedBody(t *testing.T) {
	router := newRouter(&Config{}, startTestController(t), zerolog.Nop())

	rr, body := doRequest(t, router, http.MethodPut, "/api/parameters", `{"example-value":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ko", body["status"])

	rr, body = doRequest(t, router, http.MethodPut, "/api/parameters", `{"example-value":"high"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ko", body["status"])

	for _, payload := range []string{`{"example-value":70000}`, `{"example-value":3.7}`, `{"exampel-value":5}`} {
		rr, body = doRequest(t, router, http.MethodPut, "/api/parameters", payload)
		require.Equal(t, http.StatusBadRequest, rr.Code, payload)
		assert.Contains(t, body["error"], "invalid argument", payload)
	}

	rr, body = doRequest(t, router, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idle", body["status"])
}

func TestAPI_WithoutCredentials(t *testing.T) {
	var router *gin.Engine
	require.NotPanics(t, func() {
		router = newRouter(&Config{Listen: ":8080"}, startTestController(t), zerolog.Nop())
	})

	rr, body := doRequest(t, router, http.MethodPut, "/api/parameters", `{"example-value":65535,"example-rate":0.25,"is-enabled":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "active", body["status"])

	rr, body = doRequest(t, router, http.MethodGet, "/api/parameters", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{
		"example-value": float64(65535),
		"example-rate":  0.25,
		"is-enabled":    true,
	}, body["parameters"])

	rr, body = doRequest(t, router, http.MethodPost, "/api/init", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idle", body["status"])
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusCode(fmt.Errorf("wrapped: %w", modules.ErrInvalidArgument)))
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(controller.ErrStopped))
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(context.Canceled))
	assert.Equal(t, http.StatusGatewayTimeout, statusCode(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusCode(errors.New("boom")))
}

func TestAPI_BasicAuth(t *testing.T) {
	config := &Config{Username: "admin", Password: "secret"}
	router := newRouter(config, startTestController(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/init", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/init", nil)
	req.SetBasicAuth("admin", "secret")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doRequest(t, router, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPI_StoppedController(t *testing.T) {
	ctrl := controller.New(&example.ExampleModule{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	cancel()
	<-done

	router := newRouter(&Config{}, ctrl, zerolog.Nop())

	rr, body := doRequest(t, router, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "ko", body["status"])

	rr, _ = doRequest(t, router, http.MethodPost, "/api/update", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newRouter(&Config{}, startTestController(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	generated := rr.Header().Get(requestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	existing := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(requestIDHeader, existing)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, existing, rr.Header().Get(requestIDHeader))
}
