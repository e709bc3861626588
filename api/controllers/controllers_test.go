package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pieshop-backend/internal/chat"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/types"
)

type stubDispatcher struct {
	got chat.Event
	res chat.Result
	err error
}

func (s *stubDispatcher) Handle(_ context.Context, ev chat.Event) (chat.Result, error) {
	s.got = ev
	return s.res, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestPostEventForwardsToDispatcher(t *testing.T) {
	dispatcher := &stubDispatcher{res: chat.Result{Kind: chat.KindCartCleared}}
	handler := PostEvent(dispatcher, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events",
		strings.NewReader(`{"event_id":"e1","user_id":4,"action":"clear_cart","payload":{"x":1}}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "e1", dispatcher.got.EventID)
	require.Equal(t, int64(4), dispatcher.got.UserID)
	require.Equal(t, enums.ChatActionClearCart, dispatcher.got.Action)
	require.JSONEq(t, `{"x":1}`, string(dispatcher.got.Payload))

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, chat.KindCartCleared, envelope.Data.(map[string]any)["kind"])
}

func TestPostEventRejectsInvalidBody(t *testing.T) {
	dispatcher := &stubDispatcher{}
	handler := PostEvent(dispatcher, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"action":"checkout"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, dispatcher.got.UserID)
}

func TestPostEventMapsDispatcherErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   pkgerrors.Code
	}{
		{pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"), http.StatusUnprocessableEntity, pkgerrors.CodeEmptyCart},
		{pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"), http.StatusForbidden, pkgerrors.CodeForbidden},
		{pkgerrors.New(pkgerrors.CodeIdempotency, "event already processed"), http.StatusConflict, pkgerrors.CodeIdempotency},
		{errors.New("boom"), http.StatusInternalServerError, pkgerrors.CodeInternal},
	}
	for _, tc := range cases {
		handler := PostEvent(&stubDispatcher{err: tc.err}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"user_id":1,"action":"checkout"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, tc.status, rec.Code, string(tc.code))
		var envelope types.ErrorEnvelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		require.Equal(t, string(tc.code), envelope.Error.Code)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := testConfig()

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": nil}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get(envHeader))

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{err: errors.New("down")}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
