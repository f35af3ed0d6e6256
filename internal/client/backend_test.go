package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusbot/campusbot-go/internal/apperr"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChatURLTrimsTrailingSlash(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:3001", "http://localhost:3001/chat"},
		{"http://localhost:3001/", "http://localhost:3001/chat"},
		{" http://campus.example/api/ ", "http://campus.example/api/chat"},
	}
	for _, tc := range cases {
		c := NewBackendClient(tc.base, time.Second, zap.NewNop())
		require.Equal(t, tc.want, c.ChatURL(), "base=%q", tc.base)
	}
}

func TestChatSuccessSendsMessageAndHistory(t *testing.T) {
	var got model.BackendChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"reply":"Fees are due on the 15th.","language":"en","extra":true}`))
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL+"/", time.Second, zap.NewNop())
	history := []model.HistoryEntry{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "Hello!"},
		{Role: model.RoleUser, Content: "fee?"},
	}
	reply, err := c.Chat(context.Background(), "fee?", history)
	require.NoError(t, err)
	require.Equal(t, "Fees are due on the 15th.", reply)
	require.Equal(t, "fee?", got.Message)
	require.Equal(t, history, got.History)
}

func TestChatSendsEmptyHistoryArray(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewBackendClient(srv.URL, time.Second, zap.NewNop()).Chat(context.Background(), "x", nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw["history"]))
}

func TestChatFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   apperr.Kind
		reason string
	}{
		{"server error", http.StatusInternalServerError, `{"reply":"ignored"}`, apperr.KindBackend, ReasonStatus},
		{"not found", http.StatusNotFound, ``, apperr.KindBackend, ReasonStatus},
		{"malformed body", http.StatusOK, `<html>`, apperr.KindParse, ReasonDecode},
		{"missing reply", http.StatusOK, `{"message":"hi"}`, apperr.KindParse, ReasonEmptyReply},
		{"blank reply", http.StatusOK, `{"reply":"   "}`, apperr.KindParse, ReasonEmptyReply},
		{"reply wrong type", http.StatusOK, `{"reply":42}`, apperr.KindParse, ReasonDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			reply, err := NewBackendClient(srv.URL, time.Second, zap.NewNop()).Chat(context.Background(), "fee?", nil)
			require.Error(t, err)
			require.Empty(t, reply)
			require.Equal(t, tc.kind, apperr.KindOf(err))
			require.Equal(t, tc.reason, FailureReason(err))
		})
	}
}

func TestChatTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewBackendClient(srv.URL, 50*time.Millisecond, zap.NewNop()).Chat(context.Background(), "fee?", nil)
	require.Error(t, err)
	require.Equal(t, ReasonTimeout, FailureReason(err))
}

func TestChatNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewBackendClient(url, time.Second, zap.NewNop()).Chat(context.Background(), "fee?", nil)
	require.Error(t, err)
	require.Equal(t, apperr.KindBackend, apperr.KindOf(err))
	require.Equal(t, ReasonNetwork, FailureReason(err))
}

func TestChatCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBackendClient(srv.URL, time.Second, zap.NewNop()).Chat(ctx, "fee?", nil)
	require.Error(t, err)
	require.Equal(t, apperr.KindBackend, apperr.KindOf(err))
}
