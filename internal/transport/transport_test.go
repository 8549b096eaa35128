package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"OptimaChat/internal/conversation"
)

func newTestClient(url string) *Client {
	return NewClient(url, slog.Default(), otel.Tracer("test"), otel.Meter("test"))
}

func TestSendSuccess(t *testing.T) {
	var gotReq ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"message":{"content":"Ответ получен"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	history := []conversation.Message{
		conversation.NewMessage(conversation.SenderUser, "hi"),
		conversation.NewMessage(conversation.SenderBot, "hello"),
		conversation.NewMessage(conversation.SenderUser, "Посетите https://example.com"),
	}

	reply, err := client.Send(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Ответ получен", reply)

	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, Turn{Role: "user", Content: "hi"}, gotReq.Messages[0])
	assert.Equal(t, Turn{Role: "assistant", Content: "hello"}, gotReq.Messages[1])
	assert.Equal(t, Turn{Role: "user", Content: "Посетите https://example.com"}, gotReq.Messages[2])
	assert.False(t, gotReq.Stream)
}

func TestSendLegacyReplyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reply":"legacy shape"}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).SendTurns(context.Background(),
		[]Turn{{Role: "user", Content: "hi"}}, false)
	require.NoError(t, err)
	assert.Equal(t, "legacy shape", reply)
}

func TestSendNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed before use

	_, err := newTestClient(srv.URL).SendTurns(context.Background(),
		[]Turn{{Role: "user", Content: "hi"}}, false)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSendBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendTurns(context.Background(),
		[]Turn{{Role: "user", Content: "hi"}}, false)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestSendMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendTurns(context.Background(),
		[]Turn{{Role: "user", Content: "hi"}}, false)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestSendEmptyContentIsBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":""}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendTurns(context.Background(),
		[]Turn{{Role: "user", Content: "hi"}}, false)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestHealthProxiesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	body, status, err := newTestClient(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAvailableProbeAndCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	assert.True(t, client.Available(context.Background()))
	assert.True(t, client.Available(context.Background()))
	assert.Equal(t, 1, calls, "second check should hit the cached probe result")
}

func TestAvailableFalseWhenDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	assert.False(t, newTestClient(srv.URL).Available(context.Background()))
}

func TestOfflineRotatesReplies(t *testing.T) {
	off := NewOffline("one", "two")

	r1, err := off.Send(context.Background(), nil)
	require.NoError(t, err)
	r2, _ := off.Send(context.Background(), nil)
	r3, _ := off.Send(context.Background(), nil)

	assert.Equal(t, "one", r1)
	assert.Equal(t, "two", r2)
	assert.Equal(t, "one", r3)
	assert.True(t, off.Available(context.Background()))
}
