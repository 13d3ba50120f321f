package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
)

const testToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1"

func TestClient_Send(t *testing.T) {
	logger := zap.NewNop()

	t.Run("posts HTML message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "-100200", r.PostForm.Get("chat_id"))
			assert.Equal(t, "<b>hi</b>", r.PostForm.Get("text"))
			assert.Equal(t, "HTML", r.PostForm.Get("parse_mode"))
			assert.Equal(t, "true", r.PostForm.Get("disable_web_page_preview"))

			w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}))
		defer server.Close()

		client := NewClient(Config{APIURL: server.URL, BotToken: testToken, ChatID: "-100200"}, logger)
		require.NoError(t, client.Send(context.Background(), "", "<b>hi</b>"))
	})

	t.Run("channel username destination", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "@alerts", r.PostForm.Get("chat_id"))
			w.Write([]byte(`{"ok":true,"result":{"message_id":2}}`))
		}))
		defer server.Close()

		client := NewClient(Config{APIURL: server.URL, BotToken: testToken, ChatID: "-100200"}, logger)
		require.NoError(t, client.Send(context.Background(), "@alerts", "x"))
	})

	t.Run("429 carries retry_after", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`))
		}))
		defer server.Close()

		client := NewClient(Config{APIURL: server.URL, BotToken: testToken, ChatID: "1"}, logger)
		err := client.Send(context.Background(), "", "x")

		require.Error(t, err)
		assert.True(t, apperrors.IsThrottled(err))
		d, ok := apperrors.RetryAfter(err)
		require.True(t, ok)
		assert.Equal(t, 7*time.Second, d)
	})

	t.Run("other failures are upstream errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		}))
		defer server.Close()

		client := NewClient(Config{APIURL: server.URL, BotToken: testToken, ChatID: "1"}, logger)
		err := client.Send(context.Background(), "", "x")

		assert.ErrorIs(t, err, apperrors.ErrUpstream)
		assert.False(t, apperrors.IsThrottled(err))
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("transport errors do not leak the token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client := NewClient(Config{APIURL: url, BotToken: testToken, ChatID: "1"}, logger)
		err := client.Send(context.Background(), "", "x")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConnection)
		assert.NotContains(t, err.Error(), testToken)
	})

	t.Run("cancelled context is not sent", func(t *testing.T) {
		client := NewClient(Config{APIURL: "http://127.0.0.1:1", BotToken: testToken, ChatID: "1"}, logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, client.Send(ctx, "", "x"), apperrors.ErrTimeout)
	})

	t.Run("unconfigured", func(t *testing.T) {
		client := NewClient(Config{}, logger)
		assert.False(t, client.Configured())
		assert.ErrorIs(t, client.Send(context.Background(), "", "x"), apperrors.ErrNotConfigured)
	})
}
