package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AnnouncementIngestor/internal/config"
)

func TestNewNotifierDisabledWithoutCredentials(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewNotifier(config.TelegramConfig{BotToken: "t"}))
	assert.Nil(t, NewNotifier(config.TelegramConfig{ChatID: "c"}))

	var n *Notifier
	assert.Error(t, n.PublishDigest(context.Background(), "x"))
}

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	var path, chat, text, mode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		path = r.URL.Path
		chat = r.PostForm.Get("chat_id")
		text = r.PostForm.Get("text")
		mode = r.PostForm.Get("parse_mode")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "42"})
	require.NotNil(t, n)
	n.apiBase = server.URL
	n.client = server.Client()

	require.NoError(t, n.PublishDigest(context.Background(), "Processed 2 new documents, 0 failed"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", chat)
	assert.Equal(t, "Processed 2 new documents, 0 failed", text)
	assert.Equal(t, "Markdown", mode)
}

func TestPublishDigestAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "t", ChatID: "c"})
	n.apiBase = server.URL

	err := n.PublishDigest(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
