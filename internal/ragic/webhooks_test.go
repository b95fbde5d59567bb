package ragic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callback = "https://flows.example.com/webhook/0b5f"

func newTestTriggerClient(t *testing.T, handler http.HandlerFunc) *TriggerClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewTriggerClient(TriggerCredentials{APIKey: "key", SheetURL: srv.URL + "/acme/sales/2"})
	require.NoError(t, err)
	return client
}

func TestWebhookExists(t *testing.T) {
	registered := false
	client := newTestTriggerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sims/webhooks.jsp", r.URL.Path)
		assert.Equal(t, "Basic key", r.Header.Get("Authorization"))
		assert.Equal(t, "n8n&ap=acme&path=sales&si=2&url=https%3A%2F%2Fflows.example.com%2Fwebhook%2F0b5f", r.URL.RawQuery)
		if registered {
			w.Write([]byte(`["` + callback + `"]`))
			return
		}
		w.Write([]byte(`[]`))
	})

	exists, err := client.WebhookExists(context.Background(), callback)
	require.NoError(t, err)
	assert.False(t, exists)

	registered = true
	exists, err = client.WebhookExists(context.Background(), callback)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	var calls []string
	client := newTestTriggerClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path+"?"+r.URL.RawQuery)
		w.Write([]byte(`{"status":"SUCCESS"}`))
	})

	require.NoError(t, client.Subscribe(context.Background(), callback, ""))
	require.NoError(t, client.Unsubscribe(context.Background(), callback, "update"))

	q := "n8n&ap=acme&path=sales&si=2&url=https%3A%2F%2Fflows.example.com%2Fwebhook%2F0b5f"
	assert.Equal(t, []string{
		"/sims/webhookSubscribe.jsp?" + q + "&event=create",
		"/sims/webhookUnsubscribe.jsp?" + q + "&event=update",
	}, calls)
}

func TestSubscribeFailure(t *testing.T) {
	client := newTestTriggerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := client.Subscribe(context.Background(), callback, "create")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestTriggerCheckCredentials(t *testing.T) {
	code := 404
	client := newTestTriggerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/n8n/n8nCredentialCheck.jsp", r.URL.Path)
		assert.Equal(t, "n8n=true&nodeType=trigger&ap=acme&path=%2Fsales&sheetIndex=2", r.URL.RawQuery)
		writeJSON(w, map[string]any{"code": code})
	})

	assert.ErrorIs(t, client.CheckCredentials(context.Background()), ErrFormNotFound)
	code = 400
	assert.ErrorIs(t, client.CheckCredentials(context.Background()), ErrBadRequest)
	code = 200
	assert.NoError(t, client.CheckCredentials(context.Background()))
}
