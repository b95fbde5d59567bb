package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragicflow/internal/ragic"
)

func TestRagicTriggerNodeLifecycle(t *testing.T) {
	const callbackURL = "https://flows.example.com/webhook/abc"
	registered := map[string]bool{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sims/webhooks.jsp":
			if registered[callbackURL] {
				w.Write([]byte(callbackURL))
			}
		case "/sims/webhookSubscribe.jsp":
			assert.True(t, strings.HasSuffix(r.URL.RawQuery, "&event=create"))
			registered[callbackURL] = true
		case "/sims/webhookUnsubscribe.jsp":
			delete(registered, callbackURL)
		}
	}))
	defer srv.Close()

	node := NewRagicTriggerNode(ragic.TriggerCredentials{APIKey: "key", SheetURL: srv.URL + "/acme/sales/2"})
	require.NoError(t, node.Validate())
	input := map[string]any{"callback_url": callbackURL}

	result, err := node.Execute(context.Background(), ActionCheck, input)
	require.NoError(t, err)
	assert.Equal(t, false, result.Output["exists"])

	result, err = node.Execute(context.Background(), ActionSubscribe, input)
	require.NoError(t, err)
	assert.Equal(t, "create", result.Output["event"])

	result, err = node.Execute(context.Background(), ActionCheck, input)
	require.NoError(t, err)
	assert.Equal(t, true, result.Output["exists"])

	_, err = node.Execute(context.Background(), ActionUnsubscribe, input)
	require.NoError(t, err)
	assert.Empty(t, registered)
}

func TestRagicTriggerNodeRequiresCallback(t *testing.T) {
	node := NewRagicTriggerNode(ragic.TriggerCredentials{APIKey: "key", SheetURL: "https://ap5.ragic.com/acme/sales/2"})
	_, err := node.Execute(context.Background(), ActionSubscribe, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "callback_url" is required`)
}

func TestRagicTriggerNodeInvalidSheet(t *testing.T) {
	node := NewRagicTriggerNode(ragic.TriggerCredentials{APIKey: "key", SheetURL: "https://ap5.ragic.com"})
	assert.ErrorIs(t, node.Validate(), ragic.ErrInvalidSheetURL)
	assert.True(t, node.Description().IsTrigger())
}

func TestTriggerItems(t *testing.T) {
	items := TriggerItems(map[string]any{"_ragicId": 12.0})
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"bodyData": map[string]any{"_ragicId": 12.0}}, items[0].JSON)
}
