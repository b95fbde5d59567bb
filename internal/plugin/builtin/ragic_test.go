package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragicflow/internal/ragic"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newTestRagicNode(t *testing.T, response any) (*RagicNode, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)

	return NewRagicNode(ragic.Credentials{APIKey: "key", ServerName: srv.URL}), &calls
}

func TestRagicNodeReadAppliesDefaults(t *testing.T) {
	node, calls := newTestRagicNode(t, map[string]any{"1": map[string]any{"1000001": "Acme"}})

	result, err := node.Execute(context.Background(), ActionRead, map[string]any{
		"form": "acme/sales/1",
		"filters": []any{
			map[string]any{"field": "1000001", "operand": "like", "value": "Ac me"},
			map[string]any{"field": "1000002", "value": 5},
		},
		"other_parameters": []any{map[string]any{"key": "order", "value": "1000001,ASC"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.Output["count"])

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/acme/sales/1", call.path)
	assert.Equal(t, "api&n8n&where=1000001,like,Ac%20me&where=1000002,eq,5&order=1000001%2CASC&limit=1000", call.query)

	items := result.Output["items"].([]any)
	first := items[0].(map[string]any)["json"].(map[string]any)
	assert.Contains(t, first, "1")
}

func TestRagicNodeReadSingleHidesSubtables(t *testing.T) {
	node, calls := newTestRagicNode(t, map[string]any{})

	_, err := node.Execute(context.Background(), ActionReadSingle, map[string]any{
		"form":           "acme/sales/1",
		"record_index":   12.0,
		"show_subtables": false,
		"ignore_masked":  "true",
		"limit":          5,
	})
	require.NoError(t, err)
	assert.Equal(t, "/acme/sales/1/12", (*calls)[0].path)
	assert.Equal(t, "api&n8n&singleEntryMode&subtables=0&ignoreMask=true", (*calls)[0].query)
}

func TestRagicNodeCreateJSONMode(t *testing.T) {
	node, calls := newTestRagicNode(t, map[string]any{"status": "SUCCESS", "ragicId": 3})

	result, err := node.Execute(context.Background(), ActionCreate, map[string]any{
		"form":       "acme/sales/1",
		"json_body":  `{"1000001": "Acme", "1000002": 12}`,
		"do_formula": true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Output["count"])

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/acme/sales/1", call.path)
	assert.Equal(t, "api&n8n&doFormula=true", call.query)
	assert.Equal(t, map[string]any{"1000001": "Acme", "1000002": 12.0}, call.body)
}

func TestRagicNodeUpdateFieldMode(t *testing.T) {
	node, calls := newTestRagicNode(t, map[string]any{"status": "SUCCESS"})

	_, err := node.Execute(context.Background(), ActionUpdate, map[string]any{
		"form":         "acme/sales/1",
		"record_index": "7",
		"method":       MethodField,
		"notification": false,
		"entries": []any{
			map[string]any{"field": "1000001", "value": "Acme"},
			map[string]any{"field": "1000003", "value": 42},
		},
	})
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, "/acme/sales/1/7", call.path)
	assert.Equal(t, "api&n8n&notification=false", call.query)
	assert.Equal(t, map[string]any{"1000001": "Acme", "1000003": "42"}, call.body)
}

func TestRagicNodeValidation(t *testing.T) {
	node, calls := newTestRagicNode(t, map[string]any{})

	tests := []struct {
		name   string
		action string
		input  map[string]any
		errMsg string
	}{
		{"unknown action", "purge", map[string]any{"form": "a/b/1"}, `unknown action "purge"`},
		{"missing form", ActionRead, map[string]any{}, `parameter "form" is required`},
		{"missing record index", ActionUpdate, map[string]any{"form": "a/b/1"}, `parameter "record_index" is required`},
		{"negative record index", ActionDelete, map[string]any{"form": "a/b/1", "record_index": -1}, "below the minimum"},
		{"field mode needs entries", ActionCreate, map[string]any{"form": "a/b/1", "method": "field"}, `parameter "entries" is required`},
		{"bad operand", ActionRead, map[string]any{"form": "a/b/1", "filters": []any{map[string]any{"field": "1", "operand": "neq"}}}, "not one of"},
		{"bad json body", ActionCreate, map[string]any{"form": "a/b/1", "json_body": "{nope"}, "json_body is not valid JSON"},
		{"account name for file", ActionRetrieveFile, map[string]any{"file_name": "a@b.txt"}, `parameter "account_name" is required`},
		{"record url for file", ActionRetrieveFile, map[string]any{"file_name": "a@b.txt", "file_download_with_user_auth": true}, `parameter "file_record_url" is required`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := node.Execute(context.Background(), tt.action, tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.Empty(t, *calls)
}

func TestRagicNodeInvalidCredentials(t *testing.T) {
	node := NewRagicNode(ragic.Credentials{})
	assert.ErrorIs(t, node.Validate(), ragic.ErrMissingCredentials)

	_, err := node.Execute(context.Background(), ActionRead, map[string]any{"form": "a/b/1"})
	assert.ErrorIs(t, err, ragic.ErrMissingCredentials)

	// The schema is still available for listing and validation.
	assert.Len(t, node.Actions(), 7)
}

func TestRagicNodeRetrieveFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sims/file.jsp", r.URL.Path)
		assert.Equal(t, "a=acme&f=k1%40notes.txt", r.URL.RawQuery)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	node := NewRagicNode(ragic.Credentials{APIKey: "key", ServerName: srv.URL})
	result, err := node.Execute(context.Background(), ActionRetrieveFile, map[string]any{
		"file_name":    "k1@notes.txt",
		"account_name": "acme",
	})
	require.NoError(t, err)

	item := result.Output["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "notes.txt", item["json"].(map[string]any)["fileName"])
	binary := item["binary"].(map[string]any)[ragic.BinaryProperty].(map[string]any)
	assert.Equal(t, "aGVsbG8=", binary["data"])
}

func TestRagicNodeLoadOptions(t *testing.T) {
	node, calls := newTestRagicNode(t, map[string]any{
		"fields": map[string]any{"fid1000001": map[string]any{"name": "Company"}},
	})

	options, err := node.LoadOptions(context.Background(), LoadFields, map[string]any{"form": "acme/sales/1"})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "Company (1000001)", options[0].Name)
	assert.Equal(t, "api&def&n8n", (*calls)[0].query)

	_, err = node.LoadOptions(context.Background(), "sheets", nil)
	assert.Error(t, err)
}
