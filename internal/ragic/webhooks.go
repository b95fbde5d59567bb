package ragic

import (
	"context"
	"net/http"
	"strings"
)

// DefaultWebhookEvent is the sheet event subscriptions listen to unless told otherwise.
const DefaultWebhookEvent = "create"

// TriggerClient manages webhook subscriptions on one sheet.
type TriggerClient struct {
	conn
	sheet Sheet
}

// NewTriggerClient returns a client for the sheet named in creds.
func NewTriggerClient(creds TriggerCredentials, opts ...ClientOption) (*TriggerClient, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	sheet, _ := ParseSheetURL(creds.SheetURL)
	return &TriggerClient{conn: newConn(sheet.BaseURL(), creds.APIKey, opts), sheet: sheet}, nil
}

func (t *TriggerClient) Sheet() Sheet { return t.sheet }

// CheckCredentials asks the server whether the API key may watch the sheet.
func (t *TriggerClient) CheckCredentials(ctx context.Context) error {
	url := t.base + "/api/n8n/n8nCredentialCheck.jsp" + newQuery().
		add("n8n", "true").
		add("nodeType", "trigger").
		add("ap", encodeComponent(t.sheet.Account)).
		add("path", encodeComponent("/"+t.sheet.Path)).
		add("sheetIndex", encodeComponent(t.sheet.Index)).
		String()
	v, err := t.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return credentialCheckError(v)
}

// WebhookExists reports whether callbackURL is already registered on the sheet.
func (t *TriggerClient) WebhookExists(ctx context.Context, callbackURL string) (bool, error) {
	resp, err := t.execute(t.request(ctx), http.MethodGet, t.webhookURL("webhooks.jsp", callbackURL, ""))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(resp.Body()), callbackURL), nil
}

// Subscribe registers callbackURL for event. An empty event means DefaultWebhookEvent.
func (t *TriggerClient) Subscribe(ctx context.Context, callbackURL, event string) error {
	_, err := t.execute(t.request(ctx), http.MethodGet, t.webhookURL("webhookSubscribe.jsp", callbackURL, eventOrDefault(event)))
	return err
}

// Unsubscribe removes callbackURL for event.
func (t *TriggerClient) Unsubscribe(ctx context.Context, callbackURL, event string) error {
	_, err := t.execute(t.request(ctx), http.MethodGet, t.webhookURL("webhookUnsubscribe.jsp", callbackURL, eventOrDefault(event)))
	return err
}

func (t *TriggerClient) webhookURL(endpoint, callbackURL, event string) string {
	q := newQuery("n8n").
		add("ap", encodeComponent(t.sheet.Account)).
		add("path", encodeComponent(t.sheet.Path)).
		add("si", encodeComponent(t.sheet.Index)).
		add("url", encodeComponent(callbackURL))
	if event != "" {
		q.add("event", encodeComponent(event))
	}
	return t.base + "/sims/" + endpoint + q.String()
}

func eventOrDefault(event string) string {
	if strings.TrimSpace(event) == "" {
		return DefaultWebhookEvent
	}
	return event
}
