package ragic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Read fetches records from a form, or one record when req.RecordIndex is set.
func (c *Client) Read(ctx context.Context, req ReadRequest) ([]Item, error) {
	if err := checkTarget(req.Form, req.RecordIndex); err != nil {
		return nil, err
	}
	v, err := c.doJSON(ctx, http.MethodGet, ReadURL(c.base, req), nil)
	if err != nil {
		return nil, err
	}
	return Items(v), nil
}

// Write creates a record, or updates req.RecordIndex, from a JSON object keyed by field ID.
func (c *Client) Write(ctx context.Context, req WriteRequest) ([]Item, error) {
	if err := checkTarget(req.Form, req.RecordIndex); err != nil {
		return nil, err
	}
	body := req.Body
	if body == nil {
		body = map[string]any{}
	}
	v, err := c.doJSON(ctx, http.MethodPost, WriteURL(c.base, req), body)
	if err != nil {
		return nil, err
	}
	if err := remoteError(v); err != nil {
		return nil, err
	}
	return Items(v), nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, form string, recordIndex int) ([]Item, error) {
	if err := checkTarget(form, &recordIndex); err != nil {
		return nil, err
	}
	v, err := c.doJSON(ctx, http.MethodDelete, RecordURL(c.base, form, &recordIndex), nil)
	if err != nil {
		return nil, err
	}
	if err := remoteError(v); err != nil {
		return nil, err
	}
	return Items(v), nil
}

// ExecuteActionButton runs the action button buttonID on one record.
func (c *Client) ExecuteActionButton(ctx context.Context, form string, recordIndex int, buttonID string) ([]Item, error) {
	if err := checkTarget(form, &recordIndex); err != nil {
		return nil, err
	}
	if strings.TrimSpace(buttonID) == "" {
		return nil, fmt.Errorf("ragic: action button id is required")
	}
	url := recordPath(c.base, form, &recordIndex) +
		newQuery("api", "n8n").add("bId", encodeComponent(buttonID)).String()
	v, err := c.doJSON(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	if err := remoteError(v); err != nil {
		return nil, err
	}
	return Items(v), nil
}

func checkTarget(form string, recordIndex *int) error {
	if strings.Trim(form, "/ ") == "" {
		return ErrMissingForm
	}
	if recordIndex != nil && *recordIndex < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRecordIndex, *recordIndex)
	}
	return nil
}
