package ragic

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidJSON is returned when a JSON action gets a body that does not parse.
	ErrInvalidJSON = errors.New("failed to parse API response as JSON")

	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidSheetURL    = errors.New("invalid sheet url")
	ErrInvalidRecordIndex = errors.New("invalid record index")
	ErrMissingForm        = errors.New("form is required")

	// Credential check outcomes, keyed by the "code" the check endpoint answers with.
	ErrBadRequest       = errors.New("bad request")
	ErrPermissionDenied = errors.New("permission denied")
	ErrFormNotFound     = errors.New("form not found")
)

// APIError reports an HTTP failure from the Ragic API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ragic: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("ragic: http status %d: %s", e.StatusCode, e.Body)
}

// RemoteError is an error envelope Ragic returns inside a successful HTTP response.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == 0 {
		return "ragic: " + e.Message
	}
	return fmt.Sprintf("ragic: error %d: %s", e.Code, e.Message)
}

const maxSnippet = 512

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxSnippet {
		cut := maxSnippet
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return strings.TrimSpace(string(body))
}

// remoteError extracts {"status":"ERROR", ...} envelopes from write responses.
func remoteError(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	status, _ := m["status"].(string)
	if !strings.EqualFold(status, "ERROR") {
		return nil
	}
	code, _ := toInt(m["code"])
	msg, _ := m["msg"].(string)
	if msg == "" {
		msg = "request rejected"
	}
	return &RemoteError{Code: code, Message: msg}
}

// credentialCheckError maps the credential check response code to a sentinel.
func credentialCheckError(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	code, ok := toInt(m["code"])
	if !ok {
		return nil
	}
	switch code {
	case 400:
		return ErrBadRequest
	case 403:
		return ErrPermissionDenied
	case 404:
		return ErrFormNotFound
	}
	return nil
}
