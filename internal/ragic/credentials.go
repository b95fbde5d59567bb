package ragic

import (
	"fmt"
	"strconv"
	"strings"
)

// Credentials authenticate the action node against one Ragic server.
type Credentials struct {
	// APIKey is sent verbatim after "Basic "; Ragic hands it out already encoded.
	APIKey string `mapstructure:"api_key" json:"api_key"`
	// ServerName is the host part of the database URL, e.g. "ap5.ragic.com".
	ServerName string `mapstructure:"server_name" json:"server_name"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is empty", ErrMissingCredentials)
	}
	if strings.TrimSpace(c.ServerName) == "" {
		return fmt.Errorf("%w: server name is empty", ErrMissingCredentials)
	}
	return nil
}

// BaseURL returns the scheme and host requests are sent to.
func (c Credentials) BaseURL() string {
	server := strings.TrimRight(strings.TrimSpace(c.ServerName), "/")
	if strings.Contains(server, "://") {
		return server
	}
	return "https://" + server
}

// TriggerCredentials authenticate the trigger node against a single sheet.
type TriggerCredentials struct {
	APIKey   string `mapstructure:"api_key" json:"api_key"`
	SheetURL string `mapstructure:"sheet_url" json:"sheet_url"`
}

func (c TriggerCredentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is empty", ErrMissingCredentials)
	}
	_, err := ParseSheetURL(c.SheetURL)
	return err
}

// Sheet addresses one sheet: https://<server>/<account>/<path>/<index>.
type Sheet struct {
	Scheme  string
	Server  string
	Account string
	Path    string
	Index   string
}

// ParseSheetURL splits a sheet URL into its parts. Anything after "?" or "#" is ignored.
func ParseSheetURL(raw string) (Sheet, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) < 6 || !strings.HasSuffix(parts[0], ":") || parts[1] != "" {
		return Sheet{}, fmt.Errorf("%w: %q", ErrInvalidSheetURL, raw)
	}
	sheet := Sheet{
		Scheme:  strings.TrimSuffix(parts[0], ":"),
		Server:  parts[2],
		Account: parts[3],
		Path:    parts[4],
		Index:   parts[5],
	}
	if sheet.Scheme == "" || sheet.Server == "" || sheet.Account == "" || sheet.Path == "" || sheet.Index == "" {
		return Sheet{}, fmt.Errorf("%w: %q", ErrInvalidSheetURL, raw)
	}
	return sheet, nil
}

func (s Sheet) BaseURL() string { return s.Scheme + "://" + s.Server }

func (s Sheet) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.BaseURL(), s.Account, s.Path, s.Index)
}

// ParseRecordIndex accepts the record index as typed by a user or resolved from an expression.
func ParseRecordIndex(v any) (int, error) {
	n, ok := toInt(v)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRecordIndex, v)
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
