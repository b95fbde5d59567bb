package ragic

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
)

// FileRequest locates a file stored in a record's file field.
//
// FileName is the stored name as returned by a read, e.g. "Ni92W2luv@My_Picture.jpg".
// When the company requires user authentication for downloads, RecordURL must
// point at the record holding the file; otherwise AccountName names the database account.
type FileRequest struct {
	FileName     string
	AccountName  string
	RecordURL    string
	WithUserAuth bool
}

// File is a downloaded file.
type File struct {
	FileName      string `json:"fileName"`
	FileExtension string `json:"fileExtension,omitempty"`
	MimeType      string `json:"mimeType"`
	FileSize      int    `json:"fileSize"`
	Data          []byte `json:"data"`
}

// Metadata is the file description without its contents.
func (f *File) Metadata() map[string]any {
	return map[string]any{
		"fileName":      f.FileName,
		"fileExtension": f.FileExtension,
		"mimeType":      f.MimeType,
		"fileSize":      f.FileSize,
	}
}

// RetrieveFile downloads a file through /sims/file.jsp.
func (c *Client) RetrieveFile(ctx context.Context, req FileRequest) (*File, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("ragic: file name is required")
	}

	account := req.AccountName
	var cookies []*http.Cookie
	if req.WithUserAuth {
		recordURL, _, _ := strings.Cut(req.RecordURL, "?")
		if recordURL == "" {
			return nil, fmt.Errorf("ragic: file record url is required")
		}
		var err error
		account, err = accountFromRecordURL(recordURL)
		if err != nil {
			return nil, err
		}
		// Visiting the record issues the session cookie the download is checked against.
		resp, err := c.execute(c.request(ctx), http.MethodGet, recordURL+newQuery("api", "n8n").String())
		if err != nil {
			return nil, fmt.Errorf("ragic: visiting file record: %w", err)
		}
		cookies = resp.Cookies()
	}
	if strings.TrimSpace(account) == "" {
		return nil, fmt.Errorf("ragic: account name is required")
	}

	url := c.base + "/sims/file.jsp" +
		newQuery().add("a", encodeComponent(account)).add("f", encodeComponent(req.FileName)).String()
	r := c.request(ctx)
	if len(cookies) > 0 {
		r.SetCookies(cookies)
	}
	resp, err := c.execute(r, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	return newFile(displayFileName(req.FileName), resp.Header().Get("Content-Type"), resp.Body()), nil
}

func accountFromRecordURL(recordURL string) (string, error) {
	parts := strings.Split(recordURL, "/")
	if len(parts) < 4 || parts[3] == "" {
		return "", fmt.Errorf("ragic: cannot find account name in %q", recordURL)
	}
	return parts[3], nil
}

// displayFileName drops the storage prefix before "@".
func displayFileName(stored string) string {
	if _, name, ok := strings.Cut(stored, "@"); ok && name != "" {
		return name
	}
	return stored
}

func newFile(name, contentType string, data []byte) *File {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	mimeType := contentType
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		if byExt := mime.TypeByExtension("." + ext); ext != "" && byExt != "" {
			mimeType = byExt
		}
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &File{
		FileName:      name,
		FileExtension: ext,
		MimeType:      mimeType,
		FileSize:      len(data),
		Data:          data,
	}
}
