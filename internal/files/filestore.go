package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/spec-kit/deskflow/internal/config"
)

// Upload is one binary payload with a name.
type Upload struct {
	Name string
	Data []byte
}

// Store accepts a batch of payloads and returns stable retrieval URLs in
// the same order. A failure propagates as a hard error to the caller.
type Store interface {
	UploadFiles(ctx context.Context, uploads []Upload) ([]string, error)
}

// HTTPStore posts payloads to an external upload endpoint that responds
// with {"urls": [...]}.
type HTTPStore struct {
	cfg    config.FileStoreConfig
	client *http.Client
}

// NewHTTPStore builds the store from config.
func NewHTTPStore(cfg config.FileStoreConfig) *HTTPStore {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPStore) UploadFiles(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.cfg.UploadURL == "" {
		return nil, fmt.Errorf("file store not configured")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, upload := range uploads {
		part, err := writer.CreateFormFile("files", upload.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(upload.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.UploadURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("file store returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.URLs) != len(uploads) {
		return nil, fmt.Errorf("file store returned %d urls for %d uploads", len(payload.URLs), len(uploads))
	}
	return payload.URLs, nil
}
