package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xhad/duo/internal/models"
)

const (
	UploadPath = "/upload-dual"
	ChatPath   = "/chat-dual"

	FieldA = "fileA"
	FieldB = "fileB"

	// maxErrorBody caps how much of a failed response is kept for messages.
	maxErrorBody = 512
)

// File is one user selection: a display name and its bytes.
type File struct {
	Name    string
	Content io.Reader
}

// OpenFile selects a file from disk. The caller closes the returned closer.
func OpenFile(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Content: f}, f, nil
}

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration // 0 means no overall deadline
	HTTPClient *http.Client
}

// Client talks to the dual-document backend.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:4000"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

func New(baseURL string) *Client {
	c, _ := NewWithConfig(ClientConfig{BaseURL: baseURL})
	return c
}

func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// UploadDual sends both files in one multipart request and returns the
// identifiers the backend assigned to them. The body is streamed, so
// neither file is held in memory.
func (c *Client) UploadDual(ctx context.Context, a, b File) (models.DualContext, error) {
	if a.Content == nil || b.Content == nil {
		return models.DualContext{}, fmt.Errorf("%w: both files are required", ErrValidation)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	writeErr := make(chan error, 1)
	go func() {
		err := writeParts(writer, a, b)
		pw.CloseWithError(err)
		writeErr <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+UploadPath, pr)
	if err != nil {
		pr.Close()
		<-writeErr
		return models.DualContext{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)

	// Unblock the writer if the transport stopped reading early, and make
	// sure it is done with the caller's readers before returning.
	pr.Close()
	if werr := <-writeErr; werr != nil && !errors.Is(werr, io.ErrClosedPipe) && err != nil {
		return models.DualContext{}, werr
	}
	if err != nil {
		return models.DualContext{}, err
	}
	defer resp.Body.Close()

	var result models.DualContext
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.DualContext{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return result, nil
}

func writeParts(writer *multipart.Writer, a, b File) error {
	for _, part := range []struct {
		field string
		file  File
	}{{FieldA, a}, {FieldB, b}} {
		w, err := writer.CreateFormFile(part.field, part.file.Name)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(w, part.file.Content); err != nil {
			return fmt.Errorf("failed to copy %s: %w", part.file.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return nil
}

// ChatDual posts the question and returns the raw answer stream. The
// caller must close it.
func (c *Client) ChatDual(ctx context.Context, chat models.ChatRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(chat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+ChatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: errorMessage(data)}
	}

	return resp, nil
}

// errorMessage pulls {"error": ...} or {"detail": ...} out of a failed
// response, falling back to the trimmed body.
func errorMessage(data []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(data))
}
