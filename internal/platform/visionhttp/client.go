// Package visionhttp implements vision.Analyzer over the detection
// service's multipart HTTP API.
package visionhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/vision"
)

// DefaultTimeout bounds a single analysis round trip.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client calls POST {baseURL}/analyze.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a vision client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is empty", vision.ErrInvalidConfig)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "vision_client")),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ vision.Analyzer = (*Client)(nil)

// Analyze uploads the image with its metadata and decodes the result.
// Network errors, timeouts and non-2xx statuses wrap vision.ErrTransportFailure;
// undecodable 2xx bodies wrap vision.ErrInvalidResponse.
func (c *Client) Analyze(ctx context.Context, req vision.AnalyzeRequest) (*vision.Result, error) {
	log := logger.FromContextOrDefault(ctx, c.logger).With(
		slog.String("photo_id", req.PhotoID.String()),
		slog.String("task_id", req.TaskID.String()))

	body, contentType, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return nil, fmt.Errorf("failed to build vision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("vision request failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("%w: %w", vision.ErrTransportFailure, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug("failed to close vision response body", slog.String("error", err.Error()))
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", vision.ErrTransportFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("vision service returned non-success status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("%w: status %d: %s",
			vision.ErrTransportFailure, resp.StatusCode, truncate(string(payload), 200))
	}

	var result vision.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", vision.ErrInvalidResponse, err)
	}

	log.Debug("vision analysis received",
		slog.Bool("success", result.Succeeded()),
		slog.Int("preliminary_measurements", len(result.PreliminaryMeasurements)),
		slog.Duration("elapsed", time.Since(start)))
	return &result, nil
}

func encodeRequest(req vision.AnalyzeRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = req.PhotoID.String()
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	metadata, err := json.Marshal(req.Metadata())
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := writer.WriteField("metadata", string(metadata)); err != nil {
		return nil, "", fmt.Errorf("failed to write metadata field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsTimeout reports whether err came from the client deadline.
func IsTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
