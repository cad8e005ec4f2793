// Package ocr is the client for the document-extraction service. It uploads
// a report file with progress reporting and returns the raw text plus the
// structured values the service extracted.
//
// Like the narrative service, extraction is an external collaborator: this
// package reports transport problems as ErrUnavailable so the pipeline's
// retry policy can distinguish them from validation and cancellation.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/healthsphere/go-health-backend/internal/config"
)

// ErrUnavailable marks the extraction service as unreachable or misbehaving.
var ErrUnavailable = errors.New("extraction service unavailable")

// APIError is a non-success response from the extraction service.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "…"
	}
	return fmt.Sprintf("extraction service returned %d: %s", e.StatusCode, body)
}

// Value is one structured reading extracted from a report. Reading is nil
// when the service recognized the test name but could not read its value.
type Value struct {
	Name       string   `json:"name"`
	Reading    *string  `json:"reading"`
	Confidence float64  `json:"confidence"`
}

// Result is the full extraction for one uploaded file.
type Result struct {
	Text       string  `json:"text"`
	Values     []Value `json:"values"`
	PatientID  string  `json:"patient_id"`
	ReportDate string  `json:"report_date"`
}

// Client calls the extraction endpoint. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client from the upload configuration.
func NewClient(cfg config.UploadConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.OCRBaseURL, "/"),
		http:    &http.Client{Timeout: cfg.OCRTimeout},
	}
}

// progressReader reports consumed bytes as a 0-99 percentage. 100 is never
// reported here; completion is confirmed by the response, not by the last
// byte leaving the socket.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.progress != nil && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		p.progress(pct)
	}
	return n, err
}

// Extract uploads one file and returns the structured extraction. progress
// may be nil; when set it receives monotonically non-decreasing percentages
// in [0,99].
//
// Error semantics mirror the narrative client: cancellation is returned
// as-is, transport failures and non-2xx statuses wrap ErrUnavailable.
func (c *Client) Extract(ctx context.Context, filename string, data []byte, progress func(int)) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	pr := &progressReader{r: &body, total: int64(body.Len()), progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = pr.total

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("url", c.baseURL).Msg("extraction service unreachable")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		log.Warn().Int("status", resp.StatusCode).Msg("extraction service error")
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, apiErr)
	}

	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	log.Debug().
		Dur("latency", time.Since(start)).
		Int("file_bytes", len(data)).
		Int("values", len(out.Values)).
		Msg("report extraction")

	return &out, nil
}
