// Package processor is the HTTP client for the external audio processing
// API. Every call is a multipart POST carrying the audio under the
// "audio_file" part plus operation fields; transcription answers with JSON,
// all other endpoints answer with the resulting audio bytes.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	EndpointTranscribe     = "/audio-api/transcribe"
	EndpointModify         = "/audio-api/modify"
	EndpointReplaceWithTTS = "/audio-api/replace-with-tts"
	EndpointConvertFormat  = "/audio-api/convert-format"
	EndpointHealth         = "/audio-api/health"

	audioPartName = "audio_file"
)

// ErrEmptyResponse is returned when the processor answers 2xx with no body.
var ErrEmptyResponse = errors.New("received empty response from processor")

// APIError is a non-2xx answer from the processor.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor api error: status %d: %s", e.Status, e.Detail)
}

// Field is a single form field. Order is preserved on the wire.
type Field struct {
	Name  string
	Value string
}

// Audio is the file part of a request.
type Audio struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Word struct {
	Word      string  `json:"word"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type Transcription struct {
	Filename         string  `json:"filename"`
	Transcript       string  `json:"transcript"`
	Words            []Word  `json:"words"`
	DetectedLanguage string  `json:"detected_language"`
	ProcessingTime   float64 `json:"processing_time"`
}

type Health struct {
	Status         string `json:"status"`
	TTSModelLoaded bool   `json:"tts_model_loaded"`
}

type Client struct {
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
}

// New returns a client for the processor at baseURL. A zero timeout leaves
// requests bounded only by the caller's context.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, timeout, &http.Client{})
}

func NewWithHTTPClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		reqTimeout: timeout,
		httpClient: httpClient,
	}
}

// Process posts audio and fields to endpoint and returns the audio bytes of
// the answer.
func (c *Client) Process(ctx context.Context, endpoint string, audio Audio, fields []Field) ([]byte, error) {
	body, err := c.post(ctx, endpoint, audio, fields)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}
	return body, nil
}

// Transcribe posts audio to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, audio Audio) (*Transcription, error) {
	body, err := c.post(ctx, EndpointTranscribe, audio, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponse
	}

	var t Transcription
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	return &t, nil
}

// Health reports the processor's own health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+EndpointHealth, nil)
	if err != nil {
		return nil, fmt.Errorf("create health request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &h, nil
}

func (c *Client) post(ctx context.Context, endpoint string, audio Audio, fields []Field) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	// The processor rejects parts whose content type is not audio/*, so the
	// header is written by hand instead of via CreateFormFile.
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, audioPartName, escapeQuotes(audio.FileName)))
	ct := audio.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	for _, f := range fields {
		if err := writer.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("write %s field: %w", f.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("create processor request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.reqTimeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), c.reqTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read processor response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func decodeAPIError(status int, body []byte) error {
	var apiErr struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != nil {
		if s, ok := apiErr.Detail.(string); ok {
			return &APIError{Status: status, Detail: s}
		}
		b, _ := json.Marshal(apiErr.Detail)
		return &APIError{Status: status, Detail: string(b)}
	}
	return &APIError{Status: status, Detail: strings.TrimSpace(string(body))}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
