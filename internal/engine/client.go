package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the engine sidecar over HTTP. It implements Recognizer,
// Aligner and Diarizer.
type Client struct {
	baseURL    string
	hfToken    string
	httpClient *http.Client
}

// NewClient creates a client for the engine sidecar.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // long recordings take a while
		},
	}
}

// SetHFToken sets the Hugging Face token forwarded with diarization
// requests. The sidecar needs it to fetch the gated speaker model.
func (c *Client) SetHFToken(token string) {
	c.hfToken = token
}

// Recognize sends a WAV file to the sidecar and returns its segments. Pass an
// empty language to let the engine detect it.
func (c *Client) Recognize(ctx context.Context, audioPath, language string) (*RecognizeResult, error) {
	fields := map[string]string{}
	if language != "" {
		fields["language"] = language
	}
	body, contentType, err := multipartBody(audioPath, fields)
	if err != nil {
		return nil, err
	}

	var result RecognizeResult
	if err := c.post(ctx, "/recognize", contentType, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Align sends segments plus the audio they came from and returns the segments
// with word-level timestamps filled in.
func (c *Client) Align(ctx context.Context, audioPath, language string, segments []RawSegment) ([]RawSegment, error) {
	segJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}
	body, contentType, err := multipartBody(audioPath, map[string]string{
		"language": language,
		"segments": string(segJSON),
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Segments []RawSegment `json:"segments"`
	}
	if err := c.post(ctx, "/align", contentType, body, &result); err != nil {
		return nil, err
	}
	return result.Segments, nil
}

// Diarize returns speaker turns for the audio file.
func (c *Client) Diarize(ctx context.Context, audioPath string, opts DiarizeOptions) ([]SpeakerTurn, error) {
	fields := map[string]string{}
	if opts.MinSpeakers > 0 {
		fields["min_speakers"] = strconv.Itoa(opts.MinSpeakers)
	}
	if opts.MaxSpeakers > 0 {
		fields["max_speakers"] = strconv.Itoa(opts.MaxSpeakers)
	}
	if c.hfToken != "" {
		fields["hf_token"] = c.hfToken
	}
	body, contentType, err := multipartBody(audioPath, fields)
	if err != nil {
		return nil, err
	}

	var result struct {
		Turns []SpeakerTurn `json:"turns"`
	}
	if err := c.post(ctx, "/diarize", contentType, body, &result); err != nil {
		return nil, err
	}
	return result.Turns, nil
}

// Unload asks the sidecar to drop a model from memory. Best effort.
func (c *Client) Unload(ctx context.Context, model string) error {
	url := c.baseURL + "/models/" + model + "/unload"
	req, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unload %s: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unload %s: status %d", model, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body *bytes.Buffer, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	logrus.Debugf("[engine] POST %s (%d bytes)", url, body.Len())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// multipartBody builds a multipart form with the audio file under "file" plus
// any extra fields.
func multipartBody(audioPath string, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}

	for name, value := range fields {
		writer.WriteField(name, value)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
