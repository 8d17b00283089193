package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiClient talks to the battle API.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) getView() (*arena.View, error) {
	resp, err := c.client.Get(c.baseURL + "/v1/battle")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeView(resp, "failed to get battle")
}

// post sends a control action such as "start" or "narration/pause".
func (c *apiClient) post(action string, body any) (*arena.View, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	resp, err := c.client.Post(c.baseURL+"/v1/battle/"+action, "application/json", reader)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeView(resp, action+" failed")
}

// upload sends the case document at path. An empty path sends a placeholder
// document.
func (c *apiClient) upload(path string) (*arena.View, error) {
	data := []byte("case document uploaded from console")
	contentType := "text/plain"
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		contentType = http.DetectContentType(data)
	}

	resp, err := c.client.Post(c.baseURL+"/v1/battle/upload", contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeView(resp, "upload failed")
}

func (c *apiClient) setRate(rate float64) (*arena.View, error) {
	return c.post("rate", map[string]float64{"rate": rate})
}

func (c *apiClient) setNarrationEnabled(enabled bool) (*arena.View, error) {
	return c.post("narration", map[string]bool{"enabled": enabled})
}

// transcriptEntries fetches the transcript in JSON form.
func (c *apiClient) transcriptEntries() (transcript.Header, []transcript.Entry, error) {
	body, err := c.transcript(transcript.FormatJSON)
	if err != nil {
		return transcript.Header{}, nil, err
	}
	var doc struct {
		transcript.Header
		Entries []transcript.Entry `json:"entries"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return transcript.Header{}, nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	return doc.Header, doc.Entries, nil
}

// transcript fetches the rendered transcript in format f.
func (c *apiClient) transcript(f transcript.Format) ([]byte, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/v1/battle/transcript?format=%s", c.baseURL, f))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body, "failed to export transcript")
	}
	return body, nil
}

func decodeView(resp *http.Response, failure string) (*arena.View, error) {
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body, failure)
	}

	var view arena.View
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("failed to parse battle response: %w", err)
	}
	return &view, nil
}

func apiError(status int, body []byte, failure string) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("%s: %s", failure, errorResp.Error)
}
