// Package extract turns plain OCR text into structured document records by
// prompting an external text-generation service and recovering a JSON object
// from whatever the service actually returns.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// jsonHint is appended to every prompt. The generation service does not
// reliably honor it, which is why recovery exists at all.
const jsonHint = "Respond EXCLUSIVELY with valid JSON, no explanations and no markdown, " +
	"no ```json fences, no backticks. Minified JSON on a SINGLE line."

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Client talks to an Ollama-style chat endpoint.
type Client struct {
	url   string
	model string
	httpc *http.Client
}

// NewClient builds a client for the given chat endpoint and model. The
// timeout bounds the whole round trip; pass 0 for no bound.
func NewClient(url, model string, timeout time.Duration) *Client {
	return &Client{
		url:   url,
		model: model,
		httpc: &http.Client{Timeout: timeout},
	}
}

// Complete sends one user-role prompt and returns the raw message content.
// Transport failure and non-success status are hard errors; what the content
// looks like is the caller's problem.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt + "\n\n" + jsonHint}},
		Stream:   false,
		Options:  chatOptions{Temperature: 0.1},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("generation service returned %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	return decoded.Message.Content, nil
}
