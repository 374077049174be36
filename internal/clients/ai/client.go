package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/pkg/httpx"
)

// Client is the generation/research backend. Stages hand it structured input
// and a JSON schema and get structured candidates back, or an error.
type Client interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeoutSec := 120
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:     log.With("client", "AIClient"),
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		maxRetries: 3,
	}, nil
}

type responsesRequest struct {
	Model string `json:"model"`
	Input []any  `json:"input"`
	Text  any    `json:"text,omitempty"`
}

type responsesReply struct {
	Output []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type apiStatusError struct {
	Status int
	Body   string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("ai: unexpected status %d: %s", e.Status, e.Body)
}
func (e *apiStatusError) HTTPStatusCode() int { return e.Status }

// GenerateJSON calls the responses API with a json_schema output format and
// decodes the first text output as a JSON object.
func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	reqBody := responsesRequest{
		Model: c.model,
		Input: []any{
			map[string]any{"role": "system", "content": system},
			map[string]any{"role": "user", "content": user},
		},
	}
	if schema != nil {
		reqBody.Text = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   schemaName,
				"schema": schema,
				"strict": true,
			},
		}
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := httpx.JitterSleep(time.Duration(attempt) * 2 * time.Second)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if httpx.IsRetryableError(err) {
				continue
			}
			return nil, err
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := &apiStatusError{Status: resp.StatusCode, Body: truncate(string(body), 300)}
			lastErr = statusErr
			if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				sleepFor := httpx.RetryAfterDuration(resp, time.Duration(attempt+1)*2*time.Second, 30*time.Second)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(sleepFor):
				}
				continue
			}
			return nil, statusErr
		}

		var reply responsesReply
		if err := json.Unmarshal(body, &reply); err != nil {
			return nil, fmt.Errorf("ai: decode response: %w", err)
		}
		if reply.Error != nil {
			return nil, fmt.Errorf("ai: %s", reply.Error.Message)
		}
		text := firstOutputText(&reply)
		if text == "" {
			return nil, fmt.Errorf("ai: empty response output")
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return nil, fmt.Errorf("ai: output is not a JSON object: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("ai: generate: %w", lastErr)
}

func firstOutputText(reply *responsesReply) string {
	for _, out := range reply.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && strings.TrimSpace(content.Text) != "" {
				return content.Text
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
