package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiService struct {
	ApiKey     string
	Model      string
	BaseURL    string
	httpClient *http.Client
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiService{
		ApiKey:     apiKey,
		Model:      model,
		BaseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
}

// GenerateRequest mirrors the fields of a generateContent call we use.
type GenerateRequest struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// APIError carries the HTTP status of a failed call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Gemini API error (%d): %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

func (g *GeminiService) GenerateContent(ctx context.Context, in GenerateRequest) (string, error) {
	model := in.Model
	if model == "" {
		model = g.Model
	}
	url := strings.TrimRight(g.BaseURL, "/") + "/models/" + model + ":generateContent?key=" + g.ApiKey

	generationConfig := map[string]interface{}{
		"temperature": in.Temperature,
	}
	if in.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = in.MaxTokens
	}
	if in.JSON {
		generationConfig["responseMimeType"] = "application/json"
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"role": "user", "parts": []map[string]string{{"text": in.User}}},
		},
		"generationConfig": generationConfig,
	}
	if in.System != "" {
		payload["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": in.System}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}

	if c, ok := result["candidates"].([]interface{}); ok && len(c) > 0 {
		if cand, ok := c[0].(map[string]interface{}); ok {
			if content, ok := cand["content"].(map[string]interface{}); ok {
				if parts, ok := content["parts"].([]interface{}); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]interface{}); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}
	return "", fmt.Errorf("no content returned")
}
