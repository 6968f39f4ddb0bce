// Copyright 2025 Certen Protocol
//
// HTTP inference adapters: InferenceFunc implementations that call a local
// Ollama-style completion endpoint (7B/13B/70B tiers) or a hosted
// completion API (the API tier), grounded on the request/response/error
// handling shape of pkg/batch/peer_manager.go's HTTPPeerManager.

package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// LocalEndpoint returns an InferenceFunc that POSTs to a local Ollama-style
// /api/generate endpoint. temperature/seed from Params are honored;
// local tiers are expected to be deterministic enough that callers
// typically leave them at the runtime defaults.
func LocalEndpoint(baseURL, model string, client *http.Client) InferenceFunc {
	if client == nil {
		client = &http.Client{Timeout: defaultInferenceTimeout}
	}
	return func(ctx context.Context, intent string, params Params) (string, string, int, error) {
		reqBody, err := json.Marshal(ollamaRequest{
			Model:  model,
			Prompt: intent,
			Stream: false,
			Options: ollamaOptions{
				Temperature: params.Temperature,
				Seed:        params.Seed,
			},
		})
		if err != nil {
			return "", "", 0, fmt.Errorf("marshal inference request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/generate", bytes.NewReader(reqBody))
		if err != nil {
			return "", "", 0, fmt.Errorf("build inference request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return "", "", 0, fmt.Errorf("inference request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", "", 0, fmt.Errorf("read inference response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", "", 0, fmt.Errorf("inference endpoint returned status %d: %s", resp.StatusCode, string(body))
		}

		var out ollamaResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", "", 0, fmt.Errorf("parse inference response: %w", err)
		}
		return out.Response, model, out.EvalCount, nil
	}
}

// APIEndpoint returns an InferenceFunc that calls a hosted completion API
// (bearer-token authenticated), used as the fallback tier when local
// models are unavailable or the workflow demands maximum precision.
func APIEndpoint(baseURL, apiKey, model string, maxInputTokens int, client *http.Client) InferenceFunc {
	if client == nil {
		client = &http.Client{Timeout: defaultInferenceTimeout}
	}
	return func(ctx context.Context, intent string, params Params) (string, string, int, error) {
		if len(intent) > maxInputTokens*4 {
			intent = intent[:maxInputTokens*4]
		}
		reqBody, err := json.Marshal(apiCompletionRequest{
			Model:       model,
			Prompt:      intent,
			Temperature: params.Temperature,
			Seed:        params.Seed,
		})
		if err != nil {
			return "", "", 0, fmt.Errorf("marshal inference request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(reqBody))
		if err != nil {
			return "", "", 0, fmt.Errorf("build inference request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return "", "", 0, fmt.Errorf("inference request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", "", 0, fmt.Errorf("read inference response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", "", 0, fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, string(body))
		}

		var out apiCompletionResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", "", 0, fmt.Errorf("parse inference response: %w", err)
		}
		return out.Completion, model, out.TokensUsed, nil
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int64   `json:"seed"`
}

type ollamaResponse struct {
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
}

type apiCompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	Seed        int64   `json:"seed"`
}

type apiCompletionResponse struct {
	Completion string `json:"completion"`
	TokensUsed int    `json:"tokens_used"`
}
