// Package gemini is the outbound client for the Gemini generateContent API.
// Every failure mode is expressed in-band: the client never returns an error,
// it returns a Result whose Text is either model output or a fixed sentinel
// string, so the recommendation pipeline always has something to work with.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel strings stand in for errors across the AI boundary. Downstream
// stages treat them as "no usable content", not as structured output.
const (
	SentinelUnavailable      = "Error: Unable to process request. Please provide default clinical assessment."
	SentinelUnexpectedFormat = "Error: Unexpected response format"
	SentinelUnparseable      = "Error: Unable to parse AI response"
)

// maxPromptBytes bounds the request payload. Event payloads are caller
// controlled, so an oversized clinical note must not produce an oversized
// API call.
const maxPromptBytes = 30000

// Result is the outcome of one generation call. Failed is true only when the
// call itself produced no model output at all (transport error, timeout,
// non-2xx status); a response in an unexpected shape is not Failed, since the
// model did answer and the interpreter gets a chance at the text.
type Result struct {
	Text   string
	Failed bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) { g.httpClient = c }
}

// Client issues generateContent requests with a fixed low-randomness sampling
// configuration to favor consistent, parseable output.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	logger     zerolog.Logger
}

func NewClient(apiURL, apiKey string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		logger: logger.With().Str("component", "gemini").Logger(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []textPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate issues one generation request for the prompt. It never returns an
// error: transport failures, bad statuses, and malformed responses all come
// back as sentinel text.
func (c *Client) Generate(ctx context.Context, prompt string) Result {
	if len(prompt) > maxPromptBytes {
		prompt = prompt[:maxPromptBytes]
	}

	body := generateRequest{
		Contents: []requestContent{
			{Parts: []textPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.3,
			MaxOutputTokens: 2048,
			TopP:            0.8,
			TopK:            40,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		c.logger.Error().Err(err).Msg("marshal generate request")
		return Result{Text: SentinelUnavailable, Failed: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		c.logger.Error().Err(err).Msg("build generate request")
		return Result{Text: SentinelUnavailable, Failed: true}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("gemini call failed")
		return Result{Text: SentinelUnavailable, Failed: true}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("read gemini response")
		return Result{Text: SentinelUnavailable, Failed: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Msg("gemini returned non-success status")
		return Result{Text: SentinelUnavailable, Failed: true}
	}

	return c.extractText(raw)
}

// extractText unwraps candidates[0].content.parts[0].text from the provider's
// nested response structure.
func (c *Client) extractText(raw []byte) Result {
	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Error().Err(err).Msg("parse gemini response")
		return Result{Text: SentinelUnparseable}
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		c.logger.Warn().Msg("unexpected response format from gemini")
		return Result{Text: SentinelUnexpectedFormat}
	}

	return Result{Text: parsed.Candidates[0].Content.Parts[0].Text}
}
