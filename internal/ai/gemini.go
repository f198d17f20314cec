// Package ai is the extraction gateway: it turns the first page of a
// judgement into citation fields using Gemini's generateContent endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/logger"
	"github.com/GonzoDMX/citation-index/internal/models"
	"github.com/GonzoDMX/citation-index/internal/pipeline"
)

var (
	ErrNotConfigured    = errors.New("extraction gateway not configured")
	ErrInsufficientText = errors.New("insufficient text for extraction")
	ErrExtractionFailed = errors.New("extraction failed")
)

// Extractor turns document text into citation fields.
type Extractor interface {
	Extract(ctx context.Context, text string) (models.CitationFields, error)
}

var _ Extractor = (*Client)(nil)

// Client calls Gemini over HTTP. It is safe for concurrent use; requests
// share one rate limiter.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	model    string
	limiter  *rate.Limiter
	minChars int
	maxChars int
	log      *logger.Logger
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewClient builds a client from cfg. It returns ErrNotConfigured when no
// API key is set.
func NewClient(cfg config.GeminiConfig, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		limiter:  rate.NewLimiter(limit, burst),
		minChars: config.CurrentDefaults.MinExtractChars,
		maxChars: config.CurrentDefaults.MaxPromptChars,
		log:      log.With("component", "gemini", "model", cfg.Model),
	}, nil
}

// Extract sends text to the model and returns the fields it found. Text
// with fewer than 50 non-blank characters is rejected without a request.
func (c *Client) Extract(ctx context.Context, text string) (models.CitationFields, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < c.minChars {
		return models.CitationFields{}, ErrInsufficientText
	}

	prompt := BuildPrompt(pipeline.ClipText(text, c.maxChars))

	if err := c.limiter.Wait(ctx); err != nil {
		return models.CitationFields{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	start := time.Now()
	reply, err := c.generate(ctx, prompt)
	if err != nil {
		c.log.Warn("gemini request failed", "error", err.Error())
		return models.CitationFields{}, err
	}
	c.log.Debug("gemini replied", "duration", time.Since(start).String(), "reply_chars", len(reply))

	fields, err := ParseReply(reply)
	if err != nil {
		c.log.Warn("could not parse gemini reply", "error", err.Error())
		return models.CitationFields{}, err
	}
	return fields, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrExtractionFailed, err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: status %d: unreadable response", ErrExtractionFailed, resp.StatusCode)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s (%d)", ErrExtractionFailed, out.Error.Message, out.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrExtractionFailed, resp.StatusCode)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", ErrExtractionFailed)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
