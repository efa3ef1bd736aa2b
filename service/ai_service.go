package service

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

	"google.golang.org/genai"

	"reward-advisor/domain"
)

var (
	// ErrOracleDisabled is returned by sources that have no credentials.
	ErrOracleDisabled = errors.New("oracle: disabled")
	// ErrOracleEmpty indicates the provider answered without any text.
	ErrOracleEmpty = errors.New("oracle: empty response")
)

// ExplanationSource is the external free-text generator. Implementations must
// honor ctx cancellation and bound the size of what they return.
type ExplanationSource interface {
	Name() string
	Explain(ctx context.Context, prompt string) (string, error)
}

type OracleSettings struct {
	Provider         string // openai, gemini or none
	APIKey           string
	Model            string
	BaseURL          string
	MaxResponseBytes int64
	MaxTokens        int
}

// NewExplanationSource picks a provider; missing credentials yield a disabled
// source rather than an error.
func NewExplanationSource(ctx context.Context, s OracleSettings) (ExplanationSource, error) {
	if s.APIKey == "" {
		return DisabledSource{}, nil
	}
	if s.MaxResponseBytes <= 0 {
		s.MaxResponseBytes = MaxOracleResponseBytes
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = MaxOracleResponseTokens
	}
	switch strings.ToLower(s.Provider) {
	case "openai", "":
		return NewOpenAISource(s), nil
	case "gemini":
		return NewGeminiSource(ctx, s)
	case "none", "disabled":
		return DisabledSource{}, nil
	}
	return nil, fmt.Errorf("unknown oracle provider %q", s.Provider)
}

type DisabledSource struct{}

func (DisabledSource) Name() string { return "disabled" }

func (DisabledSource) Explain(context.Context, string) (string, error) {
	return "", ErrOracleDisabled
}

type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// OpenAISource calls the chat completions API.
type OpenAISource struct {
	apiKey     string
	apiURL     string
	model      string
	maxTokens  int
	maxBytes   int64
	httpClient *http.Client
}

func NewOpenAISource(s OracleSettings) *OpenAISource {
	url := s.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1/chat/completions"
	}
	model := s.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAISource{
		apiKey:    s.APIKey,
		apiURL:    url,
		model:     model,
		maxTokens: s.MaxTokens,
		maxBytes:  s.MaxResponseBytes,
		// Per-call deadlines come from ctx; this only guards a missing one.
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *OpenAISource) Name() string { return "openai" }

func (s *OpenAISource) Explain(ctx context.Context, prompt string) (string, error) {
	reqBody := OpenAIRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, s.maxBytes)
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return "", fmt.Errorf("oracle: API error (status %d): %s", resp.StatusCode, string(msg))
	}

	var openAIResp OpenAIResponse
	if err := json.NewDecoder(body).Decode(&openAIResp); err != nil {
		return "", fmt.Errorf("oracle: decoding response: %w", err)
	}
	if len(openAIResp.Choices) == 0 || openAIResp.Choices[0].Message.Content == "" {
		return "", ErrOracleEmpty
	}
	return truncate(openAIResp.Choices[0].Message.Content, s.maxBytes), nil
}

// GeminiSource calls Google's Gemini API through the genai SDK.
type GeminiSource struct {
	client    *genai.Client
	model     string
	maxTokens int
	maxBytes  int64
}

func NewGeminiSource(ctx context.Context, s OracleSettings) (*GeminiSource, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := s.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiSource{client: client, model: model, maxTokens: s.MaxTokens, maxBytes: s.MaxResponseBytes}, nil
}

func (s *GeminiSource) Name() string { return "gemini" }

func (s *GeminiSource) Explain(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(s.maxTokens),
		Temperature:       genai.Ptr[float32](0.3),
	})
	if err != nil {
		return "", fmt.Errorf("oracle: gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrOracleEmpty
	}
	return truncate(text, s.maxBytes), nil
}

func truncate(s string, max int64) string {
	if max > 0 && int64(len(s)) > max {
		return s[:max]
	}
	return s
}

// OracleClassifier adapts an ExplanationSource into a Classifier.
type OracleClassifier struct {
	Source ExplanationSource
}

func (c OracleClassifier) Classify(ctx context.Context, txn domain.Transaction) (string, error) {
	return c.Source.Explain(ctx, categorizationPrompt(txn))
}
