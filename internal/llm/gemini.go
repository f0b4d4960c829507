package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient serves completions through the Google Generative Language
// API. A fresh client is opened per call; the underlying transport pools
// connections.
type GeminiClient struct {
	apiKey string
	model  string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

func (c *GeminiClient) generativeModel(cl *genai.Client, req Request) *genai.GenerativeModel {
	m := cl.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		m.GenerationConfig.MaxOutputTokens = ptrInt32(int32(req.MaxTokens))
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	return m
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &CompletionError{Provider: "gemini", Message: "GEMINI_API_KEY is empty"}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", &CompletionError{Provider: "gemini", Message: "create client", Err: err}
	}
	defer cl.Close()

	m := c.generativeModel(cl, req)
	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", &CompletionError{Provider: "gemini", Message: "generate content", Err: err}
	}
	text := firstText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &CompletionError{Provider: "gemini", Message: "empty completion"}
	}
	return text, nil
}

func (c *GeminiClient) Stream(ctx context.Context, req Request, fn func(chunk string) error) error {
	if c.apiKey == "" {
		return &CompletionError{Provider: "gemini", Message: "GEMINI_API_KEY is empty"}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return &CompletionError{Provider: "gemini", Message: "create client", Err: err}
	}
	defer cl.Close()

	m := c.generativeModel(cl, req)
	iter := m.GenerateContentStream(ctx, genai.Text(req.Prompt))

	got := false
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return &CompletionError{Provider: "gemini", Message: "read content stream", Err: err}
		}
		chunk := firstText(resp)
		if chunk == "" {
			continue
		}
		got = true
		if err := fn(chunk); err != nil {
			return err
		}
	}
	if !got {
		return &CompletionError{Provider: "gemini", Message: "empty completion"}
	}
	return nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
