// Package openai adapts OpenAI-compatible Chat Completions APIs (including
// DeepSeek, which the assistant was originally built against) to the generic
// provider.Provider interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/avilaj/rassist/provider"
)

// Options configures the adapter. BaseURL selects the compatible endpoint
// (e.g. https://api.deepseek.com/v1); leave empty for api.openai.com.
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

// Provider wraps the Chat Completions API behind provider.Provider.
type Provider struct {
	client     *openai.Client
	opts       Options
	configured bool
}

// New creates an adapter. A missing API key does not fail construction; the
// adapter reports ErrUnconfigured on first use so the pipeline can fall back
// to demo output.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:     "deepseek-chat",
		MaxTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &Provider{
		client:     &client,
		opts:       opts,
		configured: opts.APIKey != "",
	}
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	if !p.configured {
		return "", provider.ErrUnconfigured
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       p.opts.Model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(p.opts.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choice list")
	}

	return resp.Choices[0].Message.Content, nil
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{Name: p.opts.Model, Vendor: "openai-compatible"}
}
