package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	ollama "github.com/JexSrs/go-ollama"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultGroqModel is the default hosted model.
	DefaultGroqModel = "mixtral-8x7b-32768"

	// DefaultOllamaHost is the default local provider endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the default local model.
	DefaultOllamaModel = "llama3"
)

// Provider is a single language-model backend.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, messages []Message) (Response, error)
}

// groqProvider calls Groq through its OpenAI-compatible chat API.
type groqProvider struct {
	client *openai.Client
	model  string
}

// newGroqProvider builds the hosted provider. A missing API key is an
// initialization failure the client turns into immediate fallback.
func newGroqProvider(apiKey, model, baseURL string) (*groqProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq API key not set")
	}
	if model == "" {
		model = DefaultGroqModel
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &groqProvider{client: &client, model: model}, nil
}

func (p *groqProvider) Name() string { return "groq" }

func (p *groqProvider) Invoke(ctx context.Context, messages []Message) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
		Model:    p.model,
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}
	return Text(resp.Choices[0].Message.Content), nil
}

// failoverReason classifies a primary-provider error for logging. Every
// error triggers failover; 413 and 429 are named because they are the
// expected steady-state reasons.
func failoverReason(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 413:
			return "payload too large"
		case 429:
			return "rate limited"
		}
	}
	return "invocation error"
}

// ollamaProvider calls a locally hosted model.
type ollamaProvider struct {
	client *ollama.Ollama
	model  string
}

func newOllamaProvider(host, model string) (*ollamaProvider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &ollamaProvider{client: ollama.New(*u), model: model}, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }

// Invoke generates a completion. The go-ollama client takes no context, so
// the call runs in a goroutine and the deadline is enforced here; an
// expired context wins over a late response.
func (p *ollamaProvider) Invoke(ctx context.Context, messages []Message) (Response, error) {
	var system, prompt []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
		} else {
			prompt = append(prompt, m.Content)
		}
	}

	type outcome struct {
		resp Response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.client.Generate(
			p.client.Generate.WithModel(p.model),
			p.client.Generate.WithSystem(strings.Join(system, "\n\n")),
			p.client.Generate.WithPrompt(strings.Join(prompt, "\n\n")),
		)
		switch {
		case err != nil:
			done <- outcome{err: fmt.Errorf("ollama generate: %w", err)}
		case !res.Done:
			done <- outcome{err: fmt.Errorf("ollama returned an unfinished response")}
		default:
			done <- outcome{resp: Text(strings.TrimSpace(res.Response))}
		}
	}()

	select {
	case <-ctx.Done():
		return Response{}, fmt.Errorf("ollama generate: %w", ctx.Err())
	case out := <-done:
		return out.resp, out.err
	}
}

// Config holds provider settings, usually read from the environment.
type Config struct {
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string
	OllamaHost  string
	OllamaModel string
}

// ConfigFromEnv reads provider settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqModel:   os.Getenv("GROQ_MODEL"),
		GroqBaseURL: os.Getenv("GROQ_BASE_URL"),
		OllamaHost:  os.Getenv("OLLAMA_HOST"),
		OllamaModel: os.Getenv("OLLAMA_MODEL"),
	}
}
