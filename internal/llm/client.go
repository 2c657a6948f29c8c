package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrProvider marks a terminal provider failure: the fallback itself failed
// and there is nothing left to fall back to.
var ErrProvider = errors.New("llm provider failure")

// state is the client's position in its two-state failover machine.
type state int

const (
	statePrimary state = iota
	stateFallback
)

// Client invokes the primary provider and fails over to the local fallback
// on initialization failure, payload-too-large, rate limiting, or any other
// invocation error. The transition is one-way: once on fallback the client
// stays there for its lifetime. Clients are created per analysis run, so
// fallback state never leaks across unrelated requests.
type Client struct {
	primary  Provider
	fallback Provider
	state    state
	logger   *slog.Logger
}

// NewClient builds a client from configuration. A primary that cannot be
// initialized (missing API key) puts the client straight into fallback.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fallback, err := newOllamaProvider(cfg.OllamaHost, cfg.OllamaModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	c := &Client{fallback: fallback, logger: logger}

	primary, err := newGroqProvider(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL)
	if err != nil {
		logger.Warn("Primary provider unavailable, starting on fallback", "error", err)
		c.state = stateFallback
		return c, nil
	}
	c.primary = primary
	logger.Info("LLM client initialized", "primary", primary.Name(), "fallback", fallback.Name())
	return c, nil
}

// NewClientWithProviders builds a client around explicit providers. A nil
// primary starts the client in fallback state.
func NewClientWithProviders(primary, fallback Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{primary: primary, fallback: fallback, logger: logger}
	if primary == nil {
		c.state = stateFallback
	}
	return c
}

// OnFallback reports whether the client has switched to the local provider.
func (c *Client) OnFallback() bool { return c.state == stateFallback }

// Invoke sends the messages and returns the normalized text response. On a
// primary failure the same message list is re-issued against the fallback;
// a fallback failure propagates as ErrProvider.
func (c *Client) Invoke(ctx context.Context, messages []Message) (string, error) {
	if c.state == statePrimary {
		resp, err := c.primary.Invoke(ctx, messages)
		if err == nil {
			return resp.AsText()
		}
		c.logger.Warn("Primary provider failed, switching to fallback",
			"provider", c.primary.Name(),
			"reason", failoverReason(err),
			"error", err)
		c.state = stateFallback
	}

	resp, err := c.fallback.Invoke(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProvider, c.fallback.Name(), err)
	}
	return resp.AsText()
}
