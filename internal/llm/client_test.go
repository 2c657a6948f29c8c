package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns a scripted sequence of responses/errors.
type stubProvider struct {
	name      string
	responses []Response
	errs      []error
	calls     int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Invoke(_ context.Context, _ []Message) (Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return Text(""), nil
}

func TestInvoke_PrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "primary", responses: []Response{Text("primary answer")}}
	fallback := &stubProvider{name: "fallback"}

	c := NewClientWithProviders(primary, fallback, nil)
	out, err := c.Invoke(context.Background(), []Message{UserMessage("hello")})

	require.NoError(t, err)
	assert.Equal(t, "primary answer", out)
	assert.False(t, c.OnFallback())
	assert.Zero(t, fallback.calls)
}

func TestInvoke_RateLimitSwitchesToFallback(t *testing.T) {
	primary := &stubProvider{
		name: "primary",
		errs: []error{&openai.Error{StatusCode: 429}},
	}
	fallback := &stubProvider{name: "fallback", responses: []Response{Text("fallback answer")}}

	c := NewClientWithProviders(primary, fallback, nil)
	out, err := c.Invoke(context.Background(), []Message{UserMessage("hello")})

	require.NoError(t, err)
	assert.Equal(t, "fallback answer", out)
	assert.True(t, c.OnFallback())
}

func TestInvoke_NoReverseTransition(t *testing.T) {
	primary := &stubProvider{
		name:      "primary",
		errs:      []error{errors.New("outage"), nil},
		responses: []Response{{}, Text("primary again")},
	}
	fallback := &stubProvider{
		name:      "fallback",
		responses: []Response{Text("first"), Text("second")},
	}

	c := NewClientWithProviders(primary, fallback, nil)

	_, err := c.Invoke(context.Background(), []Message{UserMessage("one")})
	require.NoError(t, err)
	require.True(t, c.OnFallback())

	out, err := c.Invoke(context.Background(), []Message{UserMessage("two")})
	require.NoError(t, err)
	assert.Equal(t, "second", out)
	assert.Equal(t, 1, primary.calls, "primary must not be retried after failover")
}

func TestInvoke_FallbackFailurePropagates(t *testing.T) {
	primary := &stubProvider{name: "primary", errs: []error{errors.New("boom")}}
	fallback := &stubProvider{name: "fallback", errs: []error{errors.New("refused")}}

	c := NewClientWithProviders(primary, fallback, nil)
	_, err := c.Invoke(context.Background(), []Message{UserMessage("hello")})

	assert.ErrorIs(t, err, ErrProvider)
}

func TestInvoke_NilPrimaryStartsOnFallback(t *testing.T) {
	fallback := &stubProvider{name: "fallback", responses: []Response{Text("local")}}

	c := NewClientWithProviders(nil, fallback, nil)
	require.True(t, c.OnFallback())

	out, err := c.Invoke(context.Background(), []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "local", out)
}

func TestAsText_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		want    string
		wantErr bool
	}{
		{name: "plain text", resp: Text("hello"), want: "hello"},
		{name: "structured with content", resp: Structured(map[string]any{"content": "mapped"}), want: "mapped"},
		{name: "structured without content", resp: Structured(map[string]any{"body": "x"}), wantErr: true},
		{name: "structured non-string content", resp: Structured(map[string]any{"content": 42}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resp.AsText()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnexpectedShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoke_StructuredFallbackResponseNormalized(t *testing.T) {
	primary := &stubProvider{name: "primary", errs: []error{&openai.Error{StatusCode: 413}}}
	fallback := &stubProvider{
		name:      "fallback",
		responses: []Response{Structured(map[string]any{"content": "from map"})},
	}

	c := NewClientWithProviders(primary, fallback, nil)
	out, err := c.Invoke(context.Background(), []Message{UserMessage("big payload")})

	require.NoError(t, err)
	assert.Equal(t, "from map", out)
}
