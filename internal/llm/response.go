package llm

import (
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned when a provider response cannot be
// normalized to plain text.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Response is the tagged union of shapes a provider can return: plain text
// or a structured mapping. Normalization to text happens in one place,
// AsText, instead of shape checks scattered through callers.
type Response struct {
	text       string
	fields     map[string]any
	structured bool
}

// Text wraps a plain string response.
func Text(s string) Response {
	return Response{text: s}
}

// Structured wraps a mapping-shaped response.
func Structured(fields map[string]any) Response {
	return Response{fields: fields, structured: true}
}

// AsText normalizes the response to plain text. Structured responses must
// carry a string under the "content" key; anything else is an
// ErrUnexpectedShape.
func (r Response) AsText() (string, error) {
	if !r.structured {
		return r.text, nil
	}
	raw, ok := r.fields["content"]
	if !ok {
		return "", fmt.Errorf("%w: structured response without content key", ErrUnexpectedShape)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: content is %T, not string", ErrUnexpectedShape, raw)
	}
	return s, nil
}
