// Package provider abstracts the upstream completion service behind a
// minimal interface so stages never depend on a concrete vendor SDK.
// Adapters for DeepSeek/OpenAI-compatible and Anthropic APIs live in
// subpackages; a deterministic mock supports tests.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnconfigured signals a missing credential rather than a transient
// failure. Stages react by substituting demo output instead of failing.
var ErrUnconfigured = errors.New("completion provider not configured")

// Request carries a rendered prompt to the provider. Prompt content is
// opaque to the pipeline; System may be empty.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
}

// Info describes a provider implementation.
type Info struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
}

// Provider is the external completion capability. Complete blocks on network
// I/O and is the only suspension point of a pipeline stage. Errors other
// than ErrUnconfigured are transient and may be retried once by the caller.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Info() Info
}

// Mock is a deterministic in-memory Provider for tests. Responses are keyed
// by prompt; unkeyed prompts echo a canned reply. Err, when set, is returned
// for every call.
type Mock struct {
	Responses map[string]string
	Err       error
	Calls     int
}

// NewMock constructs an empty mock provider.
func NewMock() *Mock { return &Mock{Responses: map[string]string{}} }

// AddResponse registers a canned completion for a prompt.
func (m *Mock) AddResponse(prompt, response string) { m.Responses[prompt] = response }

// Complete implements Provider.
func (m *Mock) Complete(_ context.Context, req Request) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if r, ok := m.Responses[req.Prompt]; ok {
		return r, nil
	}
	return fmt.Sprintf("mock completion for: %s", req.Prompt), nil
}

// Info implements Provider.
func (m *Mock) Info() Info { return Info{Name: "mock", Vendor: "test"} }
