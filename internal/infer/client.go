// Package infer abstracts the local model-serving endpoint. The rest of the
// pipeline depends only on the Client interface, so tests substitute a
// deterministic fake and deployments pick the wire protocol by config.
package infer

import "context"

// Request is a single completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Client is the inference capability handed to the prompt orchestrator.
type Client interface {
	// Infer submits one prompt and returns the model's text response.
	// Transient failures are reported as *RetryableError; a dead backend is
	// reported with an error wrapping ErrUnavailable.
	Infer(ctx context.Context, req Request) (string, error)
	Close()
}
