package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// #region client

// OllamaClient serves both the Oracle and Embedder interfaces from a local
// Ollama instance.
type OllamaClient struct {
	client     *ollama.Client
	model      string
	embedModel string
	timeout    time.Duration
}

// NewOllamaClient connects to OLLAMA_HOST (default http://localhost:11434).
// model generates text; embedModel produces embeddings
// (default nomic-embed-text).
func NewOllamaClient(model, embedModel string, timeout time.Duration) (*OllamaClient, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	return &OllamaClient{
		client:     ollama.NewClient(u, httpClient),
		model:      model,
		embedModel: embedModel,
		timeout:    timeout,
	}, nil
}

// #endregion client

// #region generate

// Generate implements Oracle. The streamed chunks are accumulated into one
// response; the call is bounded by the client timeout.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var text strings.Builder
	req := &ollama.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
	}
	err := c.client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return text.String(), nil
}

// #endregion generate

// #region embed

// Embed implements Embedder.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.Embed(ctx, &ollama.EmbedRequest{
		Model: c.embedModel,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding for model %s", c.embedModel)
	}
	return res.Embeddings[0], nil
}

// #endregion embed
