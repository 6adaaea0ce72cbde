package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/internal/domain/models"
	"github.com/turtacn/sentra/internal/domain/service"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

const systemPrompt = "You are a data reliability analyst. Respond with a single JSON object and nothing else."

// OpenAIClient implements service.ReasoningOracle against an OpenAI-compatible
// chat completion endpoint. JSON mode is enforced so responses parse into the
// structured maps the pipeline stages expect.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger logger.Logger
}

// NewOpenAIClient builds the oracle client. An empty API key yields a client
// that reports itself unavailable, which pushes the gateway onto fallbacks.
func NewOpenAIClient(cfg *config.OracleConfig, log logger.Logger) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = constants.OracleDefaultModel
	}

	oc := &OpenAIClient{model: model, logger: log}
	if cfg.APIKey == "" {
		return oc
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	oc.client = openai.NewClientWithConfig(clientConfig)
	return oc
}

var _ service.ReasoningOracle = (*OpenAIClient)(nil)

// Available reports whether credentials are configured.
func (c *OpenAIClient) Available() bool {
	return c.client != nil
}

// Infer sends a prompt and parses the structured JSON response.
func (c *OpenAIClient) Infer(ctx context.Context, stage constants.Stage, prompt string) (map[string]interface{}, models.OracleMeta, error) {
	meta := models.OracleMeta{
		Provider: "openai",
		Model:    c.model,
	}
	if c.client == nil {
		return nil, meta, fmt.Errorf("oracle client not configured")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, meta, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, meta, fmt.Errorf("chat completion returned no choices")
	}

	var result map[string]interface{}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		c.logger.Warn(ctx, "Oracle returned malformed JSON",
			logger.String("stage", string(stage)),
			logger.Int("content_len", len(content)),
		)
		return nil, meta, fmt.Errorf("parse oracle response: %w", err)
	}
	return result, meta, nil
}
