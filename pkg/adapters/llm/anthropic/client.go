package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

const defaultModel = "claude-sonnet-4-5"

// Client implements ports.LLMClient backed by the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
	logger *zap.Logger
}

// NewClient creates a new Anthropic client
func NewClient(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		logger: logger.Named("anthropic"),
	}, nil
}

// Complete returns a single text completion.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(req.MaxTokens),
		System:    systemBlocks(req.System),
		Messages:  chatMessages(req.Messages),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	c.logger.Debug("completion finished",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int64("output_tokens", resp.Usage.OutputTokens))
	return text, nil
}

// Step advances a tool-use exchange by one model turn.
func (c *Client) Step(ctx context.Context, req ports.StepRequest) (*ports.StepResult, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(req.MaxTokens),
		System:    systemBlocks(req.System),
		Messages:  stepMessages(req.Messages),
	}
	for _, spec := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: spec.Properties,
					Required:   spec.Required,
				},
			},
		})
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic step: %w", err)
	}

	result := &ports.StepResult{
		Done: resp.StopReason == anthropic.StopReasonEndTurn,
	}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Text += b.Text
		case anthropic.ToolUseBlock:
			result.ToolCalls = append(result.ToolCalls, ports.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: json.RawMessage(b.Input),
			})
		}
	}
	c.logger.Debug("step finished",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("tool_calls", len(result.ToolCalls)))
	return result, nil
}

// Stream generates a completion as a lazy sequence of text increments.
func (c *Client) Stream(ctx context.Context, req ports.CompletionRequest) (ports.TextStream, error) {
	stream := c.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(req.MaxTokens),
		System:    systemBlocks(req.System),
		Messages:  chatMessages(req.Messages),
	})
	return &textStream{stream: stream}, nil
}

// textStream adapts the SDK event stream to plain text increments.
type textStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *textStream) Recv() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				return d.Text, nil
			}
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream: %w", err)
	}
	return "", io.EOF
}

func (s *textStream) Close() error {
	return s.stream.Close()
}

func systemBlocks(system string) []anthropic.TextBlockParam {
	if system == "" {
		return nil
	}
	return []anthropic.TextBlockParam{{Text: system}}
}

// chatMessages maps plain messages to the API shape. System-role entries
// inside the message list (the rolling summary) are sent as user turns.
func chatMessages(msgs []ports.ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAgent {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func stepMessages(msgs []ports.StepMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == domain.RoleAgent {
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, oc := range m.Outcomes {
			blocks = append(blocks, anthropic.NewToolResultBlock(oc.CallID, oc.Content, oc.IsError))
		}
		if m.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		}
		if len(blocks) > 0 {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}
