package normalize

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joelkehle/brd-assistant/internal/fields"
)

const systemPrompt = "You are a business analyst helping a product owner write a Business Requirement Document. " +
	"Rewrite answers in clear, concise business language without adding facts. Respond with strict JSON only."

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicCaller struct {
	messages AnthropicMessager
	model    anthropic.Model
}

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	m := anthropic.ModelClaudeSonnet4_20250514
	if strings.TrimSpace(model) != "" {
		m = anthropic.Model(strings.TrimSpace(model))
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: m}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   1024,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// Model normalizes text through a single LLM call bounded by timeout. Every
// failure is reported as ErrNormalizationFailed; there are no retries.
type Model struct {
	caller  LLMCaller
	timeout time.Duration
}

func NewModel(caller LLMCaller, timeout time.Duration) *Model {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Model{caller: caller, timeout: timeout}
}

type answerReply struct {
	Value              string  `json:"value"`
	Confidence         float64 `json:"confidence"`
	NeedsClarification bool    `json:"needs_clarification"`
	FollowupQuestion   string  `json:"followup_question"`
}

type summaryReply struct {
	Summary string `json:"summary"`
}

func (m *Model) NormalizeAnswer(ctx context.Context, field fields.Definition, text string) (string, error) {
	prompt := fmt.Sprintf(`Field: %s
Field description: %s

User answer:
"""
%s
"""

Rewrite the answer for this field. Keep every concrete number, name and channel. Do not invent details.
Return JSON: {"value": string, "confidence": number between 0 and 1, "needs_clarification": boolean, "followup_question": string}`,
		field.Label, field.Description, text)

	var reply answerReply
	if err := m.generate(ctx, prompt, &reply); err != nil {
		return "", err
	}
	value := strings.TrimSpace(reply.Value)
	if value == "" {
		return "", fmt.Errorf("%w: empty value", ErrNormalizationFailed)
	}
	return value, nil
}

func (m *Model) SummarizeDocument(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`The following text was extracted from a document the user uploaded.
Summarize the business background it describes in at most five sentences: the current problem, who is affected and the impact.

Document:
"""
%s
"""

Return JSON: {"summary": string}`, text)

	var reply summaryReply
	if err := m.generate(ctx, prompt, &reply); err != nil {
		return "", err
	}
	summary := strings.TrimSpace(reply.Summary)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", ErrNormalizationFailed)
	}
	return summary, nil
}

func (m *Model) generate(ctx context.Context, prompt string, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := m.caller.GenerateJSON(callCtx, prompt)
	if err != nil {
		if isTimeout(err) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: timeout after %s: %v", ErrNormalizationFailed, m.timeout, err)
		}
		return fmt.Errorf("%w: transport: %v", ErrNormalizationFailed, err)
	}
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty response", ErrNormalizationFailed)
	}
	if err := parseLooseJSON(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrNormalizationFailed, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
