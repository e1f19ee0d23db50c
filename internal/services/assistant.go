package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"carelink/internal/models"

	"github.com/sashabaranov/go-openai"
)

// DefaultPersona 助手的系统提示
const DefaultPersona = "You are a careful health assistant on a community platform for patients and doctors. " +
	"Give general information only, suggest seeing a doctor for diagnosis, and answer in the user's language."

// Turn is one message of an assistant conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

type AssistantService struct {
	client  *openai.Client
	model   string
	persona string
}

var assistantService *AssistantService

// GetAssistantService 读取 LLM_BASE_URL / LLM_TOKEN / LLM_MODEL 构造单例
func GetAssistantService() *AssistantService {
	if assistantService == nil {
		assistantService = NewAssistantService(
			os.Getenv("LLM_BASE_URL"),
			os.Getenv("LLM_TOKEN"),
			os.Getenv("LLM_MODEL"),
			nil,
		)
	}
	return assistantService
}

// NewAssistantService talks to any OpenAI-compatible chat endpoint.
func NewAssistantService(baseURL, token, model string, httpClient *http.Client) *AssistantService {
	cfg := openai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &AssistantService{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		persona: DefaultPersona,
	}
}

// Reply 把历史对话加上新问题发给模型，返回助手的回答（Markdown）
func (s *AssistantService) Reply(ctx context.Context, history []Turn, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", models.NewValidationError("question is required")
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.persona})
	for _, t := range history {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: msgs,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		slog.Error("Assistant API call failed", "error", err)
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return "", models.NewInternalError(fmt.Errorf("assistant credentials rejected: %w", err))
		}
		return "", models.NewNetworkError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", models.NewInternalError(errors.New("assistant returned no answer"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
