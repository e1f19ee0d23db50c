package controllers

import (
	"context"
	"html/template"
	"strings"
	"sync"
	"time"

	"carelink/internal/models"
	"carelink/internal/services"
	"carelink/internal/utils"
)

// Assistant answers questions given the conversation so far.
type Assistant interface {
	Reply(ctx context.Context, history []services.Turn, question string) (string, error)
}

// Message is one rendered line of the conversation.
type Message struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	HTML    template.HTML `json:"html"`
	At      time.Time     `json:"at"`
}

// AssistantController keeps one conversation with the AI assistant.
type AssistantController struct {
	ai     Assistant
	toasts *Toasts
	status statusBox

	mu      sync.Mutex
	history []Message
	now     func() time.Time
}

func NewAssistantController(ai Assistant, env Env) *AssistantController {
	return &AssistantController{
		ai:     ai,
		toasts: NewToasts(env.ToastTTL),
		status: statusBox{s: Status{Phase: PhaseIdle}},
		now:    time.Now,
	}
}

func (c *AssistantController) Status() Status  { return c.status.get() }
func (c *AssistantController) Toasts() *Toasts { return c.toasts }

func (c *AssistantController) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.history...)
}

// Ask 提问。只有拿到回答后问题和回答才一起进入历史，失败时历史不变
func (c *AssistantController) Ask(ctx context.Context, question string) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		err := models.NewValidationError("question is required")
		c.toasts.Error(err)
		return Message{}, err
	}

	c.mu.Lock()
	turns := make([]services.Turn, 0, len(c.history))
	for _, m := range c.history {
		turns = append(turns, services.Turn{Role: m.Role, Content: m.Content})
	}
	c.mu.Unlock()

	c.status.loading()
	answer, err := c.ai.Reply(ctx, turns, question)
	if err != nil {
		c.status.fail(err)
		c.toasts.Error(err)
		return Message{}, err
	}
	c.status.ready()

	now := c.now()
	q := Message{Role: services.RoleUser, Content: question, HTML: template.HTML(template.HTMLEscapeString(question)), At: now}
	a := Message{Role: services.RoleAssistant, Content: answer, HTML: utils.RenderMarkdown(answer), At: now}
	c.mu.Lock()
	c.history = append(c.history, q, a)
	c.mu.Unlock()
	return a, nil
}

// Reset clears the conversation.
func (c *AssistantController) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}
