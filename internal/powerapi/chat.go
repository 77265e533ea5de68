package powerapi

import (
	"context"
)

// Chat asks the AI assistant and returns the whole answer at once.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	prompt, err := requireText("prompt", prompt)
	if err != nil {
		return "", err
	}
	var answer string
	if err := c.p.Post(ctx, "/api/chat", map[string]string{"prompt": prompt}, &answer); err != nil {
		return "", err
	}
	return answer, nil
}

// SendMessage posts to the rule-based assistant.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msg, err := requireText("message", req.Message)
	if err != nil {
		return nil, err
	}
	req.Message = msg
	var res ChatResponse
	if err := c.p.Post(ctx, "/api/chat/send", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ChatHistory lists the stored exchanges of a session.
func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]ChatRecord, error) {
	id, err := requireText("sessionId", sessionID)
	if err != nil {
		return nil, err
	}
	var records []ChatRecord
	if err := c.p.Get(ctx, "/api/chat/history/"+segment(id), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ChatHealth returns nil when the chat service answers.
func (c *Client) ChatHealth(ctx context.Context) error {
	return c.p.Get(ctx, "/api/chat/health", nil)
}
