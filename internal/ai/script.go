package ai

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// ScriptWriter is the fallback podcast-script generator, used only when the
// summarizer did not already produce a script artifact.
type ScriptWriter struct {
	client *anthropic.Client
	model  ModelSpec
}

func NewScriptWriter(apiKey, model string) *ScriptWriter {
	return &ScriptWriter{
		client: anthropic.NewClient(apiKey),
		model:  ResolveModel(model),
	}
}

const scriptPrompt = `Write a 200-300 word narration of this article for a solo podcast host.
Conversational tone, no headings, no stage directions. Respond with the narration text only.

Title: %s

Article:
%s`

func (w *ScriptWriter) WriteScript(ctx context.Context, title, text string) (string, error) {
	const maxContentLen = 20000
	if len(text) > maxContentLen {
		text = text[:maxContentLen]
	}

	prompt := fmt.Sprintf(scriptPrompt, title, text)

	resp, err := w.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(w.model.Name),
		MaxTokens: w.model.MaxTokens,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("write script: empty response")
	}
	return resp.Content[0].GetText(), nil
}
