// Package ai holds the model-facing clients: summarization, podcast script
// generation, embeddings, and speech synthesis.
package ai

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// Summary is the validated shape of a summarizer response. PodcastScript is
// an optional side artifact: when present the pipeline reuses it and skips
// the dedicated script-generation call.
type Summary struct {
	Summary       string   `json:"summary"`
	KeyPoints     []string `json:"key_points"`
	Tags          []string `json:"tags,omitempty"`
	Sentiment     string   `json:"sentiment,omitempty"`
	PodcastScript string   `json:"podcast_script,omitempty"`
}

// Summarizer generates article summaries via the Anthropic API.
type Summarizer struct {
	client *anthropic.Client
	model  ModelSpec

	// Prompt overrides the built-in summary prompt when set. It must contain
	// a single %s placeholder for the article text.
	Prompt string
}

func NewSummarizer(apiKey, model string) *Summarizer {
	return &Summarizer{
		client: anthropic.NewClient(apiKey),
		model:  ResolveModel(model),
	}
}

const summaryPrompt = `Analyze the following article and respond with a single JSON object, no prose:
{
  "summary": "2-3 sentence summary",
  "key_points": ["3-5 key takeaways"],
  "tags": ["3-5 topical tags"],
  "sentiment": "positive | neutral | negative",
  "podcast_script": "a 200-300 word narration of the article for a solo podcast host, conversational tone"
}

Article:
%s`

// Summarize invokes the model and validates the returned shape. A malformed
// response or missing required field is an error; the caller treats it as a
// stage failure for the current attempt.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*Summary, error) {
	const maxContentLen = 20000
	if len(text) > maxContentLen {
		text = text[:maxContentLen]
	}

	template := s.Prompt
	if template == "" {
		template = summaryPrompt
	}
	prompt := fmt.Sprintf(template, text)

	resp, err := s.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(s.model.Name),
		MaxTokens: s.model.MaxTokens,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("summarize: empty response")
	}

	var summary Summary
	if err := decodeJSONResponse(resp.Content[0].GetText(), &summary); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	if err := validateSummary(&summary); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return &summary, nil
}

func validateSummary(s *Summary) error {
	if s.Summary == "" {
		return fmt.Errorf("response missing summary")
	}
	if len(s.KeyPoints) == 0 {
		return fmt.Errorf("response missing key_points")
	}
	return nil
}
