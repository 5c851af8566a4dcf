package composer

import (
	"context"

	"conexiones-backend/application/ports"
	"conexiones-backend/domain/story"
	appErrors "conexiones-backend/pkg/errors"
)

// LLMComposer delegates composition to an external completion endpoint.
// Non-deterministic; no retries — retry policy belongs to the caller.
type LLMComposer struct {
	client ports.CompletionClient
	model  string
}

// NewLLMComposer creates an LLM-delegated composer. model may be empty to
// use the client's default.
func NewLLMComposer(client ports.CompletionClient, model string) *LLMComposer {
	return &LLMComposer{client: client, model: model}
}

// Name identifies the strategy in logs and metrics.
func (c *LLMComposer) Name() string {
	return "llm"
}

// Compose builds a prompt from the window's fragment contents and sends it
// to the completion client. The response text becomes the story verbatim.
func (c *LLMComposer) Compose(ctx context.Context, fragments []story.Fragment) (story.ComposedStory, error) {
	if len(fragments) == 0 {
		return story.ComposedStory{}, nil
	}

	contents := make([]string, len(fragments))
	for i, f := range fragments {
		contents[i] = f.Content
	}

	text, err := c.client.Complete(ctx, BuildPrompt(contents, ""), c.model)
	if err != nil {
		return story.ComposedStory{}, appErrors.NewGeneration("story generation failed", err)
	}
	if text == "" {
		return story.ComposedStory{}, appErrors.NewGeneration("story generation returned no text", nil)
	}

	return story.ComposedStory{
		Text:              text,
		SourceFragmentIDs: story.SourceIDs(fragments),
	}, nil
}
