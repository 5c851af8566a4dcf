package composer

import (
	"context"
	"strings"

	"conexiones-backend/domain/story"
)

// DefaultSegmentLimit is how many fragments become narrative segments in
// the template strategy.
const DefaultSegmentLimit = 6

// templateIntro opens every template-composed story.
const templateIntro = "Esta historia se genera automáticamente a partir de los fragmentos más recientes:"

// connectors are consumed in position order, one per segment. Positions
// beyond the list fall back to the generic connector.
var connectors = []string{
	"Todo comienza con",
	"Luego aparece",
	"Más tarde llega",
	"Entre tanto surge",
	"Casi al final emerge",
	"Finalmente queda",
}

const genericConnector = "Y también"

// TemplateComposer composes a story locally and deterministically, with no
// network access. It is the strategy used when no LLM credential is
// configured.
type TemplateComposer struct {
	segmentLimit int
}

// NewTemplateComposer creates a template composer that uses up to
// segmentLimit fragments as narrative segments (DefaultSegmentLimit when
// zero or negative).
func NewTemplateComposer(segmentLimit int) *TemplateComposer {
	if segmentLimit <= 0 {
		segmentLimit = DefaultSegmentLimit
	}
	return &TemplateComposer{segmentLimit: segmentLimit}
}

// Name identifies the strategy in logs and metrics.
func (c *TemplateComposer) Name() string {
	return "template"
}

// Compose renders one segment per fragment, up to the segment limit, in
// window order. Idempotent for an unchanged window.
func (c *TemplateComposer) Compose(_ context.Context, fragments []story.Fragment) (story.ComposedStory, error) {
	if len(fragments) == 0 {
		return story.ComposedStory{}, nil
	}

	selected := fragments
	if len(selected) > c.segmentLimit {
		selected = selected[:c.segmentLimit]
	}

	parts := make([]string, 0, len(selected)+1)
	parts = append(parts, templateIntro)

	for i, f := range selected {
		connector := genericConnector
		if i < len(connectors) {
			connector = connectors[i]
		}

		var segment strings.Builder
		segment.WriteString(connector)
		if keyword := strings.TrimSpace(f.Keyword); keyword != "" {
			segment.WriteString(" ")
			segment.WriteString(keyword)
		}
		segment.WriteString(". ")
		segment.WriteString(strings.TrimSpace(f.Content))

		parts = append(parts, segment.String())
	}

	return story.ComposedStory{
		Text:              strings.Join(parts, "\n\n"),
		SourceFragmentIDs: story.SourceIDs(selected),
	}, nil
}
