package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"conexiones-backend/application/ports"
	"conexiones-backend/application/services/composer"
	"conexiones-backend/infrastructure/observability"
	"conexiones-backend/pkg/api"
	appErrors "conexiones-backend/pkg/errors"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	session    *composer.Session
	completion ports.CompletionClient
	metrics    *observability.Collector
	logger     *zap.Logger
}

// NewStoryHandler creates a new story handler. completion may be nil when no
// provider is configured; direct generation then reports a configuration
// error.
func NewStoryHandler(
	session *composer.Session,
	completion ports.CompletionClient,
	metrics *observability.Collector,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		session:    session,
		completion: completion,
		metrics:    metrics,
		logger:     logger,
	}
}

// GetStory handles GET /api/story
func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()

	api.Success(w, http.StatusOK, api.StoryResponse{
		Story:         snap.Story.Text,
		FragmentIDs:   snap.Story.SourceFragmentIDs,
		FragmentCount: snap.FragmentCount,
		Strategy:      snap.Strategy,
	})
}

// generatePayload keeps fragments raw so a non-array value can be rejected
// with a precise message.
type generatePayload struct {
	Fragments json.RawMessage `json:"fragments"`
	Context   string          `json:"context"`
	Model     string          `json:"model"`
}

// GenerateStory handles POST /api/story/generate. The fragments in the body
// are sent to the completion provider directly, bypassing the session
// window.
func (h *StoryHandler) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var payload generatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	fragments, err := decodeFragments(payload.Fragments)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "`fragments` must be an array")
		return
	}

	if h.completion == nil {
		api.Error(w, http.StatusInternalServerError, "OPENAI_API_KEY is not set")
		return
	}

	prompt := composer.BuildPrompt(fragments, payload.Context)

	text, err := h.completion.Complete(r.Context(), prompt, payload.Model)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ProviderFailures.Inc()
		}
		h.respondGenerationError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.StoriesComposed.WithLabelValues("llm").Inc()
	}

	api.Success(w, http.StatusOK, api.GenerateStoryResponse{Story: text})
}

// decodeFragments accepts a JSON array, coercing non-string elements to
// their text form. A missing or null value means no fragments.
func decodeFragments(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var elements []interface{}
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, err
	}

	fragments := make([]string, 0, len(elements))
	for _, el := range elements {
		switch v := el.(type) {
		case string:
			fragments = append(fragments, v)
		case nil:
			fragments = append(fragments, "")
		default:
			fragments = append(fragments, fmt.Sprintf("%v", v))
		}
	}
	return fragments, nil
}

func (h *StoryHandler) respondGenerationError(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsConfiguration(err):
		h.logger.Error("completion provider not configured", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, appErrors.MessageOf(err))

	case appErrors.IsProvider(err):
		status := appErrors.StatusOf(err)
		if status < 400 {
			status = http.StatusBadGateway
		}
		h.logger.Warn("completion provider rejected request",
			zap.Int("upstreamStatus", appErrors.StatusOf(err)),
			zap.Error(err),
		)
		api.Error(w, status, appErrors.MessageOf(err))

	default:
		h.logger.Error("story generation failed", zap.Error(err))
		api.Error(w, http.StatusBadGateway, appErrors.MessageOf(err))
	}
}
