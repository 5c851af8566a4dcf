// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

import (
	"time"

	"conexiones-backend/domain/story"
)

// CreateFragmentRequest is the expected body for a POST /api/fragments request.
type CreateFragmentRequest struct {
	Keyword string `json:"keyword" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// FragmentResponse is the API representation of a single fragment.
type FragmentResponse struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FragmentListResponse wraps a set of fragments.
type FragmentListResponse struct {
	Fragments []FragmentResponse `json:"fragments"`
	Count     int                `json:"count"`
}

// StoryResponse carries the currently composed story.
type StoryResponse struct {
	Story         string   `json:"story"`
	FragmentIDs   []string `json:"fragmentIds,omitempty"`
	FragmentCount int      `json:"fragmentCount"`
	Strategy      string   `json:"strategy"`
}

// GenerateStoryResponse is the body returned on a successful generation.
// The request body is decoded by the story handler, which needs the
// fragments field raw to reject non-array payloads precisely.
type GenerateStoryResponse struct {
	Story string `json:"story"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromFragment converts a domain fragment to its API representation.
func FromFragment(f story.Fragment) FragmentResponse {
	return FragmentResponse{
		ID:        f.ID,
		Keyword:   f.Keyword,
		Content:   f.Content,
		CreatedAt: f.CreatedAt,
	}
}

// FromFragments converts a slice of domain fragments. A nil slice becomes an
// empty list so JSON encodes [] instead of null.
func FromFragments(fragments []story.Fragment) []FragmentResponse {
	out := make([]FragmentResponse, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, FromFragment(f))
	}
	return out
}
