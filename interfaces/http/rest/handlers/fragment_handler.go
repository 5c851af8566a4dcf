// Package handlers contains the REST request handlers.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"conexiones-backend/application/ports"
	"conexiones-backend/application/services/composer"
	"conexiones-backend/domain/story"
	"conexiones-backend/infrastructure/observability"
	"conexiones-backend/pkg/api"
	appErrors "conexiones-backend/pkg/errors"
	"conexiones-backend/pkg/utils"
)

// maxListLimit caps the recent-fragments listing.
const maxListLimit = 100

// FragmentHandler handles fragment-related HTTP requests
type FragmentHandler struct {
	session *composer.Session
	repo    ports.FragmentRepository
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewFragmentHandler creates a new fragment handler
func NewFragmentHandler(
	session *composer.Session,
	repo ports.FragmentRepository,
	metrics *observability.Collector,
	logger *zap.Logger,
) *FragmentHandler {
	return &FragmentHandler{
		session: session,
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateFragment handles POST /api/fragments
func (h *FragmentHandler) CreateFragment(w http.ResponseWriter, r *http.Request) {
	var req api.CreateFragmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		api.Error(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	fragment, err := h.session.Submit(r.Context(), req.Keyword, req.Content)
	if err != nil {
		h.respondError(w, err, "failed to create fragment")
		return
	}

	if h.metrics != nil {
		h.metrics.FragmentsCreated.Inc()
	}

	api.Success(w, http.StatusCreated, api.FromFragment(fragment))
}

// ListRecent handles GET /api/fragments
func (h *FragmentHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = story.DefaultWindowSize
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	fragments, err := h.repo.FetchRecent(r.Context(), limit)
	if err != nil {
		h.respondError(w, err, "failed to list fragments")
		return
	}

	api.Success(w, http.StatusOK, api.FragmentListResponse{
		Fragments: api.FromFragments(fragments),
		Count:     len(fragments),
	})
}

// Search handles GET /api/search
func (h *FragmentHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		api.Error(w, http.StatusBadRequest, "Search query is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	fragments, err := h.repo.Search(r.Context(), term, limit)
	if err != nil {
		h.respondError(w, err, "search failed")
		return
	}

	api.Success(w, http.StatusOK, api.FragmentListResponse{
		Fragments: api.FromFragments(fragments),
		Count:     len(fragments),
	})
}

func (h *FragmentHandler) respondError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case appErrors.IsValidation(err):
		api.Error(w, http.StatusBadRequest, appErrors.MessageOf(err))
	case appErrors.IsStoreUnavailable(err):
		h.logger.Error(logMsg, zap.Error(err))
		api.Error(w, http.StatusServiceUnavailable, "Fragment store is unavailable")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
