// Package supabase adapts the hosted PostgREST fragment table to the
// application's repository port. The client is constructed once at process
// start and shared by reference; it holds no mutable state of its own.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"conexiones-backend/domain/story"
	appErrors "conexiones-backend/pkg/errors"
)

// SearchLimit caps search results, matching the web client's behavior.
const SearchLimit = 50

// OperationObserver records store call outcomes and latencies. The
// observability Collector implements it.
type OperationObserver interface {
	ObserveStoreOperation(operation string, start time.Time, err error)
}

// FragmentRepository reads and inserts fragments against a Supabase table.
type FragmentRepository struct {
	client   *supabase.Client
	table    string
	observer OperationObserver
	logger   *zap.Logger
}

// NewFragmentRepository builds the store client. Construct once and pass by
// reference to consumers. observer may be nil.
func NewFragmentRepository(url, key, table string, observer OperationObserver, logger *zap.Logger) (*FragmentRepository, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("failed to create store client", err)
	}
	return &FragmentRepository{
		client:   client,
		table:    table,
		observer: observer,
		logger:   logger.With(zap.String("table", table)),
	}, nil
}

func (r *FragmentRepository) observe(operation string, start time.Time, err error) {
	if r.observer != nil {
		r.observer.ObserveStoreOperation(operation, start, err)
	}
}

// FetchRecent returns up to limit fragments, most recent first.
func (r *FragmentRepository) FetchRecent(ctx context.Context, limit int) ([]story.Fragment, error) {
	start := time.Now()
	data, _, err := r.client.From(r.table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteWithContext(ctx)
	r.observe("fetch_recent", start, err)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("failed to fetch recent fragments", err)
	}

	return decodeRows(data)
}

// Insert persists a fragment and returns the created row with the
// store-assigned id and timestamp.
func (r *FragmentRepository) Insert(ctx context.Context, keyword, content string) (story.Fragment, error) {
	payload := map[string]string{
		"keyword": keyword,
		"content": content,
	}

	start := time.Now()
	data, _, err := r.client.From(r.table).
		Insert(payload, false, "", "representation", "").
		ExecuteWithContext(ctx)
	r.observe("insert", start, err)
	if err != nil {
		return story.Fragment{}, appErrors.NewStoreUnavailable("failed to insert fragment", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return story.Fragment{}, err
	}
	if len(rows) == 0 {
		return story.Fragment{}, appErrors.NewStoreUnavailable("insert returned no row", nil)
	}

	r.logger.Info("fragment inserted",
		zap.String("fragmentID", rows[0].ID),
		zap.String("keyword", rows[0].Keyword),
	)
	return rows[0], nil
}

// Search matches term as a case-insensitive substring against keywords
// first, falling back to content when no keyword matches. Most recent first.
func (r *FragmentRepository) Search(ctx context.Context, term string, limit int) ([]story.Fragment, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	pattern := fmt.Sprintf("%%%s%%", term)

	byKeyword, err := r.searchColumn(ctx, "keyword", pattern, limit)
	if err != nil {
		return nil, err
	}
	if len(byKeyword) > 0 {
		return byKeyword, nil
	}

	return r.searchColumn(ctx, "content", pattern, limit)
}

func (r *FragmentRepository) searchColumn(ctx context.Context, column, pattern string, limit int) ([]story.Fragment, error) {
	start := time.Now()
	data, _, err := r.client.From(r.table).
		Select("*", "", false).
		Ilike(column, pattern).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteWithContext(ctx)
	r.observe("search", start, err)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("failed to search fragments", err)
	}

	return decodeRows(data)
}

func decodeRows(data []byte) ([]story.Fragment, error) {
	var rows []story.Fragment
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, appErrors.NewStoreUnavailable("failed to decode store response", err)
	}
	return rows, nil
}
