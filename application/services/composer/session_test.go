package composer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conexiones-backend/domain/story"
	appErrors "conexiones-backend/pkg/errors"
)

// fakeRepo is an in-memory FragmentRepository.
type fakeRepo struct {
	mu         sync.Mutex
	rows       []story.Fragment
	seq        int
	fetchLimit int
}

func (r *fakeRepo) FetchRecent(_ context.Context, limit int) ([]story.Fragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fetchLimit = limit
	out := make([]story.Fragment, 0, limit)
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}

func (r *fakeRepo) Insert(_ context.Context, keyword, content string) (story.Fragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	f := story.Fragment{
		ID:        fmt.Sprintf("row-%d", r.seq),
		Keyword:   keyword,
		Content:   content,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC),
	}
	r.rows = append(r.rows, f)
	return f, nil
}

func (r *fakeRepo) Search(_ context.Context, term string, limit int) ([]story.Fragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []story.Fragment
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.Contains(strings.ToLower(r.rows[i].Keyword), strings.ToLower(term)) {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

// gatedStrategy blocks each Compose call until its gate is released, so
// tests control completion order.
type gatedStrategy struct {
	mu      sync.Mutex
	gates   []chan struct{}
	started chan int
}

func newGatedStrategy() *gatedStrategy {
	return &gatedStrategy{started: make(chan int, 16)}
}

func (g *gatedStrategy) Name() string { return "gated" }

func (g *gatedStrategy) Compose(_ context.Context, fragments []story.Fragment) (story.ComposedStory, error) {
	g.mu.Lock()
	idx := len(g.gates)
	gate := make(chan struct{})
	g.gates = append(g.gates, gate)
	g.mu.Unlock()

	g.started <- idx
	<-gate

	return story.ComposedStory{
		Text:              fmt.Sprintf("composition %d over %d fragments", idx, len(fragments)),
		SourceFragmentIDs: story.SourceIDs(fragments),
	}, nil
}

func (g *gatedStrategy) release(idx int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gates[idx])
}

func waitStarted(t *testing.T, g *gatedStrategy) int {
	t.Helper()
	select {
	case idx := <-g.started:
		return idx
	case <-time.After(2 * time.Second):
		t.Fatal("strategy call did not start")
		return -1
	}
}

func startSession(t *testing.T, s *Session) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	return cancel
}

func TestSession_SubmitComposesIncrementally(t *testing.T) {
	repo := &fakeRepo{}
	session := NewSession(NewTemplateComposer(0), repo, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	created, err := session.Submit(context.Background(), "tiempo", "El reloj se detuvo.")
	require.NoError(t, err)
	assert.Equal(t, "tiempo", created.Keyword)

	require.Eventually(t, func() bool {
		return !session.Snapshot().Story.Empty()
	}, 2*time.Second, 10*time.Millisecond)

	snap := session.Snapshot()
	assert.Contains(t, snap.Story.Text, "tiempo")
	assert.Contains(t, snap.Story.Text, "El reloj se detuvo.")
	assert.Equal(t, []string{created.ID}, snap.Story.SourceFragmentIDs)
	assert.Equal(t, 1, snap.FragmentCount)
	assert.NoError(t, snap.Err)
}

func TestSession_SubmitRejectsInvalidInputBeforeInsert(t *testing.T) {
	repo := &fakeRepo{}
	session := NewSession(NewTemplateComposer(0), repo, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	_, err := session.Submit(context.Background(), "", "contenido")

	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Empty(t, repo.rows, "nothing persisted on validation failure")
}

func TestSession_LoadSeedsWindowInChronologicalOrder(t *testing.T) {
	repo := &fakeRepo{}
	for i := 0; i < 3; i++ {
		_, err := repo.Insert(context.Background(), fmt.Sprintf("palabra%d", i), fmt.Sprintf("contenido %d", i))
		require.NoError(t, err)
	}

	session := NewSession(NewTemplateComposer(0), repo, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	require.NoError(t, session.Load(context.Background()))

	require.Eventually(t, func() bool {
		return len(session.Snapshot().Story.SourceFragmentIDs) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Oldest fragment narrates first.
	text := session.Snapshot().Story.Text
	assert.Less(t, strings.Index(text, "contenido 0"), strings.Index(text, "contenido 2"))
}

func TestSession_LoadFetchesConfiguredWindowBound(t *testing.T) {
	repo := &fakeRepo{}
	for i := 0; i < 25; i++ {
		_, err := repo.Insert(context.Background(), fmt.Sprintf("palabra%d", i), "contenido")
		require.NoError(t, err)
	}

	session := NewSession(NewTemplateComposer(0), repo, 30, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	require.NoError(t, session.Load(context.Background()))

	repo.mu.Lock()
	fetched := repo.fetchLimit
	repo.mu.Unlock()
	assert.Equal(t, 30, fetched)

	require.Eventually(t, func() bool {
		return session.Snapshot().FragmentCount == 25
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_LoadEmptyStoreYieldsNoStory(t *testing.T) {
	session := NewSession(NewTemplateComposer(0), &fakeRepo{}, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	require.NoError(t, session.Load(context.Background()))

	require.Eventually(t, func() bool {
		snap := session.Snapshot()
		return snap.FragmentCount == 0 && snap.Story.Empty() && snap.Err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_DuplicateInsertIsNoOp(t *testing.T) {
	repo := &fakeRepo{}
	strategy := newGatedStrategy()
	session := NewSession(strategy, repo, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	f := story.Fragment{ID: "dup-1", Keyword: "eco", Content: "se repite"}
	session.ApplyInsert(f)
	first := waitStarted(t, strategy)
	strategy.release(first)

	require.Eventually(t, func() bool {
		return !session.Snapshot().Story.Empty()
	}, 2*time.Second, 10*time.Millisecond)

	// At-least-once delivery: the same fragment arrives again.
	session.ApplyInsert(f)

	select {
	case idx := <-strategy.started:
		t.Fatalf("duplicate insert triggered recomposition %d", idx)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 1, session.Snapshot().FragmentCount)
}

func TestSession_StaleResultDiscarded(t *testing.T) {
	repo := &fakeRepo{}
	strategy := newGatedStrategy()
	session := NewSession(strategy, repo, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	session.ApplyInsert(story.Fragment{ID: "a", Keyword: "uno", Content: "primero"})
	older := waitStarted(t, strategy)

	session.ApplyInsert(story.Fragment{ID: "b", Keyword: "dos", Content: "segundo"})
	newer := waitStarted(t, strategy)

	// The recomposition for the newer window finishes first.
	strategy.release(newer)
	require.Eventually(t, func() bool {
		return len(session.Snapshot().Story.SourceFragmentIDs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// The older one finishes late and must not overwrite it.
	strategy.release(older)
	time.Sleep(100 * time.Millisecond)

	snap := session.Snapshot()
	assert.Len(t, snap.Story.SourceFragmentIDs, 2)
	assert.Contains(t, snap.Story.Text, "over 2 fragments")
}

// failingStrategy fails every call after the first.
type failingStrategy struct {
	template *TemplateComposer
	mu       sync.Mutex
	calls    int
}

func (f *failingStrategy) Name() string { return "failing" }

func (f *failingStrategy) Compose(ctx context.Context, fragments []story.Fragment) (story.ComposedStory, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()

	if calls > 1 {
		return story.ComposedStory{}, appErrors.NewGeneration("provider down", nil)
	}
	return f.template.Compose(ctx, fragments)
}

func TestSession_FailurePreservesPreviousStory(t *testing.T) {
	repo := &fakeRepo{}
	session := NewSession(&failingStrategy{template: NewTemplateComposer(0)}, repo, 20, zap.NewNop())
	cancel := startSession(t, session)
	defer cancel()

	session.ApplyInsert(story.Fragment{ID: "a", Keyword: "uno", Content: "primero"})
	require.Eventually(t, func() bool {
		return !session.Snapshot().Story.Empty()
	}, 2*time.Second, 10*time.Millisecond)
	previous := session.Snapshot().Story

	session.ApplyInsert(story.Fragment{ID: "b", Keyword: "dos", Content: "segundo"})
	require.Eventually(t, func() bool {
		return session.Snapshot().Err != nil
	}, 2*time.Second, 10*time.Millisecond)

	snap := session.Snapshot()
	assert.Equal(t, previous, snap.Story, "failed recomposition keeps the displayed story")
	assert.True(t, appErrors.IsGeneration(snap.Err))
	assert.Equal(t, 2, snap.FragmentCount)
}

func TestSession_ListenersNotifiedOnAcceptedResult(t *testing.T) {
	repo := &fakeRepo{}
	session := NewSession(NewTemplateComposer(0), repo, 20, zap.NewNop())

	updates := make(chan story.ComposedStory, 4)
	session.OnUpdate(func(s story.ComposedStory) { updates <- s })

	cancel := startSession(t, session)
	defer cancel()

	session.ApplyInsert(story.Fragment{ID: "a", Keyword: "uno", Content: "primero"})

	select {
	case s := <-updates:
		assert.Equal(t, []string{"a"}, s.SourceFragmentIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not notified")
	}
}
