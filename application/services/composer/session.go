package composer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"conexiones-backend/application/ports"
	"conexiones-backend/domain/story"
)

// Strategy is one of the two interchangeable algorithms that turn a window
// of fragments into a composed story. Selected by configuration at session
// construction, never by ad hoc branching.
type Strategy interface {
	Name() string
	Compose(ctx context.Context, fragments []story.Fragment) (story.ComposedStory, error)
}

// Listener is notified after a recomposition result is accepted.
type Listener func(story.ComposedStory)

// Snapshot is the session state exposed to the presentation layer.
type Snapshot struct {
	Story         story.ComposedStory
	FragmentCount int
	Strategy      string
	// Err is the last composition failure, if any. The previous story is
	// preserved when composition fails.
	Err error
}

// composeResult carries a finished recomposition back into the run loop,
// tagged with the window version it was derived from.
type composeResult struct {
	version uint64
	story   story.ComposedStory
	err     error
}

// Session owns the fragment window and the story derived from it. All
// window mutations — initial load, user submissions, live-update inserts —
// are serialized through a single run loop, so no two mutations race.
// Compositions run concurrently, but a result derived from an older window
// version never overwrites one derived from a newer version.
type Session struct {
	strategy Strategy
	repo     ports.FragmentRepository
	logger   *zap.Logger

	window *story.Window

	ops     chan func()
	results chan composeResult
	stopped chan struct{}

	runCtx context.Context

	// applied is the window version of the story currently held by the
	// snapshot. Only touched from the run loop.
	applied uint64

	mu       sync.RWMutex
	snapshot Snapshot

	listeners []Listener
}

// NewSession creates a session over an empty window of the given size.
func NewSession(strategy Strategy, repo ports.FragmentRepository, windowSize int, logger *zap.Logger) *Session {
	return &Session{
		strategy: strategy,
		repo:     repo,
		logger:   logger.With(zap.String("strategy", strategy.Name())),
		window:   story.NewWindow(windowSize),
		ops:      make(chan func(), 64),
		results:  make(chan composeResult, 16),
		stopped:  make(chan struct{}),
		snapshot: Snapshot{Strategy: strategy.Name()},
	}
}

// OnUpdate registers a listener invoked from the run loop whenever a
// recomposition result is accepted. Must be called before Run.
func (s *Session) OnUpdate(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

// Run processes window mutations and composition results until ctx is
// cancelled. It must be running for Submit, ApplyInsert and Load to take
// effect.
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("composer session shutting down")
			return
		case op := <-s.ops:
			op()
		case res := <-s.results:
			s.applyResult(res)
		}
	}
}

// Load seeds the window with the most recent fragments from the store and
// triggers an initial composition. Fragments arrive most-recent-first and
// are reversed into chronological order before entering the window.
func (s *Session) Load(ctx context.Context) error {
	recent, err := s.repo.FetchRecent(ctx, s.window.Bound())
	if err != nil {
		return err
	}

	ascending := make([]story.Fragment, len(recent))
	for i, f := range recent {
		ascending[len(recent)-1-i] = f
	}

	s.enqueue(func() {
		s.window.Reset(ascending)
		s.recompose()
	})
	return nil
}

// Submit validates and persists a user-submitted fragment, then appends the
// created row to the window. Validation failures surface before any network
// call; the created fragment is returned for the HTTP response.
func (s *Session) Submit(ctx context.Context, keyword, content string) (story.Fragment, error) {
	trimmedKeyword, trimmedContent, err := story.NewSubmission(keyword, content)
	if err != nil {
		return story.Fragment{}, err
	}

	created, err := s.repo.Insert(ctx, trimmedKeyword, trimmedContent)
	if err != nil {
		return story.Fragment{}, err
	}

	s.ApplyInsert(created)
	return created, nil
}

// ApplyInsert feeds a newly inserted fragment into the incremental update
// rule: append with dedup by id, truncate to the window bound, recompose.
// Duplicate delivery of the same fragment id is a no-op.
func (s *Session) ApplyInsert(f story.Fragment) {
	s.enqueue(func() {
		if !s.window.Append(f) {
			s.logger.Debug("duplicate fragment ignored", zap.String("fragmentID", f.ID))
			return
		}
		s.recompose()
	})
}

// Snapshot returns the current story, window size and last composition
// error. Safe for concurrent use.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) enqueue(op func()) {
	select {
	case s.ops <- op:
	case <-s.stopped:
	}
}

// recompose runs on the loop goroutine. It captures the window version and
// contents, then composes concurrently; the empty window short-circuits to
// an empty story with no strategy call.
func (s *Session) recompose() {
	version := s.window.Version()
	fragments := s.window.Fragments()
	s.updateSnapshot(func(snap *Snapshot) {
		snap.FragmentCount = len(fragments)
	})

	if len(fragments) == 0 {
		s.applyResult(composeResult{version: version})
		return
	}

	ctx := s.runCtx
	go func() {
		composed, err := s.strategy.Compose(ctx, fragments)
		select {
		case s.results <- composeResult{version: version, story: composed, err: err}:
		case <-ctx.Done():
		}
	}()
}

// applyResult runs on the loop goroutine. Stale results — derived from a
// window version at or below the one already applied — are discarded, so
// the last writer by window version wins regardless of completion order.
func (s *Session) applyResult(res composeResult) {
	cur := s.Snapshot()
	if res.version <= s.applied {
		s.logger.Debug("stale composition result discarded",
			zap.Uint64("resultVersion", res.version))
		return
	}

	if res.err != nil {
		// Keep the previously displayed story; surface the failure.
		s.logger.Error("composition failed", zap.Error(res.err))
		s.updateSnapshot(func(snap *Snapshot) {
			snap.Err = res.err
		})
		return
	}

	s.applied = res.version
	s.updateSnapshot(func(snap *Snapshot) {
		snap.Story = res.story
		snap.Err = nil
	})

	s.logger.Info("story recomposed",
		zap.Uint64("windowVersion", res.version),
		zap.Int("sourceFragments", len(res.story.SourceFragmentIDs)),
		zap.Int("previousSources", len(cur.Story.SourceFragmentIDs)),
	)

	for _, fn := range s.listeners {
		fn(res.story)
	}
}

func (s *Session) updateSnapshot(mutate func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.snapshot)
}
