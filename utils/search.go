package utils

import (
	"context"
	"sync"
	"time"

	"campuscms/models"
)

// SearchResult is one delivered answer from a SubscriberSearch query.
type SearchResult struct {
	Query       string
	Subscribers []models.Subscriber
	Total       int64
	Err         error
}

// SubscriberSearch serializes keystroke-burst searches against the directory.
// Each Submit supersedes the last: the debounce window collapses bursts into
// at most one outstanding query, and a response arriving for a superseded
// generation is discarded. Last request wins, not first response.
type SubscriberSearch struct {
	directory SubscriberDirectory
	debounce  time.Duration
	limit     int

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func NewSubscriberSearch(directory SubscriberDirectory, debounce time.Duration) *SubscriberSearch {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &SubscriberSearch{
		directory: directory,
		debounce:  debounce,
		limit:     20,
	}
}

// Submit schedules a search for q and delivers the result asynchronously.
// A later Submit cancels delivery of this one.
func (s *SubscriberSearch) Submit(ctx context.Context, q string, deliver func(SearchResult)) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(ctx, gen, q, deliver)
	})
	s.mu.Unlock()
}

func (s *SubscriberSearch) run(ctx context.Context, gen uint64, q string, deliver func(SearchResult)) {
	subs, total, err := s.directory.Search(ctx, q, "", 1, s.limit)

	// Re-check after the response arrives: a newer query may have been
	// issued while this one was in flight.
	s.mu.Lock()
	superseded := s.gen != gen
	s.mu.Unlock()
	if superseded {
		return
	}

	deliver(SearchResult{
		Query:       q,
		Subscribers: subs,
		Total:       total,
		Err:         err,
	})
}
