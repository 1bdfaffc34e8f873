package personalization

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeStore is an in-memory Store for tests. Interactions are returned
// newest-first like the real query.
type fakeStore struct {
	mu           sync.Mutex
	prefs        map[int64]*StoredPreferences
	interactions map[int64][]*InteractionRecord
	blocklists   map[int64]*Blocklists
	antiRep      map[int64]*AntiRepetitionCache
	exploration  map[int64]*ExplorationMetrics

	failReads bool

	// Window passed to the last ActiveUserIDs call.
	activeWindowDays int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:        map[int64]*StoredPreferences{},
		interactions: map[int64][]*InteractionRecord{},
		blocklists:   map[int64]*Blocklists{},
		antiRep:      map[int64]*AntiRepetitionCache{},
		exploration:  map[int64]*ExplorationMetrics{},
	}
}

var errFakeUnavailable = errors.New("store down")

func (s *fakeStore) ReadPreferences(ctx context.Context, userID int64) (*StoredPreferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, false, errFakeUnavailable
	}
	prefs, ok := s.prefs[userID]
	return prefs, ok, nil
}

func (s *fakeStore) WritePreferences(ctx context.Context, userID int64, prefs *StoredPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = prefs
	return nil
}

func (s *fakeStore) IncrementWeights(ctx context.Context, userID int64, colorDeltas, styleDeltas map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, ok := s.prefs[userID]
	if !ok {
		prefs = &StoredPreferences{}
		s.prefs[userID] = prefs
	}
	if prefs.ColorWeights == nil {
		prefs.ColorWeights = map[string]float64{}
	}
	if prefs.StyleWeights == nil {
		prefs.StyleWeights = map[string]float64{}
	}
	for color, delta := range colorDeltas {
		prefs.ColorWeights[canonicalColor(color)] += delta
	}
	for style, delta := range styleDeltas {
		prefs.StyleWeights[canonicalStyle(style)] += delta
	}
	return nil
}

func (s *fakeStore) ClearWeightDeltas(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = &StoredPreferences{
		ColorWeights: map[string]float64{},
		StyleWeights: map[string]float64{},
	}
	return nil
}

func (s *fakeStore) AppendInteraction(ctx context.Context, rec *InteractionRecord) error {
	if err := validateInteraction(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.interactions[rec.UserID] = append(s.interactions[rec.UserID], rec)
	return nil
}

func (s *fakeStore) ReadInteractions(ctx context.Context, userID int64, kind InteractionKind, limit int) ([]*InteractionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errFakeUnavailable
	}
	all := s.interactions[userID]
	var matched []*InteractionRecord
	for i := len(all) - 1; i >= 0 && len(matched) < limit; i-- {
		if all[i].Kind == kind {
			matched = append(matched, all[i])
		}
	}
	return matched, nil
}

func (s *fakeStore) ActiveUserIDs(ctx context.Context, withinDays int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeWindowDays = withinDays
	var ids []int64
	for userID, recs := range s.interactions {
		if len(recs) > 0 {
			ids = append(ids, userID)
		}
	}
	return ids, nil
}

func (s *fakeStore) ReadBlocklists(ctx context.Context, userID int64) (*Blocklists, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, false, errFakeUnavailable
	}
	lists, ok := s.blocklists[userID]
	return lists, ok, nil
}

func (s *fakeStore) WriteBlocklists(ctx context.Context, userID int64, lists *Blocklists) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocklists[userID] = lists
	return nil
}

func (s *fakeStore) ReadAntiRepetitionCache(ctx context.Context, userID int64) (*AntiRepetitionCache, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, false, errFakeUnavailable
	}
	cache, ok := s.antiRep[userID]
	return cache, ok, nil
}

func (s *fakeStore) WriteAntiRepetitionCache(ctx context.Context, userID int64, cache *AntiRepetitionCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.antiRep[userID] = cache
	return nil
}

func (s *fakeStore) ReadExplorationMetrics(ctx context.Context, userID int64) (*ExplorationMetrics, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, false, errFakeUnavailable
	}
	metrics, ok := s.exploration[userID]
	return metrics, ok, nil
}

func (s *fakeStore) WriteExplorationMetrics(ctx context.Context, userID int64, metrics *ExplorationMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exploration[userID] = metrics
	return nil
}
