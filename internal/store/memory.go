package store

import (
	"context"
	"sync"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure MemoryStore implements model.ListingStore.
var _ model.ListingStore = (*MemoryStore)(nil)

// MemoryStore keeps listings in process memory. It backs the one-shot
// check command, where nothing should outlive the run.
type MemoryStore struct {
	mu       sync.Mutex
	policy   model.ConflictPolicy
	listings []model.Listing
	index    map[model.ListingKey]int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(policy model.ConflictPolicy) *MemoryStore {
	return &MemoryStore{
		policy: policy,
		index:  make(map[model.ListingKey]int),
	}
}

// Save applies the same insert-or-resolve rules as the SQL stores.
func (s *MemoryStore) Save(ctx context.Context, listings []model.Listing) (model.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return model.SaveResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res model.SaveResult
	now := nowUTC()
	for _, l := range listings {
		i, found := s.index[l.Key()]
		if !found {
			l.IsNotified = false
			l.CreatedAt = now
			s.index[l.Key()] = len(s.listings)
			s.listings = append(s.listings, clone(l))
			res.Inserted++
			continue
		}

		next, changed := resolveConflict(s.policy, s.listings[i], l)
		if !changed {
			res.Skipped++
			continue
		}
		s.listings[i] = clone(next)
		res.Updated++
	}
	return res, nil
}

// Unnotified returns every listing not yet notified, in insertion order.
func (s *MemoryStore) Unnotified(ctx context.Context) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Listing
	for _, l := range s.listings {
		if !l.IsNotified {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

// MarkNotified flags the given keys as notified.
func (s *MemoryStore) MarkNotified(ctx context.Context, keys []model.ListingKey) (model.MarkResult, error) {
	if err := ctx.Err(); err != nil {
		return model.MarkResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res model.MarkResult
	for _, k := range keys {
		i, ok := s.index[k]
		if !ok {
			res.Missing = append(res.Missing, k)
			continue
		}
		s.listings[i].IsNotified = true
		res.Marked++
	}
	return res, nil
}

// clone copies the slice and pointer fields so stored listings never share
// memory with callers.
func clone(l model.Listing) model.Listing {
	if l.Tags != nil {
		l.Tags = append([]string(nil), l.Tags...)
	}
	if l.Salary != nil {
		v := *l.Salary
		l.Salary = &v
	}
	if l.PostedAt != nil {
		t := *l.PostedAt
		l.PostedAt = &t
	}
	return l
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
