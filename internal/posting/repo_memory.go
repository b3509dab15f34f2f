package posting

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It mirrors the datastore's uniqueness behavior for case numbers.
type MemoryRepo struct {
	mu       sync.Mutex
	byID     map[string]Posting
	ordering []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Posting)}
}

func (r *MemoryRepo) Insert(ctx context.Context, p Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.CaseNumber == p.CaseNumber {
			return ErrConflict
		}
	}
	r.byID[p.ID] = p
	r.ordering = append(r.ordering, p.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Posting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return Posting{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Update(ctx context.Context, p Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range r.byID {
		if id != p.ID && existing.CaseNumber == p.CaseNumber {
			return ErrConflict
		}
	}
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	for i, v := range r.ordering {
		if v == id {
			r.ordering = append(r.ordering[:i], r.ordering[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Posting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Posting, 0, len(r.ordering))
	for _, id := range r.ordering {
		p := r.byID[id]
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.CaseNumber != "" && p.CaseNumber != f.CaseNumber {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
