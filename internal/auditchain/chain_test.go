package auditchain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := NewService(repo)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	svc.clock = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return svc, repo
}

func appendN(t *testing.T, svc *Service, resourceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := svc.Append(context.Background(), "lca_posting", resourceID, ActionUpdate, "u", map[string]string{"seq": string(rune('a' + i))}); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
}

func TestService_AppendLinksEntries(t *testing.T) {
	svc, repo := newTestService(t)

	first, err := svc.Append(context.Background(), "lca_posting", "p1", ActionCreate, "u1", map[string]string{"case_number": "I-200-24001-123456"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if first.PreviousHash != "" || first.BlockNumber != 1 {
		t.Fatalf("genesis entry malformed: %+v", first)
	}
	if !first.Verified {
		t.Fatalf("persisted entry must be verified")
	}

	second, err := svc.Append(context.Background(), "lca_posting", "p1", ActionUpdate, "u2", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if second.PreviousHash != first.ContentHash {
		t.Fatalf("second entry not linked to first")
	}
	if second.BlockNumber != 2 {
		t.Fatalf("expected block 2, got %d", second.BlockNumber)
	}

	if got := len(repo.Entries()); got != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", got)
	}
}

func TestService_ChainsAreScopedPerResource(t *testing.T) {
	svc, _ := newTestService(t)

	appendN(t, svc, "p1", 2)
	g, err := svc.Append(context.Background(), "lca_posting", "p2", ActionCreate, "u", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if g.BlockNumber != 1 || g.PreviousHash != "" {
		t.Fatalf("a new resource starts its own chain, got %+v", g)
	}
}

func TestService_AppendRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		rt, rid string
		action  Action
	}{
		{"", "p1", ActionCreate},
		{"lca_posting", "", ActionCreate},
		{"lca_posting", "p1", "purge"},
	}
	for _, tc := range cases {
		if _, err := svc.Append(context.Background(), tc.rt, tc.rid, tc.action, "u", nil); !errors.Is(err, ErrInvalidEntry) {
			t.Fatalf("expected ErrInvalidEntry for %+v, got %v", tc, err)
		}
	}
}

func TestComputeHash_Deterministic(t *testing.T) {
	e := Entry{
		ResourceType: "lca_posting",
		ResourceID:   "p1",
		Action:       ActionUpdate,
		Actor:        "u1",
		Metadata:     map[string]string{"b": "2", "a": "1"},
		CreatedAt:    time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC),
	}
	h1 := ComputeHash(e)
	h2 := ComputeHash(e)
	if h1 == "" || h1 != h2 {
		t.Fatalf("hash not deterministic: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}

	// PreviousHash is linkage, not content.
	e.PreviousHash = "deadbeef"
	if ComputeHash(e) != h1 {
		t.Fatalf("previous hash must not affect the content hash")
	}

	e.Actor = "u2"
	if ComputeHash(e) == h1 {
		t.Fatalf("content change must change the hash")
	}
}

func TestVerifyChain_IntactChainScoresFull(t *testing.T) {
	svc, repo := newTestService(t)
	appendN(t, svc, "p1", 5)

	rep := VerifyChain(repo.Entries())
	if !rep.Valid {
		t.Fatalf("expected valid chain, broken at %d", rep.BrokenAt)
	}
	if rep.Total != 5 || rep.VerifiedCount != 5 {
		t.Fatalf("unexpected counts: %+v", rep)
	}
	if rep.IntegrityScore != 100 {
		t.Fatalf("expected score 100, got %v", rep.IntegrityScore)
	}
	if rep.BrokenAt != -1 {
		t.Fatalf("expected BrokenAt -1, got %d", rep.BrokenAt)
	}
}

func TestVerifyChain_EmptyChainIsValid(t *testing.T) {
	rep := VerifyChain(nil)
	if !rep.Valid || rep.IntegrityScore != 100 || rep.BrokenAt != -1 {
		t.Fatalf("empty chain must verify clean: %+v", rep)
	}
}

func TestVerifyChain_DetectsTamperedContent(t *testing.T) {
	svc, repo := newTestService(t)
	appendN(t, svc, "p1", 4)

	repo.Tamper(2, func(e *Entry) { e.Actor = "intruder" })

	rep := VerifyChain(repo.Entries())
	if rep.Valid {
		t.Fatalf("tampered chain must not verify")
	}
	if rep.BrokenAt != 2 {
		t.Fatalf("expected first break at index 2, got %d", rep.BrokenAt)
	}
	if rep.VerifiedCount != 3 {
		t.Fatalf("expected 3 intact entries, got %d", rep.VerifiedCount)
	}
	if rep.IntegrityScore != 75 {
		t.Fatalf("expected score 75, got %v", rep.IntegrityScore)
	}
}

func TestVerifyChain_DetectsBrokenLinkage(t *testing.T) {
	svc, repo := newTestService(t)
	appendN(t, svc, "p1", 3)

	// Rewrite an entry and recompute its content hash. The content check
	// passes but the next entry's previous-hash link no longer matches.
	repo.Tamper(1, func(e *Entry) {
		e.Actor = "intruder"
		e.ContentHash = ComputeHash(*e)
	})

	rep := VerifyChain(repo.Entries())
	if rep.Valid {
		t.Fatalf("relinked chain must not verify")
	}
	if rep.BrokenAt != 2 {
		t.Fatalf("expected break detected at the successor, got %d", rep.BrokenAt)
	}
}

func TestVerifyChain_GenesisMustHaveNoPreviousHash(t *testing.T) {
	svc, repo := newTestService(t)
	appendN(t, svc, "p1", 1)
	repo.Tamper(0, func(e *Entry) { e.PreviousHash = "abc123" })

	rep := VerifyChain(repo.Entries())
	if rep.Valid || rep.BrokenAt != 0 {
		t.Fatalf("expected genesis break, got %+v", rep)
	}
}

func TestService_VerifyTrail(t *testing.T) {
	svc, _ := newTestService(t)
	appendN(t, svc, "p1", 3)
	appendN(t, svc, "p2", 1)

	rep, entries, err := svc.VerifyTrail(context.Background(), "lca_posting", "p1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for p1, got %d", len(entries))
	}
	if !rep.Valid {
		t.Fatalf("expected valid chain")
	}
}

func TestService_TrailHonorsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	appendN(t, svc, "p1", 5)

	entries, err := svc.Trail(context.Background(), Filter{ResourceType: "lca_posting", ResourceID: "p1", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

// chainedRepo wraps MemoryRepo with the transactional append capability so
// the service's dispatch between the two repository paths is observable.
type chainedRepo struct {
	*MemoryRepo
	chainedCalls int
}

func (r *chainedRepo) AppendChained(ctx context.Context, resourceType, resourceID string, build func(latest Entry, ok bool) Entry) (Entry, error) {
	r.chainedCalls++
	latest, ok, err := r.Latest(ctx, resourceType, resourceID)
	if err != nil {
		return Entry{}, err
	}
	e := build(latest, ok)
	if err := r.MemoryRepo.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func TestService_AppendPrefersChainedAppender(t *testing.T) {
	repo := &chainedRepo{MemoryRepo: NewMemoryRepo()}
	svc := NewService(repo)

	first, err := svc.Append(context.Background(), "lca_posting", "p1", ActionCreate, "u", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := svc.Append(context.Background(), "lca_posting", "p1", ActionUpdate, "u", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if repo.chainedCalls != 2 {
		t.Fatalf("expected both appends to go through the transactional path, got %d", repo.chainedCalls)
	}
	if second.PreviousHash != first.ContentHash || second.BlockNumber != 2 {
		t.Fatalf("linkage built by the service callback is wrong: %+v", second)
	}
}

func TestService_NotConfigured(t *testing.T) {
	svc := &Service{clock: time.Now}
	if _, err := svc.Append(context.Background(), "t", "r", ActionCreate, "u", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.Trail(context.Background(), Filter{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
