package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lca-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("posting not found")
	ErrConflict        = errors.New("case number already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrValidation signals field-level failures; the accompanying
	// ValidationResult carries the full error map.
	ErrValidation = errors.New("validation failed")
)

// Filter narrows List results.
type Filter struct {
	Status     Status
	CaseNumber string
}

// Repository is the persistence contract for postings.
//
// Insert and Update must surface duplicate case numbers as ErrConflict;
// uniqueness itself is enforced by the datastore constraint.
type Repository interface {
	Insert(ctx context.Context, p Posting) error
	GetByID(ctx context.Context, id string) (Posting, error)
	Update(ctx context.Context, p Posting) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f Filter) ([]Posting, error)
}

// AuditRecorder receives one record per tracked posting action.
// Recording is best-effort: a failed append must not roll back the mutation
// it describes, only surface in logs.
type AuditRecorder interface {
	Record(ctx context.Context, action, postingID, actor string, metadata map[string]string) error
}

// DocumentStore removes supporting documents when a posting is deleted.
type DocumentStore interface {
	Delete(ctx context.Context, path string) error
}

// Service orchestrates the posting lifecycle: validation before persistence,
// audit recording after, storage delegated to the repository collaborator.
// Stateless; safe for concurrent use per request.
type Service struct {
	repo  Repository
	docs  DocumentStore
	audit AuditRecorder
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, docs DocumentStore, audit AuditRecorder) *Service {
	return &Service{repo: repo, docs: docs, audit: audit, clock: time.Now}
}

// Create validates the candidate and persists it. Validation failures are
// returned with the full field error map and never partially persist.
func (s *Service) Create(ctx context.Context, candidate Posting, actor string) (Posting, ValidationResult, error) {
	switch candidate.Status {
	case "":
		candidate.Status = StatusPending
	case StatusDraft, StatusPending:
	default:
		return Posting{}, ValidationResult{}, fmt.Errorf("%w: new postings must start as DRAFT or PENDING", ErrInvalidArgument)
	}

	res := Validate(&candidate)
	if !res.IsValid {
		return Posting{}, res, ErrValidation
	}

	now := s.clock().UTC()
	candidate.ID = uuid.NewString()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	candidate.CreatedBy = actor
	candidate.UpdatedBy = actor

	if err := s.repo.Insert(ctx, candidate); err != nil {
		return Posting{}, res, err
	}

	s.record(ctx, "create", candidate.ID, actor, map[string]string{
		"case_number": candidate.CaseNumber,
		"status":      string(candidate.Status),
	})
	return candidate, res, nil
}

// Update merges the patch into the stored posting, re-validates the merged
// result, and persists it. The audit entry lists the changed field names.
func (s *Service) Update(ctx context.Context, id string, patch Patch, actor string) (Posting, ValidationResult, error) {
	if id == "" {
		return Posting{}, ValidationResult{}, ErrInvalidArgument
	}
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Posting{}, ValidationResult{}, err
	}

	changed := patch.apply(&cur)
	if len(changed) == 0 {
		return cur, Validate(&cur), nil
	}

	res := Validate(&cur)
	if !res.IsValid {
		return Posting{}, res, ErrValidation
	}

	cur.UpdatedAt = s.clock().UTC()
	cur.UpdatedBy = actor
	if err := s.repo.Update(ctx, cur); err != nil {
		return Posting{}, res, err
	}

	s.record(ctx, "update", cur.ID, actor, map[string]string{
		"case_number":    cur.CaseNumber,
		"changed_fields": strings.Join(changed, ","),
	})
	return cur, res, nil
}

// SetStatus records an externally determined lifecycle transition.
func (s *Service) SetStatus(ctx context.Context, id string, next Status, actor string) (Posting, error) {
	if id == "" || !next.Valid() {
		return Posting{}, ErrInvalidArgument
	}
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Posting{}, err
	}
	if !cur.Status.CanTransitionTo(next) {
		return Posting{}, fmt.Errorf("%w: cannot transition %s to %s", ErrInvalidArgument, cur.Status, next)
	}

	prev := cur.Status
	cur.Status = next
	cur.UpdatedAt = s.clock().UTC()
	cur.UpdatedBy = actor
	if err := s.repo.Update(ctx, cur); err != nil {
		return Posting{}, err
	}

	s.record(ctx, "update", cur.ID, actor, map[string]string{
		"case_number": cur.CaseNumber,
		"status_from": string(prev),
		"status_to":   string(next),
	})
	return cur, nil
}

// AttachDocument links an uploaded supporting document to the posting.
func (s *Service) AttachDocument(ctx context.Context, id, path, url, actor string) (Posting, error) {
	if id == "" || path == "" {
		return Posting{}, ErrInvalidArgument
	}
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Posting{}, err
	}

	cur.DocumentPath = path
	cur.DocumentURL = url
	cur.UpdatedAt = s.clock().UTC()
	cur.UpdatedBy = actor
	if err := s.repo.Update(ctx, cur); err != nil {
		return Posting{}, err
	}

	s.record(ctx, "update", cur.ID, actor, map[string]string{
		"case_number":    cur.CaseNumber,
		"changed_fields": "document_path,document_url",
	})
	return cur, nil
}

// Delete removes the posting and its supporting document. Deleting a missing
// posting is success, not an error. A failed document removal is surfaced as
// a warning and does not block record deletion.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if cur.DocumentPath != "" && s.docs != nil {
		if err := s.docs.Delete(ctx, cur.DocumentPath); err != nil {
			logger.From(ctx).Warn("document removal failed, continuing with record deletion",
				"posting_id", id, "path", cur.DocumentPath, "err", err)
		}
	}

	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.record(ctx, "delete", id, actor, map[string]string{
		"case_number": cur.CaseNumber,
	})
	return nil
}

// Get returns a posting without audit side effects.
func (s *Service) Get(ctx context.Context, id string) (Posting, error) {
	if id == "" {
		return Posting{}, ErrInvalidArgument
	}
	return s.repo.GetByID(ctx, id)
}

// View is the public disclosure read path. Anonymous access appends a
// low-priority audit entry for transparency; the posting is never mutated.
func (s *Service) View(ctx context.Context, id, origin string) (Posting, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Posting{}, err
	}
	s.record(ctx, "view", p.ID, "", map[string]string{
		"case_number": p.CaseNumber,
		"origin":      origin,
	})
	return p, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Posting, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) record(ctx context.Context, action, postingID, actor string, metadata map[string]string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, postingID, actor, metadata); err != nil {
		logger.From(ctx).Error("audit record failed", "action", action, "posting_id", postingID, "err", err)
	}
}
