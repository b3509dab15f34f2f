package posting

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recorderStub struct {
	records []recordedCall
	err     error
}

type recordedCall struct {
	action   string
	actor    string
	metadata map[string]string
}

func (r *recorderStub) Record(ctx context.Context, action, postingID, actor string, metadata map[string]string) error {
	r.records = append(r.records, recordedCall{action: action, actor: actor, metadata: metadata})
	return r.err
}

type docStoreStub struct {
	deleted []string
	err     error
}

func (d *docStoreStub) Delete(ctx context.Context, path string) error {
	d.deleted = append(d.deleted, path)
	return d.err
}

func newTestService(t *testing.T) (*Service, *MemoryRepo, *recorderStub, *docStoreStub) {
	t.Helper()
	repo := NewMemoryRepo()
	rec := &recorderStub{}
	docs := &docStoreStub{}
	svc := NewService(repo, docs, rec)
	svc.clock = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, rec, docs
}

func TestService_CreatePersistsAndAudits(t *testing.T) {
	svc, repo, rec, _ := newTestService(t)

	created, res, err := svc.Create(context.Background(), validPosting(), "user-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.IsValid {
		t.Fatalf("expected valid result")
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}
	if !created.CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected injected clock timestamp, got %v", created.CreatedAt)
	}

	stored, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("posting not persisted: %v", err)
	}
	if stored.CreatedBy != "user-1" {
		t.Fatalf("expected created_by recorded")
	}

	if len(rec.records) != 1 || rec.records[0].action != "create" {
		t.Fatalf("expected one create audit record, got %+v", rec.records)
	}
}

func TestService_CreateDefaultsEmptyStatusToPending(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	p := validPosting()
	p.Status = ""
	created, _, err := svc.Create(context.Background(), p, "u")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if created.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}
}

func TestService_CreateRejectsTerminalStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	p := validPosting()
	p.Status = StatusCertified
	if _, _, err := svc.Create(context.Background(), p, "u"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestService_CreateValidationFailureDoesNotPersist(t *testing.T) {
	svc, repo, rec, _ := newTestService(t)

	p := validPosting()
	p.CaseNumber = "bogus"
	_, res, err := svc.Create(context.Background(), p, "u")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, ok := res.Errors[FieldCaseNumber]; !ok {
		t.Fatalf("expected case_number error, got %v", res.Errors)
	}

	rows, _ := repo.List(context.Background(), Filter{})
	if len(rows) != 0 {
		t.Fatalf("invalid posting must not persist")
	}
	if len(rec.records) != 0 {
		t.Fatalf("no audit record for rejected create")
	}
}

func TestService_CreateDuplicateCaseNumber(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, _, err := svc.Create(context.Background(), validPosting(), "u"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, _, err := svc.Create(context.Background(), validPosting(), "u"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestService_AuditFailureDoesNotRollBack(t *testing.T) {
	svc, repo, rec, _ := newTestService(t)
	rec.err = errors.New("chain down")

	created, _, err := svc.Create(context.Background(), validPosting(), "u")
	if err != nil {
		t.Fatalf("audit failure must not fail the create: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), created.ID); err != nil {
		t.Fatalf("posting must persist despite audit failure: %v", err)
	}
}

func TestService_UpdateMergesAndRecordsChangedFields(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")

	title := "Senior Software Engineer"
	wage := 180000.0
	updated, res, err := svc.Update(context.Background(), created.ID, Patch{JobTitle: &title, WageRate: &wage}, "editor-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.IsValid {
		t.Fatalf("expected valid")
	}
	if updated.JobTitle != title || updated.WageRate != wage {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.UpdatedBy != "editor-1" {
		t.Fatalf("expected updated_by recorded")
	}

	last := rec.records[len(rec.records)-1]
	if last.action != "update" {
		t.Fatalf("expected update audit record, got %s", last.action)
	}
	if last.metadata["changed_fields"] != "job_title,wage_rate" {
		t.Fatalf("unexpected changed_fields: %q", last.metadata["changed_fields"])
	}
}

func TestService_UpdateNoopSkipsPersistAndAudit(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")
	before := len(rec.records)

	same := created.JobTitle
	if _, _, err := svc.Update(context.Background(), created.ID, Patch{JobTitle: &same}, "u"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rec.records) != before {
		t.Fatalf("no-op update must not append audit records")
	}
}

func TestService_UpdateRevalidatesMergedResult(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")

	bad := "not-a-case-number"
	_, res, err := svc.Update(context.Background(), created.ID, Patch{CaseNumber: &bad}, "u")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, ok := res.Errors[FieldCaseNumber]; !ok {
		t.Fatalf("expected case_number error")
	}

	stored, _ := repo.GetByID(context.Background(), created.ID)
	if stored.CaseNumber != created.CaseNumber {
		t.Fatalf("failed update must not persist")
	}
}

func TestService_UpdateMissingPosting(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	title := "x"
	if _, _, err := svc.Update(context.Background(), "nope", Patch{JobTitle: &title}, "u"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_SetStatusFollowsStateMachine(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")

	updated, err := svc.SetStatus(context.Background(), created.ID, StatusCertified, "officer")
	if err != nil {
		t.Fatalf("PENDING -> CERTIFIED should be allowed: %v", err)
	}
	if updated.Status != StatusCertified {
		t.Fatalf("status not applied")
	}

	last := rec.records[len(rec.records)-1]
	if last.metadata["status_from"] != "PENDING" || last.metadata["status_to"] != "CERTIFIED" {
		t.Fatalf("unexpected transition metadata: %v", last.metadata)
	}

	if _, err := svc.SetStatus(context.Background(), created.ID, StatusPending, "officer"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("CERTIFIED -> PENDING must be rejected, got %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), created.ID, StatusWithdrawn, "officer"); err != nil {
		t.Fatalf("CERTIFIED -> WITHDRAWN should be allowed: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), created.ID, StatusPending, "officer"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("WITHDRAWN is terminal, got %v", err)
	}
}

func TestService_SetStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")
	if _, err := svc.SetStatus(context.Background(), created.ID, "ARCHIVED", "u"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestService_AttachDocument(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")

	updated, err := svc.AttachDocument(context.Background(), created.ID, "documents/x/notice.pdf", "https://cdn/notice.pdf", "u")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if updated.DocumentPath != "documents/x/notice.pdf" || updated.DocumentURL != "https://cdn/notice.pdf" {
		t.Fatalf("document not attached: %+v", updated)
	}
	last := rec.records[len(rec.records)-1]
	if last.metadata["changed_fields"] != "document_path,document_url" {
		t.Fatalf("unexpected metadata: %v", last.metadata)
	}
}

func TestService_DeleteRemovesDocumentAndRecord(t *testing.T) {
	svc, repo, rec, docs := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")
	if _, err := svc.AttachDocument(context.Background(), created.ID, "documents/x/notice.pdf", "url", "u"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID, "officer"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(docs.deleted) != 1 || docs.deleted[0] != "documents/x/notice.pdf" {
		t.Fatalf("expected document removed, got %v", docs.deleted)
	}
	if _, err := repo.GetByID(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
	last := rec.records[len(rec.records)-1]
	if last.action != "delete" {
		t.Fatalf("expected delete audit record, got %s", last.action)
	}
}

func TestService_DeleteMissingIsSuccess(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	if err := svc.Delete(context.Background(), "nope", "u"); err != nil {
		t.Fatalf("deleting a missing posting is success, got %v", err)
	}
	if len(rec.records) != 0 {
		t.Fatalf("no audit record for a no-op delete")
	}
}

func TestService_DeleteContinuesWhenDocumentRemovalFails(t *testing.T) {
	svc, repo, _, docs := newTestService(t)
	docs.err = errors.New("bucket unavailable")
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")
	if _, err := svc.AttachDocument(context.Background(), created.ID, "documents/x/notice.pdf", "url", "u"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID, "u"); err != nil {
		t.Fatalf("document failure must not block record deletion: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
}

func TestService_ViewRecordsAnonymousAccess(t *testing.T) {
	svc, _, rec, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validPosting(), "u")

	got, err := svc.View(context.Background(), created.ID, "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("wrong posting returned")
	}

	last := rec.records[len(rec.records)-1]
	if last.action != "view" || last.actor != "" {
		t.Fatalf("expected anonymous view record, got %+v", last)
	}
	if last.metadata["origin"] != "203.0.113.9" {
		t.Fatalf("expected origin captured, got %v", last.metadata)
	}
}

func TestService_ListFiltersByStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	a := validPosting()
	created, _, _ := svc.Create(context.Background(), a, "u")

	b := validPosting()
	b.CaseNumber = "I-200-24001-654321"
	if _, _, err := svc.Create(context.Background(), b, "u"); err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if _, err := svc.SetStatus(context.Background(), created.ID, StatusCertified, "u"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	rows, err := svc.List(context.Background(), Filter{Status: StatusCertified})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != created.ID {
		t.Fatalf("expected only the certified posting, got %d rows", len(rows))
	}
}
