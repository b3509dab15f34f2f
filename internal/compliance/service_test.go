package compliance

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"lca-platform/internal/posting"
)

type sourceStub struct {
	rows []posting.Posting
	err  error
}

func (s sourceStub) List(ctx context.Context, f posting.Filter) ([]posting.Posting, error) {
	return s.rows, s.err
}

func cleanPosting(caseNumber string) posting.Posting {
	return posting.Posting{
		CaseNumber:           caseNumber,
		JobTitle:             "Software Engineer",
		VisaClass:            posting.VisaH1B,
		WorksiteStreet:       "100 Main St",
		WorksiteCity:         "Austin",
		WorksiteState:        "TX",
		WorksitePostalCode:   "78701",
		EmploymentStart:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EmploymentEnd:        time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		WageRate:             150000,
		WageUnit:             posting.WageUnitYear,
		PrevailingWage:       120000,
		PrevailingWageUnit:   posting.WageUnitYear,
		JobDescription:       strings.Repeat("Design and build backend services. ", 3),
		Status:               posting.StatusCertified,
	}
}

func newScanService(rows ...posting.Posting) *Service {
	svc := NewService(sourceStub{rows: rows})
	svc.clock = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestScan_CleanPostingsScoreFull(t *testing.T) {
	svc := newScanService(cleanPosting("I-200-24001-000001"), cleanPosting("I-200-24001-000002"))

	rep, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.ComplianceScore != 100 {
		t.Fatalf("expected score 100, got %d", rep.ComplianceScore)
	}
	if rep.TotalIssues != 0 || len(rep.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", rep.Alerts)
	}
	if rep.PostingsScanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", rep.PostingsScanned)
	}
}

func TestScan_WageViolationIsHighSeverity(t *testing.T) {
	p := cleanPosting("I-200-24001-000001")
	p.WageRate = 100000
	svc := newScanService(p)

	rep, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rep.Alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %+v", rep.Alerts)
	}
	a := rep.Alerts[0]
	if a.Type != AlertWage || a.Severity != SeverityHigh {
		t.Fatalf("expected high-severity wage alert, got %+v", a)
	}
	if a.AutoFixAvailable {
		t.Fatalf("wage issues are never auto-fixable")
	}
	if rep.ComplianceScore != 75 {
		t.Fatalf("expected 100-25=75, got %d", rep.ComplianceScore)
	}
	if rep.HighPriorityIssues != 1 {
		t.Fatalf("expected 1 high-priority issue, got %d", rep.HighPriorityIssues)
	}
}

func TestScan_WageComparisonNormalizesUnits(t *testing.T) {
	// $55/hour = $114,400/year, below a $120,000 prevailing wage.
	p := cleanPosting("I-200-24001-000001")
	p.WageRate = 55
	p.WageUnit = posting.WageUnitHour
	svc := newScanService(p)

	rep, _ := svc.Scan(context.Background())
	if len(rep.Alerts) != 1 || rep.Alerts[0].Type != AlertWage {
		t.Fatalf("expected wage alert, got %+v", rep.Alerts)
	}
}

func TestScan_DatesBeyondVisaLimit(t *testing.T) {
	// E-3 caps at 2 years; this runs 4.
	p := cleanPosting("I-200-24001-000001")
	p.VisaClass = posting.VisaE3
	p.EmploymentEnd = p.EmploymentStart.AddDate(4, 0, 0)
	svc := newScanService(p)

	rep, _ := svc.Scan(context.Background())
	if len(rep.Alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", rep.Alerts)
	}
	a := rep.Alerts[0]
	if a.Type != AlertDates || a.Severity != SeverityMedium || !a.AutoFixAvailable {
		t.Fatalf("unexpected dates alert: %+v", a)
	}
	if rep.ComplianceScore != 90 {
		t.Fatalf("expected 100-10=90, got %d", rep.ComplianceScore)
	}
}

func TestScan_PeriodWithinVisaLimitPasses(t *testing.T) {
	p := cleanPosting("I-200-24001-000001")
	p.EmploymentEnd = p.EmploymentStart.AddDate(3, 0, 0) // exactly the H-1B cap
	svc := newScanService(p)

	rep, _ := svc.Scan(context.Background())
	if len(rep.Alerts) != 0 {
		t.Fatalf("exactly-at-limit period should pass, got %+v", rep.Alerts)
	}
}

func TestScan_ShortDescriptionAndBadAddress(t *testing.T) {
	p := cleanPosting("I-200-24001-000001")
	p.JobDescription = "Engineer."
	p.WorksitePostalCode = "787"
	svc := newScanService(p)

	rep, _ := svc.Scan(context.Background())
	if len(rep.Alerts) != 2 {
		t.Fatalf("expected documentation and location alerts, got %+v", rep.Alerts)
	}
	// Fixed ordering: documentation before location.
	if rep.Alerts[0].Type != AlertDocumentation || rep.Alerts[1].Type != AlertLocation {
		t.Fatalf("unexpected alert order: %+v", rep.Alerts)
	}
	if rep.ComplianceScore != 85 {
		t.Fatalf("expected 100-10-5=85, got %d", rep.ComplianceScore)
	}
}

func TestScan_GroupsCaseNumbersPerAlertType(t *testing.T) {
	a := cleanPosting("I-200-24001-000001")
	a.WageRate = 1
	b := cleanPosting("I-200-24001-000002")
	b.WageRate = 1
	svc := newScanService(a, b)

	rep, _ := svc.Scan(context.Background())
	if len(rep.Alerts) != 1 {
		t.Fatalf("one issue type must yield one alert, got %d", len(rep.Alerts))
	}
	want := []string{"I-200-24001-000001", "I-200-24001-000002"}
	if !reflect.DeepEqual(rep.Alerts[0].AffectedCaseNumbers, want) {
		t.Fatalf("expected both case numbers, got %v", rep.Alerts[0].AffectedCaseNumbers)
	}
	// Penalty applies once per issue type, not per posting.
	if rep.ComplianceScore != 75 {
		t.Fatalf("expected 75, got %d", rep.ComplianceScore)
	}
}

func TestScan_SkipsWithdrawnPostings(t *testing.T) {
	p := cleanPosting("I-200-24001-000001")
	p.WageRate = 1
	p.Status = posting.StatusWithdrawn
	svc := newScanService(p)

	rep, _ := svc.Scan(context.Background())
	if len(rep.Alerts) != 0 {
		t.Fatalf("withdrawn postings are out of scope, got %+v", rep.Alerts)
	}
	if rep.PostingsScanned != 1 {
		t.Fatalf("scanned count still includes withdrawn rows, got %d", rep.PostingsScanned)
	}
}

func TestScan_PenaltiesAccumulateAcrossTypes(t *testing.T) {
	p := cleanPosting("I-200-24001-000001")
	p.WageRate = 1
	p.EmploymentEnd = p.EmploymentStart
	p.JobDescription = "x"
	p.WorksiteCity = ""
	svc := newScanService(p)

	rep, _ := svc.Scan(context.Background())
	if rep.ComplianceScore != 50 {
		t.Fatalf("expected 100-25-10-10-5=50, got %d", rep.ComplianceScore)
	}
	if rep.TotalIssues != 4 {
		t.Fatalf("expected 4 issue types, got %d", rep.TotalIssues)
	}
}

func TestScan_Deterministic(t *testing.T) {
	p := cleanPosting("I-200-24001-000001")
	p.WageRate = 1
	p.JobDescription = "x"
	svc := newScanService(p)

	first, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated scans over unchanged data must match:\n%+v\n%+v", first, second)
	}
}

func TestScan_PropagatesSourceError(t *testing.T) {
	svc := NewService(sourceStub{err: errors.New("db down")})
	if _, err := svc.Scan(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
