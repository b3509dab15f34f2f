package compliance

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"lca-platform/internal/posting"
)

// minDescriptionChars is the shortest job description accepted as complete.
const minDescriptionChars = 50

var reZIP = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// PostingSource supplies the postings to scan. *posting.Service satisfies it.
type PostingSource interface {
	List(ctx context.Context, f posting.Filter) ([]posting.Posting, error)
}

// Service computes compliance reports over the current posting set.
//
// Scanning is read-only: postings are never mutated here. Corrections go
// through the posting lifecycle service, which re-validates before committing.
type Service struct {
	postings PostingSource
	clock    func() time.Time
}

func NewService(postings PostingSource) *Service {
	return &Service{postings: postings, clock: time.Now}
}

// Scan re-runs the relational compliance checks across all current postings
// and groups failures into one alert per distinct issue type. Scanning an
// unchanged posting set twice yields identical alerts and score.
func (s *Service) Scan(ctx context.Context) (Report, error) {
	if s.postings == nil {
		return Report{}, errors.New("compliance: posting source not configured")
	}

	rows, err := s.postings.List(ctx, posting.Filter{})
	if err != nil {
		return Report{}, err
	}

	affected := make(map[AlertType][]string)
	for _, p := range rows {
		if p.Status == posting.StatusWithdrawn {
			continue
		}
		for _, t := range checkPosting(p) {
			affected[t] = append(affected[t], p.CaseNumber)
		}
	}

	rep := Report{
		Alerts:          []Alert{},
		ComplianceScore: 100,
		GeneratedAt:     s.clock().UTC(),
	}
	rep.PostingsScanned = len(rows)

	for _, t := range alertOrder {
		cases := affected[t]
		if len(cases) == 0 {
			continue
		}
		def := alertDefs[t]
		rep.Alerts = append(rep.Alerts, Alert{
			Type:                t,
			Severity:            def.severity,
			Title:               def.title,
			Description:         def.description,
			Recommendation:      def.recommendation,
			AffectedCaseNumbers: cases,
			AutoFixAvailable:    def.autoFix,
		})
		rep.ComplianceScore -= def.penalty
		if def.severity == SeverityHigh {
			rep.HighPriorityIssues++
		}
	}
	if rep.ComplianceScore < 0 {
		rep.ComplianceScore = 0
	}
	rep.TotalIssues = len(rep.Alerts)
	return rep, nil
}

// checkPosting returns the issue types present on one posting, in fixed order.
func checkPosting(p posting.Posting) []AlertType {
	var out []AlertType

	if p.WageRate > 0 && p.PrevailingWage > 0 {
		offered := posting.AnnualWage(p.WageRate, p.WageUnit)
		prevailing := posting.AnnualWage(p.PrevailingWage, p.PrevailingWageUnit)
		if offered < prevailing {
			out = append(out, AlertWage)
		}
	}

	if !p.EmploymentStart.IsZero() && !p.EmploymentEnd.IsZero() {
		if !p.EmploymentEnd.After(p.EmploymentStart) {
			out = append(out, AlertDates)
		} else if maxYears := p.VisaClass.MaxEmploymentYears(); maxYears > 0 {
			if p.EmploymentEnd.After(p.EmploymentStart.AddDate(maxYears, 0, 0)) {
				out = append(out, AlertDates)
			}
		}
	}

	if len(strings.TrimSpace(p.JobDescription)) < minDescriptionChars {
		out = append(out, AlertDocumentation)
	}

	if strings.TrimSpace(p.WorksiteStreet) == "" ||
		strings.TrimSpace(p.WorksiteCity) == "" ||
		strings.TrimSpace(p.WorksiteState) == "" ||
		!reZIP.MatchString(strings.TrimSpace(p.WorksitePostalCode)) {
		out = append(out, AlertLocation)
	}

	return out
}
