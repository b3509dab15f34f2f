package httpapi

import (
	"time"

	"lca-platform/internal/posting"
)

// Wire dates are calendar days, not instants.
const wireDateLayout = "2006-01-02"

// postingRequest is the intake payload. Dates come in as YYYY-MM-DD strings;
// parse failures are merged into the same field error map validation uses so
// a submitter sees every problem in one response.
type postingRequest struct {
	JobTitle   string `json:"job_title"`
	CaseNumber string `json:"case_number"`
	VisaClass  string `json:"visa_class"`
	SOCCode    string `json:"soc_code"`

	EmployerName  string `json:"employer_name"`
	EmployerTaxID string `json:"employer_tax_id"`

	WorksiteStreet     string `json:"worksite_street"`
	WorksiteCity       string `json:"worksite_city"`
	WorksiteState      string `json:"worksite_state"`
	WorksitePostalCode string `json:"worksite_postal_code"`

	EmploymentStart string `json:"employment_start"`
	EmploymentEnd   string `json:"employment_end"`

	WageRate             float64 `json:"wage_rate"`
	WageUnit             string  `json:"wage_unit"`
	PrevailingWage       float64 `json:"prevailing_wage"`
	PrevailingWageUnit   string  `json:"prevailing_wage_unit"`
	PrevailingWageSource string  `json:"prevailing_wage_source"`

	FullTime     bool `json:"full_time"`
	TotalWorkers int  `json:"total_workers"`

	ContactName  string `json:"contact_name"`
	ContactTitle string `json:"contact_title"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`

	JobDescription string `json:"job_description"`
	Requirements   string `json:"requirements"`

	Status string `json:"status"`
}

func (r postingRequest) toPosting() (posting.Posting, map[posting.Field]string) {
	errs := make(map[posting.Field]string)

	start := parseWireDate(r.EmploymentStart, posting.FieldEmploymentStart, errs)
	end := parseWireDate(r.EmploymentEnd, posting.FieldEmploymentEnd, errs)

	p := posting.Posting{
		JobTitle:   r.JobTitle,
		CaseNumber: r.CaseNumber,
		VisaClass:  posting.VisaClass(r.VisaClass),
		SOCCode:    r.SOCCode,

		EmployerName:  r.EmployerName,
		EmployerTaxID: r.EmployerTaxID,

		WorksiteStreet:     r.WorksiteStreet,
		WorksiteCity:       r.WorksiteCity,
		WorksiteState:      r.WorksiteState,
		WorksitePostalCode: r.WorksitePostalCode,

		EmploymentStart: start,
		EmploymentEnd:   end,

		WageRate:             r.WageRate,
		WageUnit:             posting.WageUnit(r.WageUnit),
		PrevailingWage:       r.PrevailingWage,
		PrevailingWageUnit:   posting.WageUnit(r.PrevailingWageUnit),
		PrevailingWageSource: r.PrevailingWageSource,

		FullTime:     r.FullTime,
		TotalWorkers: r.TotalWorkers,

		ContactName:  r.ContactName,
		ContactTitle: r.ContactTitle,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,

		JobDescription: r.JobDescription,
		Requirements:   r.Requirements,

		Status: posting.Status(r.Status),
	}
	return p, errs
}

// patchRequest mirrors posting.Patch with wire-format dates.
type patchRequest struct {
	JobTitle   *string `json:"job_title"`
	CaseNumber *string `json:"case_number"`
	VisaClass  *string `json:"visa_class"`
	SOCCode    *string `json:"soc_code"`

	EmployerName  *string `json:"employer_name"`
	EmployerTaxID *string `json:"employer_tax_id"`

	WorksiteStreet     *string `json:"worksite_street"`
	WorksiteCity       *string `json:"worksite_city"`
	WorksiteState      *string `json:"worksite_state"`
	WorksitePostalCode *string `json:"worksite_postal_code"`

	EmploymentStart *string `json:"employment_start"`
	EmploymentEnd   *string `json:"employment_end"`

	WageRate             *float64 `json:"wage_rate"`
	WageUnit             *string  `json:"wage_unit"`
	PrevailingWage       *float64 `json:"prevailing_wage"`
	PrevailingWageUnit   *string  `json:"prevailing_wage_unit"`
	PrevailingWageSource *string  `json:"prevailing_wage_source"`

	FullTime     *bool `json:"full_time"`
	TotalWorkers *int  `json:"total_workers"`

	ContactName  *string `json:"contact_name"`
	ContactTitle *string `json:"contact_title"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`

	JobDescription *string `json:"job_description"`
	Requirements   *string `json:"requirements"`
}

func (r patchRequest) toPatch() (posting.Patch, map[posting.Field]string) {
	errs := make(map[posting.Field]string)

	pt := posting.Patch{
		JobTitle:   r.JobTitle,
		CaseNumber: r.CaseNumber,
		SOCCode:    r.SOCCode,

		EmployerName:  r.EmployerName,
		EmployerTaxID: r.EmployerTaxID,

		WorksiteStreet:     r.WorksiteStreet,
		WorksiteCity:       r.WorksiteCity,
		WorksiteState:      r.WorksiteState,
		WorksitePostalCode: r.WorksitePostalCode,

		WageRate:             r.WageRate,
		PrevailingWage:       r.PrevailingWage,
		PrevailingWageSource: r.PrevailingWageSource,

		FullTime:     r.FullTime,
		TotalWorkers: r.TotalWorkers,

		ContactName:  r.ContactName,
		ContactTitle: r.ContactTitle,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,

		JobDescription: r.JobDescription,
		Requirements:   r.Requirements,
	}

	if r.VisaClass != nil {
		v := posting.VisaClass(*r.VisaClass)
		pt.VisaClass = &v
	}
	if r.WageUnit != nil {
		u := posting.WageUnit(*r.WageUnit)
		pt.WageUnit = &u
	}
	if r.PrevailingWageUnit != nil {
		u := posting.WageUnit(*r.PrevailingWageUnit)
		pt.PrevailingWageUnit = &u
	}
	if r.EmploymentStart != nil {
		t := parseWireDate(*r.EmploymentStart, posting.FieldEmploymentStart, errs)
		if !t.IsZero() {
			pt.EmploymentStart = &t
		}
	}
	if r.EmploymentEnd != nil {
		t := parseWireDate(*r.EmploymentEnd, posting.FieldEmploymentEnd, errs)
		if !t.IsZero() {
			pt.EmploymentEnd = &t
		}
	}
	return pt, errs
}

// parseWireDate returns the zero time for empty or malformed input; malformed
// input also records a field error. Presence itself is validation's call.
func parseWireDate(s string, field posting.Field, errs map[posting.Field]string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(wireDateLayout, s)
	if err != nil {
		errs[field] = "must be a date in YYYY-MM-DD format"
		return time.Time{}
	}
	return t.UTC()
}
