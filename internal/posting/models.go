package posting

import "time"

// Posting represents one Labor Condition Application disclosure.
//
// Invariants:
// - case_number matches I-ddd-ddddd-dddddd and is globally unique.
// - employment_end is strictly after employment_start.
// - wage_rate >= prevailing_wage when both are present.
//
// Storage: table lca_postings with UNIQUE (case_number).
type Posting struct {
	ID string `json:"id" db:"id"`

	JobTitle   string    `json:"job_title" db:"job_title"`
	CaseNumber string    `json:"case_number" db:"case_number"`
	VisaClass  VisaClass `json:"visa_class" db:"visa_class"`
	SOCCode    string    `json:"soc_code" db:"soc_code"`

	EmployerName  string `json:"employer_name" db:"employer_name"`
	EmployerTaxID string `json:"employer_tax_id" db:"employer_tax_id"`

	WorksiteStreet     string `json:"worksite_street" db:"worksite_street"`
	WorksiteCity       string `json:"worksite_city" db:"worksite_city"`
	WorksiteState      string `json:"worksite_state" db:"worksite_state"`
	WorksitePostalCode string `json:"worksite_postal_code" db:"worksite_postal_code"`

	EmploymentStart time.Time `json:"employment_start" db:"employment_start"`
	EmploymentEnd   time.Time `json:"employment_end" db:"employment_end"`

	WageRate             float64  `json:"wage_rate" db:"wage_rate"`
	WageUnit             WageUnit `json:"wage_unit" db:"wage_unit"`
	PrevailingWage       float64  `json:"prevailing_wage" db:"prevailing_wage"`
	PrevailingWageUnit   WageUnit `json:"prevailing_wage_unit" db:"prevailing_wage_unit"`
	PrevailingWageSource string   `json:"prevailing_wage_source" db:"prevailing_wage_source"`

	FullTime     bool `json:"full_time" db:"full_time"`
	TotalWorkers int  `json:"total_workers" db:"total_workers"`

	ContactName  string `json:"contact_name" db:"contact_name"`
	ContactTitle string `json:"contact_title,omitempty" db:"contact_title"`
	ContactEmail string `json:"contact_email" db:"contact_email"`
	ContactPhone string `json:"contact_phone,omitempty" db:"contact_phone"`

	JobDescription string `json:"job_description" db:"job_description"`
	Requirements   string `json:"requirements,omitempty" db:"requirements"`

	// DocumentPath is the object path of the optional supporting document.
	// DocumentURL is its publicly resolvable URL.
	DocumentPath string `json:"document_path,omitempty" db:"document_path"`
	DocumentURL  string `json:"document_url,omitempty" db:"document_url"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
}

type VisaClass string

const (
	VisaH1B  VisaClass = "H-1B"
	VisaH1B1 VisaClass = "H-1B1"
	VisaE3   VisaClass = "E-3"
)

func (v VisaClass) Valid() bool {
	switch v {
	case VisaH1B, VisaH1B1, VisaE3:
		return true
	default:
		return false
	}
}

// MaxEmploymentYears is the regulatory validity ceiling per visa class.
// Zero means no limit is enforced here.
func (v VisaClass) MaxEmploymentYears() int {
	switch v {
	case VisaH1B, VisaH1B1:
		return 3
	case VisaE3:
		return 2
	default:
		return 0
	}
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusCertified Status = "CERTIFIED"
	StatusDenied    Status = "DENIED"
	StatusWithdrawn Status = "WITHDRAWN"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusCertified, StatusDenied, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the posting state machine:
// DRAFT -> PENDING -> {CERTIFIED, DENIED} -> WITHDRAWN (terminal).
// Certification outcomes are recorded from the regulator, never computed here.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusPending
	case StatusPending:
		return next == StatusCertified || next == StatusDenied || next == StatusWithdrawn
	case StatusCertified, StatusDenied:
		return next == StatusWithdrawn
	default:
		return false
	}
}

type WageUnit string

const (
	WageUnitHour     WageUnit = "hour"
	WageUnitWeek     WageUnit = "week"
	WageUnitBiWeekly WageUnit = "bi-weekly"
	WageUnitMonth    WageUnit = "month"
	WageUnitYear     WageUnit = "year"
)

func (u WageUnit) Valid() bool {
	switch u {
	case WageUnitHour, WageUnitWeek, WageUnitBiWeekly, WageUnitMonth, WageUnitYear:
		return true
	default:
		return false
	}
}

// AnnualWage normalizes a rate to a yearly amount so offered and prevailing
// wages expressed in different units stay comparable.
func AnnualWage(rate float64, unit WageUnit) float64 {
	switch unit {
	case WageUnitHour:
		return rate * 2080
	case WageUnitWeek:
		return rate * 52
	case WageUnitBiWeekly:
		return rate * 26
	case WageUnitMonth:
		return rate * 12
	default:
		return rate
	}
}
