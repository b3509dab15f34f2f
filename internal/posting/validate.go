package posting

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Field identifies one validated posting attribute. Values double as the keys
// of the error map returned to clients, so keep them stable.
type Field string

const (
	FieldJobTitle             Field = "job_title"
	FieldCaseNumber           Field = "case_number"
	FieldVisaClass            Field = "visa_class"
	FieldSOCCode              Field = "soc_code"
	FieldEmployerName         Field = "employer_name"
	FieldEmployerTaxID        Field = "employer_tax_id"
	FieldWorksiteStreet       Field = "worksite_street"
	FieldWorksiteCity         Field = "worksite_city"
	FieldWorksiteState        Field = "worksite_state"
	FieldWorksitePostalCode   Field = "worksite_postal_code"
	FieldEmploymentStart      Field = "employment_start"
	FieldEmploymentEnd        Field = "employment_end"
	FieldWageRate             Field = "wage_rate"
	FieldWageUnit             Field = "wage_unit"
	FieldPrevailingWage       Field = "prevailing_wage"
	FieldPrevailingWageSource Field = "prevailing_wage_source"
	FieldTotalWorkers         Field = "total_workers"
	FieldContactName          Field = "contact_name"
	FieldContactEmail         Field = "contact_email"
	FieldContactPhone         Field = "contact_phone"
	FieldJobDescription       Field = "job_description"
)

// ValidationResult is the outcome of validating one candidate posting.
// Errors always carries every failing field, never just the first.
type ValidationResult struct {
	IsValid              bool             `json:"is_valid"`
	Errors               map[Field]string `json:"errors"`
	MissingFields        []string         `json:"missing_fields"`
	CompletionPercentage int              `json:"completion_percentage"`
}

// Format patterns. Centralized here so create and update paths cannot drift.
var (
	reCaseNumber = regexp.MustCompile(`^I-\d{3}-\d{5}-\d{6}$`)
	rePostalCode = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	reSOCCode    = regexp.MustCompile(`^\d{2}-\d{4}$`)
	reTaxID      = regexp.MustCompile(`^\d{2}-\d{7}$`)
	reEmail      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rePhone      = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
)

type fieldRule struct {
	field    Field
	label    string
	required bool

	present func(p *Posting) bool

	// check applies format/domain validation independently of presence.
	// It runs only when the field has a value and returns "" when valid.
	check func(p *Posting) string
}

// ruleTable is the single source of truth for per-field validation.
// Order is significant: MissingFields and error iteration stay deterministic.
var ruleTable = []fieldRule{
	{field: FieldJobTitle, label: "Job Title", required: true, present: strPresent(func(p *Posting) string { return p.JobTitle })},
	{field: FieldCaseNumber, label: "Case Number", required: true,
		present: strPresent(func(p *Posting) string { return p.CaseNumber }),
		check: matches(func(p *Posting) string { return p.CaseNumber }, reCaseNumber,
			"case number must match I-###-#####-######")},
	{field: FieldVisaClass, label: "Visa Class", required: true,
		present: func(p *Posting) bool { return p.VisaClass != "" },
		check: func(p *Posting) string {
			if p.VisaClass != "" && !p.VisaClass.Valid() {
				return fmt.Sprintf("visa class must be one of %s, %s, %s", VisaH1B, VisaH1B1, VisaE3)
			}
			return ""
		}},
	{field: FieldSOCCode, label: "SOC Code", required: true,
		present: strPresent(func(p *Posting) string { return p.SOCCode }),
		check:   matches(func(p *Posting) string { return p.SOCCode }, reSOCCode, "SOC code must match ##-####")},
	{field: FieldEmployerName, label: "Employer Name", required: true, present: strPresent(func(p *Posting) string { return p.EmployerName })},
	{field: FieldEmployerTaxID, label: "Employer Tax ID (FEIN)", required: true,
		present: strPresent(func(p *Posting) string { return p.EmployerTaxID }),
		check:   matches(func(p *Posting) string { return p.EmployerTaxID }, reTaxID, "employer tax ID must match ##-#######")},
	{field: FieldWorksiteStreet, label: "Worksite Street", required: true, present: strPresent(func(p *Posting) string { return p.WorksiteStreet })},
	{field: FieldWorksiteCity, label: "Worksite City", required: true, present: strPresent(func(p *Posting) string { return p.WorksiteCity })},
	{field: FieldWorksiteState, label: "Worksite State", required: true, present: strPresent(func(p *Posting) string { return p.WorksiteState })},
	{field: FieldWorksitePostalCode, label: "Worksite Postal Code", required: true,
		present: strPresent(func(p *Posting) string { return p.WorksitePostalCode }),
		check:   matches(func(p *Posting) string { return p.WorksitePostalCode }, rePostalCode, "postal code must be a 5 or 9 digit US ZIP")},
	{field: FieldEmploymentStart, label: "Employment Start Date", required: true,
		present: func(p *Posting) bool { return !p.EmploymentStart.IsZero() }},
	{field: FieldEmploymentEnd, label: "Employment End Date", required: true,
		present: func(p *Posting) bool { return !p.EmploymentEnd.IsZero() }},
	{field: FieldWageRate, label: "Wage Rate", required: true,
		present: func(p *Posting) bool { return p.WageRate > 0 }},
	{field: FieldWageUnit, label: "Wage Unit", required: true,
		present: func(p *Posting) bool { return p.WageUnit != "" },
		check: func(p *Posting) string {
			if p.WageUnit != "" && !p.WageUnit.Valid() {
				return "wage unit must be one of hour, week, bi-weekly, month, year"
			}
			return ""
		}},
	{field: FieldPrevailingWage, label: "Prevailing Wage", required: true,
		present: func(p *Posting) bool { return p.PrevailingWage > 0 }},
	{field: FieldPrevailingWageSource, label: "Prevailing Wage Source", required: true, present: strPresent(func(p *Posting) string { return p.PrevailingWageSource })},
	{field: FieldTotalWorkers, label: "Total Worker Positions", required: true,
		present: func(p *Posting) bool { return p.TotalWorkers > 0 }},
	{field: FieldContactName, label: "Contact Person", required: true, present: strPresent(func(p *Posting) string { return p.ContactName })},
	{field: FieldContactEmail, label: "Contact Email", required: true,
		present: strPresent(func(p *Posting) string { return p.ContactEmail }),
		check:   matches(func(p *Posting) string { return p.ContactEmail }, reEmail, "contact email is not a valid address")},
	{field: FieldContactPhone, label: "Contact Phone", required: false,
		present: strPresent(func(p *Posting) string { return p.ContactPhone }),
		check:   matches(func(p *Posting) string { return p.ContactPhone }, rePhone, "contact phone must match (###) ###-####")},
	{field: FieldJobDescription, label: "Job Description", required: true, present: strPresent(func(p *Posting) string { return p.JobDescription })},
}

// Validate checks presence, format, and cross-field relationships on a
// candidate posting. Pure computation; failures are reported, never thrown.
// CompletionPercentage is computed even when format or relational checks
// fail, to support partial-progress UI.
func Validate(p *Posting) ValidationResult {
	res := ValidationResult{
		Errors:        make(map[Field]string),
		MissingFields: []string{},
	}

	requiredTotal := 0
	requiredPresent := 0

	for _, r := range ruleTable {
		has := r.present(p)
		if r.required {
			requiredTotal++
			if has {
				requiredPresent++
			} else {
				res.MissingFields = append(res.MissingFields, r.label)
				res.Errors[r.field] = fmt.Sprintf("%s is required", r.label)
			}
		}
		if r.check != nil && has {
			if msg := r.check(p); msg != "" {
				res.Errors[r.field] = msg
			}
		}
	}

	// Relational checks run regardless of earlier failures so the caller sees
	// every offending field at once.
	if !p.EmploymentStart.IsZero() && !p.EmploymentEnd.IsZero() && !p.EmploymentEnd.After(p.EmploymentStart) {
		res.Errors[FieldEmploymentEnd] = "employment end date must be after the start date"
	}
	if p.WageRate > 0 && p.PrevailingWage > 0 {
		offered := AnnualWage(p.WageRate, p.WageUnit)
		prevailing := AnnualWage(p.PrevailingWage, p.PrevailingWageUnit)
		if offered < prevailing {
			res.Errors[FieldWageRate] = "wage rate must be at least the prevailing wage"
		}
	}

	if requiredTotal > 0 {
		res.CompletionPercentage = int(math.Round(100 * float64(requiredPresent) / float64(requiredTotal)))
	}
	res.IsValid = len(res.Errors) == 0
	return res
}

func strPresent(get func(p *Posting) string) func(p *Posting) bool {
	return func(p *Posting) bool { return strings.TrimSpace(get(p)) != "" }
}

func matches(get func(p *Posting) string, re *regexp.Regexp, msg string) func(p *Posting) string {
	return func(p *Posting) string {
		v := strings.TrimSpace(get(p))
		if v == "" {
			return ""
		}
		if !re.MatchString(v) {
			return msg
		}
		return ""
	}
}
