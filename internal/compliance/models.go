package compliance

import "time"

type AlertType string

const (
	AlertWage          AlertType = "wage"
	AlertDates         AlertType = "dates"
	AlertDocumentation AlertType = "documentation"
	AlertLocation      AlertType = "location"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is a derived, non-persistent finding. One alert covers every posting
// sharing the same issue type; affected postings are referenced by case number.
type Alert struct {
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`

	AffectedCaseNumbers []string `json:"affected_case_numbers"`

	// AutoFixAvailable is a static property of the alert type, not computed
	// from data. Auto-fix execution is a designed extension point; it is not
	// implemented here.
	AutoFixAvailable bool `json:"auto_fix_available"`
}

// Report is the dashboard-style output of one compliance scan.
type Report struct {
	Alerts             []Alert   `json:"alerts"`
	ComplianceScore    int       `json:"compliance_score"`
	TotalIssues        int       `json:"total_issues"`
	HighPriorityIssues int       `json:"high_priority_issues"`
	PostingsScanned    int       `json:"postings_scanned"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// alertDef is the fixed per-type lookup: severity, copy, and auto-fixability
// never vary with the scanned data.
type alertDef struct {
	severity       Severity
	title          string
	description    string
	recommendation string
	autoFix        bool
	penalty        int
}

var alertDefs = map[AlertType]alertDef{
	AlertWage: {
		severity:       SeverityHigh,
		title:          "Wage below prevailing wage",
		description:    "The offered wage rate is below the prevailing wage determination for the occupation and area.",
		recommendation: "Raise the offered wage to at least the prevailing wage, or obtain an updated wage determination.",
		autoFix:        false,
		penalty:        25,
	},
	AlertDates: {
		severity:       SeverityMedium,
		title:          "Employment period violates visa limits",
		description:    "The requested employment period is invalid or exceeds the maximum validity for the visa classification.",
		recommendation: "Adjust the employment end date to fall within the permitted validity period.",
		autoFix:        true,
		penalty:        10,
	},
	AlertDocumentation: {
		severity:       SeverityMedium,
		title:          "Incomplete job description",
		description:    "The job description is missing or too brief to satisfy public disclosure requirements.",
		recommendation: "Provide a complete description of duties, requirements, and working conditions.",
		autoFix:        true,
		penalty:        10,
	},
	AlertLocation: {
		severity:       SeverityLow,
		title:          "Incomplete worksite address",
		description:    "One or more worksite address components are missing or malformed.",
		recommendation: "Complete the worksite street, city, state, and ZIP code.",
		autoFix:        false,
		penalty:        5,
	},
}

// alertOrder fixes report ordering so repeated scans over the same postings
// yield identical output.
var alertOrder = []AlertType{AlertWage, AlertDates, AlertDocumentation, AlertLocation}
