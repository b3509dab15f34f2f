package posting

import "time"

// Patch is a partial update: nil fields are left untouched. Status is not
// patchable; lifecycle transitions go through Service.SetStatus.
type Patch struct {
	JobTitle   *string    `json:"job_title,omitempty"`
	CaseNumber *string    `json:"case_number,omitempty"`
	VisaClass  *VisaClass `json:"visa_class,omitempty"`
	SOCCode    *string    `json:"soc_code,omitempty"`

	EmployerName  *string `json:"employer_name,omitempty"`
	EmployerTaxID *string `json:"employer_tax_id,omitempty"`

	WorksiteStreet     *string `json:"worksite_street,omitempty"`
	WorksiteCity       *string `json:"worksite_city,omitempty"`
	WorksiteState      *string `json:"worksite_state,omitempty"`
	WorksitePostalCode *string `json:"worksite_postal_code,omitempty"`

	EmploymentStart *time.Time `json:"employment_start,omitempty"`
	EmploymentEnd   *time.Time `json:"employment_end,omitempty"`

	WageRate             *float64  `json:"wage_rate,omitempty"`
	WageUnit             *WageUnit `json:"wage_unit,omitempty"`
	PrevailingWage       *float64  `json:"prevailing_wage,omitempty"`
	PrevailingWageUnit   *WageUnit `json:"prevailing_wage_unit,omitempty"`
	PrevailingWageSource *string   `json:"prevailing_wage_source,omitempty"`

	FullTime     *bool `json:"full_time,omitempty"`
	TotalWorkers *int  `json:"total_workers,omitempty"`

	ContactName  *string `json:"contact_name,omitempty"`
	ContactTitle *string `json:"contact_title,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`

	JobDescription *string `json:"job_description,omitempty"`
	Requirements   *string `json:"requirements,omitempty"`
}

// apply merges the patch into dst and returns the names of fields that
// actually changed, in declaration order.
func (pt Patch) apply(dst *Posting) []string {
	var changed []string

	setStr := func(name string, target *string, v *string) {
		if v != nil && *v != *target {
			*target = *v
			changed = append(changed, name)
		}
	}
	setTime := func(name string, target *time.Time, v *time.Time) {
		if v != nil && !v.Equal(*target) {
			*target = *v
			changed = append(changed, name)
		}
	}

	setStr(string(FieldJobTitle), &dst.JobTitle, pt.JobTitle)
	setStr(string(FieldCaseNumber), &dst.CaseNumber, pt.CaseNumber)
	if pt.VisaClass != nil && *pt.VisaClass != dst.VisaClass {
		dst.VisaClass = *pt.VisaClass
		changed = append(changed, string(FieldVisaClass))
	}
	setStr(string(FieldSOCCode), &dst.SOCCode, pt.SOCCode)
	setStr(string(FieldEmployerName), &dst.EmployerName, pt.EmployerName)
	setStr(string(FieldEmployerTaxID), &dst.EmployerTaxID, pt.EmployerTaxID)
	setStr(string(FieldWorksiteStreet), &dst.WorksiteStreet, pt.WorksiteStreet)
	setStr(string(FieldWorksiteCity), &dst.WorksiteCity, pt.WorksiteCity)
	setStr(string(FieldWorksiteState), &dst.WorksiteState, pt.WorksiteState)
	setStr(string(FieldWorksitePostalCode), &dst.WorksitePostalCode, pt.WorksitePostalCode)
	setTime(string(FieldEmploymentStart), &dst.EmploymentStart, pt.EmploymentStart)
	setTime(string(FieldEmploymentEnd), &dst.EmploymentEnd, pt.EmploymentEnd)
	if pt.WageRate != nil && *pt.WageRate != dst.WageRate {
		dst.WageRate = *pt.WageRate
		changed = append(changed, string(FieldWageRate))
	}
	if pt.WageUnit != nil && *pt.WageUnit != dst.WageUnit {
		dst.WageUnit = *pt.WageUnit
		changed = append(changed, string(FieldWageUnit))
	}
	if pt.PrevailingWage != nil && *pt.PrevailingWage != dst.PrevailingWage {
		dst.PrevailingWage = *pt.PrevailingWage
		changed = append(changed, string(FieldPrevailingWage))
	}
	if pt.PrevailingWageUnit != nil && *pt.PrevailingWageUnit != dst.PrevailingWageUnit {
		dst.PrevailingWageUnit = *pt.PrevailingWageUnit
		changed = append(changed, "prevailing_wage_unit")
	}
	setStr(string(FieldPrevailingWageSource), &dst.PrevailingWageSource, pt.PrevailingWageSource)
	if pt.FullTime != nil && *pt.FullTime != dst.FullTime {
		dst.FullTime = *pt.FullTime
		changed = append(changed, "full_time")
	}
	if pt.TotalWorkers != nil && *pt.TotalWorkers != dst.TotalWorkers {
		dst.TotalWorkers = *pt.TotalWorkers
		changed = append(changed, string(FieldTotalWorkers))
	}
	setStr(string(FieldContactName), &dst.ContactName, pt.ContactName)
	setStr("contact_title", &dst.ContactTitle, pt.ContactTitle)
	setStr(string(FieldContactEmail), &dst.ContactEmail, pt.ContactEmail)
	setStr(string(FieldContactPhone), &dst.ContactPhone, pt.ContactPhone)
	setStr(string(FieldJobDescription), &dst.JobDescription, pt.JobDescription)
	setStr("requirements", &dst.Requirements, pt.Requirements)

	return changed
}
