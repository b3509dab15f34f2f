// Package export renders postings for public disclosure. It is a pure
// formatting transform over posting records; no business logic lives here.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"lca-platform/internal/posting"

	"github.com/xuri/excelize/v2"
)

// columns is the fixed public-disclosure column ordering. Keep stable: the
// export is consumed by downstream compliance tooling.
var columns = []string{
	"Case Number",
	"Job Title",
	"Employer",
	"Location",
	"Worksite Address",
	"Visa Class",
	"Employment Start",
	"Employment End",
	"Wage Rate",
	"Prevailing Wage",
	"Full-Time",
	"Status",
	"Posted Date",
}

const dateLayout = "2006-01-02"

func row(p posting.Posting) []string {
	return []string{
		p.CaseNumber,
		p.JobTitle,
		p.EmployerName,
		location(p),
		p.WorksiteStreet,
		string(p.VisaClass),
		formatDate(p.EmploymentStart),
		formatDate(p.EmploymentEnd),
		formatWage(p.WageRate, p.WageUnit),
		formatWage(p.PrevailingWage, p.PrevailingWageUnit),
		formatBool(p.FullTime),
		string(p.Status),
		formatDate(p.CreatedAt),
	}
}

// WriteCSV renders postings as CSV with the fixed disclosure columns.
func WriteCSV(w io.Writer, postings []posting.Posting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, p := range postings {
		if err := cw.Write(row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders postings as a single-sheet spreadsheet.
func WriteXLSX(w io.Writer, postings []posting.Posting) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Postings"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for i, h := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for rowIdx, p := range postings {
		for colIdx, v := range row(p) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func location(p posting.Posting) string {
	parts := []string{}
	if s := strings.TrimSpace(p.WorksiteCity); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(p.WorksiteState); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func formatWage(rate float64, unit posting.WageUnit) string {
	if rate <= 0 {
		return ""
	}
	if unit == "" {
		return fmt.Sprintf("$%.2f", rate)
	}
	return fmt.Sprintf("$%.2f/%s", rate, unit)
}

func formatBool(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
