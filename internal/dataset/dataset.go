package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ErrEmptyDataset is returned when the file has no rows, or none with a
// parseable approval date. Fatal: no report is produced.
var ErrEmptyDataset = errors.New("dataset has no valid rows with a parseable approval date")

// SchemaError reports required columns missing from the uploaded file.
// Fatal: validation aborts before any aggregation.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required columns missing: %s", strings.Join(e.Missing, ", "))
}

// Record is one validated kasbon disbursement. Immutable once built.
type Record struct {
	ApprovedDate civil.Date
	UserID       string
	EmployeeName string // falls back to UserID when the column is absent or empty
	CompanyName  string // empty when unknown
	Amount       float64
	Category     string // uppercased; empty when category detection is disabled
	Weekday      time.Weekday
}

// IsWeekend reports whether the record was approved on Saturday or Sunday.
func (r Record) IsWeekend() bool {
	return r.Weekday == time.Saturday || r.Weekday == time.Sunday
}

// Dataset is the validated, immutable snapshot one report run works from.
// Records are stable-sorted ascending by approval date, so downstream
// first-appearance orderings are reproducible.
type Dataset struct {
	Records []Record

	// HasCategory is false when no category column was found; segmentation
	// then degrades to the combined view only.
	HasCategory bool
	// HasCompany is false when no company column was found.
	HasCompany bool

	// DroppedRows counts input rows rejected during validation.
	DroppedRows int

	PeriodStart civil.Date
	PeriodEnd   civil.Date
}

// dateLayouts are tried in order when parsing the approval date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

func parseApprovedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// Validate turns a raw table into a Dataset.
//
// Required columns must be present (SchemaError otherwise). Rows whose date
// does not parse, whose user ID is empty, or whose amount is missing or
// negative are dropped and counted, not fatal. An empty surviving set is
// ErrEmptyDataset.
func Validate(t *Table) (*Dataset, error) {
	idx, err := resolveColumns(t.Headers)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	_, ds.HasCategory = idx[FieldCategory]
	_, ds.HasCompany = idx[FieldCompanyName]
	_, hasEmployee := idx[FieldEmployeeName]

	for _, row := range t.Rows {
		approved, err := parseApprovedDate(cell(row, idx[FieldApprovedDate]))
		if err != nil {
			ds.DroppedRows++
			continue
		}

		userID := strings.TrimSpace(cell(row, idx[FieldUserID]))
		if userID == "" {
			ds.DroppedRows++
			continue
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(cell(row, idx[FieldAmount])), 64)
		if err != nil || amount < 0 {
			ds.DroppedRows++
			continue
		}

		rec := Record{
			ApprovedDate: civil.DateOf(approved),
			UserID:       userID,
			EmployeeName: userID,
			Amount:       amount,
			Weekday:      approved.Weekday(),
		}
		if hasEmployee {
			if name := strings.TrimSpace(cell(row, idx[FieldEmployeeName])); name != "" {
				rec.EmployeeName = name
			}
		}
		if ds.HasCompany {
			rec.CompanyName = strings.TrimSpace(cell(row, idx[FieldCompanyName]))
		}
		if ds.HasCategory {
			rec.Category = strings.ToUpper(strings.TrimSpace(cell(row, idx[FieldCategory])))
		}

		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return nil, ErrEmptyDataset
	}

	// Stable: rows sharing a date keep their input order, so month-axis
	// first appearance and ranking tie-breaks are deterministic.
	sort.SliceStable(ds.Records, func(i, j int) bool {
		return ds.Records[i].ApprovedDate.Before(ds.Records[j].ApprovedDate)
	})

	ds.PeriodStart = ds.Records[0].ApprovedDate
	ds.PeriodEnd = ds.Records[len(ds.Records)-1].ApprovedDate

	return ds, nil
}

// IsFatal reports whether err aborts a report run (schema or empty-dataset
// failure, per the error taxonomy).
func IsFatal(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr) || errors.Is(err, ErrEmptyDataset)
}
