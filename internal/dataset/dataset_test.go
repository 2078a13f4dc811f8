package dataset

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testTable(headers []string, rows ...[]string) *Table {
	return &Table{Headers: headers, Rows: rows}
}

var baseHeaders = []string{"Tanggal Approved", "Username/ ID User", "Total Kasbon"}

func TestValidate_MissingRequiredColumns(t *testing.T) {
	tbl := testTable([]string{"Tanggal Approved", "Total Kasbon"},
		[]string{"2024-01-05", "100000"},
	)

	_, err := Validate(tbl)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "Username/ ID User" {
		t.Errorf("Missing = %v, want [Username/ ID User]", schemaErr.Missing)
	}
	if !IsFatal(err) {
		t.Errorf("schema error should be fatal")
	}
}

func TestValidate_EmptyAndUnparseable(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{"no rows", nil},
		{"all dates unparseable", [][]string{
			{"not a date", "u1", "1000"},
			{"", "u2", "2000"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(&Table{Headers: baseHeaders, Rows: tt.rows})
			if !errors.Is(err, ErrEmptyDataset) {
				t.Fatalf("expected ErrEmptyDataset, got %v", err)
			}
			if !IsFatal(err) {
				t.Errorf("empty dataset should be fatal")
			}
		})
	}
}

func TestValidate_DropsBadRowsAndCounts(t *testing.T) {
	tbl := testTable(baseHeaders,
		[]string{"2024-01-05", "u1", "100000"},
		[]string{"garbage", "u2", "50000"},   // bad date
		[]string{"2024-01-06", "", "50000"},  // empty user
		[]string{"2024-01-07", "u3", "abc"},  // bad amount
		[]string{"2024-01-08", "u4", "-500"}, // negative amount
		[]string{"2024-01-09", "u5", "250000"},
	)

	ds, err := Validate(tbl)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(ds.Records))
	}
	if ds.DroppedRows != 4 {
		t.Errorf("DroppedRows = %d, want 4", ds.DroppedRows)
	}
}

func TestValidate_DerivedFieldsAndFallbacks(t *testing.T) {
	headers := []string{"Tanggal Approved", "Username/ ID User", "Total Kasbon", "Nama Karyawan", "Nama Perushaan", "Jenis EWA"}
	tbl := testTable(headers,
		[]string{"2024-01-05", "u1", "100000", "Budi", "PT Maju", "ewa"},
		[]string{"2024-01-06", "u2", "50000", "", "", "ppob"},
	)

	ds, err := Validate(tbl)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !ds.HasCategory || !ds.HasCompany {
		t.Fatalf("HasCategory=%v HasCompany=%v, want both true", ds.HasCategory, ds.HasCompany)
	}

	r0 := ds.Records[0]
	if r0.EmployeeName != "Budi" || r0.CompanyName != "PT Maju" || r0.Category != "EWA" {
		t.Errorf("record 0 = %+v", r0)
	}
	// 2024-01-05 is a Friday; 2024-01-06 a Saturday.
	if r0.Weekday != time.Friday {
		t.Errorf("weekday = %v, want Friday", r0.Weekday)
	}

	r1 := ds.Records[1]
	if r1.EmployeeName != "u2" {
		t.Errorf("empty employee name should fall back to user ID, got %q", r1.EmployeeName)
	}
	if r1.Weekday != time.Saturday || !r1.IsWeekend() {
		t.Errorf("record 1 weekday = %v, IsWeekend = %v", r1.Weekday, r1.IsWeekend())
	}
}

func TestValidate_NoCategoryColumnIsWarningOnly(t *testing.T) {
	tbl := testTable(baseHeaders,
		[]string{"2024-01-05", "u1", "100000"},
	)

	ds, err := Validate(tbl)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if ds.HasCategory {
		t.Errorf("HasCategory = true without a category column")
	}
	if ds.Records[0].Category != "" {
		t.Errorf("Category = %q, want empty", ds.Records[0].Category)
	}
}

func TestValidate_SortsStableByDate(t *testing.T) {
	tbl := testTable(baseHeaders,
		[]string{"2024-02-10", "b1", "1"},
		[]string{"2024-01-05", "a1", "1"},
		[]string{"2024-02-10", "b2", "1"},
		[]string{"2024-01-05", "a2", "1"},
	)

	ds, err := Validate(tbl)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	var order []string
	for _, r := range ds.Records {
		order = append(order, r.UserID)
	}
	want := "a1,a2,b1,b2"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("sorted order = %s, want %s", got, want)
	}
	if ds.PeriodStart.String() != "2024-01-05" || ds.PeriodEnd.String() != "2024-02-10" {
		t.Errorf("period = %s..%s", ds.PeriodStart, ds.PeriodEnd)
	}
}

func TestValidate_CategoryAliasPriority(t *testing.T) {
	// Both "Jenis EWA" and "Jenis" present: the higher-priority alias wins.
	headers := []string{"Tanggal Approved", "Username/ ID User", "Total Kasbon", "Jenis", "Jenis EWA"}
	tbl := testTable(headers,
		[]string{"2024-01-05", "u1", "100000", "WRONG", "EWA"},
	)

	ds, err := Validate(tbl)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if ds.Records[0].Category != "EWA" {
		t.Errorf("Category = %q, want EWA from the priority alias", ds.Records[0].Category)
	}
}

func TestReadCSV(t *testing.T) {
	in := "Tanggal Approved,Username/ ID User,Total Kasbon\n2024-01-05,u1,100000\n2024-01-06,u2,50000\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(tbl.Headers) != 3 || len(tbl.Rows) != 2 {
		t.Fatalf("got %d headers / %d rows", len(tbl.Headers), len(tbl.Rows))
	}
	if tbl.Rows[1][2] != "50000" {
		t.Errorf("cell = %q, want 50000", tbl.Rows[1][2])
	}
}

func TestLoadTable_UnsupportedExtension(t *testing.T) {
	_, err := LoadTable(strings.NewReader("x"), "data.pdf")
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
