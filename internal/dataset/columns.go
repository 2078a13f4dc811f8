package dataset

import "strings"

// Field identifies one logical column of the kasbon dataset.
type Field int

const (
	// FieldApprovedDate is the approval timestamp of the advance.
	FieldApprovedDate Field = iota
	// FieldUserID is the user identifier.
	FieldUserID
	// FieldAmount is the disbursed amount.
	FieldAmount
	// FieldEmployeeName is the optional display name.
	FieldEmployeeName
	// FieldCompanyName is the optional employer name.
	FieldCompanyName
	// FieldCategory is the optional transaction type (EWA/PPOB).
	FieldCategory
)

// fieldAliases lists accepted header names per logical field, in priority
// order. The first header that matches wins. This is configuration data:
// the upstream export has renamed these columns more than once.
var fieldAliases = map[Field][]string{
	FieldApprovedDate: {"Tanggal Approved"},
	FieldUserID:       {"Username/ ID User"},
	FieldAmount:       {"Total Kasbon"},
	FieldEmployeeName: {"Nama Karyawan"},
	// "Nama Perushaan" is a long-lived typo in the source export.
	FieldCompanyName: {"Nama Perushaan", "Nama Perusahaan", "Company", "Nama Company"},
	FieldCategory:    {"Jenis EWA", "JENIS EWA", "Jenis", "JENIS", "Jenis Transaksi", "Jenis_Kasbon"},
}

// requiredFields are the columns a dataset must carry to be processed at all.
var requiredFields = []Field{FieldApprovedDate, FieldUserID, FieldAmount}

// Name returns the primary header name of the field, used in error messages.
func (f Field) Name() string {
	return fieldAliases[f][0]
}

// columnIndex maps resolved logical fields to positions in a table row.
// Optional fields that were not found are absent from the map.
type columnIndex map[Field]int

// resolveColumns matches table headers against the alias lists once, up
// front. Returns a SchemaError naming every missing required column.
func resolveColumns(headers []string) (columnIndex, error) {
	byName := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if _, seen := byName[name]; !seen {
			byName[name] = i
		}
	}

	idx := make(columnIndex)
	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			if i, ok := byName[alias]; ok {
				idx[field] = i
				break
			}
		}
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := idx[field]; !ok {
			missing = append(missing, field.Name())
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	return idx, nil
}
