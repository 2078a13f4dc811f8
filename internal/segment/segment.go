// Package segment partitions a validated dataset into the analytic views
// the report is built from: the combined view plus, when the source file
// carried a category column, one view per recognized kasbon type.
package segment

import "github.com/byru-rnd/kasbon-analytics/internal/dataset"

// Segment names. CombinedName matches every record; the category names are
// matched exactly against the uppercased category value.
const (
	CombinedName = "Gabungan (EWA+PPOB)"
	CategoryEWA  = "EWA"
	CategoryPPOB = "PPOB"
)

// Segment is a named subset of the validated record set. Records are shared
// with the dataset and must not be mutated.
type Segment struct {
	Name    string
	Records []dataset.Record
}

// Partition builds the segments for one run: the combined segment always,
// and the EWA/PPOB segments when category detection succeeded. Records with
// an unrecognized category value stay in the combined segment only. Category
// segments may be empty; metrics flag them as having no data downstream.
func Partition(ds *dataset.Dataset) []Segment {
	segments := []Segment{{Name: CombinedName, Records: ds.Records}}

	if !ds.HasCategory {
		return segments
	}

	var ewa, ppob []dataset.Record
	for _, rec := range ds.Records {
		switch rec.Category {
		case CategoryEWA:
			ewa = append(ewa, rec)
		case CategoryPPOB:
			ppob = append(ppob, rec)
		}
	}

	segments = append(segments,
		Segment{Name: CategoryEWA, Records: ewa},
		Segment{Name: CategoryPPOB, Records: ppob},
	)
	return segments
}
