package segment

import (
	"testing"

	"github.com/byru-rnd/kasbon-analytics/internal/dataset"
)

func rec(user, category string) dataset.Record {
	return dataset.Record{UserID: user, Category: category, Amount: 1}
}

func TestPartition_WithCategories(t *testing.T) {
	ds := &dataset.Dataset{
		HasCategory: true,
		Records: []dataset.Record{
			rec("u1", "EWA"),
			rec("u2", "PPOB"),
			rec("u3", "EWA"),
			rec("u4", "VOUCHER"), // unrecognized: combined only
		},
	}

	segments := Partition(ds)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}

	combined := segments[0]
	if combined.Name != CombinedName || len(combined.Records) != 4 {
		t.Errorf("combined = %q with %d records", combined.Name, len(combined.Records))
	}

	if segments[1].Name != CategoryEWA || len(segments[1].Records) != 2 {
		t.Errorf("EWA segment has %d records, want 2", len(segments[1].Records))
	}
	if segments[2].Name != CategoryPPOB || len(segments[2].Records) != 1 {
		t.Errorf("PPOB segment has %d records, want 1", len(segments[2].Records))
	}

	// Every categorized record is in at most one category segment.
	total := len(segments[1].Records) + len(segments[2].Records)
	if total > len(combined.Records) {
		t.Errorf("category segments hold %d records, more than combined %d", total, len(combined.Records))
	}
}

func TestPartition_WithoutCategoryColumn(t *testing.T) {
	ds := &dataset.Dataset{
		HasCategory: false,
		Records:     []dataset.Record{rec("u1", ""), rec("u2", "")},
	}

	segments := Partition(ds)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want combined only", len(segments))
	}
	if segments[0].Name != CombinedName {
		t.Errorf("segment name = %q", segments[0].Name)
	}
}

func TestPartition_EmptyCategorySegmentsStillPresent(t *testing.T) {
	ds := &dataset.Dataset{
		HasCategory: true,
		Records:     []dataset.Record{rec("u1", "EWA")},
	}

	segments := Partition(ds)
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}
	if len(segments[2].Records) != 0 {
		t.Errorf("PPOB segment should be empty, has %d", len(segments[2].Records))
	}
}
