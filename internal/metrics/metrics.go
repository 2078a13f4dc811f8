// Package metrics computes the per-segment aggregates the report is built
// from: headline KPIs, monthly buckets on a shared axis, weekday volume and
// the weekend contribution split.
package metrics

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/byru-rnd/kasbon-analytics/internal/dataset"
	"github.com/byru-rnd/kasbon-analytics/internal/segment"
)

// MonthBucket aggregates one calendar month within one segment. Buckets are
// ordered by first chronological appearance in the date-sorted record
// stream, and that order is the canonical axis for every monthly series of
// the segment.
type MonthBucket struct {
	Label           string
	SumAmount       float64
	TxCount         int
	UniqueUsers     int
	UniqueCompanies int
}

// SegmentMetrics holds everything computed for one segment. Built fresh per
// run and never mutated afterwards.
type SegmentMetrics struct {
	Name string

	// HasData is false for an empty segment; all numeric fields are zero
	// then and callers must check before rendering or aggregating.
	HasData bool

	TotalAmount float64
	TxCount     int
	UniqueUsers int
	AvgTicket   float64
	MaxTicket   float64

	Months []MonthBucket

	// WeekdayCounts holds transaction counts Monday..Sunday.
	WeekdayCounts [7]int

	WeekendAmount    float64
	WeekendTxCount   int
	WeekendAmountPct float64
	WeekendTxPct     float64
}

// WeekdayNames is the fixed axis for the weekday-volume series.
var WeekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// MonthLabel formats the month identity of a date, e.g. "Jan-24".
func MonthLabel(d civil.Date) string {
	return d.In(time.UTC).Format("Jan-06")
}

// weekdayIndex maps a time.Weekday onto the Monday-first axis.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Compute derives the metrics for one segment. An empty segment yields a
// no-data object rather than an error.
func Compute(seg segment.Segment) SegmentMetrics {
	m := SegmentMetrics{Name: seg.Name}
	if len(seg.Records) == 0 {
		return m
	}
	m.HasData = true

	users := make(map[string]struct{})
	for _, rec := range seg.Records {
		m.TotalAmount += rec.Amount
		m.TxCount++
		users[rec.UserID] = struct{}{}
		if rec.Amount > m.MaxTicket {
			m.MaxTicket = rec.Amount
		}

		m.WeekdayCounts[weekdayIndex(rec.Weekday)]++
		if rec.IsWeekend() {
			m.WeekendAmount += rec.Amount
			m.WeekendTxCount++
		}
	}
	m.UniqueUsers = len(users)
	m.AvgTicket = m.TotalAmount / float64(m.TxCount)

	m.Months = monthBuckets(seg.Records)

	// Percentages are defined as zero when the denominator is zero.
	if m.TotalAmount > 0 {
		m.WeekendAmountPct = m.WeekendAmount / m.TotalAmount * 100
	}
	if m.TxCount > 0 {
		m.WeekendTxPct = float64(m.WeekendTxCount) / float64(m.TxCount) * 100
	}

	return m
}

// monthBuckets builds the canonical monthly axis from the sum/count
// grouping, then reindexes the companion unique-user/unique-company series
// onto it. The companion series is grouped independently and merged by
// axis position only: it can never introduce extra months or reorder the
// axis, and months it lacks are zero-filled.
func monthBuckets(records []dataset.Record) []MonthBucket {
	var buckets []MonthBucket
	position := make(map[string]int)

	for _, rec := range records {
		label := MonthLabel(rec.ApprovedDate)
		i, ok := position[label]
		if !ok {
			i = len(buckets)
			position[label] = i
			buckets = append(buckets, MonthBucket{Label: label})
		}
		buckets[i].SumAmount += rec.Amount
		buckets[i].TxCount++
	}

	uniqueUsers, uniqueCompanies := companionSeries(records)
	for i := range buckets {
		buckets[i].UniqueUsers = uniqueUsers[buckets[i].Label]
		buckets[i].UniqueCompanies = uniqueCompanies[buckets[i].Label]
	}

	return buckets
}

// companionSeries groups unique user and company counts by month label,
// independently of the canonical axis. Empty company names are not counted.
func companionSeries(records []dataset.Record) (users, companies map[string]int) {
	userSets := make(map[string]map[string]struct{})
	companySets := make(map[string]map[string]struct{})

	for _, rec := range records {
		label := MonthLabel(rec.ApprovedDate)
		if userSets[label] == nil {
			userSets[label] = make(map[string]struct{})
		}
		userSets[label][rec.UserID] = struct{}{}

		if rec.CompanyName != "" {
			if companySets[label] == nil {
				companySets[label] = make(map[string]struct{})
			}
			companySets[label][rec.CompanyName] = struct{}{}
		}
	}

	users = make(map[string]int, len(userSets))
	for label, set := range userSets {
		users[label] = len(set)
	}
	companies = make(map[string]int, len(companySets))
	for label, set := range companySets {
		companies[label] = len(set)
	}
	return users, companies
}

// PeakMonth returns the bucket with the highest SumAmount, first in axis
// order on ties. ok is false when the segment has no buckets.
func PeakMonth(m SegmentMetrics) (MonthBucket, bool) {
	if len(m.Months) == 0 {
		return MonthBucket{}, false
	}
	peak := m.Months[0]
	for _, b := range m.Months[1:] {
		if b.SumAmount > peak.SumAmount {
			peak = b
		}
	}
	return peak, true
}

// MonthOverMonthGrowth compares the last two buckets of the axis. ok is
// false when fewer than two buckets exist or the prior month's sum is zero;
// no growth figure is reported then.
func MonthOverMonthGrowth(m SegmentMetrics) (pct float64, ok bool) {
	n := len(m.Months)
	if n < 2 {
		return 0, false
	}
	prev, cur := m.Months[n-2], m.Months[n-1]
	if prev.SumAmount <= 0 {
		return 0, false
	}
	return (cur.SumAmount - prev.SumAmount) / prev.SumAmount * 100, true
}
