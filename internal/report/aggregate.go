package report

import "reporter/internal/domain"

// Aggregate builds the report record for the period from per-site counts.
// The result does not depend on the order of counts.
func Aggregate(period domain.Period, counts []domain.SiteChangeCount) *domain.ReportRecord {
	record := domain.NewReportRecord(period.Label())
	record.Merge(counts...)
	return record
}
