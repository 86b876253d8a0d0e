// Package domain defines the core types shared by the reporting job: the
// reporting period, the fixed site list and the aggregated report record.
package domain

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Sites
// ---------------------------------------------------------------------------

// Site identifies one of the visitor-facing properties tracked by the CMS.
type Site string

const (
	SiteAMP   Site = "amp"
	SiteANBG  Site = "anbg"
	SiteBNP   Site = "bnp"
	SiteCINP  Site = "cinp"
	SiteCORP  Site = "corp"
	SiteKNP   Site = "knp"
	SiteNINP  Site = "ninp"
	SitePKNP  Site = "pknp"
	SiteUKTNP Site = "uktnp"
)

// siteOrder is the declaration order of the sites.
var siteOrder = []Site{
	SiteAMP,
	SiteANBG,
	SiteBNP,
	SiteCINP,
	SiteCORP,
	SiteKNP,
	SiteNINP,
	SitePKNP,
	SiteUKTNP,
}

// siteTargetIDs maps each site to the backend's field_site target id. The
// backend numbers sites from 1 in declaration order; the mapping is kept
// explicit so a reordering of siteOrder cannot silently change it.
var siteTargetIDs = map[Site]int{
	SiteAMP:   1,
	SiteANBG:  2,
	SiteBNP:   3,
	SiteCINP:  4,
	SiteCORP:  5,
	SiteKNP:   6,
	SiteNINP:  7,
	SitePKNP:  8,
	SiteUKTNP: 9,
}

// Sites returns the fixed site list in declaration order. The returned slice
// is a copy.
func Sites() []Site {
	out := make([]Site, len(siteOrder))
	copy(out, siteOrder)
	return out
}

// Valid reports whether s is one of the known sites.
func (s Site) Valid() bool {
	_, ok := siteTargetIDs[s]
	return ok
}

// TargetID returns the 1-based backend site id, or 0 for an unknown site.
func (s Site) TargetID() int { return siteTargetIDs[s] }

// FigureField returns the taxonomy term attribute that holds the site's
// changed-page count.
func (s Site) FigureField() string {
	return "field_reporting_" + string(s) + "_figure"
}

// ---------------------------------------------------------------------------
// Period
// ---------------------------------------------------------------------------

// ParamLayout is the timestamp format the backend's changed filter expects.
const ParamLayout = "2006-01-02 15:04:05"

// Period is a reporting window covering one whole calendar month.
type Period struct {
	Year  int
	Month time.Month
	Start time.Time // first instant of the month, inclusive
	End   time.Time // last second of the month, inclusive
}

// Label returns the period name used for the reporting entry, e.g. "2024-06".
func (p Period) Label() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// StartParam returns Start formatted for the backend query.
func (p Period) StartParam() string { return p.Start.Format(ParamLayout) }

// EndParam returns End formatted for the backend query.
func (p Period) EndParam() string { return p.End.Format(ParamLayout) }

// ---------------------------------------------------------------------------
// Counts and records
// ---------------------------------------------------------------------------

// SiteChangeCount is the number of pages changed on a site within a period.
type SiteChangeCount struct {
	Site  Site
	Count int
}

// ReportRecord is the aggregated report for one period.
type ReportRecord struct {
	Label  string
	Counts map[Site]int
}

// NewReportRecord returns an empty record for the given period label.
func NewReportRecord(label string) *ReportRecord {
	return &ReportRecord{
		Label:  label,
		Counts: make(map[Site]int, len(siteOrder)),
	}
}

// Merge sets the count for each given site. Later values for the same site
// overwrite earlier ones.
func (r *ReportRecord) Merge(counts ...SiteChangeCount) {
	for _, c := range counts {
		r.Counts[c.Site] = c.Count
	}
}

// Missing returns the sites that have no count, in declaration order.
func (r *ReportRecord) Missing() []Site {
	var missing []Site
	for _, s := range siteOrder {
		if _, ok := r.Counts[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

// Attributes renders the record as taxonomy term attributes: the period
// name plus one figure field per site that has a count.
func (r *ReportRecord) Attributes() map[string]any {
	attrs := make(map[string]any, len(r.Counts)+1)
	attrs["name"] = r.Label
	for site, count := range r.Counts {
		attrs[site.FigureField()] = count
	}
	return attrs
}
