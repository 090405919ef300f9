// Package holiday resolves German public-holiday dates and school-year
// bounds from the public feiertage-api.de and ferien-api.de services.
//
// The export pipeline itself performs no network I/O; it only consumes the
// Resolved value produced here before the pipeline runs.
package holiday

import (
	"sort"
	"time"
)

// Bundeslaender maps the state codes accepted by both holiday APIs to
// their display names.
var Bundeslaender = map[string]string{
	"BW": "Baden-Württemberg", "BY": "Bayern", "BE": "Berlin", "BB": "Brandenburg",
	"HB": "Bremen", "HH": "Hamburg", "HE": "Hessen", "MV": "Mecklenburg-Vorpommern",
	"NI": "Niedersachsen", "NW": "Nordrhein-Westfalen", "RP": "Rheinland-Pfalz",
	"SL": "Saarland", "SN": "Sachsen", "ST": "Sachsen-Anhalt",
	"SH": "Schleswig-Holstein", "TH": "Thüringen",
}

// ValidLand reports whether code names a known Bundesland.
func ValidLand(code string) bool {
	_, ok := Bundeslaender[code]
	return ok
}

// Set is a set of civil dates. Membership ignores time-of-day and location.
type Set struct {
	dates map[string]time.Time
}

const dateKey = "2006-01-02"

// NewSet builds a Set from the given dates.
func NewSet(dates ...time.Time) Set {
	s := Set{dates: make(map[string]time.Time, len(dates))}
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts a date into the set.
func (s Set) Add(d time.Time) {
	s.dates[d.Format(dateKey)] = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the set holds the given civil date.
func (s Set) Contains(d time.Time) bool {
	_, ok := s.dates[d.Format(dateKey)]
	return ok
}

// Dates returns the member dates in ascending order, at UTC midnight.
func (s Set) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.dates))
	for _, d := range s.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Len returns the number of dates in the set.
func (s Set) Len() int { return len(s.dates) }

// Resolved is the outcome of holiday resolution for a set of years: the
// combined date set plus the years whose fetch failed. An empty set with no
// failed years genuinely means "no holidays"; a listed failed year means
// the answer for that year is unknown and callers should surface a warning
// rather than trust the empty result.
type Resolved struct {
	Dates  Set
	Failed []int
}

// None returns an empty resolution, for exports that skip holiday lookup.
func None() Resolved {
	return Resolved{Dates: NewSet()}
}
