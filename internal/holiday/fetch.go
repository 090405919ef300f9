package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
)

const (
	defaultFeiertageURL = "https://feiertage-api.de"
	defaultFerienURL    = "https://ferien-api.de"
)

// Client queries the public holiday APIs. The zero value is not usable;
// construct it with NewClient.
type Client struct {
	httpClient   *http.Client
	feiertageURL string
	ferienURL    string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the API endpoints, mainly for tests.
func WithBaseURLs(feiertageURL, ferienURL string) Option {
	return func(c *Client) {
		c.feiertageURL = strings.TrimRight(feiertageURL, "/")
		c.ferienURL = strings.TrimRight(ferienURL, "/")
	}
}

// NewClient creates a holiday API client with a bounded request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		feiertageURL: defaultFeiertageURL,
		ferienURL:    defaultFerienURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// feiertagEntry is one holiday in the feiertage-api.de per-year response,
// which maps holiday names to {datum, hinweis} objects.
type feiertagEntry struct {
	Datum string `json:"datum"`
}

// Fetch resolves the public holidays of the given years for one Bundesland.
// A year whose fetch fails is recorded in Resolved.Failed and contributes
// no dates; the other years are still resolved. Fetch never returns an
// error because partial data is always usable downstream.
func (c *Client) Fetch(ctx context.Context, years []int, land string) Resolved {
	out := Resolved{Dates: NewSet()}

	for _, year := range years {
		dates, err := c.fetchYear(ctx, year, land)
		if err != nil {
			log.Warn("holiday fetch failed, treating year as unknown",
				"year", year, "land", land, "err", err.Error())
			out.Failed = append(out.Failed, year)
			continue
		}
		for _, d := range dates {
			out.Dates.Add(d)
		}
		log.Info("holidays resolved", "year", year, "land", land, "count", len(dates))
	}

	return out
}

func (c *Client) fetchYear(ctx context.Context, year int, land string) ([]time.Time, error) {
	url := fmt.Sprintf("%s/api/?jahr=%d&nur_land=%s", c.feiertageURL, year, land)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var entries map[string]feiertagEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode feiertage response: %w", err)
	}

	dates := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		d, err := time.Parse("2006-01-02", e.Datum)
		if err != nil {
			// A single unparsable date should not discard the year.
			log.Warn("skipping unparsable holiday date", "datum", e.Datum, "year", year)
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// vacationEntry is one school-vacation span in the ferien-api.de response.
type vacationEntry struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// SchoolYear derives the school-year date range surrounding the given day:
// the day after the current summer vacation ends through the day before the
// next summer vacation starts. Before August the previous calendar year's
// summer break is the relevant one.
func (c *Client) SchoolYear(ctx context.Context, land string, today time.Time) (model.DateRange, error) {
	searchYear := today.Year()
	if today.Month() < time.August {
		searchYear--
	}

	current, err := c.summerVacation(ctx, land, searchYear)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("summer vacation %d: %w", searchYear, err)
	}
	next, err := c.summerVacation(ctx, land, searchYear+1)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("summer vacation %d: %w", searchYear+1, err)
	}

	start := current.end.AddDate(0, 0, 1)
	end := next.start.AddDate(0, 0, -1)
	return model.NewDateRange(start, end)
}

type vacationSpan struct {
	start time.Time
	end   time.Time
}

func (c *Client) summerVacation(ctx context.Context, land string, year int) (vacationSpan, error) {
	url := fmt.Sprintf("%s/api/v1/holidays/%s/%d", c.ferienURL, land, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return vacationSpan{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return vacationSpan{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return vacationSpan{}, errors.New(resp.Status)
	}

	var entries []vacationEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return vacationSpan{}, fmt.Errorf("decode ferien response: %w", err)
	}

	for _, e := range entries {
		if !strings.Contains(strings.ToLower(e.Name), "sommerferien") {
			continue
		}
		start, err := parseVacationDate(e.Start)
		if err != nil {
			return vacationSpan{}, fmt.Errorf("vacation start %q: %w", e.Start, err)
		}
		end, err := parseVacationDate(e.End)
		if err != nil {
			return vacationSpan{}, fmt.Errorf("vacation end %q: %w", e.End, err)
		}
		return vacationSpan{start: start, end: end}, nil
	}
	return vacationSpan{}, fmt.Errorf("no summer vacation found for %s/%d", land, year)
}

// parseVacationDate accepts the date formats ferien-api.de has been seen
// to emit.
func parseVacationDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
