package domain

import "time"

// Site is one configured endpoint. Site (the URL) is the identity.
type Site struct {
	Site string `json:"site" yaml:"site"`
	Name string `json:"name" yaml:"name"`
}

// Outcome is the result of probing a site during one cycle.
type Outcome struct {
	Site       string    `json:"site"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	Attempts   int       `json:"attempts"`
}

// Fact is a persisted outcome. At most one exists per (Site, Timestamp).
type Fact struct {
	Site       string    `json:"site"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
}

// AggregatedStatus is the latest fact for a site plus its rolling success average.
type AggregatedStatus struct {
	Site       string    `json:"site"`
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	Avg        float64   `json:"avg"`
}

// Fact converts an outcome into the row that gets stored.
func (o Outcome) Fact() Fact {
	return Fact{
		Site:       o.Site,
		Timestamp:  o.Timestamp,
		Success:    o.Success,
		StatusCode: o.StatusCode,
	}
}

// TruncateMinute drops seconds and sub-second precision and normalises to UTC.
func TruncateMinute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// SiteKeys returns the identity of every site, in order.
func SiteKeys(sites []Site) []string {
	keys := make([]string, 0, len(sites))
	for _, s := range sites {
		keys = append(keys, s.Site)
	}
	return keys
}
