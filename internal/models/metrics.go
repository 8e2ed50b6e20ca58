package models

import (
	"net/url"
	"time"
)

// Payload is a raw response object from the insights backend. Keys follow no
// fixed naming scheme.
type Payload map[string]any

// Object returns the nested object stored under key, if any.
func (p Payload) Object(key string) (Payload, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	switch obj := v.(type) {
	case map[string]any:
		return Payload(obj), true
	case Payload:
		return obj, true
	}
	return nil, false
}

// MetricKind tags a canonical value as a currency amount or a plain count.
type MetricKind string

const (
	KindAmount MetricKind = "amount"
	KindCount  MetricKind = "count"
)

// Valid reports whether k is a known kind.
func (k MetricKind) Valid() bool {
	return k == KindAmount || k == KindCount
}

// CanonicalMetric is the single resolved value of a logical quantity.
type CanonicalMetric struct {
	Name  string     `json:"name"`
	Kind  MetricKind `json:"kind"`
	Value float64    `json:"value"`
}

// Filters are the dashboard filters forwarded to the backend on every poll.
type Filters struct {
	DateFrom     string   `json:"date_from,omitempty"`
	DateTo       string   `json:"date_to,omitempty"`
	States       []string `json:"state,omitempty"`
	Cities       []string `json:"city,omitempty"`
	Product      string   `json:"product,omitempty"`
	CreditPerson string   `json:"credit_person,omitempty"`
}

// FiltersFromQuery reads filters from page query parameters.
func FiltersFromQuery(q url.Values) Filters {
	return Filters{
		DateFrom:     q.Get("date_from"),
		DateTo:       q.Get("date_to"),
		States:       nonEmpty(q["state"]),
		Cities:       nonEmpty(q["city"]),
		Product:      q.Get("product"),
		CreditPerson: q.Get("credit_person"),
	}
}

// Query encodes the filters, dropping empty values.
func (f Filters) Query() url.Values {
	q := url.Values{}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}
	for _, s := range f.States {
		if s != "" {
			q.Add("state", s)
		}
	}
	for _, c := range f.Cities {
		if c != "" {
			q.Add("city", c)
		}
	}
	if f.Product != "" {
		q.Set("product", f.Product)
	}
	if f.CreditPerson != "" {
		q.Set("credit_person", f.CreditPerson)
	}
	return q
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot is the JSON view of the dashboard.
type Snapshot struct {
	Targets     map[string]string `json:"targets"`
	Charts      []ChartView       `json:"charts"`
	LastUpdated time.Time         `json:"last_updated"`
	Filters     Filters           `json:"filters"`
	Refresh     RefreshStatus     `json:"refresh"`
	Preferences map[string]string `json:"preferences"`
}

// RefreshStatus describes the poll cadence for display.
type RefreshStatus struct {
	State     string `json:"state"`
	Interval  int    `json:"interval"`
	Countdown string `json:"countdown"`
}
