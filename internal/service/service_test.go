package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/edge-dashboard/internal/display"
	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/Dan9191/edge-dashboard/internal/normalizer"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type stubFetcher struct {
	payload models.Payload
	err     error
	filters models.Filters
	token   string
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, filters models.Filters, token string) (models.Payload, error) {
	f.calls++
	f.filters = filters
	f.token = token
	return f.payload, f.err
}

type recordedEvent struct{ name, data string }

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(event, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, data})
}

var fixedNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T, f Fetcher, events Publisher) *Service {
	t.Helper()
	s := NewService(Options{
		Normalizer: normalizer.New(normalizer.DefaultAliases(), nil),
		Client:     f,
		Events:     events,
		APIKey:     "api-key",
		PublicURL:  "/dashboard/",
	}, quietLogger())
	s.SetNowFunc(func() time.Time { return fixedNow })
	return s
}

func payload(t *testing.T, raw string) models.Payload {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var p models.Payload
	if err := dec.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func target(t *testing.T, s *Service, name string) string {
	t.Helper()
	v, ok := s.Board().Get(name)
	if !ok {
		t.Fatalf("target %s not registered", name)
	}
	return v
}

func TestApplyWritesTargets(t *testing.T) {
	s := newTestService(t, nil, nil)
	s.Apply(payload(t, `{
		"total_records": 1650,
		"total_loan_amount": "13762563.4",
		"repayment_amount": 2500,
		"average_tenure": 29.6,
		"fresh_average_tenure": 14.2,
		"collection_metrics": {
			"fresh_collection_amount": 100,
			"reloan_collection_amount": 50,
			"total_collection_amount": 999,
			"repayment_amount": 777,
			"fresh_count": "3",
			"reloan_count": 2
		}
	}`))

	want := map[string]string{
		"total_records":                   "1,650",
		"total_loan_amount":               "₹1,37,62,563",
		"repayment_amount":                "₹2,500",
		"average_tenure":                  "30",
		"fresh_average_tenure":            "14 days",
		"collection_total":                "₹150",
		"collection_total_amount_display": "₹150",
		"collection_fresh_amount":         "₹100",
		"collection_prepayment_amount":    "₹0",
		"collection_total_count":          "5 count",
		"collection_overdue_count":        "0 count",
	}
	for name, text := range want {
		if got := target(t, s, name); got != text {
			t.Errorf("%s = %q, want %q", name, got, text)
		}
	}
	if got := target(t, s, "reloan_average_tenure"); got != "" {
		t.Errorf("absent flat field was written: %q", got)
	}
}

func TestApplyWithoutCollectionSection(t *testing.T) {
	s := newTestService(t, nil, nil)
	s.Board().Set("collection_total", "₹10")
	s.Apply(payload(t, `{"collection_metrics": "unavailable"}`))
	if got := target(t, s, "collection_total"); got != "₹10" {
		t.Fatalf("collection_total = %q, want untouched", got)
	}
}

func TestApplySkipsUnregisteredTargets(t *testing.T) {
	s := NewService(Options{
		Board:      display.NewBoard("collection_total"),
		Normalizer: normalizer.New(normalizer.DefaultAliases(), nil),
	}, quietLogger())
	written := s.Apply(payload(t, `{"total_records": 4, "collection_metrics": {"fresh": 1}}`))
	if written != 1 {
		t.Fatalf("written = %d, want 1", written)
	}
	if names := s.Board().Names(); len(names) != 1 {
		t.Fatalf("board grew: %v", names)
	}
}

func TestApplyCharts(t *testing.T) {
	s := newTestService(t, nil, nil)
	s.Apply(payload(t, `{
		"state_labels": "[\"KA\", \"MH\"]",
		"state_values": "[10, 5]",
		"state_sanction": "[12, 6]",
		"city_labels": "[\"Pune\"",
		"city_values": "[1]",
		"source_labels": ["web", "app"],
		"source_values": [3, "4"],
		"source_counts": [1, 2]
	}`))

	state, ok := s.Charts().Get("state")
	if !ok || len(state.Data.Labels) != 2 || state.Data.Datasets[0].Data[1] != 5 || state.Data.Sanction[0] != 12 {
		t.Fatalf("state chart = %+v", state)
	}
	if _, ok := s.Charts().Get("city"); ok {
		t.Fatal("malformed city series created a chart")
	}
	source, ok := s.Charts().Get("source")
	if !ok || source.Data.Datasets[0].Data[1] != 4 || len(source.Data.Counts) != 2 {
		t.Fatalf("source chart = %+v", source)
	}
}

func TestMalformedSeriesLeavesChartUnchanged(t *testing.T) {
	s := newTestService(t, nil, nil)
	s.Apply(payload(t, `{"city_labels": ["Pune"], "city_values": [1]}`))
	s.Apply(payload(t, `{"city_labels": ["Pune", "Goa"], "city_values": "[1, 2"}`))

	city, _ := s.Charts().Get("city")
	if len(city.Data.Labels) != 1 || city.Revision() != 1 {
		t.Fatalf("city chart changed: %+v rev=%d", city.Data, city.Revision())
	}
}

func TestRefreshForwardsFiltersAndPublishes(t *testing.T) {
	f := &stubFetcher{payload: models.Payload{"total_records": json.Number("2")}}
	rec := &recorder{}
	s := newTestService(t, f, rec)
	s.SetFilters(models.Filters{Product: "PL"})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if f.filters.Product != "PL" || f.token != "api-key" {
		t.Fatalf("fetch got filters=%+v token=%q", f.filters, f.token)
	}
	if !s.Board().LastUpdated().Equal(fixedNow) {
		t.Fatalf("LastUpdated = %v", s.Board().LastUpdated())
	}
	if len(rec.events) != 1 || rec.events[0].name != "update" {
		t.Fatalf("events = %+v", rec.events)
	}
}

func TestRefreshFailureAndEscalate(t *testing.T) {
	f := &stubFetcher{err: errors.New("connection refused")}
	rec := &recorder{}
	s := newTestService(t, f, rec)
	s.SetFilters(models.Filters{DateFrom: "2026-03-01", States: []string{"KA"}})

	err := s.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !s.Board().LastUpdated().IsZero() {
		t.Fatal("failed refresh stamped last-updated")
	}

	target := s.Escalate(context.Background(), err)
	u, perr := url.Parse(target)
	if perr != nil {
		t.Fatalf("reload url: %v", perr)
	}
	q := u.Query()
	if u.Path != "/dashboard/" || q.Get("_refresh") != "1772620200000" || q.Get("state") != "KA" || q.Get("date_from") != "2026-03-01" {
		t.Fatalf("reload url = %s", target)
	}
	if len(rec.events) != 1 || rec.events[0].name != "reload" || rec.events[0].data != target {
		t.Fatalf("events = %+v", rec.events)
	}
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCredential(t *testing.T) {
	ctx := context.Background()
	valid := signed(t, fixedNow.Add(time.Hour))
	expired := signed(t, fixedNow.Add(-time.Minute))

	tests := []struct {
		name   string
		stored string
		want   string
	}{
		{"no token", "", "api-key"},
		{"opaque token", "opaque", "opaque"},
		{"valid jwt", valid, valid},
		{"expired jwt", expired, "api-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, nil, nil)
			if tt.stored != "" {
				if err := s.SetToken(ctx, tt.stored); err != nil {
					t.Fatal(err)
				}
			}
			if got := s.Credential(ctx); got != tt.want {
				t.Fatalf("Credential = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil, nil)
	_ = s.SetToken(ctx, "secret")

	prefs, err := s.Preferences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if prefs[models.PrefTheme] != ThemeDark || prefs[models.PrefSidebarCollapsed] != "false" {
		t.Fatalf("defaults = %v", prefs)
	}
	if _, ok := prefs[models.PrefToken]; ok {
		t.Fatal("token exposed in preferences")
	}

	if theme, _ := s.ToggleTheme(ctx); theme != ThemeLight {
		t.Fatalf("first toggle = %q", theme)
	}
	if theme, _ := s.ToggleTheme(ctx); theme != ThemeDark {
		t.Fatalf("second toggle = %q", theme)
	}
	if collapsed, _ := s.ToggleSidebar(ctx); !collapsed {
		t.Fatal("sidebar not collapsed after toggle")
	}

	if err := s.SetPreference(ctx, models.PrefTheme, "blue"); err == nil {
		t.Fatal("invalid theme accepted")
	}
	if err := s.SetPreference(ctx, models.PrefToken, "x"); err == nil {
		t.Fatal("token accepted as UI preference")
	}
	if err := s.SetPreference(ctx, models.PrefSidebarCollapsed, "false"); err != nil {
		t.Fatal(err)
	}
}
