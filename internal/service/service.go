package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/edge-dashboard/internal/display"
	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/Dan9191/edge-dashboard/internal/normalizer"
	"github.com/Dan9191/edge-dashboard/internal/repository"
	"github.com/Dan9191/edge-dashboard/internal/utils"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves one metrics payload from the backend
type Fetcher interface {
	Fetch(ctx context.Context, filters models.Filters, token string) (models.Payload, error)
}

// Publisher pushes named events to connected dashboards
type Publisher interface {
	Publish(event, data string)
}

// DefaultCharts are the chart names read from every payload
var DefaultCharts = []string{"state", "city", "source"}

// Options configures a Service
type Options struct {
	Board      *display.Board
	Charts     *display.Registry
	Normalizer *normalizer.Normalizer
	Formatter  *utils.Formatter
	Prefs      repository.PreferenceStore
	Client     Fetcher
	Events     Publisher
	APIKey     string
	PublicURL  string
}

// Service is the dashboard application context. It owns the display board,
// the chart registry and the active filters.
type Service struct {
	board     *display.Board
	charts    *display.Registry
	norm      *normalizer.Normalizer
	format    *utils.Formatter
	prefs     repository.PreferenceStore
	client    Fetcher
	events    Publisher
	apiKey    string
	publicURL string
	log       *logrus.Logger
	nowFn     func() time.Time

	mu      sync.RWMutex
	filters models.Filters
}

// NewService initializes a new service
func NewService(opts Options, log *logrus.Logger) *Service {
	s := &Service{
		board:     opts.Board,
		charts:    opts.Charts,
		norm:      opts.Normalizer,
		format:    opts.Formatter,
		prefs:     opts.Prefs,
		client:    opts.Client,
		events:    opts.Events,
		apiKey:    opts.APIKey,
		publicURL: opts.PublicURL,
		log:       log,
		nowFn:     time.Now,
	}
	if s.board == nil {
		s.board = display.NewBoard(opts.Normalizer.Aliases().Targets()...)
	}
	if s.charts == nil {
		s.charts = display.NewRegistry()
	}
	if s.format == nil {
		s.format = utils.NewFormatter("₹", utils.LocaleIndian)
	}
	if s.prefs == nil {
		s.prefs = repository.NewMemoryStore()
	}
	if s.publicURL == "" {
		s.publicURL = "/"
	}
	return s
}

// SetNowFunc overrides the clock for testing
func (s *Service) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.nowFn = fn
	s.board.SetNowFunc(fn)
}

// Board returns the display board
func (s *Service) Board() *display.Board { return s.board }

// Charts returns the chart registry
func (s *Service) Charts() *display.Registry { return s.charts }

// Prefs returns the preference store
func (s *Service) Prefs() repository.PreferenceStore { return s.prefs }

// SetFilters replaces the filters forwarded on every poll
func (s *Service) SetFilters(f models.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// Filters returns the active filters
func (s *Service) Filters() models.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Refresh fetches one payload and applies it to the board and charts
func (s *Service) Refresh(ctx context.Context) error {
	payload, err := s.client.Fetch(ctx, s.Filters(), s.Credential(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch metrics: %w", err)
	}
	written := s.Apply(payload)
	at := s.board.Touch()
	s.publish("update", at.Format(time.RFC3339))
	s.log.WithField("targets", written).Debug("Dashboard updated")
	return nil
}

// Escalate tells connected dashboards to reload the server-rendered page
// after a failed refresh.
func (s *Service) Escalate(_ context.Context, cause error) string {
	target := s.ReloadURL()
	s.log.WithError(cause).WithField("url", target).Warn("Refresh failed, falling back to page reload")
	s.publish("reload", target)
	return target
}

// ReloadURL is the dashboard URL with the active filters and a cache-busting
// _refresh parameter.
func (s *Service) ReloadURL() string {
	q := s.Filters().Query()
	q.Set("_refresh", strconv.FormatInt(s.nowFn().UnixMilli(), 10))
	return s.publicURL + "?" + q.Encode()
}

func (s *Service) publish(event, data string) {
	if s.events != nil {
		s.events.Publish(event, data)
	}
}

// Apply writes a payload to every display target and chart it covers. It
// returns the number of targets written.
func (s *Service) Apply(p models.Payload) int {
	written := 0
	for _, r := range s.norm.Flat(p) {
		if s.set(r.Target, s.format.Format(r.Value, r.Field.Style)) {
			written++
		}
	}

	section := s.norm.Aliases().Section
	if metrics, ok := p.Object(section); ok {
		for _, m := range s.norm.Collection(metrics) {
			style := utils.StyleAmount
			if m.Kind == models.KindCount {
				style = utils.StyleCount
			}
			if s.set(m.Name, s.format.Format(m.Value, style)) {
				written++
			}
		}
	} else {
		s.log.WithField("section", section).Info("No collection metrics object in payload")
	}

	for _, name := range DefaultCharts {
		s.applyChart(p, name)
	}
	return written
}

func (s *Service) set(target, text string) bool {
	if !s.board.Set(target, text) {
		s.log.WithField("target", target).Debug("Display target not registered, skipping")
		return false
	}
	return true
}

func (s *Service) applyChart(p models.Payload, name string) {
	series, err := ChartSeries(p, name)
	if err != nil {
		s.log.WithError(err).WithField("chart", name).Error("Error parsing chart series")
		return
	}
	s.charts.Apply(name, series)
}

// ChartSeries reads <name>_labels, _values, _sanction and _counts from a
// payload. Each may be a native array or a JSON-encoded string.
func ChartSeries(p models.Payload, name string) (models.Series, error) {
	var out models.Series
	labels, err := list(p, name+"_labels")
	if err != nil {
		return out, err
	}
	for _, l := range labels {
		switch v := l.(type) {
		case string:
			out.Labels = append(out.Labels, v)
		default:
			out.Labels = append(out.Labels, fmt.Sprint(v))
		}
	}
	if out.Values, err = numbers(p, name+"_values"); err != nil {
		return models.Series{}, err
	}
	if out.Sanction, err = numbers(p, name+"_sanction"); err != nil {
		return models.Series{}, err
	}
	if out.Counts, err = numbers(p, name+"_counts"); err != nil {
		return models.Series{}, err
	}
	return out, nil
}

func numbers(p models.Payload, key string) ([]float64, error) {
	items, err := list(p, key)
	if err != nil || items == nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, v := range items {
		out[i] = normalizer.ToFloat(v)
	}
	return out, nil
}

func list(p models.Payload, key string) ([]any, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []any:
		return v, nil
	case string:
		var items []any
		dec := json.NewDecoder(strings.NewReader(v))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("unexpected type %T for %s", raw, key)
}

// Snapshot returns the JSON view of the dashboard.
func (s *Service) Snapshot(ctx context.Context, status models.RefreshStatus) models.Snapshot {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read preferences")
	}
	return models.Snapshot{
		Targets:     s.board.Values(),
		Charts:      s.charts.Views(),
		LastUpdated: s.board.LastUpdated(),
		Filters:     s.Filters(),
		Refresh:     status,
		Preferences: prefs,
	}
}
