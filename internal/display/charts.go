package display

import (
	"sort"
	"sync"

	"github.com/Dan9191/edge-dashboard/internal/models"
)

// Palette is the fixed color cycle assigned to chart slices.
var Palette = []string{
	"#3b82f6", "#10b981", "#f59e0b", "#ec4899", "#06b6d4", "#8b5cf6",
	"#ef4444", "#84cc16", "#f97316", "#14b8a6", "#a855f7", "#eab308",
}

// LegendFunc renders a custom legend for a chart.
type LegendFunc func(name string, labels []string, values []float64, colors []string, sanction, counts []float64)

// Dataset is one data series of a chart.
type Dataset struct {
	Data            []float64
	BackgroundColor []string
}

// ChartData mirrors the charting component's data object.
type ChartData struct {
	Labels   []string
	Datasets []Dataset
	Sanction []float64
	Counts   []float64
}

// Chart is a named chart instance. Update marks a redraw.
type Chart struct {
	Name     string
	Data     ChartData
	revision int
}

// NewChart returns a chart with a single empty dataset.
func NewChart(name string) *Chart {
	return &Chart{Name: name, Data: ChartData{Datasets: []Dataset{{}}}}
}

// Update redraws the chart. Charts held by a Registry are only updated
// through Registry.Apply.
func (c *Chart) Update() {
	c.revision++
}

// Revision counts redraws.
func (c *Chart) Revision() int {
	return c.revision
}

// Registry owns chart instances keyed by name.
type Registry struct {
	mu     sync.RWMutex
	charts map[string]*Chart
	legend LegendFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{charts: make(map[string]*Chart)}
}

// SetLegend installs the optional legend renderer.
func (r *Registry) SetLegend(fn LegendFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legend = fn
}

// Register adds or replaces a chart.
func (r *Registry) Register(c *Chart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charts[c.Name] = c
}

// Get returns a copy of a chart by name. Changes to the copy do not reach
// the registry.
func (r *Registry) Get(name string) (*Chart, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.charts[name]
	if !ok {
		return nil, false
	}
	return c.clone(), true
}

func (c *Chart) clone() *Chart {
	out := &Chart{Name: c.Name, revision: c.revision}
	out.Data.Labels = append([]string(nil), c.Data.Labels...)
	out.Data.Sanction = append([]float64(nil), c.Data.Sanction...)
	out.Data.Counts = append([]float64(nil), c.Data.Counts...)
	for _, ds := range c.Data.Datasets {
		out.Data.Datasets = append(out.Data.Datasets, Dataset{
			Data:            append([]float64(nil), ds.Data...),
			BackgroundColor: append([]string(nil), ds.BackgroundColor...),
		})
	}
	return out
}

// Apply replaces a chart's series and redraws it. A chart that was never
// registered is initialised from the series. Series without labels or values
// are ignored and Apply reports false.
func (r *Registry) Apply(name string, s models.Series) bool {
	if len(s.Labels) == 0 || len(s.Values) == 0 {
		return false
	}

	r.mu.Lock()
	c, ok := r.charts[name]
	if !ok {
		c = NewChart(name)
		r.charts[name] = c
	}
	if len(c.Data.Datasets) == 0 {
		c.Data.Datasets = []Dataset{{}}
	}
	c.Data.Labels = s.Labels
	c.Data.Datasets[0].Data = s.Values
	if s.Sanction != nil {
		c.Data.Sanction = s.Sanction
	}
	if s.Counts != nil {
		c.Data.Counts = s.Counts
	}
	n := len(s.Labels)
	if n > len(Palette) {
		n = len(Palette)
	}
	colors := append([]string(nil), Palette[:n]...)
	c.Data.Datasets[0].BackgroundColor = colors
	c.Update()
	legend := r.legend
	r.mu.Unlock()

	if legend != nil && s.Sanction != nil {
		legend(name+"Legend", s.Labels, s.Values, colors, s.Sanction, s.Counts)
	}
	return true
}

// Views returns a JSON view of every chart, sorted by name.
func (r *Registry) Views() []models.ChartView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ChartView, 0, len(r.charts))
	for _, c := range r.charts {
		v := models.ChartView{
			Name:     c.Name,
			Labels:   c.Data.Labels,
			Sanction: c.Data.Sanction,
			Counts:   c.Data.Counts,
			Revision: c.revision,
		}
		if len(c.Data.Datasets) > 0 {
			v.Data = c.Data.Datasets[0].Data
			v.BackgroundColor = c.Data.Datasets[0].BackgroundColor
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
