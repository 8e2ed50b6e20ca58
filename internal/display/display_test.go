package display

import (
	"testing"
	"time"

	"github.com/Dan9191/edge-dashboard/internal/models"
)

func TestBoardSkipsUnknownTargets(t *testing.T) {
	b := NewBoard("collection_total")
	if !b.Set("collection_total", "₹150") {
		t.Fatal("Set on registered target returned false")
	}
	if b.Set("collection_missing", "₹1") {
		t.Fatal("Set on unknown target returned true")
	}
	if _, ok := b.Get("collection_missing"); ok {
		t.Fatal("unknown target was created")
	}
	if got, _ := b.Get("collection_total"); got != "₹150" {
		t.Fatalf("Get = %q", got)
	}
	b.Register("collection_total")
	if got, _ := b.Get("collection_total"); got != "₹150" {
		t.Fatalf("re-register cleared text: %q", got)
	}
}

func TestBoardTouch(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := NewBoard()
	b.SetNowFunc(func() time.Time { return at })
	if got := b.Touch(); !got.Equal(at) {
		t.Fatalf("Touch = %v", got)
	}
	if !b.LastUpdated().Equal(at) {
		t.Fatalf("LastUpdated = %v", b.LastUpdated())
	}
}

func TestRegistryApply(t *testing.T) {
	r := NewRegistry()
	var legendName string
	var legendColors []string
	r.SetLegend(func(name string, labels []string, values []float64, colors []string, sanction, counts []float64) {
		legendName = name
		legendColors = colors
	})

	r.Register(NewChart("state"))
	ok := r.Apply("state", models.Series{
		Labels:   []string{"KA", "MH"},
		Values:   []float64{10, 5},
		Sanction: []float64{12, 6},
	})
	if !ok {
		t.Fatal("Apply returned false")
	}
	c, _ := r.Get("state")
	if c.Revision() != 1 {
		t.Fatalf("revision = %d, want 1", c.Revision())
	}
	if got := c.Data.Datasets[0].BackgroundColor; len(got) != 2 || got[0] != Palette[0] {
		t.Fatalf("colors = %v", got)
	}
	if legendName != "stateLegend" || len(legendColors) != 2 {
		t.Fatalf("legend called with %q %v", legendName, legendColors)
	}
}

func TestRegistryApplySkipsEmptySeries(t *testing.T) {
	r := NewRegistry()
	if r.Apply("city", models.Series{Labels: []string{"x"}}) {
		t.Fatal("Apply without values returned true")
	}
	if _, ok := r.Get("city"); ok {
		t.Fatal("empty series initialised a chart")
	}
}

func TestRegistryInitialisesUnknownChart(t *testing.T) {
	r := NewRegistry()
	labels := make([]string, 15)
	values := make([]float64, 15)
	for i := range labels {
		labels[i] = string(rune('a' + i))
		values[i] = float64(i)
	}
	if !r.Apply("source", models.Series{Labels: labels, Values: values}) {
		t.Fatal("Apply returned false")
	}
	views := r.Views()
	if len(views) != 1 || views[0].Name != "source" {
		t.Fatalf("views = %+v", views)
	}
	if len(views[0].BackgroundColor) != len(Palette) {
		t.Fatalf("colors = %d, want %d", len(views[0].BackgroundColor), len(Palette))
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Apply("city", models.Series{Labels: []string{"Pune"}, Values: []float64{1}})

	c, _ := r.Get("city")
	c.Update()
	c.Data.Labels[0] = "Goa"
	c.Data.Datasets[0].Data[0] = 99

	again, _ := r.Get("city")
	if again.Revision() != 1 || again.Data.Labels[0] != "Pune" || again.Data.Datasets[0].Data[0] != 1 {
		t.Fatalf("registry chart changed through copy: rev=%d data=%+v", again.Revision(), again.Data)
	}
	if views := r.Views(); views[0].Revision != 1 {
		t.Fatalf("view revision = %d", views[0].Revision)
	}
}
