package normalizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/Dan9191/edge-dashboard/internal/utils"
)

func TestDefaultAliasesValid(t *testing.T) {
	a := DefaultAliases()
	if err := a.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	targets := a.Targets()
	for _, want := range []string{"collection_total", "collection_total_amount_display", "fresh_repayment_amount", "total_loan_amount", "average_tenure"} {
		found := false
		for _, got := range targets {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("target %s missing from default table", want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		aliases Aliases
		wantErr string
	}{
		{
			name:    "no aliases",
			aliases: Aliases{Metrics: []Metric{{Name: "m", Kind: models.KindAmount}}},
			wantErr: "no aliases",
		},
		{
			name:    "dead repayment alias",
			aliases: Aliases{Metrics: []Metric{{Name: "m", Kind: models.KindAmount, Aliases: []string{"repayment_amount"}}}},
			wantErr: "can never match",
		},
		{
			name:    "duplicate alias",
			aliases: Aliases{Metrics: []Metric{{Name: "m", Kind: models.KindCount, Aliases: []string{"a", "a"}}}},
			wantErr: "duplicate alias",
		},
		{
			name:    "bad kind",
			aliases: Aliases{Metrics: []Metric{{Name: "m", Kind: "ratio", Aliases: []string{"a"}}}},
			wantErr: "unknown kind",
		},
		{
			name: "mixed kind sum",
			aliases: Aliases{Metrics: []Metric{
				{Name: "a", Kind: models.KindAmount, Aliases: []string{"a"}},
				{Name: "c", Kind: models.KindCount, Aliases: []string{"c"}},
				{Name: "t", Kind: models.KindAmount, Sum: []string{"a", "c"}},
			}},
			wantErr: "is a count",
		},
		{
			name: "unknown component",
			aliases: Aliases{Metrics: []Metric{
				{Name: "t", Kind: models.KindAmount, Sum: []string{"nope"}},
			}},
			wantErr: "unknown component",
		},
		{
			name:    "duplicate flat",
			aliases: Aliases{Flat: []FlatField{{Key: "x"}, {Key: "x"}}},
			wantErr: "declared twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.aliases.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	doc := `
metrics:
  - name: collection_fresh_amount
    kind: amount
    aliases: [fresh_amt, fresh_collection_amount]
  - name: collection_reloan_amount
    kind: amount
    aliases: [reloan_amt]
  - name: collection_total
    kind: amount
    sum: [collection_fresh_amount, collection_reloan_amount]
flat:
  - key: total_records
    style: plain
  - key: average_tenure
    style: days
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	a, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if a.Section != "collection_metrics" {
		t.Fatalf("Section = %q", a.Section)
	}
	if a.Flat[1].Style != utils.StyleDays {
		t.Fatalf("flat style = %v", a.Flat[1].Style)
	}

	out := New(a, nil).Collection(models.Payload{"FRESH_AMT": "12", "reloan_amt": 3})
	if got := metric(t, out, "collection_total"); got.Value != 15 {
		t.Fatalf("collection_total = %v, want 15", got.Value)
	}
}

func TestLoadAliasesInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	doc := "metrics:\n  - name: m\n    kind: amount\n    aliases: [repayment]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAliases(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadAliases(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
