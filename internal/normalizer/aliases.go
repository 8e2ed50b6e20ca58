package normalizer

import (
	"fmt"
	"os"

	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/Dan9191/edge-dashboard/internal/utils"
	"gopkg.in/yaml.v3"
)

// Metric is one logical collection quantity. A metric either lists aliases to
// resolve from the payload or names the components it is the sum of.
type Metric struct {
	Name     string            `yaml:"name"`
	Kind     models.MetricKind `yaml:"kind"`
	Aliases  []string          `yaml:"aliases,omitempty"`
	Sum      []string          `yaml:"sum,omitempty"`
	Reported []string          `yaml:"reported,omitempty"`
}

// Derived reports whether the metric is computed from other metrics.
func (m Metric) Derived() bool {
	return len(m.Sum) > 0
}

// FlatField is a top-level KPI read by exact key.
type FlatField struct {
	Key   string      `yaml:"key"`
	Style utils.Style `yaml:"style"`
}

// Aliases is the alias table: collection metrics resolved from the nested
// metrics object and flat KPI fields read from the top level.
type Aliases struct {
	Section string      `yaml:"section"`
	Metrics []Metric    `yaml:"metrics"`
	Flat    []FlatField `yaml:"flat"`
}

var (
	freshAmount  = []string{"fresh_collection_amount", "freshCollectionAmount"}
	reloanAmount = []string{"reloan_collection_amount", "reloanCollectionAmount"}
	onTimeAmount = []string{
		"due_date_amount", "dueDateAmount", "on_time_collection", "onTimeCollection",
		"on_time", "onTime", "on_time_amount", "onTimeAmount", "ontime", "ontime_amount",
		"ontimeAmount", "onTime_amount", "on_time_collection_amount", "onTimeCollectionAmount",
		"due_date_collection", "dueDateCollection", "on_time_amount_collection", "onTimeAmountCollection",
	}
	dueDateCount = []string{
		"due_date_count", "dueDateCount", "on_time_count", "onTimeCount", "onTime", "ontime",
		"ontime_count", "onTime_count", "on_time_collection_count", "onTimeCollectionCount",
		"due_date_collection_count", "dueDateCollectionCount",
	}
	amountTotal = []string{"collection_fresh_amount", "collection_reloan_amount"}
	countTotal  = []string{"collection_fresh_count", "collection_reloan_count"}
)

// DefaultAliases returns the built-in alias table.
func DefaultAliases() *Aliases {
	a := &Aliases{
		Section: "collection_metrics",
		Metrics: []Metric{
			{Name: "collection_fresh_amount", Kind: models.KindAmount, Aliases: freshAmount},
			{Name: "collection_reloan_amount", Kind: models.KindAmount, Aliases: reloanAmount},
			{Name: "collection_total", Kind: models.KindAmount, Sum: amountTotal,
				Reported: []string{"total_collection_amount", "totalCollectionAmount"}},
			{Name: "collection_total_amount_display", Kind: models.KindAmount, Sum: amountTotal},
			{Name: "collection_prepayment_amount", Kind: models.KindAmount,
				Aliases: []string{"prepayment_amount", "prepaymentAmount", "prepayment", "prepaymentamt", "prepayment_amt"}},
			{Name: "collection_on_time", Kind: models.KindAmount, Aliases: onTimeAmount},
			{Name: "collection_overdue", Kind: models.KindAmount,
				Aliases: []string{"overdue_amount", "overdueAmount", "overdue_collection", "overdueCollection", "overdue", "overDue"}},
			{Name: "collection_fresh_count", Kind: models.KindCount,
				Aliases: []string{"fresh_collection_count", "freshCollectionCount", "fresh_count", "freshCount", "fresh"}},
			{Name: "collection_reloan_count", Kind: models.KindCount,
				Aliases: []string{"reloan_collection_count", "reloanCollectionCount", "reloan_count", "reloanCount", "reloan"}},
			{Name: "collection_total_count", Kind: models.KindCount, Sum: countTotal,
				Reported: []string{"total_collection_count", "totalCollectionCount"}},
			{Name: "collection_prepayment_count", Kind: models.KindCount,
				Aliases: []string{"prepayment_count", "prepaymentCount", "prepaymentcnt", "prepayment_cnt"}},
			{Name: "collection_due_date_count", Kind: models.KindCount, Aliases: dueDateCount},
			{Name: "collection_overdue_count", Kind: models.KindCount,
				Aliases: []string{"overdue_count", "overdueCount", "overdue"}},
		},
		Flat: []FlatField{
			{Key: "total_records", Style: utils.StylePlain},
			{Key: "fresh_count", Style: utils.StylePlain},
			{Key: "reloan_count", Style: utils.StylePlain},
			{Key: "average_tenure", Style: utils.StyleRounded},
			{Key: "fresh_average_tenure", Style: utils.StyleDays},
			{Key: "reloan_average_tenure", Style: utils.StyleDays},
		},
	}
	for _, base := range []string{"loan_amount", "disbursal_amount", "processing_fee", "interest_amount", "repayment_amount"} {
		total := base
		if base == "loan_amount" || base == "disbursal_amount" {
			total = "total_" + base
		}
		a.Flat = append(a.Flat,
			FlatField{Key: total, Style: utils.StyleAmount},
			FlatField{Key: "fresh_" + base, Style: utils.StyleAmount},
			FlatField{Key: "reloan_" + base, Style: utils.StyleAmount},
		)
	}
	return a
}

// LoadAliases reads an alias table from a YAML file and validates it.
func LoadAliases(path string) (*Aliases, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}
	a := &Aliases{}
	if err := yaml.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("failed to parse alias file: %w", err)
	}
	if a.Section == "" {
		a.Section = "collection_metrics"
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the table once at startup.
func (a *Aliases) Validate() error {
	byName := make(map[string]Metric, len(a.Metrics))
	for _, m := range a.Metrics {
		if m.Name == "" {
			return fmt.Errorf("metric without a name")
		}
		if _, dup := byName[m.Name]; dup {
			return fmt.Errorf("metric %s declared twice", m.Name)
		}
		if !m.Kind.Valid() {
			return fmt.Errorf("metric %s: unknown kind %q", m.Name, m.Kind)
		}
		byName[m.Name] = m
	}

	for _, m := range a.Metrics {
		if m.Derived() {
			if len(m.Aliases) > 0 {
				return fmt.Errorf("metric %s: derived metrics take no aliases", m.Name)
			}
			for _, part := range m.Sum {
				c, ok := byName[part]
				if !ok {
					return fmt.Errorf("metric %s: unknown component %s", m.Name, part)
				}
				if c.Derived() {
					return fmt.Errorf("metric %s: component %s is itself derived", m.Name, part)
				}
				if c.Kind != m.Kind {
					return fmt.Errorf("metric %s: component %s is a %s", m.Name, part, c.Kind)
				}
			}
			continue
		}
		if len(m.Aliases) == 0 {
			return fmt.Errorf("metric %s: no aliases", m.Name)
		}
		seen := make(map[string]bool, len(m.Aliases))
		for _, alias := range m.Aliases {
			if alias == "" {
				return fmt.Errorf("metric %s: empty alias", m.Name)
			}
			if seen[alias] {
				return fmt.Errorf("metric %s: duplicate alias %s", m.Name, alias)
			}
			if isRepaymentDecoy(alias) {
				return fmt.Errorf("metric %s: alias %s can never match", m.Name, alias)
			}
			seen[alias] = true
		}
	}

	keys := make(map[string]bool, len(a.Flat))
	for _, f := range a.Flat {
		if f.Key == "" {
			return fmt.Errorf("flat field without a key")
		}
		if keys[f.Key] {
			return fmt.Errorf("flat field %s declared twice", f.Key)
		}
		if f.Style < utils.StyleAmount || f.Style > utils.StyleDays {
			return fmt.Errorf("flat field %s: unknown style %d", f.Key, f.Style)
		}
		keys[f.Key] = true
	}
	return nil
}

// Targets lists every display target the table can write.
func (a *Aliases) Targets() []string {
	out := make([]string, 0, len(a.Metrics)+len(a.Flat))
	for _, f := range a.Flat {
		out = append(out, f.Key)
	}
	for _, m := range a.Metrics {
		out = append(out, m.Name)
	}
	return out
}
