// Package normalizer turns loosely named insights payloads into canonical
// metric values.
package normalizer

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

// Resolve looks up the first usable value among candidates. Exact key matches
// are tried first, then a case-insensitive pass over the payload's keys. Keys
// containing "repayment" without "collection" are never used. It returns the
// raw value and the payload key it came from.
func Resolve(p models.Payload, candidates ...string) (any, string, bool) {
	if len(p) == 0 {
		return nil, "", false
	}

	for _, name := range candidates {
		v, ok := p[name]
		if !ok || isEmpty(v) {
			continue
		}
		if isRepaymentDecoy(name) {
			continue
		}
		return v, name, true
	}

	folded := foldKeys(p)
	for _, name := range candidates {
		actual, ok := folded[strings.ToLower(name)]
		if !ok {
			continue
		}
		if isRepaymentDecoy(actual) {
			continue
		}
		if v := p[actual]; !isEmpty(v) {
			return v, actual, true
		}
	}
	return nil, "", false
}

// Amount resolves candidates as a floating point amount, 0 when unresolved.
func Amount(p models.Payload, candidates ...string) float64 {
	v, _, ok := Resolve(p, candidates...)
	if !ok {
		return 0
	}
	return ToFloat(v)
}

// Count resolves candidates as an integer count, 0 when unresolved.
func Count(p models.Payload, candidates ...string) int64 {
	v, _, ok := Resolve(p, candidates...)
	if !ok {
		return 0
	}
	return ToInt(v)
}

// ToFloat coerces a payload value to float64. Unparsable values, NaN and
// infinities become 0.
func ToFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		f = parseFloat(n.String())
	case string:
		f = parseFloat(n)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToInt coerces a payload value to an integer, truncating fractions.
func ToInt(v any) int64 {
	f := ToFloat(v)
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(math.Trunc(f))
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func isRepaymentDecoy(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "repayment") && !strings.Contains(k, "collection")
}

// foldKeys maps lowercase keys to the payload key they came from. Keys that
// fold together resolve to the lexicographically smallest original.
func foldKeys(p models.Payload) map[string]string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	folded := make(map[string]string, len(keys))
	for _, k := range keys {
		lower := strings.ToLower(k)
		if _, seen := folded[lower]; !seen {
			folded[lower] = k
		}
	}
	return folded
}

// Normalizer resolves the configured alias table against payloads.
type Normalizer struct {
	aliases *Aliases
	log     *logrus.Logger
}

// New returns a normalizer for a validated alias table.
func New(aliases *Aliases, log *logrus.Logger) *Normalizer {
	return &Normalizer{aliases: aliases, log: log}
}

// Collection resolves every collection metric in table order. Derived metrics
// are always recomputed from their components.
func (n *Normalizer) Collection(p models.Payload) []models.CanonicalMetric {
	values := make(map[string]float64, len(n.aliases.Metrics))
	out := make([]models.CanonicalMetric, 0, len(n.aliases.Metrics))

	for _, m := range n.aliases.Metrics {
		if m.Derived() {
			continue
		}
		values[m.Name] = n.resolve(p, m.Kind, m.Aliases)
	}
	for _, m := range n.aliases.Metrics {
		if !m.Derived() {
			continue
		}
		var total float64
		for _, part := range m.Sum {
			total += values[part]
		}
		values[m.Name] = total
		n.checkReported(p, m, total)
	}

	for _, m := range n.aliases.Metrics {
		out = append(out, models.CanonicalMetric{Name: m.Name, Kind: m.Kind, Value: values[m.Name]})
	}
	return out
}

func (n *Normalizer) resolve(p models.Payload, kind models.MetricKind, aliases []string) float64 {
	if kind == models.KindCount {
		return float64(Count(p, aliases...))
	}
	return Amount(p, aliases...)
}

// checkReported notes when the backend also sent an aggregate that disagrees
// with the recomputed total. The reported value is never displayed.
func (n *Normalizer) checkReported(p models.Payload, m Metric, total float64) {
	if len(m.Reported) == 0 || n.log == nil {
		return
	}
	raw, key, ok := Resolve(p, m.Reported...)
	if !ok {
		return
	}
	reported := ToFloat(raw)
	if m.Kind == models.KindCount {
		reported = float64(ToInt(raw))
	}
	if reported != total {
		n.log.WithFields(logrus.Fields{
			"metric":   m.Name,
			"key":      key,
			"reported": reported,
			"computed": total,
		}).Debug("Reported total differs from fresh + reloan")
	}
}

// Reading is a flat KPI value ready for display.
type Reading struct {
	Target string
	Value  float64
	Field  FlatField
}

// Flat reads the top-level KPI fields by exact key. Absent fields produce no
// reading so their targets keep their last value; null reads as 0.
func (n *Normalizer) Flat(p models.Payload) []Reading {
	var out []Reading
	for _, f := range n.aliases.Flat {
		v, ok := p[f.Key]
		if !ok {
			continue
		}
		out = append(out, Reading{Target: f.Key, Value: ToFloat(v), Field: f})
	}
	return out
}

// Aliases returns the table in use.
func (n *Normalizer) Aliases() *Aliases {
	return n.aliases
}
