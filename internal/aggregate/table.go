package aggregate

import (
	"sort"
	"strings"

	"github.com/godilite/sales-trends/internal/timeseries"
)

// groupKey identifies one aggregate group. extra is the extra key values
// joined with a unit separator in KeyColumns order.
type groupKey struct {
	ordinal int
	segment string
	extra   string
}

type group struct {
	period     timeseries.Period
	segment    string
	dimensions map[string]string

	quantity      float64
	revenue       float64
	actualRevenue float64
	products      map[string]struct{}
}

// table accumulates groups. A chunk produces one partial table, and the
// partials of a file are merged in one final pass.
type table struct {
	groups map[groupKey]*group
}

func newTable() *table {
	return &table{groups: make(map[groupKey]*group)}
}

func keyOf(period timeseries.Period, segment string, dims []string) groupKey {
	return groupKey{
		ordinal: period.Ordinal(),
		segment: segment,
		extra:   strings.Join(dims, "\x1f"),
	}
}

func (t *table) add(period timeseries.Period, segment string, dimNames, dimValues []string, quantity, revenue, actual float64, product string) {
	key := keyOf(period, segment, dimValues)
	g, ok := t.groups[key]
	if !ok {
		g = &group{
			period:   period,
			segment:  segment,
			products: make(map[string]struct{}),
		}
		if len(dimNames) > 0 {
			g.dimensions = make(map[string]string, len(dimNames))
			for i, name := range dimNames {
				g.dimensions[name] = dimValues[i]
			}
		}
		t.groups[key] = g
	}
	g.quantity += quantity
	g.revenue += revenue
	g.actualRevenue += actual
	if product != "" {
		g.products[product] = struct{}{}
	}
}

// merge re-aggregates partial tables. The same key may appear in several
// partials; measures are summed and product sets are unioned.
func merge(partials []*table) *table {
	out := newTable()
	for _, p := range partials {
		for key, g := range p.groups {
			existing, ok := out.groups[key]
			if !ok {
				out.groups[key] = g
				continue
			}
			existing.quantity += g.quantity
			existing.revenue += g.revenue
			existing.actualRevenue += g.actualRevenue
			for code := range g.products {
				existing.products[code] = struct{}{}
			}
		}
	}
	return out
}

func (t *table) rows(prov Provenance) []AggregateRow {
	rows := make([]AggregateRow, 0, len(t.groups))
	for _, g := range t.groups {
		row := AggregateRow{
			Period:             g.period,
			Year:               g.period.Year,
			Label:              g.period.Label(),
			Segment:            g.segment,
			Dimensions:         g.dimensions,
			TotalQuantity:      g.quantity,
			TotalRevenue:       g.revenue,
			TotalActualRevenue: g.actualRevenue,
			UniqueProducts:     len(g.products),
			Provenance:         prov,
		}
		if g.period.Freq == timeseries.Quarterly {
			row.Quarter = g.period.Sub
		} else {
			row.Month = g.period.Sub
			row.Quarter = timeseries.QuarterOf(g.period.Sub)
		}
		rows = append(rows, row)
	}
	return rows
}

func sortRows(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Period.Ordinal() != b.Period.Ordinal() {
			return a.Period.Before(b.Period)
		}
		if a.Provenance.SourceFile != b.Provenance.SourceFile {
			return a.Provenance.SourceFile < b.Provenance.SourceFile
		}
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		return dimensionString(a.Dimensions) < dimensionString(b.Dimensions)
	})
}

func dimensionString(dims map[string]string) string {
	if len(dims) == 0 {
		return ""
	}
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(dims[k])
		b.WriteByte(';')
	}
	return b.String()
}
