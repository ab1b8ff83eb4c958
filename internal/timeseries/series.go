package timeseries

import (
	"fmt"
	"sort"
)

// Frequency is the spacing between consecutive periods of a series.
type Frequency string

const (
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// ParseFrequency maps an aggregation level name onto a Frequency.
func ParseFrequency(level string) (Frequency, error) {
	switch Frequency(level) {
	case Monthly:
		return Monthly, nil
	case Quarterly:
		return Quarterly, nil
	default:
		return "", fmt.Errorf("unknown aggregation level %q", level)
	}
}

// SeasonalPeriod is the number of periods in one seasonal cycle, or 0 when unknown.
func (f Frequency) SeasonalPeriod() int {
	switch f {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	default:
		return 0
	}
}

// Period is one calendar month or quarter.
type Period struct {
	Year int       `json:"year"`
	Sub  int       `json:"sub"` // month 1-12 or quarter 1-4
	Freq Frequency `json:"freq"`
}

// MonthPeriod returns the monthly period containing year/month.
func MonthPeriod(year, month int) Period {
	return Period{Year: year, Sub: month, Freq: Monthly}
}

// QuarterPeriod returns the quarterly period year/quarter.
func QuarterPeriod(year, quarter int) Period {
	return Period{Year: year, Sub: quarter, Freq: Quarterly}
}

// QuarterOf returns the quarter (1-4) containing month.
func QuarterOf(month int) int {
	return (month-1)/3 + 1
}

// Label renders the period as "2024-03" or "2024Q1".
func (p Period) Label() string {
	if p.Freq == Quarterly {
		return fmt.Sprintf("%dQ%d", p.Year, p.Sub)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Sub)
}

func (p Period) String() string { return p.Label() }

// Ordinal is a monotonically increasing index usable for sorting periods of the same frequency.
func (p Period) Ordinal() int {
	if p.Freq == Quarterly {
		return p.Year*4 + p.Sub - 1
	}
	return p.Year*12 + p.Sub - 1
}

// Before reports whether p sorts before o.
func (p Period) Before(o Period) bool {
	return p.Ordinal() < o.Ordinal()
}

// Point is one observation of a series.
type Point struct {
	Period Period  `json:"period"`
	Value  float64 `json:"value"`
}

// Series is an ordered, duplicate-free sequence of observations for one segment.
type Series struct {
	Name   string    `json:"name"`
	Freq   Frequency `json:"freq"`
	Points []Point   `json:"points"`
}

// New builds a series from unordered points, summing duplicate periods.
func New(name string, freq Frequency, points []Point) Series {
	byOrdinal := make(map[int]*Point, len(points))
	for _, p := range points {
		key := p.Period.Ordinal()
		if existing, ok := byOrdinal[key]; ok {
			existing.Value += p.Value
			continue
		}
		cp := p
		byOrdinal[key] = &cp
	}

	out := make([]Point, 0, len(byOrdinal))
	for _, p := range byOrdinal {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Before(out[j].Period)
	})

	return Series{Name: name, Freq: freq, Points: out}
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Points) }

// Values returns a copy of the observation values in period order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// WithValues returns a series over the same periods with replaced values.
// values must have the same length as the series.
func (s Series) WithValues(values []float64) Series {
	points := make([]Point, len(s.Points))
	for i, p := range s.Points {
		points[i] = Point{Period: p.Period, Value: values[i]}
	}
	return Series{Name: s.Name, Freq: s.Freq, Points: points}
}

// Span renders the first and last period as "first to last".
func (s Series) Span() string {
	if len(s.Points) == 0 {
		return ""
	}
	return fmt.Sprintf("%s to %s", s.Points[0].Period.Label(), s.Points[len(s.Points)-1].Period.Label())
}
