package trend

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatMarkdown renders a batch as the markdown summary consumed by
// narrative tooling. Segments are listed by name.
func FormatMarkdown(results map[string]SegmentAnalysis) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("# Business Performance Trend Analysis Summary\n\n")

	for _, name := range names {
		res := results[name]
		if res.Failed() {
			p.Fprintf(&b, "## Segment: %s\n\nCould not be analyzed. Error: %s\n\n---\n\n", name, res.Error)
			continue
		}

		t := res.Trend
		p.Fprintf(&b, "## Segment: %s\n\n", name)
		p.Fprintf(&b, "- **Overall Trend Direction**: %s\n", capitalize(string(t.Direction)))
		p.Fprintf(&b, "- **Average Rate of Change**: %.2f%% per period\n", t.RateOfChange)
		p.Fprintf(&b, "- **Confidence in Trend**: %.1f%%\n\n", t.Confidence*100)

		b.WriteString("### Key Statistics\n")
		if s := res.BasicStats; s != nil {
			p.Fprintf(&b, "- **Mean Revenue**: %.0f\n", s.Mean)
			p.Fprintf(&b, "- **Total Change Over Period**: %.2f%%\n", s.TotalChangePct)
		}
		p.Fprintf(&b, "- **Data Points Analyzed**: %d\n\n---\n\n", t.DataPoints)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
