package aggregate

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	dateModeStrict     = "strict"
	dateModePermissive = "permissive"

	// permissiveThreshold is the strict-parse failure share of the sample above
	// which a file switches to permissive parsing.
	permissiveThreshold = 0.5
)

// dayFirstLayouts are tried before dateparse so that ambiguous numeric dates
// keep the day-first order of the strict layout.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/06 15:04",
	"2/1/06 15:04:05",
	"2-1-2006",
	"2.1.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// dateParser parses one file's date column. The mode is decided once per
// file from a sample of its leading rows.
type dateParser struct {
	layout     string
	permissive bool
}

func newDateParser(layout string) *dateParser {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return &dateParser{layout: layout}
}

// decide switches to permissive parsing when more than half of sample fails the strict layout.
func (p *dateParser) decide(sample []string) {
	if len(sample) == 0 {
		return
	}
	failed := 0
	for _, s := range sample {
		if _, ok := p.strict(s); !ok {
			failed++
		}
	}
	p.permissive = float64(failed) > float64(len(sample))*permissiveThreshold
}

func (p *dateParser) mode() string {
	if p.permissive {
		return dateModePermissive
	}
	return dateModeStrict
}

func (p *dateParser) parse(s string) (time.Time, bool) {
	if t, ok := p.strict(s); ok {
		return t, true
	}
	if !p.permissive {
		return time.Time{}, false
	}
	return inferDate(s)
}

func (p *dateParser) strict(s string) (time.Time, bool) {
	t, err := time.Parse(p.layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func inferDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
