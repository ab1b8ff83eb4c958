package trend

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMarkdown(t *testing.T) {
	a := newTestAnalyzer(t)
	ok, err := a.AnalyzeSegment("Phones", quarterly("Phones", 100, 110, 120, 130, 140, 150, 160, 170))
	require.NoError(t, err)

	md := FormatMarkdown(map[string]SegmentAnalysis{
		"Phones":  ok,
		"Laptops": failedSegment("Laptops", errors.New("boom")),
	})

	assert.True(t, strings.HasPrefix(md, "# Business Performance Trend Analysis Summary\n\n"))
	assert.Contains(t, md, "## Segment: Laptops\n\nCould not be analyzed. Error: boom\n")
	assert.Contains(t, md, "- **Overall Trend Direction**: Increasing\n")
	assert.Contains(t, md, "- **Total Change Over Period**: 70.00%\n")
	assert.Contains(t, md, "- **Data Points Analyzed**: 8\n")
	assert.Contains(t, md, "- **Mean Revenue**: ")
	assert.Less(t, strings.Index(md, "Laptops"), strings.Index(md, "Phones"))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Stable", capitalize("stable"))
	assert.Equal(t, "", capitalize(""))
}
