package aggregate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultDateLayout is the strict day/month/two-digit-year layout of the sales extracts.
const DefaultDateLayout = "2/1/06"

// Profile describes how one family of extracts maps onto the aggregate
// measures. Both shipped profiles run through the same pipeline; only the
// file selection, header source, renames, and column names differ.
type Profile struct {
	Name string

	// FilePattern is a glob relative to the source directory.
	FilePattern string
	// SingleFile selects only the first matching file.
	SingleFile bool
	// HeaderFile, when set, supplies the column names and data files carry no header row.
	HeaderFile string

	// Rename maps source column names onto profile column names.
	Rename map[string]string
	// NumericColumns are coerced to numbers; unparseable values become zero.
	NumericColumns []string

	DateColumn          string
	DateLayout          string
	SegmentColumn       string
	KeyColumns          []string
	QuantityColumn      string
	RevenueColumn       string
	ActualRevenueColumn string
	ProductColumn       string

	// ParseFileName extracts provenance quarter and year from a file name.
	ParseFileName func(name string) (quarter, year int, ok bool)
}

// SalesExtracts is the multi-file profile: quy_<q>_<yyyy>.csv without a
// header row, column names taken from template_header.csv.
func SalesExtracts() Profile {
	return Profile{
		Name:                "sales_extracts",
		FilePattern:         "quy_*.csv",
		HeaderFile:          "template_header.csv",
		NumericColumns:      []string{"soluong", "tongtien", "dongia", "tongtienThucdat"},
		DateColumn:          "ngayhoadon",
		DateLayout:          DefaultDateLayout,
		SegmentColumn:       "nhomsanpham",
		KeyColumns:          []string{"vung"},
		QuantityColumn:      "soluong",
		RevenueColumn:       "tongtien",
		ActualRevenueColumn: "tongtienThucdat",
		ProductColumn:       "masp",
		ParseFileName:       parseQuarterYear,
	}
}

// PreAggregated is the single-file profile whose own header is renamed onto
// the internal names before aggregation.
func PreAggregated() Profile {
	return Profile{
		Name:        "pre_aggregated",
		FilePattern: "*.csv",
		SingleFile:  true,
		Rename: map[string]string{
			"NGAYDONHANG":                      "ngayhoadon",
			"GAMHANG":                          "nhomsanpham",
			"Totals - Sum of SOLUONG":          "total_quantity",
			"Totals - Sum of DOANHTHUSAUVAT":   "total_revenue",
			"Totals - Sum of DOANHTHUTRUOCVAT": "total_revenue_pre_vat",
			"Totals - Sum of TIENVAT":          "total_vat",
			"Totals - Sum of DOANHSO":          "total_sales_figure",
			"MASANPHAM":                        "masp",
			"TENSANPHAM":                       "tensanpham",
			"NGANHHANG":                        "nganhhang",
			"NHANHANG":                         "nhanhang",
			"DONVI":                            "donvi",
		},
		NumericColumns: []string{
			"total_revenue_pre_vat",
			"total_vat",
			"total_revenue",
			"total_quantity",
			"total_sales_figure",
		},
		DateColumn:     "ngayhoadon",
		DateLayout:     DefaultDateLayout,
		SegmentColumn:  "nhomsanpham",
		QuantityColumn: "total_quantity",
		RevenueColumn:  "total_revenue",
		ProductColumn:  "masp",
	}
}

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "sales_extracts":
		return SalesExtracts(), nil
	case "pre_aggregated":
		return PreAggregated(), nil
	default:
		return Profile{}, fmt.Errorf("unknown source profile %q", name)
	}
}

func (p Profile) discover(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, p.FilePattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", p.FilePattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if p.HeaderFile != "" && filepath.Base(m) == p.HeaderFile {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)

	if p.SingleFile && len(files) > 1 {
		files = files[:1]
	}
	return files, nil
}

func (p Profile) rename(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if mapped, ok := p.Rename[h]; ok {
			h = mapped
		}
		out[i] = h
	}
	return out
}

func (p Profile) measureColumns() []string {
	var cols []string
	for _, c := range []string{p.QuantityColumn, p.RevenueColumn, p.ActualRevenueColumn} {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

func (p Profile) provenance(path string) Provenance {
	name := filepath.Base(path)
	prov := Provenance{SourceFile: name}
	if p.ParseFileName == nil {
		return prov
	}
	if q, y, ok := p.ParseFileName(name); ok {
		prov.FileQuarter = &q
		prov.FileYear = &y
	}
	return prov
}

// parseQuarterYear reads "quy_<quarter>_<year>.csv".
func parseQuarterYear(name string) (int, int, bool) {
	parts := strings.Split(strings.TrimSuffix(name, filepath.Ext(name)), "_")
	if len(parts) < 3 {
		return 0, 0, false
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil || q < 1 || q > 4 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return q, y, true
}
