package table

import "strconv"

// NoNumericWarning is the chart warning for tables without numeric columns.
const NoNumericWarning = "No numeric data available for visualization."

// NumericView returns the numeric columns of t in table order. The view
// shares cell storage with t and must be treated as read-only. The boolean
// is false when t has no numeric column, meaning there is nothing to chart.
func NumericView(t *Table) (*Table, bool) {
	var cols []Column
	for _, c := range t.columns {
		if c.Kind == KindNumeric {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, false
	}
	return &Table{columns: cols, rows: t.rows}, true
}

// Series is one bar series. Nil entries are missing values.
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Chart is bar chart data keyed by row position.
type Chart struct {
	Labels    []string `json:"labels"`
	Series    []Series `json:"series"`
	TotalRows int      `json:"total_rows"`
	Truncated bool     `json:"truncated,omitempty"`
	Warning   string   `json:"warning,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (c Chart) Empty() bool { return len(c.Series) == 0 }

// Max returns the largest present value across all series, and false when
// there is none.
func (c Chart) Max() (float64, bool) {
	var max float64
	found := false
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != nil && (!found || *v > max) {
				max, found = *v, true
			}
		}
	}
	return max, found
}

// Min returns the smallest present value across all series.
func (c Chart) Min() (float64, bool) {
	var min float64
	found := false
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != nil && (!found || *v < min) {
				min, found = *v, true
			}
		}
	}
	return min, found
}

// BuildChart extracts bar chart data from the first maxSeries numeric
// columns of t, limited to maxBars rows. Non-positive limits mean no limit.
func BuildChart(t *Table, maxSeries, maxBars int) Chart {
	view, ok := NumericView(t)
	if !ok {
		return Chart{TotalRows: t.rows, Warning: NoNumericWarning}
	}

	cols := view.columns
	if maxSeries > 0 && len(cols) > maxSeries {
		cols = cols[:maxSeries]
	}

	rows := view.rows
	chart := Chart{TotalRows: rows}
	if maxBars > 0 && rows > maxBars {
		rows = maxBars
		chart.Truncated = true
	}

	chart.Labels = make([]string, rows)
	for i := range chart.Labels {
		chart.Labels[i] = strconv.Itoa(i)
	}

	for _, c := range cols {
		s := Series{Name: c.Name, Values: make([]*float64, rows)}
		for i := 0; i < rows; i++ {
			if c.Cells[i].Valid {
				v := c.Cells[i].Float
				s.Values[i] = &v
			}
		}
		chart.Series = append(chart.Series, s)
	}
	return chart
}
