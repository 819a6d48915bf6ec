package templates

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/sweeper/internal/table"
)

const (
	chartHeight   = 240
	chartPadTop   = 12
	chartPadLeft  = 56
	chartPadBot   = 24
	chartBarWidth = 10
	chartGroupGap = 6
	chartMinWidth = 320
)

// seriesClasses style successive series.
var seriesClasses = []string{"series-0", "series-1", "series-2", "series-3"}

// chartModel is a chart laid out in SVG user units, ready to render.
type chartModel struct {
	Width, Height, ViewBox string

	AxisX            string
	HiY, LoY         string
	HiLabel, LoLabel string

	BaseX1, BaseX2, BaseY string

	Bars   []chartBar
	Legend []chartLegend
	Note   string
}

type chartBar struct {
	Class, Title        string
	X, Y, Width, Height string
}

type chartLegend struct {
	Class, Name string
}

func chartWarning(c table.Chart) string {
	if c.Warning == "" {
		return table.NoNumericWarning
	}
	return c.Warning
}

// newChartModel lays c out as grouped bars, one group per row, measured
// from a zero baseline. Missing values draw no bar.
func newChartModel(c table.Chart) chartModel {
	lo, hi := chartRange(c)
	plotH := float64(chartHeight - chartPadTop - chartPadBot)
	y := func(v float64) float64 {
		return chartPadTop + (hi-v)/(hi-lo)*plotH
	}

	groupW := len(c.Series)*chartBarWidth + chartGroupGap
	width := max(chartPadLeft+len(c.Labels)*groupW, chartMinWidth)

	m := chartModel{
		Width:   strconv.Itoa(width),
		Height:  strconv.Itoa(chartHeight),
		ViewBox: fmt.Sprintf("0 0 %d %d", width, chartHeight),
		AxisX:   strconv.Itoa(chartPadLeft - 6),
		HiY:     units(y(hi) + 4),
		LoY:     units(y(lo) + 4),
		HiLabel: humanize.Ftoa(hi),
		LoLabel: humanize.Ftoa(lo),
		BaseX1:  strconv.Itoa(chartPadLeft),
		BaseX2:  strconv.Itoa(width),
		BaseY:   units(y(0)),
	}

	for i, label := range c.Labels {
		x0 := chartPadLeft + i*groupW
		for j, s := range c.Series {
			v := s.Values[i]
			if v == nil {
				continue
			}
			top, bottom := y(*v), y(0)
			if top > bottom {
				top, bottom = bottom, top
			}
			m.Bars = append(m.Bars, chartBar{
				Class:  seriesClasses[j%len(seriesClasses)],
				Title:  fmt.Sprintf("%s, row %s: %s", s.Name, label, humanize.Ftoa(*v)),
				X:      strconv.Itoa(x0 + j*chartBarWidth),
				Y:      units(top),
				Width:  strconv.Itoa(chartBarWidth),
				Height: units(bottom - top),
			})
		}
	}

	for j, s := range c.Series {
		m.Legend = append(m.Legend, chartLegend{Class: seriesClasses[j%len(seriesClasses)], Name: s.Name})
	}
	if c.Truncated {
		m.Note = fmt.Sprintf("First %d of %s rows", len(c.Labels), humanize.Comma(int64(c.TotalRows)))
	}
	return m
}

func units(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// chartRange returns the value range drawn, always including zero and never
// empty.
func chartRange(c table.Chart) (lo, hi float64) {
	if v, ok := c.Min(); ok {
		lo = math.Min(v, 0)
	}
	if v, ok := c.Max(); ok {
		hi = math.Max(v, 0)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}
