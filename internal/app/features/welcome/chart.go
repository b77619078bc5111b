// internal/app/features/welcome/chart.go
package welcome

import (
	"math"
	"strconv"

	"github.com/dalemusser/studentportal/internal/domain/models"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 640
	chartHeight  = 260
	chartPadLeft = 40
	chartPadBot  = 48
	chartPadTop  = 12
	barGap       = 8
	barColor     = "rgba(75, 192, 192, 0.6)"
)

type bar struct {
	X, Y, Width, Height float64
	LabelX              float64
	Label               string
	Value               string
}

type gridLine struct {
	Y     float64
	Label string
}

// chart is a pre-computed bar chart; the template only draws it.
type chart struct {
	Width, Height float64
	BaseY         float64
	Bars          []bar
	Grid          []gridLine
	Color         string
	Empty         bool
}

// buildChart lays out one bar per entry in series order. The scale runs
// from 0 to 100 percent, or to the largest value when one exceeds 100.
func buildChart(series []models.AttendanceEntry) chart {
	c := chart{
		Width:  chartWidth,
		Height: chartHeight,
		BaseY:  chartHeight - chartPadBot,
		Color:  barColor,
		Empty:  len(series) == 0,
	}

	top := 100.0
	for _, e := range series {
		top = math.Max(top, e.AttendancePercentage)
	}
	plotH := float64(chartHeight - chartPadBot - chartPadTop)

	for i := 0; i <= 4; i++ {
		v := top * float64(i) / 4
		c.Grid = append(c.Grid, gridLine{
			Y:     c.BaseY - plotH*v/top,
			Label: strconv.FormatFloat(v, 'f', 0, 64),
		})
	}

	if c.Empty {
		return c
	}

	plotW := float64(chartWidth - chartPadLeft)
	slot := plotW / float64(len(series))
	w := math.Max(slot-barGap, 1)
	for i, e := range series {
		v := math.Max(e.AttendancePercentage, 0)
		h := plotH * v / top
		x := chartPadLeft + float64(i)*slot + (slot-w)/2
		c.Bars = append(c.Bars, bar{
			X:      x,
			Y:      c.BaseY - h,
			Width:  w,
			Height: h,
			LabelX: x + w/2,
			Label:  e.StudentName,
			Value:  strconv.FormatFloat(e.AttendancePercentage, 'f', -1, 64),
		})
	}
	return c
}
