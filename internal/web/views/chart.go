package views

import (
	"fmt"
	"strconv"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 640.0
	chartHeight  = 260.0
	chartPadding = 32.0
	maxXLabels   = 20
)

// BarChart draws one bar per value, labelled by row index, as inline SVG.
// The value axis always includes zero so negative values hang below it.
func BarChart(c *core.Chart) g.Node {
	if c == nil {
		return g.Group(nil)
	}
	if len(c.Bars) == 0 {
		return h.P(h.Class("muted"), g.Textf("%s has no values to plot.", c.Column))
	}

	lo, hi := min(c.Min, 0), max(c.Max, 0)
	if lo == hi {
		hi = lo + 1
	}
	plotW := chartWidth - 2*chartPadding
	plotH := chartHeight - 2*chartPadding
	slot := plotW / float64(len(c.Bars))
	barW := max(slot*0.8, 1)
	scale := plotH / (hi - lo)
	zeroY := chartPadding + (hi-0)*scale

	labelEvery := 1
	if len(c.Bars) > maxXLabels {
		labelEvery = (len(c.Bars) + maxXLabels - 1) / maxXLabels
	}

	nodes := []g.Node{
		svgEl("line", attrs(
			"x1", chartPadding, "y1", zeroY,
			"x2", chartWidth-chartPadding, "y2", zeroY,
			"class", "axis",
		)...),
		svgText(chartPadding-4, chartPadding, "end", formatTick(hi)),
		svgText(chartPadding-4, chartHeight-chartPadding, "end", formatTick(lo)),
	}

	for i, b := range c.Bars {
		x := chartPadding + float64(i)*slot + (slot-barW)/2
		y, height := zeroY-b.Value*scale, b.Value*scale
		if b.Value < 0 {
			y, height = zeroY, -b.Value*scale
		}
		nodes = append(nodes, svgEl("rect",
			append(attrs("x", x, "y", y, "width", barW, "height", height, "class", "bar"),
				svgEl("title", g.Textf("%d: %s", b.Label, formatTick(b.Value))),
			)...,
		))
		if i%labelEvery == 0 {
			nodes = append(nodes, svgText(x+barW/2, chartHeight-chartPadding+16, "middle", strconv.Itoa(b.Label)))
		}
	}

	return h.Figure(
		h.Class("chart"),
		svgEl("svg", append(attrs(
			"viewBox", fmt.Sprintf("0 0 %g %g", chartWidth, chartHeight),
			"role", "img",
			"aria-label", "Bar chart of "+c.Column,
		), nodes...)...),
		h.FigCaption(g.Text(c.Column)),
	)
}

func svgEl(name string, children ...g.Node) g.Node {
	return g.El(name, children...)
}

func svgText(x, y float64, anchor, s string) g.Node {
	return svgEl("text", append(attrs("x", x, "y", y, "text-anchor", anchor, "class", "tick"), g.Text(s))...)
}

// attrs turns name/value pairs into attribute nodes. Float values are
// rounded to two decimals.
func attrs(pairs ...any) []g.Node {
	out := make([]g.Node, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case float64:
			out = append(out, g.Attr(name, strconv.FormatFloat(v, 'f', 2, 64)))
		default:
			out = append(out, g.Attr(name, fmt.Sprint(v)))
		}
	}
	return out
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
