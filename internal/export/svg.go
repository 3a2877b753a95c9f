// Package export renders divergence series as standalone SVG plots.
package export

import (
	"fmt"
	"html"
	"strings"
)

type Series struct {
	Name   string
	Values []float64
	Color  string
}

// SeriesToSVG plots every series against step index on shared axes. Series
// with fewer than two points are skipped; if none remain it returns "".
func SeriesToSVG(series []Series, width, height int) string {
	plotted := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) >= 2 {
			plotted = append(plotted, s)
		}
	}
	if len(plotted) == 0 {
		return ""
	}

	maxN := 0
	minY, maxY := plotted[0].Values[0], plotted[0].Values[0]
	for _, s := range plotted {
		maxN = max(maxN, len(s.Values))
		for _, v := range s.Values {
			minY = min(minY, v)
			maxY = max(maxY, v)
		}
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(maxN - 1)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i, s := range plotted {
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, html.EscapeString(s.Color)))
		for j, v := range s.Values {
			x := float64(j) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(i+1), html.EscapeString(s.Color), html.EscapeString(s.Name)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}
