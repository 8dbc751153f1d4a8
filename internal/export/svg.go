// Package export renders recorded trajectories as standalone SVG
// images, for sharing runs outside the terminal.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/chaoskit/internal/history"
)

// TrajectorySVG draws the (xIdx, yIdx) phase-plane projection of the
// recorded history as a single polyline path.
func TrajectorySVG(records []history.Record, xIdx, yIdx, width, height int, strokeColor string) (string, error) {
	if len(records) < 2 {
		return "", fmt.Errorf("need at least 2 history records, have %d", len(records))
	}
	for _, r := range records {
		if xIdx >= len(r.State) || yIdx >= len(r.State) {
			return "", fmt.Errorf("axis indices (%d, %d) out of range for state dimension %d",
				xIdx, yIdx, len(r.State))
		}
	}
	if strokeColor == "" {
		strokeColor = "#00ff00"
	}

	minX, maxX := records[0].State[xIdx], records[0].State[xIdx]
	minY, maxY := records[0].State[yIdx], records[0].State[yIdx]
	for _, r := range records {
		x, y := r.State[xIdx], r.State[yIdx]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, r := range records {
		x := (r.State[xIdx] - minX) / rangeX * float64(width)
		y := float64(height) - (r.State[yIdx]-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String(), nil
}

// EnergySVG draws recorded energy against time, the quickest visual
// check on conservation quality after a long run.
func EnergySVG(records []history.Record, width, height int, strokeColor string) (string, error) {
	if len(records) < 2 {
		return "", fmt.Errorf("need at least 2 history records, have %d", len(records))
	}
	series := make([]history.Record, len(records))
	for i, r := range records {
		series[i] = history.Record{State: []float64{r.Time, r.Energy}}
	}
	return TrajectorySVG(series, 0, 1, width, height, strokeColor)
}
