package terminal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"tmux-cssh/pkg/layout"
)

// LayoutCell is one pane to place with select-layout.
type LayoutCell struct {
	PaneID int // numeric part of the tmux pane id
	Frame  layout.Rect
}

// BuildTmuxLayout turns frames into a tmux layout string for a window of
// width x height cells.
//
// Cells are grouped into rows by their Y coordinate, top to bottom, and
// sorted left to right inside a row. Row heights and cell widths keep the
// proportions of the frames once the one-cell pane borders are subtracted,
// so the result always covers the window exactly.
//
// tmux assigns layout cells to panes in pane index order, so the returned
// pane order is the order the window's panes must be in.
func BuildTmuxLayout(width, height int, cells []LayoutCell) (string, []int, error) {
	if len(cells) == 0 {
		return "", nil, fmt.Errorf("%w: empty layout", ErrUnavailable)
	}

	sorted := append([]LayoutCell(nil), cells...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Frame.Y != sorted[j].Frame.Y {
			return sorted[i].Frame.Y < sorted[j].Frame.Y
		}
		return sorted[i].Frame.X < sorted[j].Frame.X
	})
	var rows [][]LayoutCell
	for _, c := range sorted {
		if n := len(rows); n > 0 && rows[n-1][0].Frame.Y == c.Frame.Y {
			rows[n-1] = append(rows[n-1], c)
			continue
		}
		rows = append(rows, []LayoutCell{c})
	}

	rowWeights := make([]float64, len(rows))
	for i, row := range rows {
		for _, c := range row {
			rowWeights[i] = math.Max(rowWeights[i], c.Frame.Height)
		}
	}
	heights, err := distribute(height-(len(rows)-1), rowWeights)
	if err != nil {
		return "", nil, err
	}

	var order []int
	var rowParts []string
	y := 0
	for i, row := range rows {
		weights := make([]float64, len(row))
		for j, c := range row {
			weights[j] = c.Frame.Width
		}
		widths, err := distribute(width-(len(row)-1), weights)
		if err != nil {
			return "", nil, err
		}

		var leaves []string
		x := 0
		for j, c := range row {
			leaves = append(leaves, fmt.Sprintf("%dx%d,%d,%d,%d", widths[j], heights[i], x, y, c.PaneID))
			order = append(order, c.PaneID)
			x += widths[j] + 1
		}
		if len(leaves) == 1 {
			rowParts = append(rowParts, leaves[0])
		} else {
			rowParts = append(rowParts, fmt.Sprintf("%dx%d,0,%d{%s}", width, heights[i], y, strings.Join(leaves, ",")))
		}
		y += heights[i] + 1
	}

	// A single row already spans the whole window.
	body := rowParts[0]
	if len(rows) > 1 {
		body = fmt.Sprintf("%dx%d,0,0[%s]", width, height, strings.Join(rowParts, ","))
	}
	return fmt.Sprintf("%04x,%s", layoutChecksum(body), body), order, nil
}

// layoutChecksum is tmux's layout_checksum.
func layoutChecksum(s string) uint16 {
	var csum uint16
	for i := 0; i < len(s); i++ {
		csum = (csum >> 1) + ((csum & 1) << 15)
		csum += uint16(s[i])
	}
	return csum
}

// distribute splits total into len(weights) integer sizes proportional to
// weights, each at least 1.
func distribute(total int, weights []float64) ([]int, error) {
	n := len(weights)
	if total < n {
		return nil, fmt.Errorf("%w: window too small for %d panes", ErrUnavailable, n)
	}
	sum := 0.0
	for _, w := range weights {
		sum += math.Max(w, 0)
	}

	sizes := make([]int, n)
	if sum > 0 {
		acc, prev := 0.0, 0
		ok := true
		for i, w := range weights {
			acc += math.Max(w, 0)
			end := int(math.Round(float64(total) * acc / sum))
			if i == n-1 {
				end = total
			}
			sizes[i] = end - prev
			prev = end
			if sizes[i] < 1 {
				ok = false
			}
		}
		if ok {
			return sizes, nil
		}
	}

	for i := range sizes {
		sizes[i] = total / n
	}
	sizes[n-1] += total % n
	return sizes, nil
}
