// Package grid maps linear text VRAM cell indices to screen positions.
package grid

// GetGridCoords returns the column and row of cell index in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// CellOrigin returns the top-left pixel of cell index for cells of
// cellW x cellH pixels.
func CellOrigin(index, cols, cellW, cellH int) (px, py int) {
	x, y := GetGridCoords(index, cols)
	return x * cellW, y * cellH
}
