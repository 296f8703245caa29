// Package grid lays a linear run of cells out in rows.
package grid

// GetGridCoords returns the column and row of the index-th cell when cols
// cells fit in a row.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Rows is the number of rows n cells need.
func Rows(n, cols int) int {
	return (n + cols - 1) / cols
}
