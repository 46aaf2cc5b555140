package reshape

// PadColumns returns a rectangular copy of ragged columns: every column is
// extended with fill up to the length of the longest one. The input is not
// modified.
func PadColumns(columns [][]Cell, fill Cell) [][]Cell {
	longest := 0
	for _, col := range columns {
		longest = max(longest, len(col))
	}

	out := make([][]Cell, len(columns))
	for i, col := range columns {
		padded := make([]Cell, longest)
		n := copy(padded, col)
		for j := n; j < longest; j++ {
			padded[j] = fill
		}
		out[i] = padded
	}
	return out
}
